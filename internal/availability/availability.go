package availability

import (
	"fmt"
	"strings"
)

// Default payloads understood by Home Assistant.
const (
	DefaultPayloadAvailable    = "online"
	DefaultPayloadNotAvailable = "offline"
)

// Mode defines how the hub derives availability from several topics.
type Mode string

const (
	// ModeLatest uses the most recently received payload.
	ModeLatest Mode = "latest"

	// ModeAll requires every topic to report available.
	ModeAll Mode = "all"

	// ModeAny requires at least one topic to report available.
	ModeAny Mode = "any"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeLatest, ModeAll, ModeAny:
		return true
	}
	return false
}

// Item is a single availability source.
type Item struct {
	Topic               string
	PayloadAvailable    string
	PayloadNotAvailable string
	ValueTemplate       string
}

// ItemOption customises an Item when it is added to a Set.
type ItemOption func(*Item)

// WithPayloads overrides the online/offline payloads.
func WithPayloads(available, notAvailable string) ItemOption {
	return func(i *Item) {
		i.PayloadAvailable = available
		i.PayloadNotAvailable = notAvailable
	}
}

// WithValueTemplate sets a template used to extract the payload.
func WithValueTemplate(tpl string) ItemOption {
	return func(i *Item) {
		i.ValueTemplate = tpl
	}
}

// Fields renders the item with full discovery key names.
// Default payloads are omitted.
func (i Item) Fields() map[string]any {
	out := map[string]any{"topic": i.Topic}
	if i.PayloadAvailable != DefaultPayloadAvailable {
		out["payload_available"] = i.PayloadAvailable
	}
	if i.PayloadNotAvailable != DefaultPayloadNotAvailable {
		out["payload_not_available"] = i.PayloadNotAvailable
	}
	if i.ValueTemplate != "" {
		out["value_template"] = i.ValueTemplate
	}
	return out
}

// Set is an ordered collection of availability items with a combination mode.
//
// Thread Safety: a Set is not safe for concurrent mutation. It is configured
// before a run starts and only read (cloned) during composition.
type Set struct {
	items []Item
	mode  Mode // empty means latest, omitted on the wire
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a new availability source.
func (s *Set) Add(topic string, opts ...ItemOption) error {
	if err := ValidateTopic(topic); err != nil {
		return err
	}
	if s.index(topic) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateTopic, topic)
	}

	item := Item{
		Topic:               topic,
		PayloadAvailable:    DefaultPayloadAvailable,
		PayloadNotAvailable: DefaultPayloadNotAvailable,
	}
	for _, opt := range opts {
		opt(&item)
	}
	if item.PayloadAvailable == "" || item.PayloadNotAvailable == "" {
		return fmt.Errorf("%w: topic %q", ErrInvalidPayload, topic)
	}

	s.items = append(s.items, item)
	return nil
}

// Remove deletes the source for topic.
func (s *Set) Remove(topic string) error {
	idx := s.index(topic)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrTopicNotFound, topic)
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// Get returns the item for topic.
func (s *Set) Get(topic string) (Item, bool) {
	idx := s.index(topic)
	if idx < 0 {
		return Item{}, false
	}
	return s.items[idx], true
}

// Items returns a copy of the items in insertion order.
func (s *Set) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Set) Len() int {
	return len(s.items)
}

// Active reports whether the set has at least one item.
func (s *Set) Active() bool {
	return len(s.items) > 0
}

// Clear removes every item. The mode is kept.
func (s *Set) Clear() {
	s.items = nil
}

// Mode returns the effective mode (latest when unset).
func (s *Set) Mode() Mode {
	if s.mode == "" {
		return ModeLatest
	}
	return s.mode
}

// SetMode sets the combination mode explicitly.
// An explicitly set mode is always serialised, even when it is latest.
func (s *Set) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	s.mode = m
	return nil
}

// Merge inserts every item of other whose topic is not already present.
//
// Existing items are never overwritten. The items that were skipped because
// their topic already existed are returned so the caller can report them.
func (s *Set) Merge(other *Set) []Item {
	if other == nil {
		return nil
	}

	var skipped []Item
	for _, item := range other.items {
		if s.index(item.Topic) >= 0 {
			skipped = append(skipped, item)
			continue
		}
		s.items = append(s.items, item)
	}
	return skipped
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	if s == nil {
		return NewSet()
	}
	return &Set{items: s.Items(), mode: s.mode}
}

// Fields renders the set with full discovery key names.
// The item list is present only when non-empty and the mode only when set.
func (s *Set) Fields() map[string]any {
	out := make(map[string]any)
	if len(s.items) > 0 {
		list := make([]any, 0, len(s.items))
		for _, item := range s.items {
			list = append(list, item.Fields())
		}
		out["availability"] = list
	}
	if s.mode != "" {
		out["availability_mode"] = string(s.mode)
	}
	return out
}

func (s *Set) index(topic string) int {
	for i, item := range s.items {
		if item.Topic == topic {
			return i
		}
	}
	return -1
}

// ValidateTopic checks that topic is usable as a publish topic: non-empty,
// no MQTT wildcards, no NUL characters, no surrounding whitespace.
func ValidateTopic(topic string) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	case strings.ContainsAny(topic, "+#"):
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, topic)
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("%w: %q contains a null character", ErrInvalidTopic, topic)
	case strings.TrimSpace(topic) != topic:
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidTopic, topic)
	}
	return nil
}
