package availability

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AddDuplicate(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add("dev/lwt"))

	err := s.Add("dev/lwt")
	assert.ErrorIs(t, err, ErrDuplicateTopic)
	assert.Equal(t, 1, s.Len())
}

func TestSet_AddInvalidTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
	}{
		{"empty", ""},
		{"single-level wildcard", "dev/+/lwt"},
		{"multi-level wildcard", "dev/#"},
		{"null character", "dev/\x00"},
		{"leading whitespace", " dev/lwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSet().Add(tt.topic)
			assert.ErrorIs(t, err, ErrInvalidTopic)
		})
	}
}

func TestSet_AddEmptyPayload(t *testing.T) {
	err := NewSet().Add("dev/lwt", WithPayloads("", "down"))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSet_Remove(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Add("b"))
	require.NoError(t, s.Add("c"))

	require.NoError(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, topics(s))

	assert.ErrorIs(t, s.Remove("b"), ErrTopicNotFound)
}

func TestSet_Active(t *testing.T) {
	s := NewSet()
	assert.False(t, s.Active())

	require.NoError(t, s.Add("a"))
	assert.True(t, s.Active())

	s.Clear()
	assert.False(t, s.Active())
}

func TestSet_MergeKeepsExisting(t *testing.T) {
	target := NewSet()
	require.NoError(t, target.Add("shared", WithPayloads("up", "down")))

	other := NewSet()
	require.NoError(t, other.Add("shared"))
	require.NoError(t, other.Add("extra"))

	skipped := target.Merge(other)

	require.Len(t, skipped, 1)
	assert.Equal(t, "shared", skipped[0].Topic)
	assert.Equal(t, []string{"shared", "extra"}, topics(target))

	item, ok := target.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "up", item.PayloadAvailable)
	assert.Equal(t, "down", item.PayloadNotAvailable)
}

func TestSet_MergeNil(t *testing.T) {
	s := NewSet()
	assert.Nil(t, s.Merge(nil))
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add("a"))

	c := s.Clone()
	require.NoError(t, c.Add("b"))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, c.Len())
}

func TestSet_Mode(t *testing.T) {
	s := NewSet()
	assert.Equal(t, ModeLatest, s.Mode())

	require.NoError(t, s.SetMode(ModeAll))
	assert.Equal(t, ModeAll, s.Mode())

	assert.ErrorIs(t, s.SetMode("most"), ErrInvalidMode)
}

func TestSet_Fields(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Set)
		want  map[string]any
	}{
		{
			name:  "empty set renders nothing",
			build: func(*Set) {},
			want:  map[string]any{},
		},
		{
			name: "defaults omitted",
			build: func(s *Set) {
				_ = s.Add("dev/lwt")
			},
			want: map[string]any{
				"availability": []any{
					map[string]any{"topic": "dev/lwt"},
				},
			},
		},
		{
			name: "custom payloads, template and mode",
			build: func(s *Set) {
				_ = s.Add("dev/state", WithPayloads("1", "0"), WithValueTemplate("{{ value_json.ok }}"))
				_ = s.SetMode(ModeAny)
			},
			want: map[string]any{
				"availability": []any{
					map[string]any{
						"topic":                 "dev/state",
						"payload_available":     "1",
						"payload_not_available": "0",
						"value_template":        "{{ value_json.ok }}",
					},
				},
				"availability_mode": "any",
			},
		},
		{
			name: "explicit latest is serialised",
			build: func(s *Set) {
				_ = s.SetMode(ModeLatest)
			},
			want: map[string]any{"availability_mode": "latest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet()
			tt.build(s)
			if diff := cmp.Diff(tt.want, s.Fields()); diff != "" {
				t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func topics(s *Set) []string {
	var out []string
	for _, item := range s.Items() {
		out = append(out, item.Topic)
	}
	return out
}
