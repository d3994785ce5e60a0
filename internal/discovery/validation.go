package discovery

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	idRegex   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	iconRegex = regexp.MustCompile(`^mdi:[a-z0-9_-]+$`)
)

// ValidateDiscoveryPrefix checks a Home Assistant discovery prefix.
//
// Rules: non-empty, no leading '$', no wildcards, no null or whitespace
// characters, no leading/trailing '/' and no empty segments.
func ValidateDiscoveryPrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("%w: must not be empty", ErrInvalidPrefix)
	case strings.HasPrefix(prefix, "$"):
		return fmt.Errorf("%w: %q must not start with '$'", ErrInvalidPrefix, prefix)
	case strings.ContainsAny(prefix, "+#"):
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidPrefix, prefix)
	case strings.ContainsRune(prefix, 0):
		return fmt.Errorf("%w: %q contains a null character", ErrInvalidPrefix, prefix)
	case strings.IndexFunc(prefix, unicode.IsSpace) >= 0:
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidPrefix, prefix)
	case strings.HasPrefix(prefix, "/") || strings.HasSuffix(prefix, "/"):
		return fmt.Errorf("%w: %q must not start or end with '/'", ErrInvalidPrefix, prefix)
	case strings.Contains(prefix, "//"):
		return fmt.Errorf("%w: %q has an empty topic segment", ErrInvalidPrefix, prefix)
	}
	return nil
}

// ValidateID checks a device identifier or object id: [A-Za-z0-9_-]+.
func ValidateID(kind, id string) error {
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: %s %q (only letters, digits, underscore and hyphen)", ErrInvalidIdentifier, kind, id)
	}
	return nil
}

// ValidateIcon checks a Material Design icon name such as "mdi:thermometer".
func ValidateIcon(icon string) error {
	if !iconRegex.MatchString(icon) {
		return fmt.Errorf("%w: %q (expected mdi:name)", ErrInvalidIcon, icon)
	}
	return nil
}

// ValidateComponent checks that c is a supported component.
func ValidateComponent(c Component) error {
	for _, known := range AllComponents() {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidComponent, c)
}

// ValidateEntityCategory checks an entity category.
func ValidateEntityCategory(cat EntityCategory) error {
	switch cat {
	case EntityCategoryConfig, EntityCategoryDiagnostic:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidEntityCategory, cat)
}

// ValidateQoS checks a QoS level.
func ValidateQoS(q QoS) error {
	if !q.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidQoS, q)
	}
	return nil
}

// validateNonEmpty rejects empty or whitespace-only values.
func validateNonEmpty(sentinel error, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s cannot be empty", sentinel, field)
	}
	return nil
}
