package discovery

// Origin identifies the software that publishes discovery documents.
// Name is required at composition time; the Composer fills it from the
// first device name when it is left empty.
type Origin struct {
	name       string
	swVersion  string
	supportURL string
}

// NewOrigin creates an origin with the given name (may be empty).
func NewOrigin(name string) *Origin {
	return &Origin{name: name}
}

// Name returns the origin name.
func (o *Origin) Name() string { return o.name }

// SWVersion returns the software version.
func (o *Origin) SWVersion() string { return o.swVersion }

// SupportURL returns the support URL.
func (o *Origin) SupportURL() string { return o.supportURL }

// SetName sets the origin name.
func (o *Origin) SetName(name string) error {
	if err := validateNonEmpty(ErrInvalidOption, "origin name", name); err != nil {
		return err
	}
	o.name = name
	return nil
}

// SetSWVersion sets the software version.
func (o *Origin) SetSWVersion(v string) error {
	if err := validateNonEmpty(ErrInvalidOption, "origin sw_version", v); err != nil {
		return err
	}
	o.swVersion = v
	return nil
}

// SetSupportURL sets the support URL.
func (o *Origin) SetSupportURL(u string) error {
	if err := validateNonEmpty(ErrInvalidOption, "origin support_url", u); err != nil {
		return err
	}
	o.supportURL = u
	return nil
}

// fields renders the origin block with full key names.
func (o *Origin) fields() (map[string]any, error) {
	if err := validateNonEmpty(ErrMissingOrigin, "origin name", o.name); err != nil {
		return nil, err
	}

	out := map[string]any{"name": o.name}
	if o.swVersion != "" {
		out["sw_version"] = o.swVersion
	}
	if o.supportURL != "" {
		out["support_url"] = o.supportURL
	}
	return out, nil
}
