package discovery

// abbreviation pairs a full discovery key with its abbreviated form.
type abbreviation struct {
	full  string
	short string
}

// abbreviations is the closed table of key abbreviations understood by
// Home Assistant. Keys missing from the table are rendered unchanged.
var abbreviations = [...]abbreviation{
	// Document level
	{"device", "dev"},
	{"origin", "o"},
	{"components", "cmps"},
	{"availability", "avty"},
	{"availability_mode", "avty_mode"},
	{"encoding", "e"},
	{"qos", "qos"},

	// Device block
	{"name", "name"},
	{"identifiers", "ids"},
	{"connections", "cns"},
	{"serial_number", "sn"},
	{"manufacturer", "mf"},
	{"model", "mdl"},
	{"model_id", "mdl_id"},
	{"hw_version", "hw"},
	{"sw_version", "sw"},
	{"configuration_url", "cu"},
	{"suggested_area", "sa"},
	{"via_device", "via_device"},

	// Origin block
	{"support_url", "url"},

	// Availability items
	{"topic", "t"},
	{"payload_available", "pl_avail"},
	{"payload_not_available", "pl_not_avail"},
	{"value_template", "val_tpl"},

	// Component options
	{"platform", "p"},
	{"unique_id", "uniq_id"},
	{"object_id", "obj_id"},
	{"state_topic", "stat_t"},
	{"command_topic", "cmd_t"},
	{"unit_of_measurement", "unit_of_meas"},
	{"device_class", "dev_cla"},
	{"state_class", "stat_cla"},
	{"icon", "ic"},
	{"entity_category", "ent_cat"},
	{"enabled_by_default", "en"},
	{"json_attributes_topic", "json_attr_t"},
	{"payload_on", "pl_on"},
	{"payload_off", "pl_off"},
	{"payload_press", "pl_prs"},
	{"expire_after", "exp_aft"},
	{"force_update", "frc_upd"},
	{"retain", "ret"},
}

// Abbreviate returns the abbreviated form of a full key, or the key itself
// when it has no abbreviation.
func Abbreviate(key string) string {
	for _, a := range abbreviations {
		if a.full == key {
			return a.short
		}
	}
	return key
}

// Expand returns the full form of an abbreviated key, or the key itself.
func Expand(key string) string {
	for _, a := range abbreviations {
		if a.short == key {
			return a.full
		}
	}
	return key
}

// componentsKey holds a map keyed by unique ids, which are never renamed.
const componentsKey = "components"

// renderKeys returns a copy of doc with keys rewritten by rename.
// Nested maps and lists are rewritten recursively; the keys of the
// components map are unique ids and are kept as is.
func renderKeys(doc map[string]any, rename func(string) string) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		if key == componentsKey {
			if cmps, ok := value.(map[string]any); ok {
				rendered := make(map[string]any, len(cmps))
				for id, cmp := range cmps {
					rendered[id] = renderValue(cmp, rename)
				}
				out[rename(key)] = rendered
				continue
			}
		}
		out[rename(key)] = renderValue(value, rename)
	}
	return out
}

func renderValue(value any, rename func(string) string) any {
	switch v := value.(type) {
	case map[string]any:
		return renderKeys(v, rename)
	case []any:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = renderValue(item, rename)
		}
		return list
	default:
		return v
	}
}
