package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Family identifies one of the three record kinds attached to a batch.
type Family string

const (
	Material  Family = "material"
	Equipment Family = "equipment"
	Quality   Family = "quality"
)

// Families lists every record family in display order.
var Families = []Family{Material, Equipment, Quality}

// ParseFamily maps a family name, or the plural key used in the fields
// document, to a Family.
func ParseFamily(s string) (Family, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "material", "materials":
		return Material, true
	case "equipment", "equipments":
		return Equipment, true
	case "quality", "qualities":
		return Quality, true
	}
	return "", false
}

// FieldType is the closed set of value types a field can declare.
type FieldType int

const (
	TypeText FieldType = iota
	TypeTextarea
	TypeNumber
	TypeInteger
	TypeBoolean
	TypeSelect
	TypeDatetime
	TypeDate
	TypeTime
	// TypeOpaque covers any declared type outside the known set; values pass
	// through conversion unchanged.
	TypeOpaque
)

var fieldTypeNames = [...]string{
	TypeText:     "text",
	TypeTextarea: "textarea",
	TypeNumber:   "number",
	TypeInteger:  "integer",
	TypeBoolean:  "boolean",
	TypeSelect:   "select",
	TypeDatetime: "datetime",
	TypeDate:     "date",
	TypeTime:     "time",
	TypeOpaque:   "opaque",
}

// ParseFieldType maps a declared type name to a FieldType. An empty name is
// text; anything unrecognised is opaque.
func ParseFieldType(s string) FieldType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeText
	}
	if s == "datetime-local" {
		return TypeDatetime
	}
	for t, name := range fieldTypeNames {
		if name == s {
			return FieldType(t)
		}
	}
	return TypeOpaque
}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
	return fieldTypeNames[t]
}

func (t FieldType) numeric() bool { return t == TypeNumber || t == TypeInteger }

func (t FieldType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *FieldType) UnmarshalText(b []byte) error {
	*t = ParseFieldType(string(b))
	return nil
}

// FieldDefinition describes one field of a record family. A definition with a
// Column is a primary column; without one it is an extension field collected
// into the record's attribute (or parameter) map.
type FieldDefinition struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	HasDefault  bool      `json:"-"`
	Options     []string  `json:"options,omitempty"`
	Column      string    `json:"column,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Segments    []string  `json:"segments,omitempty"`

	matchers []matcher
}

// IsColumn reports whether the definition targets a primary column.
func (d FieldDefinition) IsColumn() bool { return d.Column != "" }

// DisplayLabel is the label used in error messages, falling back to the key.
func (d FieldDefinition) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Key
}

// Target is the name the value is stored under.
func (d FieldDefinition) Target() string {
	if d.Column != "" {
		return d.Column
	}
	return d.Key
}

// AppliesTo reports whether the definition's stage constraint matches stage.
// A definition without a constraint applies to every stage.
func (d FieldDefinition) AppliesTo(stage string) bool {
	if len(d.matchers) == 0 {
		return true
	}
	for _, m := range d.matchers {
		if m.match(stage) {
			return true
		}
	}
	return false
}

func (d *FieldDefinition) compile() {
	d.matchers = nil
	for _, p := range d.Segments {
		d.matchers = append(d.matchers, compilePattern(p))
	}
}

// clone returns a copy that shares no mutable state with d.
func (d FieldDefinition) clone() FieldDefinition {
	c := d
	c.Default = cloneValue(d.Default)
	if d.Options != nil {
		c.Options = append([]string(nil), d.Options...)
	}
	if d.Segments != nil {
		c.Segments = append([]string(nil), d.Segments...)
	}
	if d.matchers != nil {
		c.matchers = append([]matcher(nil), d.matchers...)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	default:
		return v
	}
}

// UnmarshalYAML decodes a definition from the fields document. It records
// whether a default was declared at all and accepts either a single stage
// name or a list under "segments".
func (d *FieldDefinition) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Key         string    `yaml:"key"`
		Label       string    `yaml:"label"`
		Type        string    `yaml:"type"`
		Required    bool      `yaml:"required"`
		Options     []string  `yaml:"options"`
		Column      string    `yaml:"column"`
		Unit        string    `yaml:"unit"`
		Placeholder string    `yaml:"placeholder"`
		Default     yaml.Node `yaml:"default"`
		Segments    yaml.Node `yaml:"segments"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	*d = FieldDefinition{
		Key:         strings.TrimSpace(raw.Key),
		Label:       raw.Label,
		Type:        ParseFieldType(raw.Type),
		Required:    raw.Required,
		Options:     raw.Options,
		Column:      strings.TrimSpace(raw.Column),
		Unit:        raw.Unit,
		Placeholder: raw.Placeholder,
	}
	if raw.Default.Kind != 0 {
		var v any
		if err := raw.Default.Decode(&v); err != nil {
			return fmt.Errorf("field %q default: %w", d.Key, err)
		}
		d.Default, d.HasDefault = v, true
	}
	switch raw.Segments.Kind {
	case 0:
	case yaml.ScalarNode:
		if raw.Segments.Tag != "!!null" && raw.Segments.Value != "" {
			d.Segments = []string{raw.Segments.Value}
		}
	case yaml.SequenceNode:
		if err := raw.Segments.Decode(&d.Segments); err != nil {
			return fmt.Errorf("field %q segments: %w", d.Key, err)
		}
	default:
		return fmt.Errorf("field %q segments: expected a name or a list", d.Key)
	}
	return nil
}
