package record

import (
	"errors"
	"fmt"
	"strings"

	"batchtrack/schema"

	"github.com/hashicorp/go-multierror"
)

// ValidationError carries every problem found in one payload.
type ValidationError struct {
	errs *multierror.Error
}

// NewValidationError builds a ValidationError from problem strings.
func NewValidationError(problems ...string) *ValidationError {
	v := &ValidationError{}
	for _, p := range problems {
		v.add(errors.New(p))
	}
	return v
}

func (v *ValidationError) add(err error) {
	v.errs = multierror.Append(v.errs, err)
}

// Problems returns the human-readable problem list in field order.
func (v *ValidationError) Problems() []string {
	if v == nil || v.errs == nil {
		return nil
	}
	out := make([]string, len(v.errs.Errors))
	for i, e := range v.errs.Errors {
		out[i] = e.Error()
	}
	return out
}

// Len returns the number of problems.
func (v *ValidationError) Len() int {
	if v == nil || v.errs == nil {
		return 0
	}
	return len(v.errs.Errors)
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Problems(), "; ")
}

// orNil returns v as an error, or nil when nothing was recorded.
func (v *ValidationError) orNil() error {
	if v.Len() == 0 {
		return nil
	}
	return v
}

// Values are the coerced contents of a payload.
type Values struct {
	Columns map[string]any
	Extra   map[string]any
}

// Column returns the coerced column value, or nil.
func (v Values) Column(name string) any { return v.Columns[name] }

// Collect coerces payload under the schema. Columns are read from top-level
// keys. Extension fields are read from the sub-object named by
// s.Section, falling back to a top-level key of the same name; undeclared
// non-empty keys of that sub-object are carried through verbatim. All
// problems are accumulated and returned together as a *ValidationError.
func Collect(payload map[string]any, s schema.Schema) (Values, error) {
	out, verr := collect(payload, s)
	if err := verr.orNil(); err != nil {
		return Values{}, err
	}
	return out, nil
}

func collect(payload map[string]any, s schema.Schema) (Values, *ValidationError) {
	out := Values{Columns: map[string]any{}, Extra: map[string]any{}}
	verr := &ValidationError{}

	for _, def := range s.Columns {
		raw := payload[def.Key]
		if IsEmpty(raw) {
			if def.HasDefault {
				raw = def.Default
			} else if def.Required {
				verr.add(fmt.Errorf("%s is required", def.DisplayLabel()))
				continue
			}
		}
		if IsEmpty(raw) {
			out.Columns[def.Target()] = nil
			continue
		}
		v, err := Convert(raw, def)
		if err != nil {
			verr.add(err)
			continue
		}
		out.Columns[def.Target()] = v
	}

	extra := map[string]any{}
	if sub, ok := payload[s.Section].(map[string]any); ok {
		for k, v := range sub {
			extra[k] = v
		}
	}
	declared := make(map[string]bool, len(s.Extras))
	for _, def := range s.Extras {
		declared[def.Key] = true
		if _, ok := extra[def.Key]; !ok {
			if v, ok := payload[def.Key]; ok {
				extra[def.Key] = v
			}
		}
	}

	for _, def := range s.Extras {
		raw := extra[def.Key]
		if IsEmpty(raw) && def.HasDefault {
			raw = def.Default
		}
		if IsEmpty(raw) {
			if def.Required {
				verr.add(fmt.Errorf("%s is required", def.DisplayLabel()))
			}
			continue
		}
		v, err := Convert(raw, def)
		if err != nil {
			verr.add(err)
			continue
		}
		out.Extra[def.Key] = v
	}
	for k, v := range extra {
		if declared[k] || IsEmpty(v) {
			continue
		}
		if _, done := out.Extra[k]; !done {
			out.Extra[k] = v
		}
	}
	return out, verr
}

// CollectEquipment collects an equipment payload. Parameters always come from
// the "parameters" section; explicit entries of that sub-object fill in any
// key the extension pass did not produce, and keys naming a primary column
// are dropped. An end time earlier than the start time is reported along with
// any other problem.
func CollectEquipment(payload map[string]any, s schema.Schema) (Values, error) {
	s.Section = "parameters"
	vals, verr := collect(payload, s)
	if start, end := String(vals.Column("start_time")), String(vals.Column("end_time")); start != "" && end != "" {
		st, ok1 := parseTime(start)
		et, ok2 := parseTime(end)
		if ok1 && ok2 && et.Before(st) {
			verr.add(errors.New("End time must not be earlier than start time"))
		}
	}
	if err := verr.orNil(); err != nil {
		return Values{}, err
	}
	if explicit, ok := payload["parameters"].(map[string]any); ok {
		for k, v := range explicit {
			if _, ok := vals.Extra[k]; !ok && !IsEmpty(v) {
				vals.Extra[k] = v
			}
		}
	}
	for _, def := range s.Columns {
		delete(vals.Extra, def.Key)
		delete(vals.Extra, def.Target())
	}
	return vals, nil
}
