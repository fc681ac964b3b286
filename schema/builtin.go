package schema

// Schema is the full field set a record of one family is validated against.
type Schema struct {
	Family  Family            `json:"family"`
	Section string            `json:"section"`
	Columns []FieldDefinition `json:"columns"`
	Extras  []FieldDefinition `json:"extras"`
}

func col(key, label string, t FieldType, required bool) FieldDefinition {
	return FieldDefinition{Key: key, Label: label, Type: t, Required: required, Column: key}
}

func ext(key, label string, t FieldType) FieldDefinition {
	return FieldDefinition{Key: key, Label: label, Type: t}
}

func withDefault(d FieldDefinition, v any) FieldDefinition {
	d.Default, d.HasDefault = v, true
	return d
}

func withUnit(d FieldDefinition, unit string) FieldDefinition {
	d.Unit = unit
	return d
}

func withOptions(d FieldDefinition, opts ...string) FieldDefinition {
	d.Options = opts
	return d
}

// EquipmentStatuses is the status vocabulary of an equipment run.
var EquipmentStatuses = []string{"running", "fault", "maintenance"}

func builtinSchema(f Family) Schema {
	switch f {
	case Material:
		return Schema{
			Family:  Material,
			Section: "extras",
			Columns: []FieldDefinition{
				col("material_code", "Material code", TypeText, true),
				col("material_name", "Material name", TypeText, true),
				col("weight", "Weight", TypeNumber, true),
				withDefault(col("unit", "Unit", TypeText, false), "kg"),
				col("supplier", "Supplier", TypeText, false),
				col("lot_number", "Lot number", TypeText, false),
			},
			Extras: []FieldDefinition{
				withUnit(ext("moisture", "Moisture", TypeNumber), "%"),
				ext("remark", "Remark", TypeTextarea),
			},
		}
	case Equipment:
		return Schema{
			Family:  Equipment,
			Section: "parameters",
			Columns: []FieldDefinition{
				col("equipment_code", "Equipment code", TypeText, true),
				col("equipment_name", "Equipment name", TypeText, true),
				col("start_time", "Start time", TypeDatetime, true),
				col("end_time", "End time", TypeDatetime, false),
				withDefault(withOptions(col("status", "Status", TypeSelect, false), EquipmentStatuses...), "running"),
			},
			Extras: []FieldDefinition{
				withUnit(ext("temperature", "Temperature", TypeNumber), "℃"),
				withUnit(ext("pressure", "Pressure", TypeNumber), "MPa"),
				withUnit(ext("speed", "Speed", TypeNumber), "rpm"),
			},
		}
	case Quality:
		return Schema{
			Family:  Quality,
			Section: "extras",
			Columns: []FieldDefinition{
				col("test_item", "Test item", TypeText, true),
				col("test_value", "Test value", TypeNumber, true),
				col("unit", "Unit", TypeText, false),
				col("standard_min", "Standard min", TypeNumber, false),
				col("standard_max", "Standard max", TypeNumber, false),
				col("notes", "Notes", TypeTextarea, false),
			},
			Extras: []FieldDefinition{
				ext("inspector", "Inspector", TypeText),
				ext("method", "Method", TypeText),
			},
		}
	}
	return Schema{Family: f, Section: "extras"}
}

// Builtin returns the built-in schema of a family with no stage overrides.
func Builtin(f Family) Schema {
	return builtinSchema(f)
}

// PersistedColumns lists the column names a family stores in its table.
func PersistedColumns(f Family) []string {
	s := builtinSchema(f)
	cols := make([]string, len(s.Columns))
	for i, d := range s.Columns {
		cols[i] = d.Column
	}
	return cols
}

// merge folds stage overrides into the built-in schema. A column override
// replaces the built-in column it targets, except that a numeric column stays
// numeric because its table stores a number; an override naming a column the
// family does not persist is demoted to an extension field. An extension
// override replaces a built-in extension with the same key, and one whose key
// collides with a column key is ignored.
func merge(base Schema, overrides []FieldDefinition) Schema {
	persisted := make(map[string]int, len(base.Columns))
	for i, d := range base.Columns {
		persisted[d.Column] = i
	}
	columnKeys := make(map[string]bool, len(base.Columns))
	for _, d := range base.Columns {
		columnKeys[d.Key] = true
	}
	for _, o := range overrides {
		if o.IsColumn() {
			if i, ok := persisted[o.Column]; ok {
				if t := base.Columns[i].Type; t.numeric() && !o.Type.numeric() {
					o.Type = t
				}
				base.Columns[i] = o
				continue
			}
			o.Column = ""
		}
		if columnKeys[o.Key] {
			continue
		}
		replaced := false
		for i, e := range base.Extras {
			if e.Key == o.Key {
				base.Extras[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			base.Extras = append(base.Extras, o)
		}
	}
	return base
}
