package typing

// Validate checks note metadata against the fields of t. Keys without a
// field are ignored; missing keys only matter for required fields.
func Validate(t *Type, values map[string]any) []Violation {
	var out []Violation

	for _, name := range t.FieldNames() {
		f := t.Fields[name]

		value, ok := values[name]
		if !ok {
			if _, required := f.Type.(*RequiredType); required {
				out = append(out, violation(name, "is required")...)
			}

			continue
		}

		out = append(out, f.Type.Validate(name, value)...)
	}

	return out
}
