package typing_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/otl-lang/otl/typing"
)

func TestFieldDefaults(t *testing.T) {
	t.Parallel()

	number := typing.NewNumberType()
	number.Min = 3

	tests := []struct {
		name     string
		ft       typing.FieldType
		def      any
		expected string
	}{
		{"string declared", &typing.StringType{}, "value", "value"},
		{"string fallback", &typing.StringType{}, nil, ""},
		{"number fallback is min", number, nil, "3"},
		{"number declared", number, 4.5, "4.5"},
		{"boolean fallback", &typing.BooleanType{}, nil, "false"},
		{"boolean from number", &typing.BooleanType{}, 1.0, "true"},
		{"choice fallback is first option", &typing.ChoiceType{Options: []string{"a", "b"}}, nil, "a"},
		{"choice without options", &typing.ChoiceType{}, nil, ""},
		{"required delegates", &typing.RequiredType{Inner: &typing.BooleanType{}}, true, "true"},
		{"list default", &typing.ListType{Inner: &typing.StringType{}}, []any{"a", "b"}, "[a, b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := typing.NewField("f", tt.ft, tt.def)
			if f.Default != tt.expected {
				t.Errorf("Default = %q, want %q", f.Default, tt.expected)
			}
		})
	}
}

func TestFieldType_Wrappers(t *testing.T) {
	t.Parallel()

	note := typing.NewNoteType()
	note.Relation = true

	required := &typing.RequiredType{Inner: &typing.ListType{Inner: note}}

	if !required.IsList() || !required.IsRelation() {
		t.Error("Required should forward IsList and IsRelation")
	}

	if required.Underlying().Name() != "List" {
		t.Errorf("Underlying() = %s, want List", required.Underlying().Name())
	}

	if !note.IsExplicit() {
		t.Error("notes are explicit by default")
	}

	note.Implicit = true
	if note.IsExplicit() {
		t.Error("implicit notes are not explicit unless requested")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	ty := typing.NewType("Book")
	ty.AddField(typing.NewField("rating", typing.NewNumberType(), nil))
	ty.AddField(typing.NewField("status", &typing.ChoiceType{Options: []string{"todo", "done"}}, nil))
	ty.AddField(typing.NewField("title", &typing.RequiredType{Inner: &typing.StringType{}}, nil))
	ty.AddField(typing.NewField("read", &typing.BooleanType{}, nil))
	ty.AddField(typing.NewField("tags", &typing.ListType{Inner: &typing.TagType{}}, nil))
	ty.AddField(typing.NewField("published", &typing.DateType{}, nil))

	tests := []struct {
		name     string
		values   map[string]any
		expected []string
	}{
		{
			name:   "valid",
			values: map[string]any{"rating": 5, "status": "done", "title": "Dune", "read": true, "tags": []any{"sf"}, "published": "1965-08-01"},
		},
		{
			name:     "missing required",
			values:   map[string]any{},
			expected: []string{"Field title is required"},
		},
		{
			name:   "wrong values",
			values: map[string]any{"rating": 11, "status": "maybe", "title": "", "read": "yes", "tags": []any{"ok", 3}, "published": "soon"},
			expected: []string{
				"Field published must be a date",
				"Field rating must be between 0 and 10",
				"Field read must be a boolean",
				"Field status must be one of the following values: todo, done",
				"Field tags[1] must be a string",
				"Field title is required",
			},
		},
		{
			name:     "wrong kinds",
			values:   map[string]any{"rating": "five", "title": "x", "tags": "sf"},
			expected: []string{"Field rating must be a number", "Field tags must be a list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []string
			for _, v := range typing.Validate(ty, tt.values) {
				got = append(got, v.Message)
			}

			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("violations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	t.Parallel()

	note := &typing.NoteType{TypeNames: []string{"Person", "Team"}}

	tests := []struct {
		ft      typing.FieldType
		want    string
		targets []string
	}{
		{&typing.StringType{}, "String", nil},
		{note, "Note", []string{"Person", "Team"}},
		{&typing.ListType{Inner: note}, "List[Note]", []string{"Person", "Team"}},
		{&typing.RequiredType{Inner: &typing.ListType{Inner: &typing.DateType{}}}, "Required[List[Date]]", nil},
	}

	for _, tt := range tests {
		if got := typing.TypeString(tt.ft); got != tt.want {
			t.Errorf("TypeString() = %q, want %q", got, tt.want)
		}

		if diff := cmp.Diff(tt.targets, typing.NoteTargets(tt.ft)); diff != "" {
			t.Errorf("NoteTargets(%s) mismatch (-want +got):\n%s", tt.want, diff)
		}
	}
}
