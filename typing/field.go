package typing

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/otl-lang/otl/script"
)

// Span is a byte range in the schema source.
type Span struct {
	From int
	To   int
}

// Field is a typed attribute of a Type.
type Field struct {
	Name string
	Type FieldType

	// Default is the normalized default value, as it is written into new notes.
	Default string

	// Owner is the type the field is bound to. Inherited fields are rebound
	// to the inheriting type.
	Owner *Type

	Span Span
}

// NewField creates a field. A nil def falls back to the field type's default.
func NewField(name string, ft FieldType, def any) *Field {
	f := &Field{Name: name, Type: ft}

	if def != nil {
		f.Default = ft.ParseDefault(def)
	} else {
		f.Default = ft.Default()
	}

	return f
}

// Bind returns a copy of f owned by t.
func (f *Field) Bind(t *Type) *Field {
	c := *f
	c.Owner = t

	return &c
}

// FieldType is the value kind of a field.
type FieldType interface {
	Name() string

	// Default is the value used when a field declares none.
	Default() string

	// ParseDefault normalizes a declared default value.
	ParseDefault(v any) string

	// Validate checks a metadata value stored under path.
	Validate(path string, value any) []Violation

	IsRelation() bool
	IsList() bool

	// Underlying strips wrappers such as Required.
	Underlying() FieldType
}

// Violation is a metadata value that does not satisfy its field type.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	return v.Message
}

func violation(path, format string, args ...any) []Violation {
	return []Violation{{Path: path, Message: "Field " + path + " " + fmt.Sprintf(format, args...)}}
}

// scalar carries the behavior shared by the plain variants.
type scalar struct{}

func (scalar) Default() string { return "" }

func (scalar) ParseDefault(v any) string { return formatValue(v) }

func (scalar) Validate(string, any) []Violation { return nil }

func (scalar) IsRelation() bool { return false }

func (scalar) IsList() bool { return false }

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatValue(item))
		}

		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// StringType is a single-line string.
type StringType struct{ scalar }

func (*StringType) Name() string { return "String" }

func (t *StringType) Underlying() FieldType { return t }

// TextType is multi-line text.
type TextType struct{ scalar }

func (*TextType) Name() string { return "Text" }

func (t *TextType) Underlying() FieldType { return t }

// Number pickers.
const (
	PickerDropdown = "dropdown"
	PickerSlider   = "slider"
	PickerRating   = "rating"
	PickerCheckbox = "checkbox"
)

// NumberType is a bounded number.
type NumberType struct {
	scalar

	Min    float64
	Max    float64
	Picker string
}

// NewNumberType returns a number type with the default bounds [0, 10].
func NewNumberType() *NumberType {
	return &NumberType{Min: 0, Max: 10, Picker: PickerDropdown}
}

func (*NumberType) Name() string { return "Number" }

func (t *NumberType) Default() string { return formatValue(t.Min) }

func (t *NumberType) Underlying() FieldType { return t }

func (t *NumberType) Validate(path string, value any) []Violation {
	n, ok := toFloat(value)
	if !ok {
		return violation(path, "must be a number")
	}

	if n < t.Min || n > t.Max {
		return violation(path, "must be between %s and %s", formatValue(t.Min), formatValue(t.Max))
	}

	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// BooleanType is a flag.
type BooleanType struct {
	scalar

	Picker string
}

func (*BooleanType) Name() string { return "Boolean" }

func (*BooleanType) Default() string { return "false" }

func (t *BooleanType) Underlying() FieldType { return t }

func (*BooleanType) ParseDefault(v any) string {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatBool(v > 0)
	default:
		return formatValue(v)
	}
}

func (*BooleanType) Validate(path string, value any) []Violation {
	if _, ok := value.(bool); !ok {
		return violation(path, "must be a boolean")
	}

	return nil
}

// ChoiceType is one of a fixed set of options.
type ChoiceType struct {
	scalar

	Options []string
	Fuzzy   bool
}

func (*ChoiceType) Name() string { return "Choice" }

func (t *ChoiceType) Underlying() FieldType { return t }

func (t *ChoiceType) Default() string {
	if len(t.Options) == 0 {
		return ""
	}

	return t.Options[0]
}

func (t *ChoiceType) Validate(path string, value any) []Violation {
	s, ok := value.(string)
	if !ok {
		return violation(path, "must be a string")
	}

	if !slices.Contains(t.Options, s) {
		return violation(path, "must be one of the following values: %s", strings.Join(t.Options, ", "))
	}

	return nil
}

// TagType is a free string with suggested options.
type TagType struct {
	scalar

	Options []string
	Dynamic bool
	Fuzzy   bool
}

func (*TagType) Name() string { return "Tag" }

func (t *TagType) Underlying() FieldType { return t }

func (t *TagType) Default() string {
	if len(t.Options) == 0 {
		return ""
	}

	return t.Options[0]
}

// Validate only checks the kind: options are suggestions.
func (*TagType) Validate(path string, value any) []Violation {
	if _, ok := value.(string); !ok {
		return violation(path, "must be a string")
	}

	return nil
}

// DateType is a calendar date.
type DateType struct{ scalar }

func (*DateType) Name() string { return "Date" }

func (t *DateType) Underlying() FieldType { return t }

func (*DateType) Validate(path string, value any) []Violation {
	return validateTime(path, value, time.DateOnly)
}

// DateTimeType is a date with a time of day.
type DateTimeType struct{ scalar }

func (*DateTimeType) Name() string { return "DateTime" }

func (t *DateTimeType) Underlying() FieldType { return t }

func (*DateTimeType) Validate(path string, value any) []Violation {
	return validateTime(path, value, time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", time.DateTime, time.DateOnly)
}

func validateTime(path string, value any, layouts ...string) []Violation {
	switch v := value.(type) {
	case time.Time:
		return nil
	case string:
		for _, layout := range layouts {
			if _, err := time.Parse(layout, v); err == nil {
				return nil
			}
		}
	}

	return violation(path, "must be a date")
}

// NoteType is a link to another note, optionally restricted to types.
type NoteType struct {
	scalar

	TypeNames []string
	DV        string
	Short     bool
	Subpath   bool
	Display   bool
	Subtypes  bool
	Relation  bool
	Implicit  bool
	Explicit  bool
	Inverse   string
}

// NewNoteType returns a note type with short links enabled.
func NewNoteType() *NoteType {
	return &NoteType{Short: true}
}

func (*NoteType) Name() string { return "Note" }

func (t *NoteType) Underlying() FieldType { return t }

func (t *NoteType) IsRelation() bool { return t.Relation }

// IsExplicit reports whether links are written explicitly. It defaults to
// true unless the relation is declared implicit.
func (t *NoteType) IsExplicit() bool { return t.Explicit || !t.Implicit }

// Types resolves the target type names against g, skipping unknown names.
func (t *NoteType) Types(g *Graph) []*Type {
	out := make([]*Type, 0, len(t.TypeNames))

	for _, name := range t.TypeNames {
		if ty := g.Get(Query{Name: name}); ty != nil {
			out = append(out, ty)
		}
	}

	return out
}

func (*NoteType) Validate(path string, value any) []Violation {
	if _, ok := value.(string); !ok {
		return violation(path, "must be a link")
	}

	return nil
}

// ListType is a list of values of an inner type.
type ListType struct {
	Inner FieldType
}

func (*ListType) Name() string { return "List" }

func (*ListType) Default() string { return "" }

func (*ListType) ParseDefault(v any) string { return formatValue(v) }

func (t *ListType) IsRelation() bool { return t.Inner.IsRelation() }

func (*ListType) IsList() bool { return true }

func (t *ListType) Underlying() FieldType { return t }

func (t *ListType) Validate(path string, value any) []Violation {
	items, ok := value.([]any)
	if !ok {
		return violation(path, "must be a list")
	}

	var out []Violation

	for i, item := range items {
		out = append(out, t.Inner.Validate(fmt.Sprintf("%s[%d]", path, i), item)...)
	}

	return out
}

// RequiredType marks its inner type as mandatory.
type RequiredType struct {
	Inner FieldType
}

func (*RequiredType) Name() string { return "Required" }

func (t *RequiredType) Default() string { return t.Inner.Default() }

func (t *RequiredType) ParseDefault(v any) string { return t.Inner.ParseDefault(v) }

func (t *RequiredType) IsRelation() bool { return t.Inner.IsRelation() }

func (t *RequiredType) IsList() bool { return t.Inner.IsList() }

func (t *RequiredType) Underlying() FieldType { return t.Inner.Underlying() }

func (t *RequiredType) Validate(path string, value any) []Violation {
	if value == nil || value == "" {
		return violation(path, "is required")
	}

	return t.Inner.Validate(path, value)
}

// FileType is an attachment stored in the vault.
type FileType struct {
	scalar

	Kind   string
	Ext    []string
	Folder string

	// Autorename computes the stored file name.
	Autorename *script.Script
}

func (*FileType) Name() string { return "File" }

func (t *FileType) Underlying() FieldType { return t }

func (t *FileType) Validate(path string, value any) []Violation {
	s, ok := value.(string)
	if !ok {
		return violation(path, "must be a string")
	}

	if len(t.Ext) == 0 {
		return nil
	}

	for _, ext := range t.Ext {
		if strings.HasSuffix(strings.ToLower(s), "."+strings.ToLower(strings.TrimPrefix(ext, "."))) {
			return nil
		}
	}

	return violation(path, "must have one of the extensions: %s", strings.Join(t.Ext, ", "))
}

// TypeString renders ft as written in a schema, without parameters.
func TypeString(ft FieldType) string {
	switch t := ft.(type) {
	case *ListType:
		return "List[" + TypeString(t.Inner) + "]"
	case *RequiredType:
		return "Required[" + TypeString(t.Inner) + "]"
	default:
		return ft.Name()
	}
}

// NoteTargets returns the type names a note field links to, looking
// through List and Required.
func NoteTargets(ft FieldType) []string {
	switch t := ft.(type) {
	case *NoteType:
		return t.TypeNames
	case *ListType:
		return NoteTargets(t.Inner)
	case *RequiredType:
		return NoteTargets(t.Inner)
	default:
		return nil
	}
}
