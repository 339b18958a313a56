package block

import "fmt"

type Type int

const (
	TypeNull Type = iota
	TypeInt64
	TypeFloat64
	TypeString
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// IsNumeric reports whether Sum and the moment primitives accept the type.
// An all-null column is treated as numeric.
func (t Type) IsNumeric() bool {
	return t == TypeInt64 || t == TypeFloat64 || t == TypeNull
}

type Field struct {
	Name string
	Type Type
}

type Schema struct {
	Fields []Field
}

func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
