package types

import "fmt"

// AttrType is the type tag shared by tuple attributes and index keys.
// The numeric values are part of the index page format (key_type field).
type AttrType int32

const (
	TypeInt32 AttrType = iota
	TypeFloat32
	TypeVarChar
)

func (t AttrType) Valid() bool {
	return t == TypeInt32 || t == TypeFloat32 || t == TypeVarChar
}

func (t AttrType) String() string {
	switch t {
	case TypeInt32:
		return "INT"
	case TypeFloat32:
		return "FLOAT"
	case TypeVarChar:
		return "VARCHAR"
	default:
		return fmt.Sprintf("AttrType(%d)", int32(t))
	}
}

// Attribute is one column of a schema, as handed over by the catalog.
type Attribute struct {
	Name   string   `json:"name"`
	Type   AttrType `json:"type"`
	Length uint32   `json:"length"` // max length for VARCHAR, 4 otherwise
}

// Value is one decoded attribute. Data == nil means SQL NULL.
// For VARCHAR the data keeps its 4-byte length prefix.
type Value struct {
	Type AttrType
	Data []byte
}

func (v Value) IsNull() bool {
	return v.Data == nil
}
