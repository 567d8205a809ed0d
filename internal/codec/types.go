package codec

// DataType classifies a decoded value
type DataType byte

const (
	TypeNone DataType = iota
	TypeString
	TypeNumber
	TypeBoolean
	TypeNull
	TypeList
	TypeObject
)

var typeNames = map[DataType]string{
	TypeNone:    "none",
	TypeString:  "string",
	TypeNumber:  "number",
	TypeBoolean: "boolean",
	TypeNull:    "null",
	TypeList:    "list",
	TypeObject:  "object",
}

// String returns the name reported by the TYPE command
func (t DataType) String() string {
	return typeNames[t]
}

// TypeOf reports the DataType of a decoded value
func TypeOf(v any) DataType {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return TypeNumber
	case bool:
		return TypeBoolean
	case []any:
		return TypeList
	case map[string]any:
		return TypeObject
	default:
		return TypeObject
	}
}
