package resp

// SerializeCommand renders a command as the array of bulk strings a client sends,
// the form the append-only log stores
func SerializeCommand(cmd string, args []Value) ([]byte, error) {
	elements := make([]Value, 0, 1+len(args))
	elements = append(elements, MakeBulkString(cmd))
	elements = append(elements, args...)

	return AppendValue(nil, MakeArray(elements))
}
