package types

// Value is a record's decoded content: nil, bool, json.Number, string,
// []interface{} or map[string]interface{}. Anything jsonx can encode is accepted.
type Value = interface{}

// Record is one pending entry. Key is the entry's name in the pending store and is
// not part of the content that gets hashed.
type Record struct {
	Key     string
	Content Value
}

// Contents returns the record contents in order, the shape stored as a block body.
func Contents(records []Record) []Value {
	out := make([]Value, len(records))
	for i, r := range records {
		out[i] = r.Content
	}
	return out
}

// Keys returns the record keys in order.
func Keys(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}
