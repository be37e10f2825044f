package jsonx

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

// canonical is the encoding used for everything that gets hashed: struct fields in
// declaration order, map keys sorted, no insignificant whitespace. Numbers decode as
// json.Number so they re-encode byte for byte.
var canonical = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

func Marshal(v interface{}) ([]byte, error) {
	return jsonx.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return jsonx.Unmarshal(data, v)
}

func NewDecoder(r io.Reader) *jsoniter.Decoder {
	return jsonx.NewDecoder(r)
}

func NewEncoder(w io.Writer) *jsoniter.Encoder {
	return jsonx.NewEncoder(w)
}

// MarshalCanonical encodes v in the stable form fed to the hasher.
func MarshalCanonical(v interface{}) ([]byte, error) {
	return canonical.Marshal(v)
}

// UnmarshalCanonical decodes data keeping numbers as json.Number.
func UnmarshalCanonical(data []byte, v interface{}) error {
	return canonical.Unmarshal(data, v)
}
