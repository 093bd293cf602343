package pectin

import "encoding/json"

// Codec encodes plain trees to bytes and back. The engine works on plain
// values (*Object, []any, scalars); a Codec is the byte boundary. Unmarshal
// returns the decoded plain tree rather than binding into a target; typed
// reconstruction is the deserialization engine's job, not the codec's.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes a plain tree into bytes.
	Marshal(plain any) ([]byte, error)

	// Unmarshal decodes data into a plain tree.
	Unmarshal(data []byte) (any, error)
}

// jsonCodec implements Codec for JSON, preserving object key order in both
// directions.
type jsonCodec struct {
	indent string
}

// JSON returns the default JSON codec.
func JSON() Codec {
	return &jsonCodec{}
}

// JSONIndent returns a JSON codec that pretty-prints with the given indent
// string.
func JSONIndent(indent string) Codec {
	return &jsonCodec{indent: indent}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes the plain tree as JSON text.
func (c *jsonCodec) Marshal(plain any) ([]byte, error) {
	var out []byte
	var err error
	if c.indent != "" {
		out, err = json.MarshalIndent(plain, "", c.indent)
	} else {
		out, err = json.Marshal(plain)
	}
	if err != nil {
		return nil, newCodecError(ErrMarshal, err)
	}
	return out, nil
}

// Unmarshal decodes JSON text into a plain tree, objects arriving as *Object
// with key order intact.
func (c *jsonCodec) Unmarshal(data []byte) (any, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, newCodecError(ErrUnmarshal, err)
	}
	return v, nil
}
