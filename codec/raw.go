package codec

// Bytes is an identity codec for []byte values.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) ContentType() string             { return "application/octet-stream" }

// String is a trivial codec for UTF-8 text. No validation is performed.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
func (String) ContentType() string             { return "text/plain; charset=utf-8" }
