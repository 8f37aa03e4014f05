package codec

import (
	"testing"
)

type doc struct {
	Data   map[string]any `json:"data" msgpack:"data" cbor:"data"`
	Server bool           `json:"serverRendered" msgpack:"serverRendered" cbor:"serverRendered"`
}

func TestCodecsRestoreStringKeyedMaps(t *testing.T) {
	in := doc{Data: map[string]any{"user": map[string]any{"name": "ada"}}, Server: true}

	codecs := map[string]Codec[doc]{
		"json":    JSON[doc]{},
		"msgpack": Msgpack[doc]{},
		"cbor":    MustCBOR[doc](false),
		"struct":  Struct[doc]{},
	}
	for name, c := range codecs {
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		user, ok := out.Data["user"].(map[string]any)
		if !ok {
			t.Fatalf("%s: user restored as %T, want map[string]any", name, out.Data["user"])
		}
		if user["name"] != "ada" || !out.Server {
			t.Fatalf("%s: got %+v", name, out)
		}
	}
}

func TestConvertReshapesMaps(t *testing.T) {
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	got, err := Convert[user](map[string]any{"name": "ada", "age": 36.0})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != (user{Name: "ada", Age: 36}) {
		t.Fatalf("Convert=%+v", got)
	}

	same, err := Convert[user](user{Name: "x"})
	if err != nil || same.Name != "x" {
		t.Fatalf("Convert passthrough: %+v %v", same, err)
	}

	zero, err := Convert[*user](nil)
	if err != nil || zero != nil {
		t.Fatalf("Convert nil: %v %v", zero, err)
	}
}

func TestMediaTypeAliases(t *testing.T) {
	cases := map[string]string{
		"application/json; charset=utf-8": MediaJSON,
		"application/problem+json":        MediaJSON,
		"application/x-msgpack":           MediaMsgpack,
		"application/cbor":                MediaCBOR,
		"text/html":                       "text/html",
	}
	for in, want := range cases {
		if got := MediaType(in); got != want {
			t.Fatalf("MediaType(%q)=%q want %q", in, got, want)
		}
	}
	if _, ok := For[any](MediaProtobuf).(Struct[any]); !ok {
		t.Fatalf("protobuf should map to the Struct codec")
	}
	if For[any]("text/plain") != nil {
		t.Fatalf("text/plain should have no structured codec")
	}
}

func TestLimitCodecRejectsOversized(t *testing.T) {
	c := LimitCodec[string]{Inner: String{}, MaxDecode: 3}
	if _, err := c.Decode([]byte("toolong")); err == nil {
		t.Fatalf("expected size error")
	}
	if v, err := c.Decode([]byte("ok")); err != nil || v != "ok" {
		t.Fatalf("Decode small: %q %v", v, err)
	}
	if c.ContentType() != (String{}).ContentType() {
		t.Fatalf("ContentType not forwarded")
	}
}
