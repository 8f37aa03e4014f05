package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(`{"data":{}}`)
	b := Encode(7, FormatJSON, payload)

	gen, f, got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gen != 7 || f != FormatJSON || !bytes.Equal(got, payload) {
		t.Fatalf("gen=%d f=%d payload=%q", gen, f, got)
	}
}

func TestEmptyPayload(t *testing.T) {
	gen, f, got, err := Decode(Encode(0, FormatCBOR, nil))
	if err != nil || gen != 0 || f != FormatCBOR || len(got) != 0 {
		t.Fatalf("gen=%d f=%d len=%d err=%v", gen, f, len(got), err)
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	good := Encode(1, FormatMsgpack, []byte("abc"))

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'

	badVersion := append([]byte(nil), good...)
	badVersion[4] = 9

	badFormat := append([]byte(nil), good...)
	badFormat[6] = 0

	truncated := good[:len(good)-1]
	trailing := append(append([]byte(nil), good...), 0)

	lying := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(lying[15:19], 1<<31)

	cases := map[string][]byte{
		"short":     good[:5],
		"magic":     badMagic,
		"version":   badVersion,
		"format":    badFormat,
		"truncated": truncated,
		"trailing":  trailing,
		"vlen":      lying,
	}
	for name, b := range cases {
		if _, _, _, err := Decode(b); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: err=%v want ErrCorrupt", name, err)
		}
	}
}
