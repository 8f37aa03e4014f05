package main

import (
	"flag"
	"testing"
)

// ristretto pulls in glog, which owns -v on the default flag set.
func TestDebugFlagRegistered(t *testing.T) {
	f := flag.Lookup("debug")
	if f == nil || f.DefValue != "false" {
		t.Fatalf("debug flag: %+v", f)
	}
	if v := flag.Lookup("v"); v != nil && v.Usage == f.Usage {
		t.Fatalf("-v must stay with its owner")
	}
}
