package qr

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestDataURI(t *testing.T) {
	uri, err := DataURI("pairing-token-abc")
	if err != nil {
		t.Fatalf("DataURI: %v", err)
	}

	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("missing data URI prefix: %.40s", uri)
	}

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("payload is not a PNG")
	}
}

func TestDataURI_Deterministic(t *testing.T) {
	a, err := DataURI("same-token")
	if err != nil {
		t.Fatalf("DataURI: %v", err)
	}
	b, err := DataURI("same-token")
	if err != nil {
		t.Fatalf("DataURI: %v", err)
	}
	if a != b {
		t.Error("same token produced different artifacts")
	}
}

func TestDataURI_EmptyToken(t *testing.T) {
	if _, err := DataURI(""); err == nil {
		t.Error("expected error for empty token")
	}
}
