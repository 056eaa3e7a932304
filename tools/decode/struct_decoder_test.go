package decode

import (
	"encoding/json"
	"testing"
	"time"
)

type payload struct {
	ID      string    `json:"_id"`
	Count   int       `json:"count"`
	IsRead  bool      `json:"isRead"`
	Created time.Time `json:"createdAt"`
	Tags    []string  `json:"tags"`
}

func TestDecodeFromJSONValue(t *testing.T) {
	raw := `{"_id":"m1","count":3,"isRead":true,"createdAt":"2025-01-02T03:04:05Z","tags":["a","b"]}`
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		t.Fatal(err)
	}

	got, err := Decode[payload](generic)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != "m1" || got.Count != 3 || !got.IsRead || len(got.Tags) != 2 {
		t.Fatalf("unexpected %+v", got)
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if !got.Created.Equal(want) {
		t.Errorf("createdAt = %v, want %v", got.Created, want)
	}
}

func TestDecodeRejectsFractionalInt(t *testing.T) {
	if _, err := Decode[payload](map[string]any{"count": 1.5}); err == nil {
		t.Fatal("expected error for fractional count")
	}
}

func TestDecodeNil(t *testing.T) {
	if _, err := Decode[payload](nil); err == nil {
		t.Fatal("expected error for nil input")
	}
}
