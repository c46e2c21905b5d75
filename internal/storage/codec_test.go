package storage

import (
	"testing"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

func TestRecordCodec(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &domain.Record{
		ID:      "sid",
		Session: map[string]any{"foo": "bar", "n": 1.5},
		Expires: &exp,
	}

	data, err := EncodeRecord(in)
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	out, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}

	if out.ID != "sid" {
		t.Errorf("ID = %q, want sid", out.ID)
	}
	if out.Expires == nil || !out.Expires.Equal(exp) {
		t.Errorf("Expires = %v, want %v", out.Expires, exp)
	}
	if out.LastModified != nil {
		t.Errorf("LastModified = %v, want nil", out.LastModified)
	}
	payload, ok := out.Session.(map[string]any)
	if !ok || payload["foo"] != "bar" || payload["n"] != 1.5 {
		t.Errorf("Session = %#v", out.Session)
	}
}

func TestDecodeRecord_Invalid(t *testing.T) {
	if _, err := DecodeRecord([]byte("{not json")); err == nil {
		t.Error("DecodeRecord() should fail on malformed input")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	if Expired(nil, now) {
		t.Error("nil expiry should never expire")
	}
	if !Expired(&past, now) || !Expired(&now, now) {
		t.Error("past or current expiry should be expired")
	}
	if Expired(&future, now) {
		t.Error("future expiry should not be expired")
	}
}

func TestWriteOptions(t *testing.T) {
	if !(WriteOptions{}).IsZero() {
		t.Error("zero WriteOptions.IsZero() = false")
	}
	if (WriteOptions{Majority: true}).IsZero() {
		t.Error("WriteOptions{Majority}.IsZero() = true")
	}
	if !BestEffort.Unacknowledged {
		t.Error("BestEffort should be unacknowledged")
	}
}
