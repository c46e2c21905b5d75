package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

// EncodeRecord serializes a record for key-value backends.
func EncodeRecord(rec *domain.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %q: %w", rec.ID, err)
	}
	return data, nil
}

// DecodeRecord parses a record written by EncodeRecord. Structured
// payloads come back as plain maps, slices and scalars.
func DecodeRecord(data []byte) (*domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.Expires != nil {
		t := rec.Expires.UTC()
		rec.Expires = &t
	}
	if rec.LastModified != nil {
		t := rec.LastModified.UTC()
		rec.LastModified = &t
	}
	return &rec, nil
}

// Expired reports whether a record with expiry exp is expired at now.
func Expired(exp *time.Time, now time.Time) bool {
	return exp != nil && !exp.After(now)
}
