package domain

import "time"

// Record is one persisted session document: { _id, session, expires?, lastModified? }.
type Record struct {
	// ID is the storage id, the (optionally transformed) session id.
	ID string `json:"_id" bson:"_id"`

	// Session is the stored payload: a string (stringified JSON or
	// ciphertext) or a structured sub-document.
	Session any `json:"session" bson:"session"`

	// Expires is the absolute expiry. Nil means the record never expires.
	Expires *time.Time `json:"expires,omitempty" bson:"expires,omitempty"`

	// LastModified is the last touch time, written only when touch
	// throttling is enabled.
	LastModified *time.Time `json:"lastModified,omitempty" bson:"lastModified,omitempty"`
}

// IsExpired reports whether the record is logically expired at now.
func (r *Record) IsExpired(now time.Time) bool {
	return r.Expires != nil && !r.Expires.After(now)
}

// Clone returns a copy of the record. The payload is shared.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{ID: r.ID, Session: r.Session}
	if r.Expires != nil {
		t := *r.Expires
		out.Expires = &t
	}
	if r.LastModified != nil {
		t := *r.LastModified
		out.LastModified = &t
	}
	return out
}
