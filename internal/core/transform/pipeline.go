package transform

import (
	"encoding/json"
	"fmt"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

// SerializeFunc converts a session into its stored payload.
type SerializeFunc func(domain.Session) (any, error)

// UnserializeFunc converts a stored payload back into a session.
type UnserializeFunc func(any) (domain.Session, error)

// Mode identifies the selected transform.
type Mode int

const (
	ModeJSON Mode = iota
	ModeRaw
	ModeCustom
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeJSON:
		return "json"
	case ModeRaw:
		return "raw"
	case ModeCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Pipeline is the serialize/unserialize pair chosen once at construction.
type Pipeline struct {
	mode        Mode
	serialize   SerializeFunc
	unserialize UnserializeFunc
}

// New selects the transform. Custom functions win over the stringify toggle.
func New(stringify bool, serialize SerializeFunc, unserialize UnserializeFunc) *Pipeline {
	if serialize != nil || unserialize != nil {
		if serialize == nil {
			serialize = RawSerialize
		}
		if unserialize == nil {
			unserialize = RawUnserialize
		}
		return &Pipeline{mode: ModeCustom, serialize: serialize, unserialize: unserialize}
	}
	if !stringify {
		return &Pipeline{mode: ModeRaw, serialize: RawSerialize, unserialize: RawUnserialize}
	}
	return &Pipeline{mode: ModeJSON, serialize: JSONSerialize, unserialize: JSONUnserialize}
}

// Mode returns the selected transform mode.
func (p *Pipeline) Mode() Mode {
	return p.mode
}

// Serialize converts a session into its stored payload.
func (p *Pipeline) Serialize(s domain.Session) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, err = nil, domain.ErrTransform.WithDetails("serialize").WithCause(fmt.Errorf("panic: %v", r))
		}
	}()
	payload, err = p.serialize(s)
	if err != nil {
		return nil, domain.ErrTransform.WithDetails("serialize").WithCause(err)
	}
	return payload, nil
}

// Unserialize converts a stored payload back into a session.
func (p *Pipeline) Unserialize(payload any) (s domain.Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, domain.ErrTransform.WithDetails("unserialize").WithCause(fmt.Errorf("panic: %v", r))
		}
	}()
	s, err = p.unserialize(payload)
	if err != nil {
		return nil, domain.ErrTransform.WithDetails("unserialize").WithCause(err)
	}
	return s, nil
}

// JSONSerialize stringifies the session.
func JSONSerialize(s domain.Session) (any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// JSONUnserialize parses a stringified session. A malformed payload is an error.
func JSONUnserialize(payload any) (domain.Session, error) {
	var raw []byte
	switch p := payload.(type) {
	case string:
		raw = []byte(p)
	case []byte:
		raw = p
	default:
		return nil, fmt.Errorf("expected string payload, got %T", payload)
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// RawSerialize shallow-copies the session, normalizing the cookie into plain data.
func RawSerialize(s domain.Session) (any, error) {
	if s == nil {
		return nil, nil
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		if k == domain.CookieKey {
			plain, err := plainCookie(v)
			if err != nil {
				return nil, fmt.Errorf("normalize cookie: %w", err)
			}
			out[k] = plain
			continue
		}
		out[k] = v
	}
	return out, nil
}

// RawUnserialize returns the stored sub-document as a session.
func RawUnserialize(payload any) (domain.Session, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case domain.Session:
		return p, nil
	case map[string]any:
		return domain.Session(p), nil
	default:
		return nil, fmt.Errorf("expected document payload, got %T", payload)
	}
}

// plainer is implemented by cookie-like values with custom serialization.
type plainer interface {
	Plain() map[string]any
}

func plainCookie(v any) (any, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case plainer:
		return c.Plain(), nil
	case domain.Cookie:
		return c.Plain(), nil
	case json.Marshaler:
		raw, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return v, nil
	}
}
