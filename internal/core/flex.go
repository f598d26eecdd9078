package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Port accepts a JSON number, a numeric string or an empty value.
type Port int

func (p *Port) UnmarshalJSON(data []byte) error {
	n, ok, err := parseLooseNumber(data)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if !ok {
		*p = 0
		return nil
	}
	if n < 0 || n > 65535 || n != math.Trunc(n) {
		return fmt.Errorf("invalid port: %v", n)
	}
	*p = Port(n)
	return nil
}

// FlexString accepts a JSON string or number; null becomes "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number: %w", err)
		}
		*s = FlexString(n.String())
	}
	return nil
}

// Limit is the optional row cap of a full export. Zero means unbounded.
// Non-numeric, zero, negative and non-finite inputs all decode to zero.
type Limit int64

func (l *Limit) UnmarshalJSON(data []byte) error {
	n, ok, err := parseLooseNumber(data)
	if err != nil || !ok || math.IsNaN(n) || math.IsInf(n, 0) || n < 1 {
		*l = 0
		return nil
	}
	if n > math.MaxInt64 {
		*l = 0
		return nil
	}
	*l = Limit(math.Trunc(n))
	return nil
}

func (l Limit) Bounded() bool {
	return l > 0
}

// parseLooseNumber reads a JSON number or numeric string.
// ok is false for null, empty strings and booleans.
func parseLooseNumber(data []byte) (n float64, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" || string(data) == "true" || string(data) == "false" {
		return 0, false, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// ConnectionDescriptor is the connection carried by a request: either a
// profile object or a raw libpq connection string.
type ConnectionDescriptor struct {
	Profile *ConnectionProfile
	Raw     string
}

func (d *ConnectionDescriptor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*d = ConnectionDescriptor{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*d = ConnectionDescriptor{Raw: strings.TrimSpace(raw)}
		return nil
	}
	var p ConnectionProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid connection: %w", err)
	}
	*d = ConnectionDescriptor{Profile: &p}
	return nil
}

func (d ConnectionDescriptor) MarshalJSON() ([]byte, error) {
	if d.Profile != nil {
		return json.Marshal(d.Profile)
	}
	if d.Raw != "" {
		return json.Marshal(d.Raw)
	}
	return []byte("null"), nil
}

// IsZero reports whether no usable connection was supplied.
func (d *ConnectionDescriptor) IsZero() bool {
	return d == nil || (d.Profile == nil && d.Raw == "")
}

// Label identifies the connection in logs and the journal without secrets.
func (d *ConnectionDescriptor) Label() (name, host, database string) {
	if d == nil {
		return "", "", ""
	}
	if d.Profile != nil {
		return d.Profile.Name, d.Profile.Host, d.Profile.Database
	}
	return "connection string", "", ""
}
