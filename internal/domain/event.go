package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Event is a timestamped observation attributed to an actor. Events are not
// stored in the graph; the timeline correlator processes them transiently.
type Event struct {
	Actor     string    `json:"actor"`
	Timestamp Timestamp `json:"timestamp"`
	Payload   Value     `json:"payload"`
}

// Timestamp is an event time given either as a numeric epoch (seconds,
// fractional allowed) or as an RFC 3339 string. It re-encodes in the form
// it was given.
type Timestamp struct {
	time.Time
	epoch bool
}

// At creates a string-form timestamp
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Epoch creates a numeric-form timestamp from seconds since the Unix epoch
func Epoch(seconds float64) Timestamp {
	sec, frac := math.Modf(seconds)
	return Timestamp{Time: time.Unix(int64(sec), int64(frac*1e9)).UTC(), epoch: true}
}

// Seconds returns the timestamp as fractional seconds since the epoch
func (t Timestamp) Seconds() float64 {
	return float64(t.UnixNano()) / 1e9
}

// String formats the timestamp in its original form
func (t Timestamp) String() string {
	if t.epoch {
		return formatEpoch(t.Seconds())
	}
	return t.Format(time.RFC3339Nano)
}

func formatEpoch(s float64) string {
	if s == math.Trunc(s) {
		return fmt.Sprintf("%d", int64(s))
	}
	return fmt.Sprintf("%g", s)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.epoch {
		return []byte(formatEpoch(t.Seconds())), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts a JSON number or an RFC 3339 string
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("timestamp is required")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	*t = Epoch(f)
	return nil
}

// ParseTimestamp parses an RFC 3339 (or date-only ISO 8601) string
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: parsed}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}
