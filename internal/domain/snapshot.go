package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// TokenSnapshot is the per-tick view of one active token.
type TokenSnapshot struct {
	ID      TokenID
	Price   float64
	Changes []Change // one per configured horizon, in horizon order
	Time    time.Time
}

// Snapshot is the ordered collection emitted after a tick that updated prices.
type Snapshot struct {
	TickID uuid.UUID
	Time   time.Time
	Tokens []TokenSnapshot
}

// Records converts the snapshot into its wire representation.
func (s *Snapshot) Records() []SnapshotRecord {
	records := make([]SnapshotRecord, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		records = append(records, NewSnapshotRecord(t))
	}
	return records
}

// SnapshotRecord is the JSON record written to the snapshot file and published downstream:
// {"token", "price", "t_<label>"..., "id", "time"}.
type SnapshotRecord struct {
	Token   string
	Price   float64
	Changes []RecordChange
	ID      string
	Time    string // HH:MM:SS
}

// RecordChange is one rounded horizon value; Value is nil when unavailable.
type RecordChange struct {
	Field string
	Value *float64
}

// NewSnapshotRecord builds a record with change values rounded to 2 decimals.
func NewSnapshotRecord(t TokenSnapshot) SnapshotRecord {
	r := SnapshotRecord{
		Token:   t.ID.Short(),
		Price:   t.Price,
		Changes: make([]RecordChange, 0, len(t.Changes)),
		ID:      t.ID.String(),
		Time:    t.Time.Format("15:04:05"),
	}
	for _, c := range t.Changes {
		rc := RecordChange{Field: c.Horizon.FieldName()}
		if c.Available {
			v := Round2(c.Percent)
			rc.Value = &v
		}
		r.Changes = append(r.Changes, rc)
	}
	return r
}

// MarshalJSON writes fields in the fixed record order.
func (r SnapshotRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	if err := write("token", r.Token); err != nil {
		return nil, err
	}
	if err := write("price", r.Price); err != nil {
		return nil, err
	}
	for _, c := range r.Changes {
		if err := write(c.Field, c.Value); err != nil {
			return nil, err
		}
	}
	if err := write("id", r.ID); err != nil {
		return nil, err
	}
	if err := write("time", r.Time); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
