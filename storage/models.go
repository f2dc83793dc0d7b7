package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Program document statuses.
const (
	StatusAvailable = "available"
	StatusClaimed   = "claimed"
)

// ProgramDocument is one deployable validator program in the pool. The
// document id is the program id.
type ProgramDocument struct {
	ID        string     `json:"_id" bson:"_id"`
	ProgramID string     `json:"programId" bson:"programId"`
	Status    string     `json:"status" bson:"status"`
	Validator string     `json:"validator,omitempty" bson:"validator,omitempty"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty" bson:"claimedAt,omitempty"`
}

// UnmarshalJSON accepts claimedAt as an RFC3339 string or as extended JSON
// ({"$date": "..."}, {"$date": millis} or {"$date": {"$numberLong": "..."}}),
// which is how the Data API renders dates written through the driver.
func (d *ProgramDocument) UnmarshalJSON(data []byte) error {
	type plain ProgramDocument
	aux := struct {
		*plain
		ClaimedAt json.RawMessage `json:"claimedAt,omitempty"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d.ClaimedAt = nil
	raw := bytes.TrimSpace(aux.ClaimedAt)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	t, err := parseJSONDate(raw)
	if err != nil {
		return fmt.Errorf("invalid claimedAt: %w", err)
	}
	d.ClaimedAt = &t
	return nil
}

func parseJSONDate(raw []byte) (time.Time, error) {
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case '{':
		var ext struct {
			Date       json.RawMessage `json:"$date"`
			NumberLong string          `json:"$numberLong"`
		}
		if err := json.Unmarshal(raw, &ext); err != nil {
			return time.Time{}, err
		}
		if ext.NumberLong != "" {
			ms, err := strconv.ParseInt(ext.NumberLong, 10, 64)
			if err != nil {
				return time.Time{}, err
			}
			return time.UnixMilli(ms).UTC(), nil
		}
		if len(ext.Date) == 0 {
			return time.Time{}, fmt.Errorf("unsupported date object %s", raw)
		}
		return parseJSONDate(bytes.TrimSpace(ext.Date))
	default:
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}

// UpdateResult reports how many documents an update matched and changed.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// JournalEntry holds the confirmed steps of one program's registration.
type JournalEntry struct {
	Steps     map[string]string `json:"steps"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
