package ledger

import (
	"encoding/json"
	"time"
)

// Timestamp is an order creation time.
//
// Text that does not round-trip through second-precision RFC 3339
// (browser ISO strings with milliseconds, locale-formatted strings such as
// "2025/1/15 下午3:45:12") is kept verbatim so that rewriting the document
// does not alter it.
type Timestamp struct {
	Time time.Time
	raw  string
}

// NewTimestamp wraps t at second precision in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// Raw reports the original text when it is kept verbatim.
func (ts Timestamp) Raw() (string, bool) {
	return ts.raw, ts.raw != ""
}

func (ts Timestamp) String() string {
	if ts.raw != "" {
		return ts.raw
	}
	if ts.Time.IsZero() {
		return ""
	}
	return ts.Time.UTC().Format(time.RFC3339)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*ts = Timestamp{}
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		ts.Time = t.UTC()
		if ts.Time.Format(time.RFC3339) == s {
			return nil
		}
	}
	ts.raw = s
	return nil
}

// lastUpdatedLayout matches JavaScript's Date.toISOString.
const lastUpdatedLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatLastUpdated renders t the way browser clients stamp lastUpdated.
func FormatLastUpdated(t time.Time) string {
	return t.UTC().Format(lastUpdatedLayout)
}
