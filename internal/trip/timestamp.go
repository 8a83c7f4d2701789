package trip

import (
	"log"
	"strings"
	"time"

	"github.com/travelogy-data/tripsense/internal/timeutil"
)

// Timestamp formats accepted from collaborators, tried in order after
// RFC 3339. GPS recorders in the field are not consistent about this.
var fallbackFormats = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
}

// Clock supplies "now" for unparseable timestamps. It is a package variable
// rather than an injected dependency because FlexTime.UnmarshalJSON runs
// inside encoding/json, which has no way to thread a clock through to the
// decode path. Tests swap it to pin the degraded-parse behaviour.
var Clock timeutil.Clock = timeutil.RealClock{}

// ParseTimestamp parses a timestamp string leniently: RFC 3339 first, then
// the two known legacy formats. An unparseable string degrades to the
// current time with a logged warning; it never produces an error, matching
// the tolerance the rest of the pipeline has for noisy recorder output.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Clock.Now()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	for _, layout := range fallbackFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	log.Printf("warning: unparseable timestamp %q, substituting current time", s)
	return Clock.Now()
}

// FlexTime is a time.Time that unmarshals JSON timestamps with the lenient
// rules of ParseTimestamp.
type FlexTime struct {
	time.Time
}

// NewFlexTime wraps a time.Time.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{Time: t}
}

// UnmarshalJSON accepts a JSON string in any of the supported formats.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	t.Time = ParseTimestamp(s)
	return nil
}

// MarshalJSON emits RFC 3339.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}
