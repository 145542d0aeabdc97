package eventservice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnparseableTime is returned when a reschedule time cannot be understood.
var ErrUnparseableTime = errors.New("could not parse start time")

// ParseStartTime parses an RFC3339 timestamp or a natural language phrase
// relative to now. Phrases that resolve to the past are rejected.
func ParseStartTime(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrUnparseableTime)
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC(), nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnparseableTime, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTime, text)
	}
	if !r.Time.After(now) {
		return time.Time{}, fmt.Errorf("%w: %q resolves to the past", ErrUnparseableTime, text)
	}
	return r.Time.UTC(), nil
}
