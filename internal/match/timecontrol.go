package match

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TimeControl is the clock budget for both sides.
type TimeControl struct {
	InitialSeconds   int `json:"initialSeconds"`
	IncrementSeconds int `json:"incrementSeconds"`
}

// DefaultTimeControl is five minutes, no increment.
var DefaultTimeControl = TimeControl{InitialSeconds: 300, IncrementSeconds: 0}

const maxInitialSeconds = 3 * 60 * 60

var ErrInvalidTimeControl = errors.New("invalid time control")

func (tc TimeControl) Validate() error {
	if tc.InitialSeconds <= 0 || tc.InitialSeconds > maxInitialSeconds {
		return fmt.Errorf("%w: initial seconds %d out of range", ErrInvalidTimeControl, tc.InitialSeconds)
	}
	if tc.IncrementSeconds < 0 || tc.IncrementSeconds > 60 {
		return fmt.Errorf("%w: increment %d out of range", ErrInvalidTimeControl, tc.IncrementSeconds)
	}
	return nil
}

// String renders the control as minutes+increment, e.g. "5+0".
func (tc TimeControl) String() string {
	if tc.InitialSeconds%60 == 0 {
		return fmt.Sprintf("%d+%d", tc.InitialSeconds/60, tc.IncrementSeconds)
	}
	return fmt.Sprintf("%ds+%d", tc.InitialSeconds, tc.IncrementSeconds)
}

// ParseTimeControl reads "M+I" where M is minutes and I the increment in seconds.
// A bare "M" means no increment.
func ParseTimeControl(s string) (TimeControl, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return DefaultTimeControl, nil
	}
	minPart, incPart, found := strings.Cut(v, "+")
	minutes, err := strconv.Atoi(strings.TrimSpace(minPart))
	if err != nil {
		return TimeControl{}, fmt.Errorf("time control %q: %w", s, err)
	}
	inc := 0
	if found {
		inc, err = strconv.Atoi(strings.TrimSpace(incPart))
		if err != nil {
			return TimeControl{}, fmt.Errorf("time control %q: %w", s, err)
		}
	}
	tc := TimeControl{InitialSeconds: minutes * 60, IncrementSeconds: inc}
	if err := tc.Validate(); err != nil {
		return TimeControl{}, err
	}
	return tc, nil
}
