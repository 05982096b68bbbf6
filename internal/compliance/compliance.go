// Package compliance decides whether an outbound sales call may be placed
// under TCPA calling rules.
package compliance

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// Calls are allowed from 09:00 up to but excluding 21:00 local time.
	firstCallHour = 9
	lastCallHour  = 21

	ReasonInvalidFormat = "Invalid phone number format"
	ReasonOutsideHours  = "Outside permitted calling hours (9:00-21:00 local time)"
	ReasonSunday        = "Calls are not permitted on Sunday"
	ReasonDoNotCall     = "Number is on Do Not Call list"
)

var (
	phonePattern = regexp.MustCompile(`^\+?1?\s*\(?(\d{3})\)?[-.\s]?(\d{3})[-.\s]?(\d{4})$`)
	nonDigit     = regexp.MustCompile(`\D`)

	ErrUnknownTimezone = errors.New("unknown timezone")
)

// Checks holds the outcome of each individual rule.
type Checks struct {
	FormatCheck bool `json:"format_check"`
	HoursCheck  bool `json:"hours_check"`
	DayCheck    bool `json:"day_check"`
	DNCCheck    bool `json:"dnc_check"`
}

// Result is the compliance verdict for one number at one instant.
type Result struct {
	PhoneNumber string   `json:"phone_number"`
	CanCall     bool     `json:"can_call"`
	Reasons     []string `json:"reasons"`
	Checks      Checks   `json:"checks"`
	LocalTime   string   `json:"local_time"`
	Timezone    string   `json:"timezone"`
}

// Checker evaluates numbers against the calling window and a do-not-call list.
type Checker struct {
	dnc      map[string]struct{}
	location *time.Location
	now      func() time.Time
}

// NewChecker builds a checker whose default zone is timezone. Entries of
// doNotCall are normalised to ten digits; unparsable entries are ignored.
func NewChecker(timezone string, doNotCall []string) (*Checker, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownTimezone, timezone, err)
	}
	c := &Checker{
		dnc:      make(map[string]struct{}, len(doNotCall)),
		location: loc,
		now:      time.Now,
	}
	for _, n := range doNotCall {
		if digits, ok := normalizeDigits(n); ok {
			c.dnc[digits] = struct{}{}
		}
	}
	return c, nil
}

// WithClock replaces the time source. Used by tests.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Evaluate checks phone at the current time in timezone, or in the checker's
// default zone when timezone is empty.
func (c *Checker) Evaluate(phone, timezone string) (Result, error) {
	loc := c.location
	if tz := strings.TrimSpace(timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Result{}, fmt.Errorf("%w %q", ErrUnknownTimezone, tz)
		}
		loc = l
	}
	return c.Check(phone, c.now(), loc), nil
}

// Check is the pure rule evaluation.
func (c *Checker) Check(phone string, now time.Time, loc *time.Location) Result {
	local := now.In(loc)
	res := Result{
		PhoneNumber: phone,
		Reasons:     []string{},
		LocalTime:   local.Format(time.RFC3339),
		Timezone:    loc.String(),
	}

	res.Checks.FormatCheck = phonePattern.MatchString(strings.TrimSpace(phone))
	if !res.Checks.FormatCheck {
		res.Reasons = append(res.Reasons, ReasonInvalidFormat)
	}

	hour := local.Hour()
	res.Checks.HoursCheck = hour >= firstCallHour && hour < lastCallHour
	if !res.Checks.HoursCheck {
		res.Reasons = append(res.Reasons, ReasonOutsideHours)
	}

	res.Checks.DayCheck = local.Weekday() != time.Sunday
	if !res.Checks.DayCheck {
		res.Reasons = append(res.Reasons, ReasonSunday)
	}

	res.Checks.DNCCheck = true
	if digits, ok := normalizeDigits(phone); ok {
		if _, listed := c.dnc[digits]; listed {
			res.Checks.DNCCheck = false
			res.Reasons = append(res.Reasons, ReasonDoNotCall)
		}
	}

	res.CanCall = res.Checks.FormatCheck && res.Checks.HoursCheck && res.Checks.DayCheck && res.Checks.DNCCheck
	return res
}

// NormalizePhone returns the ten-digit national number, or false.
func NormalizePhone(phone string) (string, bool) {
	return normalizeDigits(phone)
}

func normalizeDigits(phone string) (string, bool) {
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	return digits, true
}
