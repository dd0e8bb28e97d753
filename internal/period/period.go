// Package period computes canonical period keys and boundaries for the four
// report tiers: daily, weekly, monthly, quarterly.
package period

import (
	"fmt"
	"regexp"
	"time"
)

// Tier identifies a report granularity.
type Tier string

const (
	Daily     Tier = "daily"
	Weekly    Tier = "weekly"
	Monthly   Tier = "monthly"
	Quarterly Tier = "quarterly"
)

// Tiers lists all tiers from finest to coarsest.
var Tiers = []Tier{Daily, Weekly, Monthly, Quarterly}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case Daily, Weekly, Monthly, Quarterly:
		return true
	}
	return false
}

// Period is a resolved reporting window. Start and End are inclusive, with
// End pinned to 23:59:59 UTC of the window's last day.
type Period struct {
	Tier    Tier
	DateKey string
	Start   time.Time
	End     time.Time
}

// ValidationError reports a malformed date key or tier.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var keyPatterns = map[Tier]*regexp.Regexp{
	Daily:     regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	Weekly:    regexp.MustCompile(`^\d{4}-W\d{2}$`),
	Monthly:   regexp.MustCompile(`^\d{4}-\d{2}$`),
	Quarterly: regexp.MustCompile(`^\d{4}-Q[1-4]$`),
}

// Validate checks that dateKey matches the expected pattern for the tier.
func Validate(tier Tier, dateKey string) error {
	pattern, ok := keyPatterns[tier]
	if !ok {
		return &ValidationError{Msg: fmt.Sprintf("unknown report tier %q", tier)}
	}
	if !pattern.MatchString(dateKey) {
		return &ValidationError{Msg: fmt.Sprintf("invalid %s date key %q", tier, dateKey)}
	}
	return nil
}

// ForDay returns the daily period covering the calendar day of t (UTC).
func ForDay(t time.Time) Period {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Period{
		Tier:    Daily,
		DateKey: start.Format("2006-01-02"),
		Start:   start,
		End:     endOfDay(start),
	}
}

// ForWeek returns the weekly period for caller-supplied boundaries. The date
// key is derived from the ISO week containing weekStart.
func ForWeek(weekStart, weekEnd time.Time) Period {
	weekStart = weekStart.UTC()
	year, week := weekStart.ISOWeek()
	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)
	end := weekEnd.UTC()
	return Period{
		Tier:    Weekly,
		DateKey: fmt.Sprintf("%04d-W%02d", year, week),
		Start:   start,
		End:     endOfDay(time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)),
	}
}

// ForWeekKey recomputes Monday-to-Sunday boundaries from an ISO week key.
func ForWeekKey(dateKey string) (Period, error) {
	if err := Validate(Weekly, dateKey); err != nil {
		return Period{}, err
	}
	var year, week int
	if _, err := fmt.Sscanf(dateKey, "%04d-W%02d", &year, &week); err != nil {
		return Period{}, &ValidationError{Msg: fmt.Sprintf("invalid weekly date key %q", dateKey)}
	}
	if week < 1 || week > 53 {
		return Period{}, &ValidationError{Msg: fmt.Sprintf("week number out of range in %q", dateKey)}
	}

	// Jan 4 is always in ISO week 1; walk back to its Monday.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, -(isoWeekday(jan4) - 1))
	start := monday.AddDate(0, 0, (week-1)*7)
	return Period{
		Tier:    Weekly,
		DateKey: dateKey,
		Start:   start,
		End:     endOfDay(start.AddDate(0, 0, 6)),
	}, nil
}

// ForMonth returns the monthly period for a calendar month.
func ForMonth(year, month int) Period {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lastDay := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return Period{
		Tier:    Monthly,
		DateKey: start.Format("2006-01"),
		Start:   start,
		End:     endOfDay(lastDay),
	}
}

// ForQuarter returns the quarterly period for quarter 1-4 of a year.
func ForQuarter(year, quarter int) Period {
	startMonth := time.Month(3*(quarter-1) + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	lastDay := start.AddDate(0, 3, 0).AddDate(0, 0, -1)
	return Period{
		Tier:    Quarterly,
		DateKey: fmt.Sprintf("%04d-Q%d", year, quarter),
		Start:   start,
		End:     endOfDay(lastDay),
	}
}

// FromKey resolves any tier's date key into its period.
func FromKey(tier Tier, dateKey string) (Period, error) {
	if err := Validate(tier, dateKey); err != nil {
		return Period{}, err
	}
	switch tier {
	case Daily:
		day, err := time.Parse("2006-01-02", dateKey)
		if err != nil {
			return Period{}, &ValidationError{Msg: fmt.Sprintf("invalid daily date key %q", dateKey)}
		}
		return ForDay(day), nil
	case Weekly:
		return ForWeekKey(dateKey)
	case Monthly:
		var year, month int
		if _, err := fmt.Sscanf(dateKey, "%04d-%02d", &year, &month); err != nil || month < 1 || month > 12 {
			return Period{}, &ValidationError{Msg: fmt.Sprintf("invalid monthly date key %q", dateKey)}
		}
		return ForMonth(year, month), nil
	case Quarterly:
		var year, quarter int
		if _, err := fmt.Sscanf(dateKey, "%04d-Q%d", &year, &quarter); err != nil {
			return Period{}, &ValidationError{Msg: fmt.Sprintf("invalid quarterly date key %q", dateKey)}
		}
		return ForQuarter(year, quarter), nil
	}
	return Period{}, &ValidationError{Msg: fmt.Sprintf("unknown report tier %q", tier)}
}

// PreviousDay returns the daily period for the day before now.
func PreviousDay(now time.Time) Period {
	return ForDay(now.UTC().AddDate(0, 0, -1))
}

// PreviousWeek returns the weekly period for the last completed ISO week.
func PreviousWeek(now time.Time) Period {
	now = now.UTC()
	monday := now.AddDate(0, 0, -(isoWeekday(now) - 1))
	lastMonday := monday.AddDate(0, 0, -7)
	start := time.Date(lastMonday.Year(), lastMonday.Month(), lastMonday.Day(), 0, 0, 0, 0, time.UTC)
	return ForWeek(start, start.AddDate(0, 0, 6))
}

// PreviousMonth returns the monthly period for the last completed month.
func PreviousMonth(now time.Time) Period {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return ForMonth(prev.Year(), int(prev.Month()))
}

// PreviousQuarter returns the quarterly period for the last completed quarter.
func PreviousQuarter(now time.Time) Period {
	now = now.UTC()
	quarter := (int(now.Month())-1)/3 + 1
	year := now.Year()
	quarter--
	if quarter < 1 {
		quarter = 4
		year--
	}
	return ForQuarter(year, quarter)
}

// Label formats a period for human-readable display in prompts and listings.
func (p Period) Label() string {
	switch p.Tier {
	case Daily:
		return p.Start.Format("January 2, 2006")
	case Weekly:
		return fmt.Sprintf("%s (%s - %s)", p.DateKey, p.Start.Format("Jan 02"), p.End.Format("Jan 02, 2006"))
	case Monthly:
		return p.Start.Format("January 2006")
	case Quarterly:
		return fmt.Sprintf("%s %d", p.DateKey[5:], p.Start.Year())
	}
	return p.DateKey
}

// isoWeekday returns the weekday with Monday=1 .. Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
}
