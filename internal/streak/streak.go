// Package streak decides how a study streak changes across calendar days.
//
// Dates are plain YYYY-MM-DD strings taken from the local wall clock at call
// time. No timezone normalization is done, so travelling across zones or
// studying right at midnight can move a day boundary.
package streak

import (
	"sort"
	"time"
)

// DateLayout is the calendar date format used for LastStudyDate.
const DateLayout = "2006-01-02"

// Action is the outcome of a streak update.
type Action int

const (
	// NoOp means the user already studied today.
	NoOp Action = iota
	// Continue means the last study day was yesterday.
	Continue
	// Reset means the streak was broken or never started.
	Reset
)

func (a Action) String() string {
	switch a {
	case NoOp:
		return "noop"
	case Continue:
		return "continue"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Decision is the new streak state to apply.
type Decision struct {
	Action        Action
	StreakDays    int
	LastStudyDate string
}

// LocalDate returns the local calendar date of t.
func LocalDate(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

// PreviousDay returns the local calendar date of the day before t.
func PreviousDay(t time.Time) string {
	return LocalDate(t.In(time.Local).AddDate(0, 0, -1))
}

// Decide applies the streak table to explicit date strings.
func Decide(today, yesterday, lastStudyDate string, streakDays int) Decision {
	switch lastStudyDate {
	case today:
		return Decision{Action: NoOp, StreakDays: streakDays, LastStudyDate: lastStudyDate}
	case yesterday:
		return Decision{Action: Continue, StreakDays: streakDays + 1, LastStudyDate: today}
	default:
		return Decision{Action: Reset, StreakDays: 1, LastStudyDate: today}
	}
}

// Update decides the streak for a study action happening at now.
func Update(now time.Time, lastStudyDate string, streakDays int) Decision {
	return Decide(LocalDate(now), PreviousDay(now), lastStudyDate, streakDays)
}

// Longest returns the longest run of consecutive calendar days found in
// times. Several entries on the same day count once; a gap of more than one
// day ends a run.
func Longest(times []time.Time) int {
	if len(times) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(times))
	days := make([]string, 0, len(times))
	for _, t := range times {
		d := LocalDate(t)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Strings(days)

	longest, run := 1, 1
	prev, _ := time.Parse(DateLayout, days[0])
	for _, d := range days[1:] {
		cur, _ := time.Parse(DateLayout, d)
		// Parsed dates are UTC midnights, so the difference is whole days.
		if int(cur.Sub(prev).Hours()/24) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = cur
	}
	return longest
}
