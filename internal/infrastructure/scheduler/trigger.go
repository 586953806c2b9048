package scheduler

import (
	"fmt"
	"time"
)

// Trigger decides when a job runs next
type Trigger interface {
	Next(after time.Time) time.Time
	String() string
}

// Every fires at a fixed interval
type Every time.Duration

// Next returns after plus the interval
func (e Every) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}

func (e Every) String() string {
	return "every " + time.Duration(e).String()
}

// DailyAt fires once a day at Hour:Minute UTC
type DailyAt struct {
	Hour   int
	Minute int
}

// Next returns the first Hour:Minute strictly after the given instant
func (d DailyAt) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d DailyAt) String() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", d.Hour, d.Minute)
}

func validTrigger(t Trigger) bool {
	switch v := t.(type) {
	case nil:
		return false
	case Every:
		return v > 0
	case DailyAt:
		return v.Hour >= 0 && v.Hour < 24 && v.Minute >= 0 && v.Minute < 60
	default:
		return true
	}
}
