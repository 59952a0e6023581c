package progress

import (
	"time"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
)

// Status delivery progress derived from due date and purchasing status
type Status string

const (
	Complete   Status = "Complete"
	Late       Status = "Late"
	InProgress Status = "In Progress"
)

var Statuses = []Status{Late, InProgress, Complete}

// Derive classifies a purchase relative to today. The due date is read as a
// calendar date in today's location, so it is never shifted across a day
// boundary by time zones.
func Derive(dueDate string, status entity.PurchasingStatus, today time.Time) Status {
	if status == entity.StatusIncoming {
		return Complete
	}
	if len(dueDate) > len(time.DateOnly) {
		dueDate = dueDate[:len(time.DateOnly)]
	}
	due, err := time.ParseInLocation(time.DateOnly, dueDate, today.Location())
	if err != nil {
		return InProgress
	}
	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	if due.Before(midnight) {
		return Late
	}
	return InProgress
}

// DeriveNow uses the wall clock.
func DeriveNow(dueDate string, status entity.PurchasingStatus) Status {
	return Derive(dueDate, status, time.Now())
}
