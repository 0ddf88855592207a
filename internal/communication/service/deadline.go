package service

import (
	"time"

	"correspondence/internal/communication/models"
)

// AutoRejectDeadline adds days business days to sent, skipping Saturdays
// and Sundays in sent's location.
func AutoRejectDeadline(sent time.Time, days int) time.Time {
	deadline := sent
	for days > 0 {
		deadline = deadline.AddDate(0, 0, 1)
		if wd := deadline.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days--
		}
	}
	return deadline
}

// RemainingTime reports how long a pending communication has before it may
// be auto-rejected. It never returns a negative duration, and ok is false
// for any status other than pending.
func (r *Router) RemainingTime(c *models.Communication, now time.Time) (remaining time.Duration, ok bool) {
	if c.Status != models.StatusPending {
		return 0, false
	}
	left := AutoRejectDeadline(c.SentDate, r.autoRejectDays).Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}
