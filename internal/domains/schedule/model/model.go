package model

import (
	"time"

	"bengkel/shared/model"
	"bengkel/shared/timezone"
)

const (
	TableName  = "service_schedules"
	EntityName = "schedule"

	FieldID             = "id"
	FieldServiceDate    = "service_date"
	FieldQuota          = "quota"
	FieldRemainingQuota = "remaining_quota"
)

// Booking status values live on the booking aggregate, but the schedule side
// needs the cancelled marker to count active bookings.
const (
	BookingStatusCancelled = "confirmed_cancel"
)

type Schedule struct {
	ID             string    `db:"id"`
	ServiceDate    time.Time `db:"service_date"`
	Quota          int       `db:"quota"`
	RemainingQuota int       `db:"remaining_quota"`
	model.Metadata
}

// IsAvailable reports whether the schedule can still accept bookings: the
// service date is strictly after today and quota remains.
func (s *Schedule) IsAvailable(minAllowedDate time.Time) bool {
	return !timezone.NormalizeDate(s.ServiceDate).Before(minAllowedDate) && s.RemainingQuota > 0
}
