package model

import (
	"time"

	"bengkel/shared/model"
)

const (
	TableName  = "service_bookings"
	EntityName = "booking"

	FieldID             = "id"
	FieldScheduleID     = "schedule_id"
	FieldCustomerName   = "customer_name"
	FieldPhoneNo        = "phone_no"
	FieldVehicleType    = "vehicle_type"
	FieldLicensePlate   = "license_plate"
	FieldVehicleProblem = "vehicle_problem"
	FieldScheduleTime   = "schedule_time"
	FieldPhotoURL       = "photo_url"
	FieldStatus         = "status"
)

const (
	StatusPending         = "pending"
	StatusConfirmedCancel = "confirmed_cancel"
	StatusConfirmedAttend = "confirmed_attend"
	StatusNoShow          = "no_show"
	StatusAttended        = "attended"
)

// Statuses lists every valid booking status, in lifecycle order.
var Statuses = []string{
	StatusPending,
	StatusConfirmedCancel,
	StatusConfirmedAttend,
	StatusNoShow,
	StatusAttended,
}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}

	return false
}

// IsActive reports whether a booking in the given status still occupies a
// quota slot on its schedule.
func IsActive(status string) bool {
	return status != StatusConfirmedCancel
}

// Booking joins its owning schedule on every read so list and detail
// responses carry the schedule snapshot without a second query.
type Booking struct {
	ID             string  `db:"id"`
	ScheduleID     string  `db:"schedule_id"`
	CustomerName   string  `db:"customer_name"`
	PhoneNo        string  `db:"phone_no"`
	VehicleType    string  `db:"vehicle_type"`
	LicensePlate   string  `db:"license_plate"`
	VehicleProblem string  `db:"vehicle_problem"`
	ScheduleTime   string  `db:"schedule_time"`
	PhotoURL       *string `db:"photo_url"`
	Status         string  `db:"status"`

	ScheduleServiceDate    time.Time `db:"schedule_service_date"    table:"service_schedules" column:"service_date"`
	ScheduleQuota          int       `db:"schedule_quota"           table:"service_schedules" column:"quota"`
	ScheduleRemainingQuota int       `db:"schedule_remaining_quota" table:"service_schedules" column:"remaining_quota"`

	model.Metadata
}

func (Booking) GetJoinQuery() string {
	return "JOIN service_schedules ON service_schedules.id = service_bookings.schedule_id"
}
