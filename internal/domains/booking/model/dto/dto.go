package dto

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bengkel/internal/domains/booking/model"
	"bengkel/shared"
	"bengkel/shared/constant"
	gModel "bengkel/shared/model"
	"bengkel/shared/timezone"
)

type CreateBookingRequest struct {
	ScheduleID     string `json:"schedule_id"     validate:"required,uuid"`
	CustomerName   string `json:"customer_name"   validate:"required,max=100"`
	PhoneNo        string `json:"phone_no"        validate:"required,max=20"`
	VehicleType    string `json:"vehicle_type"    validate:"required,max=50"`
	LicensePlate   string `json:"license_plate"   validate:"required,max=20"`
	VehicleProblem string `json:"vehicle_problem" validate:"required,max=500"`
	ScheduleTime   string `json:"schedule_time"   validate:"required"`
	Photo          string `json:"photo,omitempty" validate:"omitempty"`
}

// NormalizeScheduleTime validates the requested time of day and returns it in
// HH:MM:SS form. Both HH:MM and HH:MM:SS inputs are accepted.
func (c *CreateBookingRequest) NormalizeScheduleTime() (string, error) {
	layout := constant.ScheduleTimeShort
	if strings.Count(c.ScheduleTime, ":") == 2 {
		layout = constant.ScheduleTimeLong
	}

	parsed, err := timezone.Parse(layout, c.ScheduleTime)
	if err != nil {
		return constant.Empty, err
	}

	return parsed.Format(constant.ScheduleTimeLong), nil
}

func (c *CreateBookingRequest) ToModel(scheduleTime, photoURL, user string) model.Booking {
	booking := model.Booking{
		ID:             uuid.NewString(),
		ScheduleID:     c.ScheduleID,
		CustomerName:   c.CustomerName,
		PhoneNo:        c.PhoneNo,
		VehicleType:    c.VehicleType,
		LicensePlate:   c.LicensePlate,
		VehicleProblem: c.VehicleProblem,
		ScheduleTime:   scheduleTime,
		Status:         model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}

	if photoURL != constant.Empty {
		booking.PhotoURL = &photoURL
	}

	return booking
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed_cancel confirmed_attend no_show attended"`
}

// BookingFilter carries the list-endpoint query surface: a service-date
// window on the joined schedule, a status set and a free-text search.
type BookingFilter struct {
	Statuses []string
	Search   string
}

func (f *BookingFilter) FromRequest(r *http.Request) {
	queryParams := r.URL.Query()

	if raw := queryParams.Get(constant.RequestParamStatus); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			status = strings.TrimSpace(status)
			if model.IsValidStatus(status) {
				f.Statuses = append(f.Statuses, status)
			}
		}
	}

	f.Search = strings.TrimSpace(queryParams.Get(constant.RequestParamSearch))
}

type ScheduleSnapshot struct {
	ID             string `json:"id"`
	ServiceDate    string `json:"service_date"`
	Quota          int    `json:"quota"`
	RemainingQuota int    `json:"remaining_quota"`
}

type BookingResponse struct {
	ID             string           `json:"id"`
	CustomerName   string           `json:"customer_name"`
	PhoneNo        string           `json:"phone_no"`
	VehicleType    string           `json:"vehicle_type"`
	LicensePlate   string           `json:"license_plate"`
	VehicleProblem string           `json:"vehicle_problem"`
	ScheduleTime   string           `json:"schedule_time"`
	PhotoURL       string           `json:"photo_url,omitempty"`
	Status         string           `json:"status"`
	Schedule       ScheduleSnapshot `json:"schedule"`
	CreatedAt      string           `json:"created_at"`
	ModifiedAt     string           `json:"modified_at"`
}

func (r *BookingResponse) FromModel(booking model.Booking) {
	r.ID = booking.ID
	r.CustomerName = booking.CustomerName
	r.PhoneNo = booking.PhoneNo
	r.VehicleType = booking.VehicleType
	r.LicensePlate = booking.LicensePlate
	r.VehicleProblem = booking.VehicleProblem
	r.ScheduleTime = booking.ScheduleTime
	r.Status = booking.Status
	r.Schedule = ScheduleSnapshot{
		ID:             booking.ScheduleID,
		ServiceDate:    timezone.NormalizeDate(booking.ScheduleServiceDate).Format(constant.ServiceDateFormat),
		Quota:          booking.ScheduleQuota,
		RemainingQuota: booking.ScheduleRemainingQuota,
	}
	r.CreatedAt = timezone.Format(booking.CreatedAt, constant.DateFormat)
	r.ModifiedAt = timezone.Format(booking.ModifiedAt, constant.DateFormat)

	if booking.PhotoURL != nil {
		r.PhotoURL = *booking.PhotoURL
	}
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalData int               `json:"total_data"`
	TotalPage int               `json:"total_page"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, page, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Page = page
	r.PerPage = limit

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
