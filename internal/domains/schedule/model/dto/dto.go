package dto

import (
	"time"

	"github.com/google/uuid"

	"bengkel/internal/domains/schedule/model"
	"bengkel/shared"
	"bengkel/shared/constant"
	gModel "bengkel/shared/model"
	"bengkel/shared/timezone"
)

type CreateScheduleRequest struct {
	ServiceDate string `json:"service_date" validate:"required"`
	Quota       int    `json:"quota"        validate:"required,min=1"`
}

func (c *CreateScheduleRequest) ToModel(user string) (model.Schedule, error) {
	serviceDate, err := timezone.Parse(constant.ServiceDateFormat, c.ServiceDate)
	if err != nil {
		return model.Schedule{}, err
	}

	return model.Schedule{
		ID:             uuid.NewString(),
		ServiceDate:    timezone.StartOfDay(serviceDate),
		Quota:          c.Quota,
		RemainingQuota: c.Quota,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}, nil
}

// UpdateScheduleRequest carries partial updates. Nil means the field was not
// supplied, which is distinct from an explicit zero.
type UpdateScheduleRequest struct {
	ServiceDate *string `json:"service_date,omitempty" validate:"omitempty"`
	Quota       *int    `json:"quota,omitempty"        validate:"omitempty,min=1"`
}

func (u *UpdateScheduleRequest) ParseServiceDate() (*time.Time, error) {
	if u.ServiceDate == nil {
		return nil, nil
	}

	serviceDate, err := timezone.Parse(constant.ServiceDateFormat, *u.ServiceDate)
	if err != nil {
		return nil, err
	}

	startOfDay := timezone.StartOfDay(serviceDate)

	return &startOfDay, nil
}

type ScheduleResponse struct {
	ID             string `json:"id"`
	ServiceDate    string `json:"service_date"`
	Quota          int    `json:"quota"`
	RemainingQuota int    `json:"remaining_quota"`
	CreatedAt      string `json:"created_at"`
	ModifiedAt     string `json:"modified_at"`
}

func (r *ScheduleResponse) FromModel(schedule model.Schedule) {
	r.ID = schedule.ID
	r.ServiceDate = timezone.NormalizeDate(schedule.ServiceDate).Format(constant.ServiceDateFormat)
	r.Quota = schedule.Quota
	r.RemainingQuota = schedule.RemainingQuota
	r.CreatedAt = timezone.Format(schedule.CreatedAt, constant.DateFormat)
	r.ModifiedAt = timezone.Format(schedule.ModifiedAt, constant.DateFormat)
}

type GetSchedulesResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	TotalData int                `json:"total_data"`
	TotalPage int                `json:"total_page"`
	Page      int                `json:"page"`
	PerPage   int                `json:"per_page"`
}

func (r *GetSchedulesResponse) FromModels(models []model.Schedule, totalData, page, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Page = page
	r.PerPage = limit

	r.Schedules = make([]ScheduleResponse, len(models))
	for i, mod := range models {
		r.Schedules[i].FromModel(mod)
	}
}
