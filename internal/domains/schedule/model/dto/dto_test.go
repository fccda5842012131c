package dto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bengkel/internal/domains/schedule/model"
	"bengkel/internal/domains/schedule/model/dto"
	"bengkel/shared/constant"
	"bengkel/shared/timezone"
)

func stringPtr(s string) *string {
	return &s
}

func TestCreateScheduleRequest_ToModel(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		req := dto.CreateScheduleRequest{
			ServiceDate: "2026-09-10",
			Quota:       5,
		}

		schedule, err := req.ToModel("dealer-id")

		assert.NoError(t, err)
		assert.NotEmpty(t, schedule.ID)
		assert.Equal(t, "2026-09-10", timezone.Format(schedule.ServiceDate, constant.ServiceDateFormat))
		assert.Equal(t, 5, schedule.Quota)
		assert.Equal(t, 5, schedule.RemainingQuota)
		assert.Equal(t, "dealer-id", schedule.CreatedBy)
	})

	t.Run("date is truncated to start of day", func(t *testing.T) {
		req := dto.CreateScheduleRequest{
			ServiceDate: "2026-09-10",
			Quota:       1,
		}

		schedule, err := req.ToModel("dealer-id")

		assert.NoError(t, err)
		assert.Equal(t, schedule.ServiceDate, timezone.StartOfDay(schedule.ServiceDate))
	})

	t.Run("invalid date", func(t *testing.T) {
		req := dto.CreateScheduleRequest{
			ServiceDate: "10/09/2026",
			Quota:       5,
		}

		_, err := req.ToModel("dealer-id")

		assert.Error(t, err)
	})
}

func TestUpdateScheduleRequest_ParseServiceDate(t *testing.T) {
	t.Run("nil date passes through", func(t *testing.T) {
		req := dto.UpdateScheduleRequest{}

		parsed, err := req.ParseServiceDate()

		assert.NoError(t, err)
		assert.Nil(t, parsed)
	})

	t.Run("valid date is truncated", func(t *testing.T) {
		req := dto.UpdateScheduleRequest{ServiceDate: stringPtr("2026-09-10")}

		parsed, err := req.ParseServiceDate()

		assert.NoError(t, err)
		if assert.NotNil(t, parsed) {
			assert.Equal(t, *parsed, timezone.StartOfDay(*parsed))
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		req := dto.UpdateScheduleRequest{ServiceDate: stringPtr("next tuesday")}

		_, err := req.ParseServiceDate()

		assert.Error(t, err)
	})
}

func TestScheduleResponse_FromModel(t *testing.T) {
	t.Run("utc-midnight scan keeps the calendar date", func(t *testing.T) {
		schedule := model.Schedule{
			ID:             "schedule-id",
			ServiceDate:    time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			Quota:          5,
			RemainingQuota: 3,
		}

		var res dto.ScheduleResponse
		res.FromModel(schedule)

		assert.Equal(t, "2026-09-10", res.ServiceDate)
	})
}

func TestGetSchedulesResponse_FromModels(t *testing.T) {
	models := []model.Schedule{
		{ID: "id-1", ServiceDate: timezone.Now(), Quota: 5, RemainingQuota: 3},
		{ID: "id-2", ServiceDate: timezone.Now(), Quota: 5, RemainingQuota: 0},
	}

	var res dto.GetSchedulesResponse
	res.FromModels(models, 12, 2, 10)

	assert.Equal(t, 12, res.TotalData)
	assert.Equal(t, 2, res.TotalPage)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 10, res.PerPage)
	assert.Len(t, res.Schedules, 2)
	assert.Equal(t, "id-1", res.Schedules[0].ID)
	assert.Equal(t, 0, res.Schedules[1].RemainingQuota)
}
