package service_test

import (
	"context"
	b64 "encoding/base64"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"bengkel/config"
	kafkaMocks "bengkel/infras/kafka/mocks"
	"bengkel/infras/otel/mocks"
	pgMocks "bengkel/infras/postgres/mocks"
	s3Mocks "bengkel/infras/s3/mocks"
	bookingMocks "bengkel/internal/domains/booking/mocks"
	"bengkel/internal/domains/booking/model"
	"bengkel/internal/domains/booking/model/dto"
	"bengkel/internal/domains/booking/service"
	scheduleMocks "bengkel/internal/domains/schedule/mocks"
	scheduleModel "bengkel/internal/domains/schedule/model"
	cacheMocks "bengkel/shared/cache/mocks"
	"bengkel/shared/constant"
	gDto "bengkel/shared/dto"
	"bengkel/shared/failure"
	gModel "bengkel/shared/model"
	"bengkel/shared/timezone"
)

type bookingMockSet struct {
	repo         *bookingMocks.MockBooking
	scheduleRepo *scheduleMocks.MockSchedule
	transactor   *pgMocks.MockTransactor
	cache        *cacheMocks.MockRedisCache
	kafka        *kafkaMocks.MockClient
	s3           *s3Mocks.MockS3
}

func newBookingService(ctrl *gomock.Controller) (service.Booking, bookingMockSet) {
	set := bookingMockSet{
		repo:         bookingMocks.NewMockBooking(ctrl),
		scheduleRepo: scheduleMocks.NewMockSchedule(ctrl),
		transactor:   pgMocks.NewMockTransactor(ctrl),
		cache:        cacheMocks.NewMockRedisCache(ctrl),
		kafka:        kafkaMocks.NewMockClient(ctrl),
		s3:           s3Mocks.NewMockS3(ctrl),
	}

	set.transactor.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
			return fn(nil)
		}).
		AnyTimes()

	// Post-commit side effects run on a goroutine.
	set.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	set.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	set.kafka.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(set.repo, set.scheduleRepo, set.transactor, cfg, set.cache, set.kafka, set.s3, mocks.NewOtel())

	return svc, set
}

func newBookingFixture(id, scheduleID, status string) model.Booking {
	return model.Booking{
		ID:             id,
		ScheduleID:     scheduleID,
		CustomerName:   "Budi Santoso",
		PhoneNo:        "081234567890",
		VehicleType:    "Avanza",
		LicensePlate:   "B 1234 CD",
		VehicleProblem: "Engine noise",
		ScheduleTime:   "10:00:00",
		Status:         status,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  constant.ContextGuest,
			ModifiedBy: constant.ContextGuest,
		},
	}
}

func availableSchedule(id string, remaining int) scheduleModel.Schedule {
	return scheduleModel.Schedule{
		ID:             id,
		ServiceDate:    timezone.StartOfDay(timezone.Now().AddDate(0, 0, 3)),
		Quota:          5,
		RemainingQuota: remaining,
	}
}

func TestBookingService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newBookingService(ctrl)

	validReq := dto.CreateBookingRequest{
		ScheduleID:     "b8e486b5-1a10-4e8b-8a32-fd2981574444",
		CustomerName:   "Budi Santoso",
		PhoneNo:        "081234567890",
		VehicleType:    "Avanza",
		LicensePlate:   "B 1234 CD",
		VehicleProblem: "Engine noise",
		ScheduleTime:   "10:00",
	}

	tests := []struct {
		name      string
		req       dto.CreateBookingRequest
		setupMock func()
		wantErr   bool
		wantCode  int
	}{
		{
			name: "successful booking decrements quota",
			req:  validReq,
			setupMock: func() {
				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(availableSchedule(validReq.ScheduleID, 2), nil)

				set.repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, booking model.Booking) error {
						assert.Equal(t, model.StatusPending, booking.Status)
						assert.Equal(t, "10:00:00", booking.ScheduleTime)

						return nil
					})

				set.scheduleRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, 1, fields[scheduleModel.FieldRemainingQuota])

						return nil
					})

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture("booking-id", validReq.ScheduleID, model.StatusPending), nil)
			},
		},
		{
			name: "schedule not bookable",
			req:  validReq,
			setupMock: func() {
				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(scheduleModel.Schedule{}, nil)
			},
			wantErr:  true,
			wantCode: 404,
		},
		{
			name: "no remaining quota",
			req:  validReq,
			setupMock: func() {
				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(availableSchedule(validReq.ScheduleID, 0), nil)
			},
			wantErr:  true,
			wantCode: 400,
		},
		{
			name: "invalid schedule time",
			req: func() dto.CreateBookingRequest {
				req := validReq
				req.ScheduleTime = "half past ten"

				return req
			}(),
			setupMock: func() {},
			wantErr:   true,
			wantCode:  400,
		},
		{
			name: "photo is not a data URI",
			req: func() dto.CreateBookingRequest {
				req := validReq
				req.Photo = "not-a-data-uri"

				return req
			}(),
			setupMock: func() {},
			wantErr:   true,
			wantCode:  400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := svc.Create(context.Background(), tt.req)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "booking-id", res.ID)
			assert.Equal(t, model.StatusPending, res.Status)
		})
	}
}

func TestBookingService_CreateWithPhoto(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newBookingService(ctrl)

	photo := "data:image/png;base64," + b64.StdEncoding.EncodeToString([]byte("png-bytes"))

	req := dto.CreateBookingRequest{
		ScheduleID:     "b8e486b5-1a10-4e8b-8a32-fd2981574444",
		CustomerName:   "Budi Santoso",
		PhoneNo:        "081234567890",
		VehicleType:    "Avanza",
		LicensePlate:   "B 1234 CD",
		VehicleProblem: "Engine noise",
		ScheduleTime:   "10:00",
		Photo:          photo,
	}

	set.s3.EXPECT().
		UploadFileBytes(gomock.Any(), "", "booking-photos", gomock.Any(), "image/png", []byte("png-bytes")).
		Return("https://cdn.example.com/booking-photos/photo.png", nil)

	set.scheduleRepo.EXPECT().
		GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(availableSchedule(req.ScheduleID, 2), nil)

	set.repo.EXPECT().
		InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sqlx.Tx, booking model.Booking) error {
			if assert.NotNil(t, booking.PhotoURL) {
				assert.Equal(t, "https://cdn.example.com/booking-photos/photo.png", *booking.PhotoURL)
			}

			return nil
		})

	set.scheduleRepo.EXPECT().
		UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	set.repo.EXPECT().
		GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(newBookingFixture("booking-id", req.ScheduleID, model.StatusPending), nil)

	_, err := svc.Create(context.Background(), req)

	assert.NoError(t, err)
}

func TestBookingService_UpdateStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newBookingService(ctrl)

	bookingID := "booking-id"
	scheduleID := "schedule-id"

	tests := []struct {
		name       string
		req        dto.UpdateBookingStatusRequest
		setupMock  func()
		wantErr    bool
		wantCode   int
		wantStatus string
	}{
		{
			name: "booking not found",
			req:  dto.UpdateBookingStatusRequest{Status: model.StatusConfirmedAttend},
			setupMock: func() {
				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(model.Booking{}, nil)
			},
			wantErr:  true,
			wantCode: 404,
		},
		{
			name: "same status is a no-op",
			req:  dto.UpdateBookingStatusRequest{Status: model.StatusPending},
			setupMock: func() {
				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusPending), nil)
			},
			wantStatus: model.StatusPending,
		},
		{
			name: "active to attended keeps quota untouched",
			req:  dto.UpdateBookingStatusRequest{Status: model.StatusAttended},
			setupMock: func() {
				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedAttend), nil)

				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(availableSchedule(scheduleID, 2), nil)

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedAttend), nil)

				set.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusAttended), nil)
			},
			wantStatus: model.StatusAttended,
		},
		{
			name: "cancel releases a quota slot",
			req:  dto.UpdateBookingStatusRequest{Status: model.StatusConfirmedCancel},
			setupMock: func() {
				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusPending), nil)

				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(availableSchedule(scheduleID, 2), nil)

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusPending), nil)

				set.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				set.scheduleRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, 3, fields[scheduleModel.FieldRemainingQuota])

						return nil
					})

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedCancel), nil)
			},
			wantStatus: model.StatusConfirmedCancel,
		},
		{
			name: "reactivation consumes a quota slot",
			req:  dto.UpdateBookingStatusRequest{Status: model.StatusPending},
			setupMock: func() {
				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedCancel), nil)

				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(availableSchedule(scheduleID, 1), nil)

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedCancel), nil)

				set.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				set.scheduleRepo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, 0, fields[scheduleModel.FieldRemainingQuota])

						return nil
					})

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusPending), nil)
			},
			wantStatus: model.StatusPending,
		},
		{
			name: "reactivation fails when schedule is full",
			req:  dto.UpdateBookingStatusRequest{Status: model.StatusPending},
			setupMock: func() {
				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedCancel), nil)

				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(availableSchedule(scheduleID, 0), nil)

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedCancel), nil)
			},
			wantErr:  true,
			wantCode: 400,
		},
		{
			// A competing cancellation that commits while this transaction
			// waits for the schedule lock must not be released twice.
			name: "cancellation committed during lock wait releases nothing",
			req:  dto.UpdateBookingStatusRequest{Status: model.StatusConfirmedCancel},
			setupMock: func() {
				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusPending), nil)

				set.scheduleRepo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(availableSchedule(scheduleID, 5), nil)

				set.repo.EXPECT().
					GetTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(newBookingFixture(bookingID, scheduleID, model.StatusConfirmedCancel), nil)
			},
			wantStatus: model.StatusConfirmedCancel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "dealer-id")
			res, err := svc.UpdateStatus(ctx, tt.req, bookingID)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
		})
	}
}

func TestBookingService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newBookingService(ctrl)

	set.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	t.Run("cache miss, found in db", func(t *testing.T) {
		set.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(newBookingFixture("booking-id", "schedule-id", model.StatusPending), nil)

		res, err := svc.Get(context.Background(), "booking-id")

		assert.NoError(t, err)
		assert.Equal(t, "booking-id", res.ID)
		assert.Equal(t, "schedule-id", res.Schedule.ID)
	})

	t.Run("not found", func(t *testing.T) {
		set.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{}, nil)

		_, err := svc.Get(context.Background(), "booking-id")

		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}

func TestBookingService_GetAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newBookingService(ctrl)

	set.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	t.Run("filters and sort are applied", func(t *testing.T) {
		set.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		set.repo.EXPECT().
			Count(gomock.Any(), gomock.Any()).
			Return(1, nil)

		set.repo.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params gDto.QueryParams, filter gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
				assert.Equal(t, model.TableName+"."+constant.FieldCreatedAt, params.SortBy)
				assert.Equal(t, gDto.SortDirDesc, params.SortDir)
				assert.Len(t, filter.Filters, 2)

				return []model.Booking{newBookingFixture("booking-id", "schedule-id", model.StatusPending)}, nil
			})

		res, err := svc.GetAll(
			context.Background(),
			gDto.QueryParams{Page: 1, Limit: 10},
			gDto.DateRange{},
			dto.BookingFilter{Statuses: []string{model.StatusPending}, Search: "budi"},
		)

		assert.NoError(t, err)
		assert.Equal(t, 1, res.TotalData)
		assert.Len(t, res.Bookings, 1)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		set.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		_, err := svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 10}, gDto.DateRange{}, dto.BookingFilter{})

		assert.NoError(t, err)
	})
}
