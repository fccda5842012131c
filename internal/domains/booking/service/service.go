package service

import (
	"context"
	b64 "encoding/base64"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"bengkel/config"
	"bengkel/infras/kafka"
	"bengkel/infras/otel"
	"bengkel/infras/postgres"
	"bengkel/infras/s3"
	"bengkel/internal/domains/booking/model"
	"bengkel/internal/domains/booking/model/dto"
	"bengkel/internal/domains/booking/repository"
	scheduleModel "bengkel/internal/domains/schedule/model"
	scheduleRepo "bengkel/internal/domains/schedule/repository"
	"bengkel/shared"
	"bengkel/shared/base64"
	"bengkel/shared/cache"
	"bengkel/shared/constant"
	gDto "bengkel/shared/dto"
	"bengkel/shared/failure"
	"bengkel/shared/timezone"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"

	// Booking mutations move schedule quota, so cached schedule reads go
	// stale together with the booking caches.
	cacheSchedulePrefix = "schedule:"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"

	photoDirectory = "booking-photos"
)

// BookingEvent is the payload published to the booking events topic after a
// mutation commits.
type BookingEvent struct {
	Event        string `json:"event"`
	BookingID    string `json:"booking_id"`
	ScheduleID   string `json:"schedule_id"`
	CustomerName string `json:"customer_name"`
	PhoneNo      string `json:"phone_no"`
	ServiceDate  string `json:"service_date"`
	ScheduleTime string `json:"schedule_time"`
	Status       string `json:"status"`
	OccurredAt   string `json:"occurred_at"`
}

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	UpdateStatus(ctx context.Context, req dto.UpdateBookingStatusRequest, id string) (dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, dateRange gDto.DateRange, bookingFilter dto.BookingFilter) (dto.GetBookingsResponse, error)
}

type serviceImpl struct {
	repo         repository.Booking
	scheduleRepo scheduleRepo.Schedule
	transactor   postgres.Transactor
	cfg          *config.Config
	cache        cache.RedisCache
	kafka        kafka.Client
	s3           s3.S3
	otel         otel.Otel
}

func New(
	repo repository.Booking,
	scheduleRepo scheduleRepo.Schedule,
	transactor postgres.Transactor,
	cfg *config.Config,
	cache cache.RedisCache,
	kafkaClient kafka.Client,
	s3Client s3.S3,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:         repo,
		scheduleRepo: scheduleRepo,
		transactor:   transactor,
		cfg:          cfg,
		cache:        cache,
		kafka:        kafkaClient,
		s3:           s3Client,
		otel:         otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CreateBooking")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	scheduleTime, err := req.NormalizeScheduleTime()
	if err != nil {
		log.Error().Err(err).Msg("failed to parse schedule time")

		return res, failure.BadRequestFromString(fmt.Sprintf("invalid schedule time: %v", err)) // nolint:wrapcheck
	}

	photoURL, err := s.uploadPhoto(ctx, req.Photo)
	if err != nil {
		return res, err
	}

	booking := req.ToModel(scheduleTime, photoURL, user)

	err = s.transactor.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		// The schedule row stays locked until commit so concurrent
		// bookings serialize on the quota decrement.
		schedule, err := s.scheduleRepo.GetForUpdateTx(
			ctx, tx,
			scheduleRepo.FilterAvailableByID(req.ScheduleID, timezone.MinAvailableDate()),
		)
		if err != nil {
			return fmt.Errorf("failed to get schedule: %w", err)
		}

		if schedule.ID == constant.Empty {
			return failure.NotFound("schedule not found") // nolint:wrapcheck
		}

		if schedule.RemainingQuota <= 0 {
			return failure.BadRequestFromString("no remaining quota available") // nolint:wrapcheck
		}

		if err = s.repo.InsertTx(ctx, tx, booking); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		updatedFields := map[string]any{
			scheduleModel.FieldRemainingQuota: schedule.RemainingQuota - 1,
			constant.FieldModifiedAt:          timezone.Now(),
			constant.FieldModifiedBy:          user,
		}

		err = s.scheduleRepo.UpdateTx(ctx, tx, updatedFields,
			shared.FilterByID(schedule.ID, scheduleModel.FieldID, scheduleModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to update schedule quota: %w", err)
		}

		booking, err = s.repo.GetTx(ctx, tx, shared.FilterByID(booking.ID, model.FieldID, model.TableName))
		if err != nil {
			return fmt.Errorf("failed to reload booking: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create booking")

		return res, err
	}

	res.FromModel(booking)

	go s.afterMutation(ctx, booking, EventBookingCreated)

	return res, nil
}

func (s *serviceImpl) UpdateStatus(ctx context.Context, req dto.UpdateBookingStatusRequest, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateBookingStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	var (
		booking     model.Booking
		statusMoved bool
	)

	err = s.transactor.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		booking, err = s.repo.GetTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}

		if booking.ID == constant.Empty {
			return failure.NotFound("booking not found") // nolint:wrapcheck
		}

		// Re-submitting the current status is a no-op; quota is only
		// touched when the booking crosses the cancelled boundary.
		if booking.Status == req.Status {
			return nil
		}

		schedule, err := s.scheduleRepo.GetForUpdateTx(ctx, tx,
			shared.FilterByID(booking.ScheduleID, scheduleModel.FieldID, scheduleModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to get schedule: %w", err)
		}

		// The first read ran before the schedule row was locked, so a
		// concurrent status change may have committed while this
		// transaction waited for the lock. The quota delta must come from
		// the status re-read under the lock.
		booking, err = s.repo.GetTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to reload booking: %w", err)
		}

		if booking.Status == req.Status {
			return nil
		}

		remaining := schedule.RemainingQuota

		wasActive := model.IsActive(booking.Status)
		willBeActive := model.IsActive(req.Status)

		switch {
		case wasActive && !willBeActive:
			remaining++
		case !wasActive && willBeActive:
			if remaining <= 0 {
				return failure.BadRequestFromString("no remaining quota available") // nolint:wrapcheck
			}

			remaining--
		}

		updatedFields := map[string]any{
			model.FieldStatus:        req.Status,
			constant.FieldModifiedAt: timezone.Now(),
			constant.FieldModifiedBy: user,
		}

		if err = s.repo.UpdateTx(ctx, tx, updatedFields, filter); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		if remaining != schedule.RemainingQuota {
			scheduleFields := map[string]any{
				scheduleModel.FieldRemainingQuota: remaining,
				constant.FieldModifiedAt:          timezone.Now(),
				constant.FieldModifiedBy:          user,
			}

			err = s.scheduleRepo.UpdateTx(ctx, tx, scheduleFields,
				shared.FilterByID(schedule.ID, scheduleModel.FieldID, scheduleModel.TableName))
			if err != nil {
				return fmt.Errorf("failed to update schedule quota: %w", err)
			}
		}

		booking, err = s.repo.GetTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to reload booking: %w", err)
		}

		statusMoved = true

		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to update booking status")

		return res, err
	}

	res.FromModel(booking)

	if statusMoved {
		go s.afterMutation(ctx, booking, EventBookingStatusChanged)
	}

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetBooking")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, dateRange gDto.DateRange, bookingFilter dto.BookingFilter) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAllBookings")
	defer scope.End()
	defer scope.TraceIfError(err)

	dateRange.Normalize()

	filters := dateRange.Filters(scheduleModel.TableName, scheduleModel.FieldServiceDate)

	if len(bookingFilter.Statuses) > 0 {
		filters = append(filters, repository.FilterByStatuses(bookingFilter.Statuses))
	}

	if bookingFilter.Search != constant.Empty {
		filters = append(filters, repository.FilterBySearch(bookingFilter.Search))
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  filters,
	}

	params.SortBy = model.TableName + "." + constant.FieldCreatedAt
	params.SortDir = gDto.SortDirDesc

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, params.Page, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

// uploadPhoto stores an optional base64 data-URI photo and returns its public
// URL; an empty payload returns an empty URL.
func (s *serviceImpl) uploadPhoto(ctx context.Context, photo string) (string, error) {
	if photo == constant.Empty {
		return constant.Empty, nil
	}

	contentType := base64.GetContentType(photo)
	if contentType == constant.Empty {
		return constant.Empty, failure.BadRequestFromString("invalid photo payload, expected a base64 data URI") // nolint:wrapcheck
	}

	raw := photo[strings.Index(photo, ";base64,")+len(";base64,"):]

	data, err := b64.StdEncoding.DecodeString(raw)
	if err != nil {
		return constant.Empty, failure.BadRequestFromString("invalid photo payload, expected valid base64 content") // nolint:wrapcheck
	}

	ext := "bin"
	if idx := strings.Index(contentType, "/"); idx >= 0 && idx < len(contentType)-1 {
		ext = contentType[idx+1:]
	}

	fileName := fmt.Sprintf("%s.%s", shared.BuildCacheKey(model.EntityName, timezone.Now().Format("20060102150405")), ext)

	url, err := s.s3.UploadFileBytes(ctx, constant.Empty, photoDirectory, fileName, contentType, data)
	if err != nil {
		log.Error().Err(err).Msg("failed to upload booking photo")

		return constant.Empty, fmt.Errorf("failed to upload booking photo: %w", err)
	}

	return url, nil
}

// afterMutation fans out the side effects of a committed booking mutation:
// cache invalidation and the booking event.
func (s *serviceImpl) afterMutation(ctx context.Context, booking model.Booking, event string) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, booking.ID)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking from cache")
	}

	shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	shared.InvalidateCaches(c, s.cache, cacheSchedulePrefix)

	payload := BookingEvent{
		Event:        event,
		BookingID:    booking.ID,
		ScheduleID:   booking.ScheduleID,
		CustomerName: booking.CustomerName,
		PhoneNo:      booking.PhoneNo,
		ServiceDate:  timezone.NormalizeDate(booking.ScheduleServiceDate).Format(constant.ServiceDateFormat),
		ScheduleTime: booking.ScheduleTime,
		Status:       booking.Status,
		OccurredAt:   timezone.Format(timezone.Now(), constant.DateFormat),
	}

	err := s.kafka.SendMessages(c, s.cfg.Kafka.Topic.BookingEvents, kafka.Message{
		Key:   booking.ID,
		Value: payload,
	})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to publish booking event")
	}
}
