package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"bengkel/config"
	"bengkel/infras/otel"
	"bengkel/infras/postgres"
	bookingRepo "bengkel/internal/domains/booking/repository"
	"bengkel/internal/domains/schedule/model"
	"bengkel/internal/domains/schedule/model/dto"
	"bengkel/internal/domains/schedule/repository"
	"bengkel/shared"
	"bengkel/shared/cache"
	"bengkel/shared/constant"
	gDto "bengkel/shared/dto"
	"bengkel/shared/failure"
	"bengkel/shared/timezone"
)

const (
	cacheGetSchedule    = "schedule:get"
	cacheGetAllSchedule = "schedule:gets"
	cacheCountSchedule  = "schedule:count"

	// Booking reads embed the schedule snapshot, so quota changes here
	// invalidate the booking caches too.
	cacheBookingPrefix = "booking:"
)

type Schedule interface {
	Create(ctx context.Context, req dto.CreateScheduleRequest) (dto.ScheduleResponse, error)
	Update(ctx context.Context, req dto.UpdateScheduleRequest, id string) (dto.ScheduleResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, dateRange gDto.DateRange) (dto.GetSchedulesResponse, error)
	GetAllAvailable(ctx context.Context, params gDto.QueryParams, dateRange gDto.DateRange) (dto.GetSchedulesResponse, error)
	Get(ctx context.Context, id string) (dto.ScheduleResponse, error)
	GetAvailable(ctx context.Context, id string) (dto.ScheduleResponse, error)
}

type serviceImpl struct {
	repo        repository.Schedule
	bookingRepo bookingRepo.Booking
	transactor  postgres.Transactor
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Schedule,
	bookingRepo bookingRepo.Booking,
	transactor postgres.Transactor,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Schedule {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		transactor:  transactor,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateScheduleRequest) (res dto.ScheduleResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CreateSchedule")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	schedule, err := req.ToModel(user)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse schedule request")

		return res, failure.BadRequestFromString(fmt.Sprintf("invalid service date: %v", err)) // nolint:wrapcheck
	}

	err = s.transactor.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		// The uniqueness check and the insert share the transaction so two
		// concurrent creators cannot both pass the check.
		existing, err := s.repo.GetForUpdateTx(ctx, tx, repository.FilterByDate(schedule.ServiceDate))
		if err != nil {
			return fmt.Errorf("failed to check schedule date: %w", err)
		}

		if existing.ID != constant.Empty {
			return failure.Conflict("schedule already exists for the given date") // nolint:wrapcheck
		}

		// With no row to lock, two concurrent creators can both pass the
		// check; the loser lands on the service_date unique constraint.
		if err = s.repo.InsertTx(ctx, tx, schedule); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation {
				return failure.Conflict("schedule already exists for the given date") // nolint:wrapcheck
			}

			return fmt.Errorf("failed to create schedule: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create schedule")

		return res, err
	}

	res.FromModel(schedule)

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllSchedule)
		shared.InvalidateCaches(c, s.cache, cacheCountSchedule)
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateScheduleRequest, id string) (res dto.ScheduleResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateSchedule")
	defer scope.End()
	defer scope.TraceIfError(err)

	if req.ServiceDate == nil && req.Quota == nil {
		return res, failure.BadRequestFromString("update request cannot be empty") // nolint:wrapcheck
	}

	newDate, err := req.ParseServiceDate()
	if err != nil {
		return res, failure.BadRequestFromString(fmt.Sprintf("invalid service date: %v", err)) // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	var updated model.Schedule

	err = s.transactor.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		schedule, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get schedule: %w", err)
		}

		if schedule.ID == constant.Empty {
			return failure.NotFound("schedule not found") // nolint:wrapcheck
		}

		activeCount, err := s.bookingRepo.CountTx(ctx, tx, bookingRepo.FilterActiveBySchedule(id))
		if err != nil {
			return fmt.Errorf("failed to count active bookings: %w", err)
		}

		if req.Quota != nil && *req.Quota < activeCount {
			return failure.BadRequestFromString(fmt.Sprintf(
				"cannot set quota to %d, there are already %d active bookings", *req.Quota, activeCount,
			)) // nolint:wrapcheck
		}

		isDateChange := newDate != nil && !newDate.Equal(timezone.NormalizeDate(schedule.ServiceDate))

		// Committed customers keep their date: a schedule with active
		// bookings cannot be moved.
		if isDateChange && activeCount > 0 {
			return failure.BadRequestFromString(fmt.Sprintf(
				"cannot change date, there are %d active bookings on this schedule", activeCount,
			)) // nolint:wrapcheck
		}

		if isDateChange {
			colliding, err := s.repo.GetTx(ctx, tx, repository.FilterByDate(*newDate))
			if err != nil {
				return fmt.Errorf("failed to check schedule date: %w", err)
			}

			if colliding.ID != constant.Empty && colliding.ID != schedule.ID {
				return failure.Conflict("schedule already exists for the given date") // nolint:wrapcheck
			}
		}

		updatedFields := map[string]any{
			constant.FieldModifiedAt: timezone.Now(),
			constant.FieldModifiedBy: user,
		}

		if isDateChange {
			updatedFields[model.FieldServiceDate] = *newDate
		}

		if req.Quota != nil {
			updatedFields[model.FieldQuota] = *req.Quota
			updatedFields[model.FieldRemainingQuota] = *req.Quota - activeCount
		}

		if err = s.repo.UpdateTx(ctx, tx, updatedFields, filter); err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}

		updated, err = s.repo.GetTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to reload schedule: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to update schedule")

		return res, err
	}

	res.FromModel(updated)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetSchedule, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete schedule from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllSchedule)
		shared.InvalidateCaches(c, s.cache, cacheCountSchedule)
		shared.InvalidateCaches(c, s.cache, cacheBookingPrefix)
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, dateRange gDto.DateRange) (res dto.GetSchedulesResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAllSchedules")
	defer scope.End()
	defer scope.TraceIfError(err)

	dateRange.Normalize()

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  dateRange.Filters(model.TableName, model.FieldServiceDate),
	}

	return s.getAll(ctx, params, filter)
}

func (s *serviceImpl) GetAllAvailable(ctx context.Context, params gDto.QueryParams, dateRange gDto.DateRange) (res dto.GetSchedulesResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAllAvailableSchedules")
	defer scope.End()
	defer scope.TraceIfError(err)

	dateRange.Normalize()

	minAllowedDate := timezone.MinAvailableDate()

	// A window that ends before tomorrow can never contain an available
	// schedule; short-circuit with an empty page instead of querying.
	if dateRange.End != nil && dateRange.End.Before(minAllowedDate) {
		res.FromModels(nil, 0, params.Page, params.Limit)

		return res, nil
	}

	if dateRange.Start == nil || dateRange.Start.Before(minAllowedDate) {
		dateRange.Start = &minAllowedDate
	}

	filters := []any{
		gDto.Filter{
			ArgName:  "min_remaining_quota",
			Field:    model.FieldRemainingQuota,
			Operator: gDto.FilterOperatorGreaterEq,
			Value:    1,
			Table:    model.TableName,
		},
	}
	filters = append(filters, dateRange.Filters(model.TableName, model.FieldServiceDate)...)

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  filters,
	}

	return s.getAll(ctx, params, filter)
}

func (s *serviceImpl) getAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetSchedulesResponse, err error) {
	params.SortBy = model.TableName + "." + model.FieldServiceDate
	params.SortDir = gDto.SortDirAsc

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllSchedule, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for schedules")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count schedules")

		return res, fmt.Errorf("failed to count schedules: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get schedules")

		return res, fmt.Errorf("failed to get schedules: %w", err)
	}

	res.FromModels(models, total, params.Page, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save schedules to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.ScheduleResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetSchedule")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetSchedule, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for schedule")

		return res, nil
	}

	schedule, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get schedule")

		return res, fmt.Errorf("failed to get schedule: %w", err)
	}

	if schedule.ID == constant.Empty {
		return res, failure.NotFound("schedule not found") // nolint:wrapcheck
	}

	res.FromModel(schedule)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save schedule to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAvailable(ctx context.Context, id string) (res dto.ScheduleResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAvailableSchedule")
	defer scope.End()
	defer scope.TraceIfError(err)

	schedule, err := s.repo.Get(ctx, repository.FilterAvailableByID(id, timezone.MinAvailableDate()))
	if err != nil {
		log.Error().Err(err).Msg("failed to get available schedule")

		return res, fmt.Errorf("failed to get available schedule: %w", err)
	}

	if schedule.ID == constant.Empty {
		return res, failure.NotFound("schedule not found") // nolint:wrapcheck
	}

	res.FromModel(schedule)

	return res, nil
}
