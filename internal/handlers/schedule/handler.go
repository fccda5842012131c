package schedule

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"bengkel/infras/otel"
	"bengkel/internal/domains/schedule/model/dto"
	"bengkel/internal/domains/schedule/service"
	"bengkel/shared/constant"
	gDto "bengkel/shared/dto"
	"bengkel/shared/validator"
	"bengkel/transport/http/response"
)

type Handler struct {
	service service.Schedule
	otel    otel.Otel
}

func New(service service.Schedule, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/schedules", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateSchedule)
		routerGroup.Get("/", handler.GetSchedules)
		routerGroup.Get("/available", handler.GetAvailableSchedules)
		routerGroup.Get("/available/{id}", handler.GetAvailableScheduleByID)
		routerGroup.Get("/{id}", handler.GetScheduleByID)
		routerGroup.Patch("/{id}", handler.UpdateSchedule)
	})
}

// CreateSchedule creates a service schedule for a date.
// @Summary Create a new schedule
// @Description Create a service schedule for a date with a booking quota. Each date holds at most one schedule.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param request body dto.CreateScheduleRequest true "Create Schedule Request"
// @Success 201 {object} response.Data[dto.ScheduleResponse] "Created schedule"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/schedules [post]
// @Security BearerAuth
func (handler *Handler) CreateSchedule(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateSchedule")
	defer scope.End()

	req := dto.CreateScheduleRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	schedule, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create schedule")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUsername).(string)
	scope.AddEvent("Schedule created successfully by " + user)

	response.WithJSON(writer, http.StatusCreated, schedule)
}

// GetSchedules retrieves schedules within an optional date window.
// @Summary Get all schedules
// @Description Retrieve schedules ordered by service date with optional date window and pagination.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param start_date query string false "Window start (YYYY-MM-DD)"
// @Param end_date query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.GetSchedulesResponse] "List of schedules"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/schedules [get]
// @Security BearerAuth
func (handler *Handler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSchedules")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	dateRange := gDto.DateRange{}
	dateRange.FromRequest(r)

	schedules, err := handler.service.GetAll(ctx, queryParams, dateRange)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get schedules")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Schedules retrieved successfully")

	response.WithJSON(w, http.StatusOK, schedules)
}

// GetAvailableSchedules retrieves bookable schedules within an optional date window.
// @Summary Get available schedules
// @Description Retrieve schedules that can still be booked: future service date and remaining quota.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param start_date query string false "Window start (YYYY-MM-DD)"
// @Param end_date query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.GetSchedulesResponse] "List of available schedules"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/schedules/available [get]
func (handler *Handler) GetAvailableSchedules(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAvailableSchedules")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	dateRange := gDto.DateRange{}
	dateRange.FromRequest(r)

	schedules, err := handler.service.GetAllAvailable(ctx, queryParams, dateRange)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get available schedules")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Available schedules retrieved successfully")

	response.WithJSON(w, http.StatusOK, schedules)
}

// GetScheduleByID retrieves a schedule by its ID.
// @Summary Get a schedule by ID
// @Description Retrieve a schedule by its unique identifier.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Data[dto.ScheduleResponse] "Schedule details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/schedules/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetScheduleByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetScheduleByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	schedule, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get schedule by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Schedule retrieved successfully")

	response.WithJSON(w, http.StatusOK, schedule)
}

// GetAvailableScheduleByID retrieves a schedule by ID only while it is bookable.
// @Summary Get an available schedule by ID
// @Description Retrieve a schedule by ID when it still has remaining quota on a future date; 404 otherwise.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Data[dto.ScheduleResponse] "Available schedule details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/schedules/available/{id} [get]
func (handler *Handler) GetAvailableScheduleByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAvailableScheduleByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	schedule, err := handler.service.GetAvailable(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get available schedule by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Available schedule retrieved successfully")

	response.WithJSON(w, http.StatusOK, schedule)
}

// UpdateSchedule updates a schedule date and/or quota.
// @Summary Update a schedule by ID
// @Description Update the service date or quota of a schedule. Quota cannot drop below the active booking count and the date cannot move while active bookings exist.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param request body dto.UpdateScheduleRequest true "Update Schedule Request"
// @Success 200 {object} response.Data[dto.ScheduleResponse] "Updated schedule"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/schedules/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateSchedule")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.UpdateScheduleRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	schedule, err := handler.service.Update(ctx, req, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update schedule")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUsername).(string)
	scope.AddEvent("Schedule updated successfully by " + user)

	response.WithJSON(w, http.StatusOK, schedule)
}
