package service_test

import (
	"context"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bengkel/config"
	"bengkel/infras/kafka"
	"bengkel/infras/otel/mocks"
	"bengkel/internal/domains/booking/model"
	"bengkel/internal/domains/booking/model/dto"
	"bengkel/internal/domains/booking/service"
	scheduleModel "bengkel/internal/domains/schedule/model"
	"bengkel/shared/cache"
	gDto "bengkel/shared/dto"
	"bengkel/shared/timezone"
)

// memStore emulates the database for the quota invariant tests: one schedule
// row plus its bookings, guarded by a single lock that stands in for the
// row-level lock a transaction takes with FOR UPDATE.
type memStore struct {
	mu       sync.Mutex
	schedule scheduleModel.Schedule
	bookings map[string]model.Booking
}

func newMemStore(schedule scheduleModel.Schedule) *memStore {
	return &memStore{
		schedule: schedule,
		bookings: map[string]model.Booking{},
	}
}

type memTransactor struct {
	store *memStore
}

func (t *memTransactor) WithTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	return fn(nil)
}

func filterID(filter gDto.FilterGroup) string {
	for _, raw := range filter.Filters {
		if f, ok := raw.(gDto.Filter); ok && f.Field == "id" {
			if id, ok := f.Value.(string); ok {
				return id
			}
		}
	}

	return ""
}

type memScheduleRepo struct {
	store *memStore
}

func (r *memScheduleRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (scheduleModel.Schedule, error) {
	// The availability filter carries the remaining-quota condition on top
	// of the id match; a sold-out schedule matches nothing.
	availability := len(filter.Filters) > 1
	if availability && r.store.schedule.RemainingQuota < 1 {
		return scheduleModel.Schedule{}, nil
	}

	if filterID(filter) != r.store.schedule.ID {
		return scheduleModel.Schedule{}, nil
	}

	return r.store.schedule, nil
}

func (r *memScheduleRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error {
	if remaining, ok := req[scheduleModel.FieldRemainingQuota].(int); ok {
		r.store.schedule.RemainingQuota = remaining
	}

	return nil
}

func (r *memScheduleRepo) Insert(ctx context.Context, m scheduleModel.Schedule) error {
	return nil
}

func (r *memScheduleRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, m scheduleModel.Schedule) error {
	return nil
}

func (r *memScheduleRepo) Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (scheduleModel.Schedule, error) {
	return r.store.schedule, nil
}

func (r *memScheduleRepo) GetTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (scheduleModel.Schedule, error) {
	return r.store.schedule, nil
}

func (r *memScheduleRepo) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]scheduleModel.Schedule, error) {
	return []scheduleModel.Schedule{r.store.schedule}, nil
}

func (r *memScheduleRepo) Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error) {
	return true, nil
}

func (r *memScheduleRepo) Count(ctx context.Context, filter gDto.FilterGroup) (int, error) {
	return 1, nil
}

func (r *memScheduleRepo) Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error {
	return nil
}

type memBookingRepo struct {
	store *memStore
}

func (r *memBookingRepo) Insert(ctx context.Context, m model.Booking) error {
	return r.InsertTx(ctx, nil, m)
}

func (r *memBookingRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, m model.Booking) error {
	r.store.bookings[m.ID] = m

	return nil
}

func (r *memBookingRepo) Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error) {
	return r.store.bookings[filterID(filter)], nil
}

func (r *memBookingRepo) GetTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Booking, error) {
	return r.store.bookings[filterID(filter)], nil
}

func (r *memBookingRepo) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error) {
	bookings := make([]model.Booking, 0, len(r.store.bookings))
	for _, booking := range r.store.bookings {
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

func (r *memBookingRepo) Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error) {
	return len(r.store.bookings) > 0, nil
}

func (r *memBookingRepo) Count(ctx context.Context, filter gDto.FilterGroup) (int, error) {
	return r.CountTx(ctx, nil, filter)
}

func (r *memBookingRepo) CountTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) (int, error) {
	count := 0

	for _, booking := range r.store.bookings {
		if model.IsActive(booking.Status) {
			count++
		}
	}

	return count, nil
}

func (r *memBookingRepo) Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error {
	return r.UpdateTx(ctx, nil, req, filter)
}

func (r *memBookingRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error {
	booking, ok := r.store.bookings[filterID(filter)]
	if !ok {
		return nil
	}

	if status, ok := req[model.FieldStatus].(string); ok {
		booking.Status = status
	}

	r.store.bookings[booking.ID] = booking

	return nil
}

type noopCache struct{}

func (noopCache) Save(ctx context.Context, key string, value any, duration int) error { return nil }
func (noopCache) Get(ctx context.Context, key string, value any) error {
	return cache.Nil
}
func (noopCache) Delete(ctx context.Context, key string) error   { return nil }
func (noopCache) Clear(ctx context.Context, prefix string) error { return nil }

type noopKafka struct{}

func (noopKafka) SendMessages(ctx context.Context, topic string, messages ...kafka.Message) error {
	return nil
}

func (noopKafka) Consume(ctx context.Context, consumerGroup, topic string, handler func(message kafkaGo.Message)) {
}

func (noopKafka) Reader(consumerGroup, topic string) *kafkaGo.Reader { return nil }

type noopS3 struct{}

func (noopS3) UploadFile(ctx context.Context, bucketName, directory string, file multipart.File, fileHeader *multipart.FileHeader, fileName string) (string, error) {
	return "", nil
}

func (noopS3) UploadFileBytes(ctx context.Context, bucketName, directory, fileName, contentType string, fileData []byte) (string, error) {
	return "", nil
}

func (noopS3) DeleteFile(ctx context.Context, bucketName, directory, objectName string) error {
	return nil
}

func (noopS3) GetObjectNameFromURL(bucketName, url string) string { return "" }

func newMemService(store *memStore) service.Booking {
	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	return service.New(
		&memBookingRepo{store: store},
		&memScheduleRepo{store: store},
		&memTransactor{store: store},
		cfg,
		noopCache{},
		noopKafka{},
		noopS3{},
		mocks.NewOtel(),
	)
}

func bookingRequest() dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		ScheduleID:     "schedule-id",
		CustomerName:   "Budi Santoso",
		PhoneNo:        "081234567890",
		VehicleType:    "Avanza",
		LicensePlate:   "B 1234 CD",
		VehicleProblem: "Engine noise",
		ScheduleTime:   "10:00",
	}
}

// Twenty customers race for five slots; exactly five bookings must land and
// the quota must end at zero.
func TestBookingService_ConcurrentCreatesNeverOversell(t *testing.T) {
	const (
		quota      = 5
		contenders = 20
	)

	store := newMemStore(scheduleModel.Schedule{
		ID:             "schedule-id",
		ServiceDate:    timezone.StartOfDay(timezone.Now().AddDate(0, 0, 3)),
		Quota:          quota,
		RemainingQuota: quota,
	})

	svc := newMemService(store)

	var wg sync.WaitGroup

	results := make(chan error, contenders)

	for range contenders {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Create(context.Background(), bookingRequest())
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	succeeded := 0

	for err := range results {
		if err == nil {
			succeeded++
		}
	}

	assert.Equal(t, quota, succeeded)
	assert.Equal(t, 0, store.schedule.RemainingQuota)
	assert.Len(t, store.bookings, quota)
}

// A cancel frees exactly one slot and a later booking can claim it; quota
// never exceeds its original value along the way.
func TestBookingService_CancelReleasesSlotForNewBooking(t *testing.T) {
	store := newMemStore(scheduleModel.Schedule{
		ID:             "schedule-id",
		ServiceDate:    timezone.StartOfDay(timezone.Now().AddDate(0, 0, 3)),
		Quota:          1,
		RemainingQuota: 1,
	})

	svc := newMemService(store)

	first, err := svc.Create(context.Background(), bookingRequest())
	require.NoError(t, err)
	require.Equal(t, 0, store.schedule.RemainingQuota)

	_, err = svc.Create(context.Background(), bookingRequest())
	require.Error(t, err, "full schedule must reject a second booking")

	_, err = svc.UpdateStatus(context.Background(), dto.UpdateBookingStatusRequest{Status: model.StatusConfirmedCancel}, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.schedule.RemainingQuota)

	second, err := svc.Create(context.Background(), bookingRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, store.schedule.RemainingQuota)

	// Reactivating the cancelled booking must fail while the slot is taken.
	_, err = svc.UpdateStatus(context.Background(), dto.UpdateBookingStatusRequest{Status: model.StatusPending}, first.ID)
	assert.Error(t, err)

	// Cancelling the second frees the slot, then reactivation succeeds.
	_, err = svc.UpdateStatus(context.Background(), dto.UpdateBookingStatusRequest{Status: model.StatusConfirmedCancel}, second.ID)
	require.NoError(t, err)

	reactivated, err := svc.UpdateStatus(context.Background(), dto.UpdateBookingStatusRequest{Status: model.StatusPending}, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, reactivated.Status)
	assert.Equal(t, 0, store.schedule.RemainingQuota)
}
