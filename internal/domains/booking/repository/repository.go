package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"

	"github.com/jmoiron/sqlx"

	"bengkel/infras/otel"
	"bengkel/infras/postgres"
	"bengkel/internal/domains/booking/model"
	gDto "bengkel/shared/dto"
	gRepo "bengkel/shared/repository"
)

type Booking interface {
	Insert(ctx context.Context, model model.Booking) error
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Booking) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	CountTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// FilterActiveBySchedule matches the bookings that still hold a quota slot on
// the given schedule, i.e. everything not cancelled.
func FilterActiveBySchedule(scheduleID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldScheduleID,
				Operator: gDto.FilterOperatorEq,
				Value:    scheduleID,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldStatus,
				Operator: gDto.FilterOperatorNotEq,
				Value:    model.StatusConfirmedCancel,
				Table:    model.TableName,
			},
		},
	}
}

// FilterByStatuses renders a status IN (...) filter.
func FilterByStatuses(statuses []string) gDto.Filter {
	return gDto.Filter{
		Field:    model.FieldStatus,
		Operator: gDto.FilterOperatorIn,
		Value:    statuses,
		Table:    model.TableName,
	}
}

// FilterBySearch renders an OR of case-insensitive substring matches over the
// customer-facing text columns.
func FilterBySearch(search string) gDto.FilterGroup {
	fields := []string{
		model.FieldCustomerName,
		model.FieldPhoneNo,
		model.FieldVehicleType,
		model.FieldLicensePlate,
	}

	filters := make([]any, len(fields))
	for i, field := range fields {
		filters[i] = gDto.Filter{
			ArgName:  "search_" + field,
			Field:    field,
			Operator: gDto.FilterOperatorLike,
			Value:    search,
			Table:    model.TableName,
		}
	}

	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorOr,
		Filters:  filters,
	}
}
