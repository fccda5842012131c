package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"bengkel/infras/otel"
	"bengkel/infras/postgres"
	"bengkel/internal/domains/schedule/model"
	"bengkel/shared/constant"
	gDto "bengkel/shared/dto"
	gRepo "bengkel/shared/repository"
)

type Schedule interface {
	Insert(ctx context.Context, model model.Schedule) error
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Schedule) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Schedule, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Schedule, error)
	GetForUpdateTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Schedule, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Schedule, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Schedule]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Schedule {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Schedule](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// FilterByDate matches a schedule on its unique service-date key. The value
// is rendered as a calendar date so the comparison against the DATE column
// does not depend on the application timezone offset.
func FilterByDate(serviceDate time.Time) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldServiceDate,
				Operator: gDto.FilterOperatorEq,
				Value:    serviceDate.Format(constant.ServiceDateFormat),
				Table:    model.TableName,
			},
		},
	}
}

// FilterAvailableByID matches a schedule by id only while it is bookable:
// service date at or after minAllowedDate and remaining quota positive.
func FilterAvailableByID(id string, minAllowedDate time.Time) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldID,
				Operator: gDto.FilterOperatorEq,
				Value:    id,
				Table:    model.TableName,
			},
			gDto.Filter{
				ArgName:  "min_allowed_date",
				Field:    model.FieldServiceDate,
				Operator: gDto.FilterOperatorGreaterEq,
				Value:    minAllowedDate.Format(constant.ServiceDateFormat),
				Table:    model.TableName,
			},
			gDto.Filter{
				ArgName:  "min_remaining_quota",
				Field:    model.FieldRemainingQuota,
				Operator: gDto.FilterOperatorGreaterEq,
				Value:    1,
				Table:    model.TableName,
			},
		},
	}
}
