package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"

	"bengkel/infras/otel"
	"bengkel/infras/postgres"
	"bengkel/internal/domains/dealer/model"
	gDto "bengkel/shared/dto"
	gRepo "bengkel/shared/repository"
)

type Dealer interface {
	Insert(ctx context.Context, model model.Dealer) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Dealer, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Dealer]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Dealer {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Dealer](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// FilterByUsername matches a dealer on its unique username.
func FilterByUsername(username string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldUsername,
				Operator: gDto.FilterOperatorEq,
				Value:    username,
				Table:    model.TableName,
			},
		},
	}
}
