//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"bengkel/config"
	"bengkel/infras/jwt"
	"bengkel/infras/kafka"
	"bengkel/infras/otel"
	"bengkel/infras/postgres"
	"bengkel/infras/redis"
	"bengkel/infras/s3"
	"bengkel/permissions"
	"bengkel/shared/cache"
	"bengkel/transport/http"
	"bengkel/transport/http/middleware"
	"bengkel/transport/http/router"

	authService "bengkel/internal/domains/auth/service"
	bookingRepository "bengkel/internal/domains/booking/repository"
	bookingService "bengkel/internal/domains/booking/service"
	dealerRepository "bengkel/internal/domains/dealer/repository"
	scheduleRepository "bengkel/internal/domains/schedule/repository"
	scheduleService "bengkel/internal/domains/schedule/service"
	authHandler "bengkel/internal/handlers/auth"
	bookingHandler "bengkel/internal/handlers/booking"
	scheduleHandler "bengkel/internal/handlers/schedule"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	postgres.NewTransactor,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var scheduleDomain = wire.NewSet(
	scheduleRepository.New,
	scheduleService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var authDomain = wire.NewSet(
	dealerRepository.New,
	authService.New,
)

var domains = wire.NewSet(
	scheduleDomain,
	bookingDomain,
	authDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	scheduleHandler.New,
	bookingHandler.New,
	authHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
