package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bengkel/config"
	"bengkel/infras/jwt"
	"bengkel/infras/otel"
	"bengkel/internal/domains/auth/model/dto"
	dealerModel "bengkel/internal/domains/dealer/model"
	dealerRepo "bengkel/internal/domains/dealer/repository"
	"bengkel/shared"
	"bengkel/shared/constant"
	"bengkel/shared/failure"
	"bengkel/shared/password"
	"bengkel/shared/timezone"
)

type Auth interface {
	Register(ctx context.Context, req dto.RegisterRequest) error
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (dto.RefreshTokenResponse, error)
	ChangePassword(ctx context.Context, req dto.ChangePasswordRequest, dealerID string) error
}

type serviceImpl struct {
	dealerRepo dealerRepo.Dealer
	cfg        *config.Config
	otel       otel.Otel
	jwtService jwt.JWT
}

func New(dealerRepo dealerRepo.Dealer, cfg *config.Config, otel otel.Otel, jwt jwt.JWT) Auth {
	return &serviceImpl{
		dealerRepo: dealerRepo,
		cfg:        cfg,
		otel:       otel,
		jwtService: jwt,
	}
}

func (s *serviceImpl) Register(ctx context.Context, req dto.RegisterRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Register")
	defer scope.End()
	defer scope.TraceIfError(err)

	exists, err := s.dealerRepo.Exist(ctx, dealerRepo.FilterByUsername(req.Username))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if dealer exists")

		return fmt.Errorf("failed to check if dealer exists: %w", err)
	}

	if exists {
		return failure.BadRequestFromString("username already registered") // nolint:wrapcheck
	}

	hashedPassword, err := password.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")

		return fmt.Errorf("failed to hash password: %w", err)
	}

	username, _ := ctx.Value(constant.ContextKeyUsername).(string)
	if username == constant.Empty {
		username = constant.ContextGuest
	}

	if err = s.dealerRepo.Insert(ctx, req.ToDealerModel(username, hashedPassword)); err != nil {
		log.Error().Err(err).Msg("failed to create dealer")

		return fmt.Errorf("failed to create dealer: %w", err)
	}

	return nil
}

func (s *serviceImpl) Login(ctx context.Context, req dto.LoginRequest) (res dto.LoginResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Login")
	defer scope.End()
	defer scope.TraceIfError(err)

	usernameFilter := dealerRepo.FilterByUsername(req.Username)

	dealer, err := s.dealerRepo.Get(ctx, usernameFilter)
	if err != nil || dealer.ID == constant.Empty {
		log.Warn().Str("username", req.Username).Msg("login attempt with non-existent username")

		return res, failure.BadRequestFromString("invalid username or password") // nolint:wrapcheck
	}

	if err := password.Verify(req.Password, dealer.Password); err != nil {
		log.Warn().Str("username", req.Username).Msg("login attempt with wrong password")

		return res, failure.BadRequestFromString("invalid username or password") // nolint:wrapcheck
	}

	if !dealer.Active {
		return res, failure.BadRequestFromString("dealer account is deactivated") // nolint:wrapcheck
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(dealer.ID, dealer.Username, constant.RoleDealer)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate tokens")

		return res, fmt.Errorf("failed to generate tokens: %w", err)
	}

	lastLogin := dto.UpdateLastLoginRequest{LastLogin: timezone.Now()}
	updatedFields := shared.TransformFields(lastLogin, dealer.Username)

	if err := s.dealerRepo.Update(ctx, updatedFields, usernameFilter); err != nil {
		log.Warn().Err(err).Str("dealer_id", dealer.ID).Msg("failed to update last login")

		return res, fmt.Errorf("failed to update last login: %w", err)
	}

	res.FromTokenPair(tokenPair)

	return res, nil
}

func (s *serviceImpl) RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (res dto.RefreshTokenResponse, err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RefreshToken")
	defer scope.End()
	defer scope.TraceIfError(err)

	tokenPair, err := s.jwtService.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh tokens")

		return res, failure.Unauthorized("invalid refresh token") // nolint:wrapcheck
	}

	res.FromTokenPair(tokenPair)

	return res, nil
}

func (s *serviceImpl) ChangePassword(ctx context.Context, req dto.ChangePasswordRequest, dealerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ChangePassword")
	defer scope.End()
	defer scope.TraceIfError(err)

	username, _ := ctx.Value(constant.ContextKeyUsername).(string)
	filter := shared.FilterByID(dealerID, dealerModel.FieldID, dealerModel.TableName)

	dealer, err := s.dealerRepo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get dealer")

		return fmt.Errorf("failed to get dealer: %w", err)
	}

	if dealer.ID == constant.Empty {
		return failure.NotFound("dealer not found") // nolint:wrapcheck
	}

	if err := password.Verify(req.CurrentPassword, dealer.Password); err != nil {
		return failure.BadRequestFromString("current password is incorrect") // nolint:wrapcheck
	}

	hashedPassword, err := password.Hash(req.NewPassword)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash new password")

		return fmt.Errorf("failed to hash new password: %w", err)
	}

	updatePassword := dto.UpdatePasswordRequest{Password: hashedPassword}
	updatedFields := shared.TransformFields(updatePassword, username)

	if err = s.dealerRepo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update password")

		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
