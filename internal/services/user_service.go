package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/honeynil/TrustPay/internal/infrastructure/auth"
	"github.com/honeynil/TrustPay/internal/infrastructure/kafka"
	"github.com/honeynil/TrustPay/internal/infrastructure/redis"
	"github.com/honeynil/TrustPay/internal/models"
	"github.com/honeynil/TrustPay/internal/repository"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	profileCacheTTL   = 5 * time.Minute
)

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *models.Claims) error
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.Profile, error)
	GetPayLink(ctx context.Context, userID int64) (string, error)
	LookupByLink(ctx context.Context, link string) (*models.Profile, error)
}

type userService struct {
	userRepo   repository.UserRepository
	tokens     *auth.TokenManager
	cache      redis.RedisClient
	publisher  kafka.Publisher
	bcryptCost int
}

func NewUserService(
	userRepo repository.UserRepository,
	tokens *auth.TokenManager,
	cache redis.RedisClient,
	publisher kafka.Publisher,
) *userService {
	return &userService{
		userRepo:   userRepo,
		tokens:     tokens,
		cache:      cache,
		publisher:  publisher,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*models.Profile, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case username == "":
		span.SetStatus(codes.Error, "empty username")
		return nil, pkgerrors.NewValidationError("username", "username is required")
	case email == "":
		span.SetStatus(codes.Error, "empty email")
		return nil, pkgerrors.NewValidationError("email", "email is required")
	case len(password) < minPasswordLength:
		span.SetStatus(codes.Error, "short password")
		return nil, pkgerrors.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if existingUser != nil {
		span.SetStatus(codes.Error, "email already registered")
		slog.Warn("email already registered", "email", email, "existing_id", existingUser.ID)
		return nil, pkgerrors.ErrUserAlreadyExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user check failed")
		slog.Error("failed to check user existence", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to check user existence: %v", pkgerrors.ErrInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		UniqueLink:   uuid.NewString(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			return nil, err
		}
		slog.Error("failed to create user in DB", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to create user: %v", pkgerrors.ErrInternal, err)
	}

	profile := user.Profile()
	s.publish(ctx, kafka.Event{
		Type: kafka.EventUserRegistered,
		Key:  user.ID,
		Payload: map[string]interface{}{
			"user_id":  user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})

	slog.Info("user registered successfully", "user_id", user.ID, "username", username)
	return &profile, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (string, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserNotFound) || stderrors.Is(err, pkgerrors.ErrValidation) {
			slog.Warn("login for unknown email", "email", email)
			span.SetStatus(codes.Error, "invalid credentials")
			return "", pkgerrors.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to login", "email", email, "error", err)
		return "", fmt.Errorf("%w: failed to look up user: %v", pkgerrors.ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("invalid password", "user_id", user.ID)
		span.SetStatus(codes.Error, "invalid credentials")
		return "", pkgerrors.ErrInvalidCredentials
	}

	token, _, err := s.tokens.Generate(user)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate JWT", "error", err)
		return "", fmt.Errorf("%w: failed to generate token: %v", pkgerrors.ErrInternal, err)
	}

	slog.Info("user logged in", "user_id", user.ID)
	return token, nil
}

func (s *userService) Logout(ctx context.Context, claims *models.Claims) error {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	if claims == nil || claims.ExpiresAt == nil {
		return pkgerrors.ErrInvalidToken
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, auth.RevokedKey(claims.ID), "1", ttl); err != nil {
		span.RecordError(err)
		slog.Error("failed to revoke token", "user_id", claims.UserID, "error", err)
		return fmt.Errorf("%w: failed to revoke token: %v", pkgerrors.ErrInternal, err)
	}

	slog.Info("user logged out", "user_id", claims.UserID)
	return nil
}

func (s *userService) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "GetProfile")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get profile", "user_id", userID, "error", err)
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.Profile, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "UpdateProfile")
	defer span.End()

	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to update profile", "user_id", userID, "error", err)
		return nil, err
	}
	if err := s.cache.Del(ctx, profileCacheKey(user.UniqueLink)); err != nil {
		slog.Error("failed to invalidate cached profile", "user_id", userID, "error", err)
	}

	profile := user.Profile()
	return &profile, nil
}

func (s *userService) GetPayLink(ctx context.Context, userID int64) (string, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.UniqueLink, nil
}

func (s *userService) LookupByLink(ctx context.Context, link string) (*models.Profile, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "LookupByLink")
	defer span.End()

	link = strings.TrimSpace(link)
	if link == "" {
		return nil, pkgerrors.NewValidationError("trustpayLink", "link is required")
	}

	key := profileCacheKey(link)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var profile models.Profile
		if err := json.Unmarshal([]byte(cached), &profile); err != nil {
			slog.Error("failed to unmarshal cached profile", "key", key, "error", err)
		} else {
			return &profile, nil
		}
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to read profile cache", "key", key, "error", err)
	}

	user, err := s.userRepo.GetByUniqueLink(ctx, link)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	profile := user.Profile()

	if data, err := json.Marshal(profile); err == nil {
		if err := s.cache.Set(ctx, key, string(data), profileCacheTTL); err != nil {
			slog.Error("failed to cache profile", "key", key, "error", err)
		}
	}
	return &profile, nil
}

func (s *userService) publish(ctx context.Context, event kafka.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Error("failed to publish event", "event_type", event.Type, "key", event.Key, "error", err)
	}
}

func profileCacheKey(link string) string {
	return "user:link:" + link
}
