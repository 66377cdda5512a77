package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/honeynil/TrustPay/internal/models"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const userColumns = `id, username, email, password_hash, profile_image, phone_number, country_code, unique_link, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span, done := track(ctx, "user-repository", "CreateUser")
	defer func() { done(err) }()

	if user == nil {
		err = pkgerrors.ErrNilUser
		return err
	}
	if user.Username == "" || user.Email == "" || user.PasswordHash == "" || user.UniqueLink == "" {
		err = fmt.Errorf("%w: username, email, password_hash and unique_link are required", pkgerrors.ErrValidation)
		return err
	}
	span.SetAttributes(attribute.String("email", user.Email))

	now := time.Now().UTC()
	query := `INSERT INTO users (username, email, password_hash, unique_link, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err = r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.UniqueLink, now, now).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			slog.Warn("user already exists", "method", "Create", "email", user.Email)
			err = pkgerrors.ErrUserAlreadyExists
			return err
		}
		slog.Error("failed to create user", "method", "Create", "email", user.Email, "error", err)
		err = fmt.Errorf("failed to create user: %w", err)
		return err
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	slog.Info("user created", "method", "Create", "user_id", user.ID)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (user *models.User, err error) {
	ctx, span, done := track(ctx, "user-repository", "GetUserByID")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("user_id", id))

	user, err = r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user *models.User, err error) {
	ctx, _, done := track(ctx, "user-repository", "GetUserByEmail")
	defer func() { done(err) }()

	if email == "" {
		err = fmt.Errorf("%w: email cannot be empty", pkgerrors.ErrValidation)
		return nil, err
	}
	user, err = r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return user, err
}

func (r *UserRepository) GetByUniqueLink(ctx context.Context, link string) (user *models.User, err error) {
	ctx, _, done := track(ctx, "user-repository", "GetUserByUniqueLink")
	defer func() { done(err) }()

	if link == "" {
		err = fmt.Errorf("%w: link cannot be empty", pkgerrors.ErrValidation)
		return nil, err
	}
	user, err = r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE unique_link = $1`, link)
	return user, err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (user *models.User, err error) {
	ctx, span, done := track(ctx, "user-repository", "UpdateUserProfile")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("user_id", id))

	query := `UPDATE users SET profile_image = $1, phone_number = $2, country_code = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, update.ProfileImage, update.PhoneNumber, update.CountryCode, time.Now().UTC(), id)
	if err != nil {
		slog.Error("failed to update profile", "method", "UpdateProfile", "user_id", id, "error", err)
		err = fmt.Errorf("failed to update profile: %w", err)
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to update profile: %w", err)
		return nil, err
	}
	if affected == 0 {
		err = pkgerrors.ErrUserNotFound
		return nil, err
	}

	user, err = r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	slog.Info("profile updated", "method", "UpdateProfile", "user_id", id)
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ProfileImage,
		&user.PhoneNumber,
		&user.CountryCode,
		&user.UniqueLink,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
