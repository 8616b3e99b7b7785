package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-place-enrichment/app/db"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// GetIdentity returns types.ErrNotFound for unknown or deleted users.
	GetIdentity(ctx context.Context, userID uuid.UUID) (*types.Identity, error)
	// GetProfile returns (nil, nil) when the user has no profile row.
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     database.DB
}

func NewRepository(db database.DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

func (r *RepositoryImpl) GetIdentity(ctx context.Context, userID uuid.UUID) (*types.Identity, error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "GetIdentity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	query := `SELECT id, email FROM users WHERE id = $1 AND deleted_at IS NULL`

	var identity types.Identity
	err := r.db.QueryRow(ctx, query, userID).Scan(&identity.ID, &identity.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "user not found")
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return &identity, nil
}

func (r *RepositoryImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "GetProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "profiles"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	query := `SELECT user_id, role, is_admin, subscription_status FROM profiles WHERE user_id = $1`

	profile := types.Profile{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &profile.Role, &profile.IsAdmin, &profile.SubscriptionStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.DebugContext(ctx, "No profile row for user", slog.String("userID", userID.String()))
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to load profile for %s: %w", userID, err)
	}
	span.SetStatus(codes.Ok, "profile loaded")
	return &profile, nil
}
