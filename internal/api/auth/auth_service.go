package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-place-enrichment/config"
	"github.com/FACorreiaa/go-place-enrichment/internal/api"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

var _ Guard = (*GuardImpl)(nil)

// Guard resolves callers and answers entitlement questions about them.
type Guard interface {
	ResolveCaller(ctx context.Context, credential string) (*types.Identity, error)
	LoadProfile(ctx context.Context, identity *types.Identity) (*types.Profile, error)
}

type GuardImpl struct {
	logger   *slog.Logger
	jwtCfg   config.JWTConfig
	repo     Repository
	fallback Repository
}

// NewGuard builds the guard. fallback is the privileged profile reader built
// from the service credential; pass nil when none is configured.
func NewGuard(repo Repository, fallback Repository, jwtCfg config.JWTConfig, logger *slog.Logger) *GuardImpl {
	return &GuardImpl{
		logger:   logger,
		jwtCfg:   jwtCfg,
		repo:     repo,
		fallback: fallback,
	}
}

// ResolveCaller verifies the bearer credential and loads the user it names.
func (g *GuardImpl) ResolveCaller(ctx context.Context, credential string) (*types.Identity, error) {
	ctx, span := otel.Tracer("EntitlementGuard").Start(ctx, "ResolveCaller")
	defer span.End()
	l := g.logger.With(slog.String("method", "ResolveCaller"))

	credential = strings.TrimSpace(credential)
	if credential == "" {
		span.SetStatus(codes.Error, "missing credential")
		return nil, types.ErrUnauthorized
	}

	userID, err := g.verify(credential)
	if err != nil {
		l.WarnContext(ctx, "Credential rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "credential rejected")
		return nil, fmt.Errorf("%w: %s", types.ErrUnauthorized, err.Error())
	}

	identity, err := g.repo.GetIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Credential names an unknown user", slog.String("userID", userID.String()))
			span.SetStatus(codes.Error, "unknown user")
			return nil, types.ErrUnauthorized
		}
		l.ErrorContext(ctx, "Identity lookup failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity lookup failed")
		return nil, fmt.Errorf("%w: identity lookup failed: %v", types.ErrUnauthorized, err)
	}

	span.SetAttributes(attribute.String("user.id", identity.ID.String()))
	span.SetStatus(codes.Ok, "caller resolved")
	return identity, nil
}

func (g *GuardImpl) verify(credential string) (uuid.UUID, error) {
	secret := []byte(g.jwtCfg.SecretKey)
	if len(secret) == 0 {
		return uuid.Nil, errors.New("token verification key is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if g.jwtCfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.jwtCfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, errors.New("token has expired")
		case errors.Is(err, jwt.ErrTokenMalformed):
			return uuid.Nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, errors.New("invalid token signature")
		default:
			return uuid.Nil, err
		}
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	if !api.VerifyAudience(claims.Audience, g.jwtCfg.Audience) {
		return uuid.Nil, errors.New("invalid token audience")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return userID, nil
}

// LoadProfile reads the caller's profile. When the read fails under the
// application role it is retried with the service reader; without one the
// failure surfaces as ErrMissingServiceCredential instead of granting access.
func (g *GuardImpl) LoadProfile(ctx context.Context, identity *types.Identity) (*types.Profile, error) {
	ctx, span := otel.Tracer("EntitlementGuard").Start(ctx, "LoadProfile")
	defer span.End()
	l := g.logger.With(slog.String("method", "LoadProfile"), slog.String("userID", identity.ID.String()))

	profile, err := g.repo.GetProfile(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}
	l.WarnContext(ctx, "Profile lookup failed", slog.Any("error", err))
	span.RecordError(err)

	if g.fallback == nil {
		span.SetStatus(codes.Error, "no service credential")
		return nil, fmt.Errorf("%w: profile lookup failed: %v", types.ErrMissingServiceCredential, err)
	}

	profile, err = g.fallback.GetProfile(ctx, identity.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "service profile lookup failed")
		return nil, fmt.Errorf("profile lookup with service credential failed: %w", err)
	}
	l.InfoContext(ctx, "Profile loaded with service credential")
	return profile, nil
}

// IsAdmin is true for is_admin profiles and the admin role.
func IsAdmin(p *types.Profile) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin != nil && *p.IsAdmin {
		return true
	}
	return p.Role != nil && strings.EqualFold(strings.TrimSpace(*p.Role), RoleAdmin)
}

// HasEnrichmentEntitlement mirrors the premium gate of the web client. A nil
// profile is never entitled.
func HasEnrichmentEntitlement(p *types.Profile) bool {
	if p == nil {
		return false
	}
	if IsAdmin(p) {
		return true
	}
	if p.Role != nil && strings.EqualFold(strings.TrimSpace(*p.Role), RolePremium) {
		return true
	}
	return p.SubscriptionStatus != nil && strings.EqualFold(strings.TrimSpace(*p.SubscriptionStatus), SubscriptionActive)
}

// CanMutate allows the record owner and admins.
func CanMutate(identity *types.Identity, p *types.Profile, ownerID uuid.UUID) bool {
	if identity == nil {
		return false
	}
	return identity.ID == ownerID || IsAdmin(p)
}
