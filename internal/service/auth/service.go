package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

var (
	ErrInvalidCredentials = apperrors.Unauthorized("invalid credentials", nil)
	ErrAccountLocked      = apperrors.Unauthorized("too many failed attempts, try again later", nil)
)

const (
	defaultMaxFailedLogins = 5
	defaultLockoutDuration = 15 * time.Minute
)

type Options struct {
	MaxFailedLogins int
	LockoutDuration time.Duration
}

type AuthService interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	Logout(ctx context.Context, identity *model.Identity) error
	Verify(ctx context.Context, token string) (*model.Identity, error)
	Register(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	Me(ctx context.Context, identity *model.Identity) (*model.User, error)
}

type Service struct {
	users   repository.UserRepository
	jwtSvc  auth.JWTService
	hasher  security.PasswordHasher
	opts    Options
	failed  *cache.Cache
	revoked *cache.Cache
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher,
	opts Options, m *metrics.Metrics, log *logger.Logger) *Service {
	if opts.MaxFailedLogins <= 0 {
		opts.MaxFailedLogins = defaultMaxFailedLogins
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = defaultLockoutDuration
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:   users,
		jwtSvc:  jwtSvc,
		hasher:  hasher,
		opts:    opts,
		failed:  cache.New(opts.LockoutDuration, time.Minute),
		revoked: cache.New(cache.NoExpiration, 10*time.Minute),
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

var _ AuthService = (*Service)(nil)

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(req.Email))

	if s.locked(key) {
		s.countLogin("locked")
		return nil, ErrAccountLocked
	}

	user, err := s.users.GetByEmail(ctx, key)
	if err != nil {
		if !apperrors.Is(err, apperrors.KindNotFound) {
			return nil, err
		}
		s.hasher.CompareDummy(req.Password)
		s.recordFailure(key)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordFailure(key)
		s.log.Warn(err, "failed login", "user_id", user.ID.String())
		return nil, ErrInvalidCredentials
	}
	s.failed.Delete(key)

	token, claims, err := s.jwtSvc.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.countLogin("success")
	s.log.Info("user logged in", "user_id", user.ID.String(), "role", user.Role)
	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

func (s *Service) locked(key string) bool {
	n, ok := s.failed.Get(key)
	return ok && n.(int) >= s.opts.MaxFailedLogins
}

func (s *Service) recordFailure(key string) {
	s.countLogin("failure")
	if err := s.failed.Add(key, 1, cache.DefaultExpiration); err != nil {
		_, _ = s.failed.IncrementInt(key, 1)
	}
}

func (s *Service) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
}

// Logout revokes the token behind identity until it would have expired
func (s *Service) Logout(_ context.Context, identity *model.Identity) error {
	if identity == nil || identity.TokenID == "" {
		return apperrors.Unauthorized("", nil)
	}
	ttl := identity.ExpiresAt.Sub(s.now())
	if ttl > 0 {
		s.revoked.Set(identity.TokenID, struct{}{}, ttl)
	}
	s.log.Info("user logged out", "user_id", identity.UserID.String())
	return nil
}

// Verify checks a session token and returns the caller behind it
func (s *Service) Verify(_ context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("missing token", nil)
	}
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.Unauthorized("token expired", err)
		}
		return nil, apperrors.Unauthorized("invalid token", err)
	}
	if _, revoked := s.revoked.Get(claims.ID); revoked {
		return nil, apperrors.Unauthorized("token revoked", nil)
	}

	identity := &model.Identity{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// Register creates a staff account. The password is hashed here and never
// reaches the repository in clear text.
func (s *Service) Register(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrPasswordTooShort):
			return nil, apperrors.Validation("invalid request",
				apperrors.FieldError{Field: "password", Message: "is too short"})
		case errors.Is(err, security.ErrPasswordTooLong):
			return nil, apperrors.Validation("invalid request",
				apperrors.FieldError{Field: "password", Message: "is too long"})
		}
		return nil, apperrors.Internal(err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID.String(), "role", user.Role)
	return user, nil
}

func (s *Service) Me(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil {
		return nil, apperrors.Unauthorized("", nil)
	}
	return s.users.Get(ctx, identity.UserID)
}
