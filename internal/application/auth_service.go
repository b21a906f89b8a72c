package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

const (
	DefaultLoginMaxAttempts = 5
	DefaultLoginDecay       = time.Minute

	tokenName     = "auth-token"
	tokenCacheTTL = 10 * time.Minute
	// outlives any cache entry written by a Resolve that raced a logout
	revokedTTL = 2 * tokenCacheTTL
)

// AuthService issues, resolves and revokes bearer tokens and throttles
// failed logins per normalized email.
type AuthService struct {
	Users   repo.UserRepository
	Tokens  repo.TokenRepository
	Limiter repo.RateLimiter
	JWT     *helpers.TokenManager
	Redis   *redis.Client // optional principal cache
	Logger  *logrus.Logger

	MaxAttempts int
	Decay       time.Duration
}

func NewAuthService(users repo.UserRepository, tokens repo.TokenRepository, limiter repo.RateLimiter, jwt *helpers.TokenManager, rdb *redis.Client, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:       users,
		Tokens:      tokens,
		Limiter:     limiter,
		JWT:         jwt,
		Redis:       rdb,
		Logger:      logger,
		MaxAttempts: DefaultLoginMaxAttempts,
		Decay:       DefaultLoginDecay,
	}
}

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time // zero when tokens do not expire
}

// ThrottleKey is the limiter key for an email: trimmed and lowercased so
// case or whitespace variants share one counter.
func ThrottleKey(email string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(email))
}

func tokenCacheKey(id string) string {
	return "auth:token:" + id
}

func revokedKey(id string) string {
	return "auth:revoked:" + id
}

// Login checks the throttle before touching the user store. Unknown emails and
// wrong passwords both count as a failed attempt and look identical to callers.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	key := ThrottleKey(email)

	attempts, err := s.Limiter.Attempts(ctx, key)
	if err != nil {
		return nil, err
	}
	if attempts >= s.MaxAttempts {
		retry, err := s.Limiter.AvailableIn(ctx, key)
		if err != nil {
			return nil, err
		}
		metrics.Add(metricLoginThrottled, 1)
		if s.Logger != nil {
			s.Logger.WithField("key", key).Info("login throttled")
		}
		return nil, &RateLimitError{RetryAfter: retry}
	}

	u, err := s.verify(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		if _, hitErr := s.Limiter.Hit(ctx, key, s.Decay); hitErr != nil {
			return nil, hitErr
		}
		metrics.Add(metricLoginFailure, 1)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := s.Limiter.Clear(ctx, key); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("clear login throttle failed")
	}

	token, exp, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	metrics.Add(metricLoginSuccess, 1)
	return &LoginResult{User: u, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) verify(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repo.ErrNotFound) {
		helpers.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) issue(ctx context.Context, u *entity.User) (string, time.Time, error) {
	token, id, exp, err := s.JWT.Issue(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("sign token failed")
		}
		return "", time.Time{}, err
	}
	if err := s.Tokens.Create(ctx, &entity.AuthToken{ID: id, UserID: u.ID, Name: tokenName}); err != nil {
		return "", time.Time{}, err
	}
	s.cache(ctx, entity.Principal{ID: u.ID, Name: u.Name, Email: u.Email, TokenID: id})
	return token, exp, nil
}

// Resolve maps a bearer token to its principal. Any failure to find a live
// token for the claimed user is ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, bearer string) (entity.Principal, error) {
	if bearer == "" {
		return entity.Principal{}, ErrUnauthenticated
	}
	claims, err := s.JWT.Parse(bearer)
	if err != nil {
		return entity.Principal{}, ErrUnauthenticated
	}

	if s.revoked(ctx, claims.ID) {
		return entity.Principal{}, ErrUnauthenticated
	}
	if p, ok := s.cached(ctx, claims.ID); ok && p.ID == claims.UserID {
		return p, nil
	}

	tok, err := s.Tokens.GetByID(ctx, claims.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return entity.Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return entity.Principal{}, err
	}
	if tok.UserID != claims.UserID {
		return entity.Principal{}, ErrUnauthenticated
	}

	u, err := s.Users.GetByID(ctx, tok.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return entity.Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return entity.Principal{}, err
	}

	// last_used_at is only refreshed on cache misses
	if err := s.Tokens.Touch(ctx, tok.ID); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("token_id", tok.ID).Warn("touch token failed")
	}

	p := entity.Principal{ID: u.ID, Name: u.Name, Email: u.Email, TokenID: tok.ID}
	s.cache(ctx, p)
	return p, nil
}

// Logout revokes exactly the token the principal authenticated with. The row
// goes first, then a revocation marker that Resolve checks before its cache.
func (s *AuthService) Logout(ctx context.Context, p entity.Principal) error {
	if p.TokenID == "" {
		return ErrUnauthenticated
	}
	err := s.Tokens.Delete(ctx, p.TokenID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	if s.Redis != nil {
		if err := s.Redis.Set(ctx, revokedKey(p.TokenID), 1, revokedTTL).Err(); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("token_id", p.TokenID).Warn("mark token revoked failed")
		}
		if err := helpers.RedisDel(ctx, s.Redis, tokenCacheKey(p.TokenID)); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("token_id", p.TokenID).Warn("drop token cache failed")
		}
	}
	return nil
}

func (s *AuthService) cache(ctx context.Context, p entity.Principal) {
	if s.Redis == nil || s.revoked(ctx, p.TokenID) {
		return
	}
	if err := helpers.RedisSetJSON(ctx, s.Redis, tokenCacheKey(p.TokenID), p, tokenCacheTTL); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("token_id", p.TokenID).Warn("cache token failed")
	}
}

// revoked reports whether a logout marked the token. Redis errors count as
// not revoked; the token row stays authoritative on a cache miss.
func (s *AuthService) revoked(ctx context.Context, id string) bool {
	if s.Redis == nil {
		return false
	}
	n, err := s.Redis.Exists(ctx, revokedKey(id)).Result()
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("token_id", id).Warn("read revocation failed")
		}
		return false
	}
	return n > 0
}

func (s *AuthService) cached(ctx context.Context, id string) (entity.Principal, bool) {
	if s.Redis == nil {
		return entity.Principal{}, false
	}
	var p entity.Principal
	ok, err := helpers.RedisGetJSON(ctx, s.Redis, tokenCacheKey(id), &p)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("token_id", id).Warn("read token cache failed")
		}
		return entity.Principal{}, false
	}
	return p, ok && p.TokenID == id
}
