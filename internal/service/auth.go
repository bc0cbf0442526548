package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/Ritik1652/expriy-date-tracker/internal/crypto"
	"github.com/Ritik1652/expriy-date-tracker/internal/errs"
	"github.com/Ritik1652/expriy-date-tracker/internal/limiter"
	"github.com/Ritik1652/expriy-date-tracker/internal/model"
	"github.com/Ritik1652/expriy-date-tracker/internal/storage"
)

// AuthService defines registration and login.
type AuthService interface {
	// Register creates a new user and returns a session token (registering
	// logs the user in).
	Register(ctx context.Context, username, password string) (model.Tokens, error)
	// LoginWithIP applies rate limiting keyed by (username, ip) and
	// authenticates the user.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, error)
}

type AuthServiceImpl struct {
	store     *storage.Store
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(store *storage.Store, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{store: store, signKey: signKey, accessTTL: accessTTL, lim: lim, now: time.Now}
}

// Register creates a new user record keyed by username (case-sensitive) and
// issues a session token.
func (s *AuthServiceImpl) Register(_ context.Context, username, password string) (model.Tokens, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return model.Tokens{}, errors.New("validation: empty username/password")
	}

	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return model.Tokens{}, err
	}

	s.store.Lock()
	defer s.store.Unlock()

	users := s.store.LoadUsers()
	if _, taken := users[username]; taken {
		return model.Tokens{}, errs.ErrAlreadyExists
	}
	users[username] = model.User{
		PasswordHash: hash,
		Type:         "individual",
		CreatedAt:    s.now().Format(model.DateLayout),
	}
	if err := s.store.SaveUsers(users); err != nil {
		return model.Tokens{}, err
	}
	return s.issueAccessToken(username)
}

// LoginWithIP authenticates with rate limiting by (username, ip). A stored
// credential without the hash prefix is legacy plaintext; it is compared as
// such and transparently upgraded to Argon2id on success.
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		return model.Tokens{}, errs.ErrRateLimited
	}

	s.store.Lock()
	defer s.store.Unlock()

	users := s.store.LoadUsers()
	u, found := users[username]
	if !found || !verifyCredential(password, u.PasswordHash) {
		// Record the failure; when the threshold is reached report the lock
		// instead. A missing user is indistinguishable from a wrong password.
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, errs.ErrRateLimited
		}
		return model.Tokens{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, username, ipHash)

	if !pkgcrypto.IsHashed(u.PasswordHash) {
		// Best-effort upgrade of a legacy plaintext credential.
		if hash, herr := pkgcrypto.HashPassword(password); herr == nil {
			u.PasswordHash = hash
			users[username] = u
			_ = s.store.SaveUsers(users)
		}
	}

	return s.issueAccessToken(username)
}

// verifyCredential checks password against either an Argon2id hash or a legacy
// plaintext credential.
func verifyCredential(password, stored string) bool {
	if pkgcrypto.IsHashed(stored) {
		return pkgcrypto.VerifyPassword(password, stored)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
}

// issueAccessToken creates a signed HS256 JWT for the given username.
func (s *AuthServiceImpl) issueAccessToken(username string) (model.Tokens, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ID:        jti.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}
