package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/repos"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/ctxutil"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

const DefaultTokenScope = "build"

type AuthConfig struct {
	Disabled bool
	Secret   string
	TokenTTL time.Duration
	// Server is the public base url used for the token realm, e.g. https://monitor.example.org.
	Server string
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	IssuedAt  string `json:"issued_at"`
}

type accessEntry struct {
	Type    string   `json:"type"`
	Actions []string `json:"actions"`
}

type TokenClaims struct {
	Access []accessEntry `json:"access"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Disabled() bool
	Realm() string
	CreateUser(ctx context.Context, username, email string) (*types.User, string, error)
	ResetToken(ctx context.Context, username string) (string, error)
	VerifyBasic(ctx context.Context, username, token string) (*types.User, error)
	IssueToken(ctx context.Context, user *types.User, scope string) (*TokenResponse, error)
	Authenticate(ctx context.Context, authorization string) (*ctxutil.Identity, error)
}

type authService struct {
	db         *gorm.DB
	log        *logger.Logger
	cfg        AuthConfig
	userRepo   repos.UserRepo
	tokenStore TokenStore
}

func NewAuthService(db *gorm.DB, log *logger.Logger, cfg AuthConfig, userRepo repos.UserRepo, tokenStore TokenStore) AuthService {
	serviceLog := log.With("service", "AuthService")
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 10 * time.Minute
	}
	cfg.Server = strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	return &authService{
		db:         db,
		log:        serviceLog,
		cfg:        cfg,
		userRepo:   userRepo,
		tokenStore: tokenStore,
	}
}

func (as *authService) Disabled() bool { return as.cfg.Disabled }

func (as *authService) Realm() string { return as.cfg.Server + "/auth/token/" }

// CreateUser stores a new user and returns the plain API token. Only its hash is kept.
func (as *authService) CreateUser(ctx context.Context, username, email string) (*types.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, "", apierr.BadRequest("missing_username", "username is required")
	}
	token, hash, err := newAPIToken()
	if err != nil {
		return nil, "", err
	}
	u := &types.User{Username: username, Email: strings.TrimSpace(email), TokenHash: hash, IsActive: true}
	if err := as.userRepo.Create(dbctx.Context{Ctx: ctx}, u); err != nil {
		return nil, "", fmt.Errorf("create user %s: %w", username, err)
	}
	as.log.Info("user created", "username", username)
	return u, token, nil
}

func (as *authService) ResetToken(ctx context.Context, username string) (string, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := as.userRepo.GetByUsername(dbc, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierr.NotFound("user_not_found", "user %s does not exist", username)
		}
		return "", err
	}
	token, hash, err := newAPIToken()
	if err != nil {
		return "", err
	}
	if err := as.userRepo.SetTokenHash(dbc, u.ID, hash); err != nil {
		return "", err
	}
	return token, nil
}

func (as *authService) VerifyBasic(ctx context.Context, username, token string) (*types.User, error) {
	denied := apierr.New(http.StatusForbidden, "invalid_credentials", errors.New("invalid username or token"))
	u, err := as.userRepo.GetByUsername(dbctx.Context{Ctx: ctx}, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, denied
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, denied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.TokenHash), []byte(token)); err != nil {
		return nil, denied
	}
	return u, nil
}

func (as *authService) IssueToken(ctx context.Context, user *types.User, scope string) (*TokenResponse, error) {
	if as.cfg.Secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = DefaultTokenScope
	}
	now := time.Now().UTC()
	expires := now.Add(as.cfg.TokenTTL)
	jti := uuid.New()
	claims := TokenClaims{
		Access: []accessEntry{{Type: "build", Actions: []string{scope}}},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    as.Realm(),
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti.String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	if err := as.tokenStore.Remember(ctx, jti, user.ID, expires); err != nil {
		return nil, fmt.Errorf("remember token: %w", err)
	}
	return &TokenResponse{
		Token:     signed,
		ExpiresIn: int(as.cfg.TokenTTL.Seconds()),
		IssuedAt:  now.Format(time.RFC3339),
	}, nil
}

// Authenticate resolves the Authorization header. Failures are *apierr.Error values: 401 when
// the caller should fetch a token, 403 when they hold credentials that are not accepted here.
func (as *authService) Authenticate(ctx context.Context, authorization string) (*ctxutil.Identity, error) {
	if as.cfg.Disabled {
		return &ctxutil.Identity{AuthDisabled: true}, nil
	}
	scheme, value, _ := strings.Cut(strings.TrimSpace(authorization), " ")
	value = strings.TrimSpace(value)
	switch strings.ToLower(scheme) {
	case "bearer":
		return as.authenticateBearer(ctx, value)
	case "basic":
		username, token, ok := decodeBasic(value)
		if ok {
			if _, err := as.VerifyBasic(ctx, username, token); err == nil {
				return nil, apierr.New(http.StatusForbidden, "token_required",
					errors.New("exchange your credentials for a bearer token at "+as.Realm()))
			}
		}
	}
	return nil, unauthorized()
}

func (as *authService) authenticateBearer(ctx context.Context, raw string) (*ctxutil.Identity, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, unauthorized()
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, unauthorized()
	}
	active, err := as.tokenStore.Active(ctx, jti)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apierr.New(http.StatusForbidden, "token_revoked", errors.New("token is no longer active"))
	}
	u, err := as.userRepo.GetByUsername(dbctx.Context{Ctx: ctx}, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusForbidden, "unknown_user", errors.New("token subject does not exist"))
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, apierr.New(http.StatusForbidden, "inactive_user", errors.New("user is not active"))
	}
	id := u.ID
	return &ctxutil.Identity{UserID: &id, Username: u.Username}, nil
}

func unauthorized() error {
	return apierr.New(http.StatusUnauthorized, "authentication_required", errors.New("authentication required"))
}

func decodeBasic(value string) (string, string, bool) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(raw), ":")
}

func newAPIToken() (token, hash string, err error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	token = hex.EncodeToString(buf)
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash token: %w", err)
	}
	return token, string(h), nil
}
