package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/peoplehub/people-api/internal/models"
	appErrors "github.com/peoplehub/people-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tokenBlacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AuthService orchestrates register, login, refresh, logout and token
// validation by composing the user repository, the token service and
// the revocation store.
type AuthService struct {
	repo      authUserRepository
	blacklist tokenBlacklist
	tokens    *TokenService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, blacklist tokenBlacklist, tokens *TokenService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		repo:      repo,
		blacklist: blacklist,
		tokens:    tokens,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Register creates a new account and issues a token pair. Duplicate
// emails fail with a conflict so clients can prompt for another one.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, *models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}

	email := strings.ToLower(req.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     req.FullName,
		Role:         models.RoleUser,
		Active:       true,
		PasswordHash: string(passwordHash),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	s.audit(ctx, models.AuditActionRegister, user.ID, req.IP, req.UserAgent)

	return s.loginResponse(user, pair), pair, nil
}

// Login authenticates a user and returns issued tokens. Unknown email
// and wrong password produce the same error shape so responses never
// reveal whether an account exists.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, *models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.audit(ctx, models.AuditActionLogin, user.ID, req.IP, req.UserAgent)

	return s.loginResponse(user, pair), pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The
// old refresh token is superseded by cookie rotation; any verification
// failure, including a subject that no longer resolves to a live
// account, surfaces as unauthorized.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, *models.TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		s.logger.Debug("refresh token rejected", zap.Error(err))
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !user.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	s.audit(ctx, models.AuditActionTokenRefresh, user.ID, "", "")

	return s.loginResponse(user, pair), pair, nil
}

// Logout revokes the presented access token by blacklisting it for
// its remaining lifetime. The token is decoded without verification:
// only its expiry is read, and revoking a token that would fail
// verification anyway is harmless. Blacklisting an already
// blacklisted token is a no-op, so concurrent logouts are safe.
func (s *AuthService) Logout(ctx context.Context, accessToken, ip, userAgent string) error {
	if accessToken == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "no token provided")
	}

	claims, err := s.tokens.Decode(accessToken)
	if err != nil || claims.ExpiresAt == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.Add(ctx, accessToken, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to revoke token")
	}

	s.audit(ctx, models.AuditActionLogout, claims.UserID, ip, userAgent)

	return nil
}

// ValidateToken is the gate every protected request passes through.
// The blacklist lookup runs first; a store failure there is treated
// as "cannot confirm not-revoked" and fails closed. Signature and
// expiry verification must also pass before the claims are trusted.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	revoked, err := s.blacklist.IsBlacklisted(ctx, tokenString)
	if err != nil {
		s.logger.Error("blacklist lookup failed, rejecting token", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "unauthorized")
	}
	if revoked {
		s.logger.Debug("rejected blacklisted token")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}

	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		s.logger.Debug("token verification failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "unauthorized")
	}

	return claims, nil
}

// CurrentUser resolves an authenticated subject to its account.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *AuthService) issuePair(user *models.User) (*models.TokenPair, error) {
	accessToken, accessExp, err := s.tokens.Issue(user, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, refreshExp, err := s.tokens.Issue(user, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) loginResponse(user *models.User, pair *models.TokenPair) *models.LoginResponse {
	return &models.LoginResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    time.Now().UTC(),
		User: models.UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	}
}

func (s *AuthService) audit(ctx context.Context, action, userID, ip, userAgent string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}
