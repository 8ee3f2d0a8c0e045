package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/acainfo/backend/internal/config"
	"github.com/acainfo/backend/internal/db"
	"github.com/acainfo/backend/internal/model"
	"github.com/acainfo/backend/internal/revocation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeBearer   = "Bearer"
	minPasswordLength = 8
	maxPasswordLength = 72
	minSecretLength   = 32
)

var validMajors = map[string]bool{
	"ING_INF": true,
	"ING_IND": true,
}

// Reasons reported by Validate for an invalid token.
const (
	ReasonBlacklisted = "blacklisted"
	ReasonExpired     = "expired"
	ReasonMalformed   = "malformed"
)

// Directory is the persistence collaborator: both lookup contracts plus the
// inserts used by registration.
type Directory interface {
	StudentReader
	TeacherReader
	CreateStudent(ctx context.Context, s *model.Student) (*model.Student, error)
	CreateTeacher(ctx context.Context, t *model.Teacher) (*model.Teacher, error)
}

type AuthService struct {
	dir           Directory
	resolver      *PrincipalResolver
	hasher        *PasswordHasher
	codec         *TokenCodec
	revoked       revocation.Store
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rotateRefresh bool
	dummyHash     string
	logger        *zap.Logger
	now           func() time.Time
}

func NewAuthService(dir Directory, revoked revocation.Store, cfg config.AuthConfig, logger *zap.Logger) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.JWTAccessTTL)
	if err != nil || accessTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.JWTRefreshTTL)
	if err != nil || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	rotateRefresh, err := parseBool(cfg.RotateRefresh, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_ROTATE_REFRESH", ErrMisconfigured)
	}

	cost, err := parseCost(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid BCRYPT_COST", ErrMisconfigured)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.JWTSecret) < minSecretLength {
		logger.Warn("JWT secret is shorter than recommended", zap.Int("length", len(cfg.JWTSecret)))
	}

	hasher := NewPasswordHasher(cost)
	// Compared against when an email is unknown so a miss costs as much as a
	// wrong password.
	dummyHash, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, err
	}

	return &AuthService{
		dir:           dir,
		resolver:      NewPrincipalResolver(dir, dir),
		hasher:        hasher,
		codec:         NewTokenCodec([]byte(cfg.JWTSecret)),
		revoked:       revoked,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		rotateRefresh: rotateRefresh,
		dummyHash:     dummyHash,
		logger:        logger.Named("auth"),
		now:           time.Now,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	principal, err := s.resolver.ResolveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.logger.Info("login rejected: unknown email", zap.String("email", email))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, principal.PasswordHash) {
		s.logger.Info("login rejected: wrong password", zap.String("identity", principal.Identity))
		return nil, ErrInvalidCredentials
	}

	if !principal.Active {
		s.logger.Info("login rejected: inactive account", zap.String("identity", principal.Identity))
		return nil, ErrAccountInactive
	}

	resp, err := s.issueSession(principal)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login succeeded",
		zap.String("identity", principal.Identity),
		zap.String("kind", string(principal.Kind)),
	)
	return resp, nil
}

// Refresh mints a new access token from a refresh token. The principal is
// re-read from source data so deactivation takes effect here.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.RefreshResponse, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		s.logger.Debug("refresh rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}

	revoked, err := s.revoked.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		s.logger.Info("refresh rejected: revoked token", zap.String("identity", claims.Subject))
		return nil, ErrInvalidToken
	}

	if claims.Type != model.TokenRefresh {
		s.logger.Info("refresh rejected: wrong token type",
			zap.String("identity", claims.Subject),
			zap.String("type", string(claims.Type)),
		)
		return nil, ErrInvalidToken
	}

	principal, err := s.currentPrincipal(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	accessToken, _, err := s.codec.Issue(principal, model.TokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}

	resp := &model.RefreshResponse{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}

	if s.rotateRefresh {
		newRefresh, _, err := s.codec.Issue(principal, model.TokenRefresh, s.refreshTTL)
		if err != nil {
			return nil, err
		}
		if err := s.revoked.Revoke(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
			return nil, fmt.Errorf("revoke rotated refresh token: %w", err)
		}
		resp.RefreshToken = newRefresh
	}

	s.logger.Debug("access token refreshed", zap.String("identity", principal.Identity))
	return resp, nil
}

// Logout revokes token without inspecting it. It never fails: malformed or
// already expired strings are accepted and simply have no effect. The string
// is used exactly as given, like every other token operation here.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.revoked.Revoke(ctx, token, s.revocationExpiry(token)); err != nil {
		s.logger.Error("failed to revoke token", zap.Error(err))
		return
	}
	s.logger.Info("token revoked")
}

// Validate never fails; every problem becomes an invalid result with a reason.
// When the revocation store cannot be reached the token is reported as
// blacklisted, since it cannot be shown not to be.
func (s *AuthService) Validate(ctx context.Context, token string) model.TokenValidation {
	claims, reason, err := s.check(ctx, token)
	if err != nil {
		return model.TokenValidation{Valid: false, Reason: ReasonBlacklisted}
	}
	if claims == nil {
		return model.TokenValidation{Valid: false, Reason: reason}
	}

	remaining := int64(claims.ExpiresAt.Time.Sub(s.now()) / time.Second)
	if remaining < 0 {
		remaining = 0
	}

	return model.TokenValidation{
		Valid:         true,
		UserID:        claims.Subject,
		Email:         claims.Email,
		Roles:         claims.Roles,
		RemainingTime: remaining,
	}
}

// Authenticate turns a bearer access token into the principal's current
// state. Refresh tokens, revoked tokens and inactive accounts are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.AuthPrincipal, error) {
	claims, reason, err := s.check(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, reason)
	}
	if claims.Type != model.TokenAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return s.currentPrincipal(ctx, claims.Subject)
}

// RegisterStudent creates an active student and logs them in.
func (s *AuthService) RegisterStudent(ctx context.Context, req model.StudentRegisterRequest) (*model.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	if !req.AcceptTerms {
		return nil, fmt.Errorf("%w: terms must be accepted", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.LastName) == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: name, last name and email are required", ErrInvalidInput)
	}
	if req.Major != "" && !validMajors[req.Major] {
		return nil, fmt.Errorf("%w: unknown major %q", ErrInvalidInput, req.Major)
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	student, err := s.dir.CreateStudent(ctx, &model.Student{
		Name:         strings.TrimSpace(req.Name),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Major:        req.Major,
		Active:       true,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	principal := StudentPrincipal(student)
	s.logger.Info("student registered", zap.String("identity", principal.Identity))
	return s.issueSession(principal)
}

// RegisterTeacher creates a teacher. Only administrators may call it.
func (s *AuthService) RegisterTeacher(ctx context.Context, actor *model.AuthPrincipal, req model.TeacherRegisterRequest) (*model.PrincipalView, error) {
	if actor == nil || !actor.HasRole(model.RoleAdmin) {
		return nil, ErrForbidden
	}

	req.Email = strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.Name) == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	teacher, err := s.createTeacher(ctx, req.Name, req.Email, req.Password, req.PhoneNumber, req.IsAdmin)
	if err != nil {
		return nil, err
	}

	principal := TeacherPrincipal(teacher)
	s.logger.Info("teacher registered",
		zap.String("identity", principal.Identity),
		zap.String("by", actor.Identity),
		zap.Bool("admin", teacher.IsAdmin),
	)
	view := principal.View(nil)
	return &view, nil
}

// EnsureAdmin creates an administrator teacher unless the email is already in
// use by anyone.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_EMAIL/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	taken, err := s.resolver.EmailTaken(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return nil
	}

	if err := validatePassword(password); err != nil {
		return err
	}

	teacher, err := s.createTeacher(ctx, name, email, password, "", true)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil
		}
		return err
	}
	s.logger.Info("admin account created", zap.String("identity", FormatIdentity(model.KindTeacher, teacher.ID)))
	return nil
}

func (s *AuthService) createTeacher(ctx context.Context, name, email, password, phone string, isAdmin bool) (*model.Teacher, error) {
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	teacher, err := s.dir.CreateTeacher(ctx, &model.Teacher{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  strings.TrimSpace(phone),
		IsAdmin:      isAdmin,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return teacher, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := s.resolver.EmailTaken(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

// check runs the revocation lookup and then signature and expiry. It returns
// the claims, or nil and the reason the token is not trusted. A non-nil error
// means the revocation store failed.
func (s *AuthService) check(ctx context.Context, token string) (*TokenClaims, string, error) {
	if token == "" {
		return nil, ReasonMalformed, nil
	}

	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		s.logger.Error("revocation lookup failed", zap.Error(err))
		return nil, "", fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ReasonBlacklisted, nil
	}

	claims, err := s.codec.Decode(token)
	switch {
	case err == nil:
		return claims, "", nil
	case errors.Is(err, ErrTokenExpired):
		return nil, ReasonExpired, nil
	case errors.Is(err, ErrTokenForged):
		s.logger.Warn("token with invalid signature presented", zap.Error(err))
		return nil, ReasonMalformed, nil
	default:
		return nil, ReasonMalformed, nil
	}
}

// currentPrincipal re-resolves identity and requires an active account.
// Anything that makes the identity unusable is ErrInvalidToken; collaborator
// failures pass through.
func (s *AuthService) currentPrincipal(ctx context.Context, identity string) (*model.AuthPrincipal, error) {
	principal, err := s.resolver.ResolveByIdentity(ctx, identity)
	if err != nil {
		if isUnresolvable(err) {
			s.logger.Info("token subject not resolvable", zap.String("identity", identity), zap.Error(err))
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !principal.Active {
		s.logger.Info("token subject inactive", zap.String("identity", identity))
		return nil, ErrInvalidToken
	}
	return principal, nil
}

func (s *AuthService) issueSession(p *model.AuthPrincipal) (*model.LoginResponse, error) {
	accessToken, _, err := s.codec.Issue(p, model.TokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, _, err := s.codec.Issue(p, model.TokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	loginAt := s.now()
	return &model.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         p.View(&loginAt),
	}, nil
}

// revocationExpiry bounds a revocation entry by the token's own expiry. No
// token we issue outlives refreshTTL, so that is the cap and the fallback.
func (s *AuthService) revocationExpiry(token string) time.Time {
	ceiling := s.now().Add(s.refreshTTL)
	exp, ok := s.codec.ExpiryOf(token)
	if !ok || exp.After(ceiling) {
		return ceiling
	}
	return exp
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password needs an upper-case letter, a lower-case letter and a digit", ErrInvalidInput)
	}
	return nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func parseCost(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return bcrypt.DefaultCost, nil
	}
	cost, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return 0, fmt.Errorf("cost %d out of range", cost)
	}
	return cost, nil
}
