package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/profiles"
	"github.com/agromarket/agromarket-backend/internal/wallets"
	pkgAuth "github.com/agromarket/agromarket-backend/pkg/auth"
	"github.com/agromarket/agromarket-backend/pkg/auth/session"
	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, accessID string) error
	Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error)
	SetupAdmin(ctx context.Context, req SetupAdminRequest) (*SetupAdminResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB               txRunner
	Profiles         profileRepository
	SessionManager   sessionManager
	JWTConfig        config.JWTConfig
	PasswordConfig   config.PasswordConfig
	AdminSetupSecret string
	Now              func() time.Time
}

type service struct {
	db          txRunner
	profiles    profileRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	adminSecret string
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		profiles:    params.Profiles,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		adminSecret: params.AdminSetupSecret,
		now:         now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	role := enums.RoleCustomer
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := enums.ParseRole(req.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		role = parsed
	}
	if !role.SelfRegistrable() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot self-register")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var created *models.Profile
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := profiles.Provision(ctx, tx, profiles.CreateProfileDTO{
			Email:        req.Email,
			PasswordHash: hash,
			FullName:     req.FullName,
			Role:         role,
			Phone:        req.Phone,
		})
		if err != nil {
			return err
		}
		created = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, created)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	profile, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is inactive")
	}
	if err := s.recordLogin(ctx, profile); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, profile)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	newAccessID, refreshToken, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	profile, err := s.profiles.FindByID(ctx, claims.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, newAccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if !profile.IsActive {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is inactive")
	}

	accessToken, err := s.mint(profile, newAccessID)
	if err != nil {
		return nil, err
	}
	return s.response(profile, accessToken, refreshToken)
}

// SetupAdmin bootstraps an admin account. An existing profile is promoted in place.
func (s *service) SetupAdmin(ctx context.Context, req SetupAdminRequest) (*SetupAdminResponse, error) {
	if s.adminSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin setup is disabled")
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.adminSecret)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid admin setup secret")
	}

	var (
		result   *models.Profile
		promoted bool
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := profiles.NewRepository(tx)
		existing, err := repo.FindByEmail(ctx, req.Email)
		switch {
		case err == nil:
			if _, err := repo.UpdateRole(ctx, existing.ID, enums.RoleAdmin); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote profile")
			}
			if _, err := wallets.NewRepository(tx).GetOrCreate(ctx, existing.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
			}
			existing.Role = enums.RoleAdmin
			result = existing
			promoted = true
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile")
		}

		hash, err := security.HashPassword(req.Password, s.passwordCfg)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
		}
		created, err := profiles.Provision(ctx, tx, profiles.CreateProfileDTO{
			Email:        req.Email,
			PasswordHash: hash,
			FullName:     req.FullName,
			Role:         enums.RoleAdmin,
		})
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SetupAdminResponse{Profile: profiles.FromModel(result), Promoted: promoted}, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	profile, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile")
	}

	ok, err := security.VerifyPassword(password, profile.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return profile, nil
}

func (s *service) recordLogin(ctx context.Context, profile *models.Profile) error {
	now := s.now().UTC()
	if err := s.profiles.UpdateLastLogin(ctx, profile.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record last login")
	}
	profile.LastLoginAt = &now
	return nil
}

func (s *service) issueTokens(ctx context.Context, profile *models.Profile) (*AuthResponse, error) {
	accessID := session.NewAccessID()
	accessToken, err := s.mint(profile, accessID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate refresh token")
	}
	return s.response(profile, accessToken, refreshToken)
}

func (s *service) mint(profile *models.Profile, accessID string) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: profile.ID,
		Role:   profile.Role,
		Email:  profile.Email,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return token, nil
}

func (s *service) response(profile *models.Profile, accessToken, refreshToken string) (*AuthResponse, error) {
	home, err := enums.HomePath(profile.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve home path")
	}
	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtCfg.AccessTokenTTL().Seconds()),
		Profile:      profiles.FromModel(profile),
		HomePath:     home,
	}, nil
}
