package service

import (
	"context"

	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/config"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/utils"
)

const (
	msgAuthRequired  = "Authentication required"
	msgInvalidToken  = "Invalid token"
	msgInactiveUser  = "User not found or inactive"
	msgBadCredential = "Invalid credentials"
)

// AuthService issues and validates session tokens.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	cfg      config.AuthConfig
	now      Clock
}

func NewAuthService(users UserStore, sessions SessionStore, cfg config.AuthConfig) *AuthService {
	return &AuthService{users: users, sessions: sessions, cfg: cfg, now: utcNow}
}

// Session is the authenticated caller of a request.
type Session struct {
	User *model.User
	JTI  string
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token string
	User  *model.User
}

// Login verifies the credentials, records a session and returns a signed
// token. Unknown emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*LoginResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthenticated(msgBadCredential)
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return nil, apperr.Unauthenticated(msgBadCredential)
	}
	if !u.IsActive {
		return nil, apperr.Unauthenticated("Account is deactivated")
	}

	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return nil, apperr.Unexpected("issue token", err)
	}
	if err := s.sessions.Store(ctx, tok.JTI, u.ID, tok.Exp); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	return &LoginResult{Token: tok.Token, User: u}, nil
}

// Register creates an account. Without a caller it is only allowed while
// no user exists, and that first account must be a super_admin. Otherwise
// the caller must be a super_admin.
func (s *AuthService) Register(ctx context.Context, caller *model.User, req dto.RegisterRequest) (*model.User, error) {
	if caller == nil {
		n, err := s.users.Count(ctx)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, apperr.Unauthenticated(msgAuthRequired)
		}
	} else if caller.Role != model.RoleSuperAdmin {
		return nil, apperr.ErrAccessDenied
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if caller == nil && model.Role(req.Role) != model.RoleSuperAdmin {
		return nil, apperr.Validation(apperr.FieldError{Field: "role", Message: "the first account must be a super_admin"})
	}
	return createUser(ctx, s.users, s.cfg.BcryptCost, s.now(), req.Name, req.Email, req.Password, model.Role(req.Role))
}

// Authenticate resolves a bearer token to its active user and session.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, apperr.Unauthenticated(msgAuthRequired)
	}
	claims, err := utils.ParseAccessToken(s.cfg.JWTSecret, raw)
	if err != nil {
		return nil, apperr.Unauthenticated(msgInvalidToken)
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, apperr.Unauthenticated(msgInvalidToken)
	}
	active, err := s.sessions.IsActive(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.Unauthenticated(msgInvalidToken)
	}
	u, err := s.users.GetByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && !u.IsActive) {
		return nil, apperr.Unauthenticated(msgInactiveUser)
	}
	if err != nil {
		return nil, err
	}
	return &Session{User: u, JTI: claims.ID}, nil
}

// Logout revokes the session the request was made with.
func (s *AuthService) Logout(ctx context.Context, sess *Session) error {
	if sess == nil || sess.JTI == "" {
		return apperr.Unauthenticated(msgAuthRequired)
	}
	return s.sessions.Revoke(ctx, sess.JTI)
}
