package model

import "time"

type PrincipalKind string

const (
	KindStudent PrincipalKind = "STUDENT"
	KindTeacher PrincipalKind = "TEACHER"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

type TokenKind string

const (
	TokenAccess  TokenKind = "ACCESS"
	TokenRefresh TokenKind = "REFRESH"
	TokenInvalid TokenKind = "INVALID"
)

// AuthPrincipal is the read-time projection of a student or teacher used for
// authentication. It is rebuilt from source records on every call.
type AuthPrincipal struct {
	Identity     string
	Email        string
	DisplayName  string
	PasswordHash string `json:"-"`
	Kind         PrincipalKind
	Roles        []Role
	Active       bool
}

func (p *AuthPrincipal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p *AuthPrincipal) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, string(r))
	}
	return names
}

// View returns the outward projection of the principal. The password hash is
// never part of it.
func (p *AuthPrincipal) View(loginAt *time.Time) PrincipalView {
	return PrincipalView{
		ID:      p.Identity,
		Email:   p.Email,
		Name:    p.DisplayName,
		Kind:    p.Kind,
		Roles:   p.RoleNames(),
		LoginAt: loginAt,
	}
}

type PrincipalView struct {
	ID      string        `json:"id"`
	Email   string        `json:"email"`
	Name    string        `json:"name"`
	Kind    PrincipalKind `json:"userType"`
	Roles   []string      `json:"roles"`
	LoginAt *time.Time    `json:"loginAt,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type StudentRegisterRequest struct {
	Name            string `json:"name" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	PhoneNumber     string `json:"phoneNumber"`
	Major           string `json:"major"`
	AcceptTerms     bool   `json:"acceptTerms"`
}

type TeacherRegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	IsAdmin     bool   `json:"isAdmin"`
}

type LoginResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	TokenType    string        `json:"tokenType"`
	ExpiresIn    int64         `json:"expiresIn"`
	User         PrincipalView `json:"user"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenValidation is the outcome of validating a token. Exactly one of the
// valid fields or Reason is populated.
type TokenValidation struct {
	Valid         bool     `json:"valid"`
	UserID        string   `json:"userId,omitempty"`
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	RemainingTime int64    `json:"remainingTime"`
	Reason        string   `json:"error,omitempty"`
}
