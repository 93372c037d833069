package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/store"
)

// AuthManager issues terminal session tokens. There are no passwords
// at the stall: the owner email maps to ADMIN, every email on the
// worker roster in the bill settings maps to WORKER. Destructive
// actions additionally require the admin PIN.
type AuthManager struct {
	secret     []byte
	tokenTTL   time.Duration
	ownerEmail string
	adminPIN   string
	repo       store.Repository
}

type stallCustomClaims struct {
	jwtlib.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, ownerEmail string, adminPIN string, repo store.Repository) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	adminPIN = strings.TrimSpace(adminPIN)
	if adminPIN == "" {
		adminPIN = "disabled"
	}
	hashedPIN, err := hashSecret(adminPIN)
	if err == nil {
		adminPIN = hashedPIN
	}

	return &AuthManager{
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		ownerEmail: strings.ToLower(strings.TrimSpace(ownerEmail)),
		adminPIN:   adminPIN,
		repo:       repo,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return domain.LoginResponse{}, errors.New("email required")
	}

	name, role, ok := a.lookup(ctx, email)
	if !ok {
		return domain.LoginResponse{}, errors.New("unknown account")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(email, name, role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Name:        name,
		Role:        role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) lookup(ctx context.Context, email string) (name string, role string, ok bool) {
	if email == a.ownerEmail {
		return "Owner", domain.RoleAdmin, true
	}
	settings, err := a.repo.GetSettings(ctx)
	if err != nil {
		return "", "", false
	}
	for _, worker := range settings.WorkerAccounts {
		if strings.ToLower(strings.TrimSpace(worker.Email)) == email {
			return worker.Name, domain.RoleWorker, true
		}
	}
	return "", "", false
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &stallCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Name: claims.Name, Email: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(email, name, role string, expiresAt time.Time) (string, error) {
	claims := stallCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "stallpos",
		},
		Name: name,
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateAdminPIN gates voids and settings changes made from a
// WORKER session.
func (a *AuthManager) ValidateAdminPIN(pin string) bool {
	input := strings.TrimSpace(pin)
	if input == "" || !isSecretHash(a.adminPIN) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.adminPIN), []byte(input)) == nil
}

func hashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isSecretHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
