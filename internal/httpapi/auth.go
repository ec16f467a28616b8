package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownMember      = errors.New("unknown member")
)

// AuthManager issues bearer tokens for cooperative members. Every account is
// linked to exactly one member; the token subject is the member id.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	accounts store.AccountRepository
	members  map[string]domain.Member
	now      func() time.Time
}

type minibarClaims struct {
	jwtlib.RegisteredClaims
	Name string `json:"name"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, accounts store.AccountRepository, members []domain.Member) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	index := make(map[string]domain.Member, len(members))
	for _, m := range members {
		index[m.ID] = m
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		accounts: accounts,
		members:  index,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.Account, error) {
	member, ok := a.members[strings.TrimSpace(req.MemberID)]
	if !ok {
		return domain.Account{}, fmt.Errorf("%w: %s", ErrUnknownMember, req.MemberID)
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return domain.Account{}, store.ErrInvalidAccount
	}
	if len(req.Password) < 6 {
		return domain.Account{}, fmt.Errorf("password must be at least 6 characters")
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to hash password")
	}

	account := domain.Account{
		Email:        email,
		PasswordHash: passwordHash,
		MemberID:     member.ID,
		Name:         member.Name,
		CreatedAt:    a.now(),
	}
	if err := a.accounts.CreateAccount(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	account, err := a.accounts.GetAccountByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(account.PasswordHash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	name := account.Name
	if member, ok := a.members[account.MemberID]; ok {
		name = member.Name
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(account.MemberID, name, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		MemberID:    account.MemberID,
		Name:        name,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &minibarClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{MemberID: sub, Name: claims.Name}, nil
}

func (a *AuthManager) sign(memberID, name string, expiresAt time.Time) (string, error) {
	claims := minibarClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   memberID,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "sana-intraprendenza",
		},
		Name: name,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
