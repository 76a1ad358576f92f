package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session verification only lives here. OTP issuance and login belong to the
// auth service; this layer just validates the tokens it minted.

const sessionCookie = "fit16_session"

type SessionClaims struct {
	UserType string `json:"user_type"` // member | staff
	Role     string `json:"role"`     // admin | reception (staff only)
	Phone    string `json:"phone"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) UserID() string { return c.Subject }
func (c *SessionClaims) IsStaff() bool  { return c.UserType == "staff" }

type AuthManager struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AuthManager{secret: []byte(secret), ttl: ttl}
}

// Mint is used by tests and the dev tooling; production tokens come from the
// auth service sharing the same secret.
func (a *AuthManager) Mint(userID, userType, role, phone string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserType: userType,
		Role:     role,
		Phone:    phone,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*SessionClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	// Cookie
	if c, err := r.Cookie(sessionCookie); err == nil {
		return a.parse(c.Value)
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *SessionClaims {
	s, _ := ctx.Value(sessionKey{}).(*SessionClaims)
	return s
}

// requireSession rejects requests without a valid member or staff session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, claims)))
	})
}

// requireStaff additionally demands a staff session.
func (s *Server) requireStaff(next http.Handler) http.Handler {
	return s.requireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := sessionFrom(r.Context()); sess == nil || !sess.IsStaff() {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "staff session required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// requireCronSecret guards the manual rollover trigger with a shared secret.
func (s *Server) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cronSecret != "" && r.Header.Get("Authorization") != "Bearer "+s.cronSecret {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid cron secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}
