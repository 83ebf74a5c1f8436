// Package auth keeps the signed-in user of this device. Users sign in with
// an access token issued by the hosted backend; the token is verified with
// the backend's HS256 secret and the resulting session is cached locally.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhisek/learnloop/internal/store"
)

var (
	ErrInvalidToken = errors.New("auth: invalid access token")
	ErrNoSession    = errors.New("auth: not signed in")
	ErrNoSecret     = errors.New("auth: jwt secret is not configured")
)

// SessionKey is the device cache key of the current session.
const SessionKey = "auth_session"

// Claims are the access token claims the app reads.
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Name returns the display name from the token metadata, if any.
func (c *Claims) Name() string {
	for _, k := range []string{"full_name", "name"} {
		if v, ok := c.UserMetadata[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Verifier checks access tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string, opts ...jwt.ParserOption) *Verifier {
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}, opts...)
	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

// Verify parses token and checks its signature, expiry and subject.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Issue signs a token for userID. The hosted backend normally does this;
// it exists for local development and tests.
func (v *Verifier) Issue(userID, email, name string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if name != "" {
		claims.UserMetadata = map[string]any{"full_name": name}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Session is the cached sign-in of this device.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Sessions stores the current session in the device cache.
type Sessions struct {
	kv       store.KVRepo
	verifier *Verifier
	now      func() time.Time
}

func NewSessions(kv store.KVRepo, verifier *Verifier) *Sessions {
	return &Sessions{kv: kv, verifier: verifier, now: time.Now}
}

// Login verifies token and makes it the current session.
func (s *Sessions) Login(ctx context.Context, token string) (Session, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return Session{}, err
	}
	sess := Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name(),
		Token:     strings.TrimSpace(token),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := store.PutJSON(ctx, s.kv, SessionKey, sess); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Current returns the cached session, or ErrNoSession when there is none or
// it has expired.
func (s *Sessions) Current(ctx context.Context) (Session, error) {
	var sess Session
	ok, err := store.GetJSON(ctx, s.kv, SessionKey, &sess)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok || sess.UserID == "" {
		return Session{}, ErrNoSession
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		return Session{}, fmt.Errorf("%w: session expired at %s", ErrNoSession, sess.ExpiresAt.Format(time.RFC3339))
	}
	return sess, nil
}

// Logout removes the cached session.
func (s *Sessions) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
