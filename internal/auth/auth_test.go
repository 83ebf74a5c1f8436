package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhisek/learnloop/internal/store"
)

var dbSeq atomic.Int64

func openKV(t *testing.T) store.KVRepo {
	t.Helper()
	s, err := store.Open(fmt.Sprintf("file:auth%d?mode=memory&cache=shared", dbSeq.Add(1)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.KV()
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("s3cret")
	good, err := v.Issue("u1", "ada@example.com", "Ada Lovelace", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	expired, _ := v.Issue("u1", "ada@example.com", "", -time.Minute)
	otherKey, _ := NewVerifier("other").Issue("u1", "ada@example.com", "", time.Hour)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("s3cret"))
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString([]byte("s3cret"))

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", good, false},
		{"valid with whitespace", "  " + good + "\n", false},
		{"expired", expired, true},
		{"wrong key", otherKey, true},
		{"missing subject", noSubject, true},
		{"missing expiry", noExpiry, true},
		{"garbage", "not.a.token", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if claims.Subject != "u1" || claims.Email != "ada@example.com" || claims.Name() != "Ada Lovelace" {
				t.Errorf("unexpected claims: %+v", claims)
			}
		})
	}
}

func TestVerifier_NoSecret(t *testing.T) {
	if _, err := NewVerifier("").Verify("x"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	kv := openKV(t)
	v := NewVerifier("s3cret")
	s := NewSessions(kv, v)
	ctx := context.Background()

	if _, err := s.Current(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before login, got %v", err)
	}

	token, _ := v.Issue("u1", "ada@example.com", "Ada", time.Hour)
	sess, err := s.Login(ctx, token)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.UserID != "u1" || sess.Name != "Ada" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, err := NewSessions(kv, v).Current(ctx)
	if err != nil {
		t.Fatalf("Current after restart: %v", err)
	}
	if got.UserID != "u1" || got.Token != token {
		t.Fatalf("session not persisted: %+v", got)
	}

	s.now = func() time.Time { return sess.ExpiresAt.Add(time.Second) }
	if _, err := s.Current(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected expired session to read as ErrNoSession, got %v", err)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := kv.Get(ctx, SessionKey); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session deleted, got %v", err)
	}
}

func TestSessions_LoginRejectsBadToken(t *testing.T) {
	kv := openKV(t)
	s := NewSessions(kv, NewVerifier("s3cret"))
	if _, err := s.Login(context.Background(), "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := kv.Get(context.Background(), SessionKey); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("rejected token must not be stored")
	}
}
