package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubCreds struct {
	err error
}

func (s *stubCreds) Authenticate(ctx context.Context, username, password string) error {
	return s.err
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour, &stubCreds{})

	token, err := m.Login(context.Background(), "admin", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Username != "admin" || claims.Subject != "admin" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Session() == "" {
		t.Error("token must carry a session id")
	}
}

func TestEachLoginGetsFreshSession(t *testing.T) {
	m := NewManager("test-secret", time.Hour, &stubCreds{})

	first, err := m.Login(context.Background(), "admin", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := m.Login(context.Background(), "admin", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	c1, _ := m.Validate(first)
	c2, _ := m.Validate(second)
	if c1.Session() == c2.Session() {
		t.Fatal("two logins share a session id")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	wantErr := errors.New("invalid username or password")
	m := NewManager("test-secret", time.Hour, &stubCreds{err: wantErr})

	if _, err := m.Login(context.Background(), "admin", "nope"); !errors.Is(err, wantErr) {
		t.Fatalf("expected credential error, got %v", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour, &stubCreds{})
	verifier := NewManager("secret-b", time.Hour, &stubCreds{})

	token, err := issuer.Login(context.Background(), "admin", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", time.Nanosecond, &stubCreds{})

	token, err := m.Login(context.Background(), "admin", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour, &stubCreds{})
	if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
