package auth

import (
	"errors"
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, token string) *Service {
	t.Helper()
	hash, err := HashToken(token, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing token: %v", err)
	}
	return NewService("test-secret", hash)
}

func TestVerifyAdminToken(t *testing.T) {
	svc := newTestService(t, "hunter2-but-longer")

	if err := svc.VerifyAdminToken("hunter2-but-longer"); err != nil {
		t.Errorf("correct token rejected: %v", err)
	}
	if err := svc.VerifyAdminToken("wrong"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAdminTokenWithoutHash(t *testing.T) {
	svc := NewService("test-secret", "")
	if err := svc.VerifyAdminToken("anything"); !errors.Is(err, ErrNoTokenConfigured) {
		t.Errorf("got %v, want ErrNoTokenConfigured", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	svc := newTestService(t, "token")

	session, err := svc.GenerateSession()
	if err != nil {
		t.Fatalf("generating session: %v", err)
	}

	claims, err := svc.ValidateSession(session)
	if err != nil {
		t.Fatalf("validating session: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
	if claims.Issuer != "tracker" {
		t.Errorf("issuer = %q, want tracker", claims.Issuer)
	}
}

func TestValidateSessionRejectsForeignSignature(t *testing.T) {
	session, err := newTestService(t, "token").GenerateSession()
	if err != nil {
		t.Fatalf("generating session: %v", err)
	}

	other := NewService("different-secret", "")
	if _, err := other.ValidateSession(session); err == nil {
		t.Error("session signed with another secret validated")
	}
}

func TestValidateSessionRejectsGarbage(t *testing.T) {
	svc := newTestService(t, "token")
	if _, err := svc.ValidateSession("not.a.jwt"); err == nil {
		t.Error("garbage token validated")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"bearer abc123", "abc123", true},
		{"Bearer   spaced  ", "spaced", true},
		{"Basic abc123", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, ok := BearerToken(r)
		if ok != tt.ok || got != tt.want {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
