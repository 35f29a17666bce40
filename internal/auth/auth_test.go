package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/internal/db"
)

const (
	testSecret = "kiosk-test-secret"
	testIssuer = "civic-kiosk"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewJWTVerifier(testSecret, testIssuer)
	want := Identity{UserID: uuid.New(), Role: db.RoleStaff}

	token, err := v.Issue(want, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if *got != want {
		t.Errorf("Expected %+v, got %+v", want, *got)
	}
}

func TestVerify_Expired(t *testing.T) {
	v := NewJWTVerifier(testSecret, testIssuer)

	token, err := v.Issue(Identity{UserID: uuid.New(), Role: db.RoleCitizen}, time.Minute, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewJWTVerifier("other-secret", testIssuer).Issue(Identity{UserID: uuid.New(), Role: db.RoleAdmin}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := NewJWTVerifier(testSecret, testIssuer).Verify(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	token, err := NewJWTVerifier(testSecret, "someone-else").Issue(Identity{UserID: uuid.New(), Role: db.RoleAdmin}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := NewJWTVerifier(testSecret, testIssuer).Verify(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_UnknownRole(t *testing.T) {
	claims := Claims{
		UserID: uuid.NewString(),
		Role:   "SUPERUSER",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := NewJWTVerifier(testSecret, testIssuer).Verify(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	if _, err := NewJWTVerifier(testSecret, testIssuer).Verify(context.Background(), "not.a.token"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("Expected no identity in empty context")
	}

	id := &Identity{UserID: uuid.New(), Role: db.RoleCitizen}
	got, ok := FromContext(WithIdentity(context.Background(), id))
	if !ok || got != id {
		t.Errorf("Expected identity round trip, got %v %v", got, ok)
	}
}
