package tokens

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newIssuer(t *testing.T, secret string, ttl time.Duration) *Issuer {
	t.Helper()
	i, err := NewIssuer(secret, "lexsite", ttl)
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}
	return i
}

func TestIssue_ValidAndClaims(t *testing.T) {
	i := newIssuer(t, "test-secret-32-bytes-should-be-long-enough", 2*time.Minute)
	tokenStr, exp, err := i.Issue("admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if time.Until(exp) <= time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	tok, err := i.Verify(context.Background(), tokenStr)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		t.Fatalf("Claims error: %v", err)
	}
	if claims["sub"] != "admin" || claims["iss"] != "lexsite" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", "x", time.Minute); err != ErrNoSecret {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	i := newIssuer(t, "another-secret-32-bytes-longgggg", time.Minute)
	i.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	tokenStr, _, err := i.Issue("admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	i.now = time.Now
	if _, err := i.Verify(context.Background(), tokenStr); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	a := newIssuer(t, "secret-one-32-bytes-xxxxxxxxxxxxxxxx", time.Minute)
	b := newIssuer(t, "different-secret-xxxxxxxxxxxxxxxx", time.Minute)
	tokenStr, _, err := a.Issue("admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := b.Verify(context.Background(), tokenStr); err == nil {
		t.Fatalf("expected verify to fail with wrong secret")
	}
}

func TestVerify_WrongIssuerFails(t *testing.T) {
	a := newIssuer(t, "shared-secret-32-bytes-xxxxxxxxxxxx", time.Minute)
	b, _ := NewIssuer("shared-secret-32-bytes-xxxxxxxxxxxx", "someone-else", time.Minute)
	tokenStr, _, _ := a.Issue("admin")
	if _, err := b.Verify(context.Background(), tokenStr); err == nil {
		t.Fatalf("expected verify to fail for a foreign issuer")
	}
}

func TestVerify_Malformed(t *testing.T) {
	i := newIssuer(t, "x-secret", time.Minute)
	if _, err := i.Verify(context.Background(), "not.a.jwt"); err == nil {
		t.Fatalf("expected verify to fail for malformed token")
	}
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	i := newIssuer(t, "x-secret", time.Minute)
	enc := base64.RawURLEncoding.EncodeToString
	tok := enc([]byte(`{"alg":"none"}`)) + "." + enc([]byte(`{"sub":"u-none","iss":"lexsite","exp":9999999999}`)) + "."
	if _, err := i.Verify(context.Background(), tok); err == nil {
		t.Fatalf("expected verify to reject alg=none token")
	}
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	i := newIssuer(t, "tamper-test-secret-32-bytes-xxxxxxx", 5*time.Minute)
	tokenStr, _, err := i.Issue("admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payload, _ := base64.RawURLEncoding.DecodeString(parts[1])
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payload), "admin", "attacker", 1)))
	if _, err := i.Verify(context.Background(), strings.Join(parts, ".")); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
	// the library agrees
	if _, err := jwt.Parse(strings.Join(parts, "."), func(*jwt.Token) (interface{}, error) { return []byte("tamper-test-secret-32-bytes-xxxxxxx"), nil }); err == nil {
		t.Fatalf("expected jwt.Parse to fail for tampered token")
	}
}

func TestVerify_MissingExpRejected(t *testing.T) {
	secret := "noexp-secret-32-bytes-long-enough-x"
	i := newIssuer(t, secret, time.Minute)
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin", "iss": "lexsite", "role": "admin"})
	tokenStr, err := jt.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := i.Verify(context.Background(), tokenStr); !errors.Is(err, ErrNoExpiry) {
		t.Fatalf("expected ErrNoExpiry, got %v", err)
	}
}
