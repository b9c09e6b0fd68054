package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	password := "correct-horse-battery-staple"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("hash = %q, want $argon2id$v=19$ prefix", hash)
	}

	ok, err := VerifyPassword(password, hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("VerifyPassword() = false for the correct password")
	}

	ok, err = VerifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("VerifyPassword() = true for a wrong password")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, _ := HashPassword("same")
	b, _ := HashPassword("same")
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong field count", "$argon2id$v=19$m=65536"},
		{"bcrypt", "$2a$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{"bad version", "$argon2id$v=x$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$m=a,t=3,p=1$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA"},
		{"empty hash", "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyPassword("x", tt.hash)
			if !errors.Is(err, ErrInvalidHash) {
				t.Errorf("VerifyPassword() error = %v, want ErrInvalidHash", err)
			}
		})
	}
}

func TestVerifier(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		cfg      config.WebAuthConfig
		user     string
		password string
		want     bool
	}{
		{"disabled accepts anything", config.WebAuthConfig{}, "", "", true},
		{"plain ok", config.WebAuthConfig{Password: "s3cret"}, "admin", "s3cret", true},
		{"plain wrong password", config.WebAuthConfig{Password: "s3cret"}, "admin", "nope", false},
		{"plain wrong user", config.WebAuthConfig{Password: "s3cret"}, "root", "s3cret", false},
		{"hash ok", config.WebAuthConfig{PasswordHash: hash}, "admin", "s3cret", true},
		{"hash wins over plain", config.WebAuthConfig{Password: "other", PasswordHash: hash}, "admin", "other", false},
		{"hash wrong password", config.WebAuthConfig{PasswordHash: hash}, "admin", "nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVerifier(tt.cfg)
			if err != nil {
				t.Fatalf("NewVerifier() error = %v", err)
			}
			if got := v.Check(tt.user, tt.password); got != tt.want {
				t.Errorf("Check(%q, %q) = %v, want %v", tt.user, tt.password, got, tt.want)
			}
		})
	}
}

func TestVerifier_CachesAcceptedHash(t *testing.T) {
	hash, _ := HashPassword("s3cret")
	v, err := NewVerifier(config.WebAuthConfig{PasswordHash: hash})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if !v.Check("admin", "s3cret") {
			t.Fatalf("Check() attempt %d = false", i)
		}
	}
	if v.Check("admin", "s3cret2") {
		t.Error("Check() accepted a different password after caching")
	}
}

func TestNewVerifier_RejectsBadHash(t *testing.T) {
	_, err := NewVerifier(config.WebAuthConfig{PasswordHash: "plain-text"})
	if !errors.Is(err, ErrInvalidHash) {
		t.Errorf("NewVerifier() error = %v, want ErrInvalidHash", err)
	}
}
