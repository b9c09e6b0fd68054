package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
)

// Username is the only account the web glue accepts.
const Username = "admin"

// Verifier checks basic auth credentials against the configured password.
// A zero-value or disabled Verifier accepts everything.
type Verifier struct {
	password string
	hash     string

	// last successful hash check, so a browser resending the same header
	// does not pay for argon2 on every request.
	mu       sync.Mutex
	accepted [sha256.Size]byte
	cached   bool
}

// NewVerifier builds a Verifier from the web auth config. A configured hash
// must parse; the hash wins when both forms are set.
func NewVerifier(cfg config.WebAuthConfig) (*Verifier, error) {
	if cfg.PasswordHash != "" {
		if _, err := decodePHC(cfg.PasswordHash); err != nil {
			return nil, fmt.Errorf("web password hash: %w", err)
		}
		return &Verifier{hash: cfg.PasswordHash}, nil
	}
	return &Verifier{password: cfg.Password}, nil
}

// Enabled reports whether credentials are required.
func (v *Verifier) Enabled() bool {
	return v != nil && (v.password != "" || v.hash != "")
}

// Check reports whether user and password are acceptable.
func (v *Verifier) Check(user, password string) bool {
	if !v.Enabled() {
		return true
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(Username)) != 1 {
		return false
	}
	if v.hash == "" {
		return subtle.ConstantTimeCompare([]byte(password), []byte(v.password)) == 1
	}

	sum := sha256.Sum256([]byte(password))
	v.mu.Lock()
	hit := v.cached && subtle.ConstantTimeCompare(sum[:], v.accepted[:]) == 1
	v.mu.Unlock()
	if hit {
		return true
	}

	ok, err := VerifyPassword(password, v.hash)
	if err != nil || !ok {
		return false
	}
	v.mu.Lock()
	v.accepted = sum
	v.cached = true
	v.mu.Unlock()
	return true
}
