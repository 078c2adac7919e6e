// Package auth is the admission boundary for streaming viewers. The core
// treats it as a black box: a Resolver turns an opaque credential into an
// identity or a denial before any connection resource is allocated. The
// platform's Telegram/Firebase session machinery lives behind this interface
// and is out of scope here.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrDenied is returned when a credential does not resolve to a viewer.
var ErrDenied = errors.New("auth: admission denied")

// Identity names an admitted viewer. Used only for logging.
type Identity string

// Resolver resolves a viewer credential before a connection is admitted.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}

// StaticResolver admits viewers against a fixed identity -> token table.
// Token values beginning with "$2" are treated as bcrypt hashes; anything
// else is compared in constant time. An empty table with AllowAnonymous
// admits everyone as "anonymous" (development mode).
type StaticResolver struct {
	AllowAnonymous bool
	Tokens         map[string]string
}

// Resolve implements Resolver.
func (s *StaticResolver) Resolve(_ context.Context, credential string) (Identity, error) {
	for identity, token := range s.Tokens {
		if strings.HasPrefix(token, "$2") {
			if bcrypt.CompareHashAndPassword([]byte(token), []byte(credential)) == nil {
				return Identity(identity), nil
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(credential)) == 1 {
			return Identity(identity), nil
		}
	}
	if s.AllowAnonymous && credential == "" {
		return Identity("anonymous"), nil
	}
	return "", ErrDenied
}
