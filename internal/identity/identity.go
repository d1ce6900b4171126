// Package identity maps an incoming connection to a player id.
package identity

import (
	"errors"
	"net/http"
	"strings"
	"unicode"
)

// HeaderPlayerID carries the player id when the query string does not.
const HeaderPlayerID = "X-Player-ID"

const maxIDLength = 64

var (
	ErrMissing = errors.New("player id is required")
	ErrInvalid = errors.New("player id contains invalid characters")
)

// Resolver extracts the player id from a request.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// RequestResolver reads the `id` query parameter, then the X-Player-ID
// header. Authentication is left to whatever fronts the server.
type RequestResolver struct{}

func (RequestResolver) Resolve(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		id = strings.TrimSpace(r.Header.Get(HeaderPlayerID))
	}
	return Validate(id)
}

// Validate checks that id is non-empty, short and printable.
func Validate(id string) (string, error) {
	if id == "" {
		return "", ErrMissing
	}
	if len(id) > maxIDLength {
		return "", ErrInvalid
	}
	for _, r := range id {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			return "", ErrInvalid
		}
	}
	return id, nil
}
