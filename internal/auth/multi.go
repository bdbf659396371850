package auth

import (
	"errors"
	"net/http"
)

// MultiAuthenticator tries each authenticator in order. Missing credentials
// fall through to the next one; wrong credentials fail immediately.
type MultiAuthenticator struct {
	chain []Authenticator
}

// NewMultiAuthenticator returns a MultiAuthenticator over chain.
func NewMultiAuthenticator(chain ...Authenticator) *MultiAuthenticator {
	return &MultiAuthenticator{chain: chain}
}

// Authenticate implements Authenticator.
func (a *MultiAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	for _, next := range a.chain {
		p, err := next.Authenticate(r)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}

	return nil, ErrUnauthenticated
}

// Method implements Authenticator.
func (a *MultiAuthenticator) Method() Method {
	return MethodMulti
}
