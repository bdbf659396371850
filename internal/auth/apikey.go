package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the key checked by APIKeyAuthenticator.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthenticator matches the X-API-Key header against named keys.
type APIKeyAuthenticator struct {
	keys map[string]string // key -> name
}

// NewAPIKeyAuthenticator parses "key1:name1,key2:name2".
func NewAPIKeyAuthenticator(keys string) (*APIKeyAuthenticator, error) {
	pairs, err := parsePairs("apikey auth", keys, "key:name")
	if err != nil {
		return nil, err
	}
	return &APIKeyAuthenticator{keys: pairs}, nil
}

// Authenticate implements Authenticator. Keys are compared in constant time.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	for key, name := range a.keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			return &Principal{Method: MethodAPIKey, Subject: name}, nil
		}
	}

	return nil, ErrInvalidAPIKey
}

// Method implements Authenticator.
func (a *APIKeyAuthenticator) Method() Method {
	return MethodAPIKey
}
