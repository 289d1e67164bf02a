package httpclient

import "net/http"

// Authorizer applies vendor credentials to an outgoing request.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(req *http.Request) error

// Authorize calls f(req).
func (f AuthorizerFunc) Authorize(req *http.Request) error {
	return f(req)
}

// Bearer returns an Authorizer that sets "Authorization: Bearer <token>".
func Bearer(token string) Authorizer {
	return AuthorizerFunc(func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

// APIKeyHeader returns an Authorizer that sends the key in the named header.
func APIKeyHeader(name, key string) Authorizer {
	return AuthorizerFunc(func(req *http.Request) error {
		req.Header.Set(name, key)
		return nil
	})
}
