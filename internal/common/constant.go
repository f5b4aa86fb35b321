// Package common contains shared constants and sentinel errors used across
// the refinery access-control components.
package common

const (
	// AuthorizationHeaderName carries the bearer session token on HTTP requests.
	AuthorizationHeaderName = "Authorization"

	// AccessTokenHeaderName is the gRPC metadata key used to carry the
	// session token when the authorization header is not used.
	AccessTokenHeaderName = "access_token"

	// BearerPrefix precedes the token in the authorization header.
	BearerPrefix = "Bearer "

	// SystemActor is recorded as the actor of automatic blocks and locks.
	SystemActor = "system"
)
