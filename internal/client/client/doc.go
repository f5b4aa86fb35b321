// Package client is the gRPC client of the refinery SecurityService used by
// refineryctl. It keeps the session token returned by Login and attaches it
// to every later call.
package client
