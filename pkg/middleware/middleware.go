// Package middleware defines the middleware function type shared by the
// project's HTTP middleware packages.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(next http.Handler) http.Handler
