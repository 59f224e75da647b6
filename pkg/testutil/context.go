package testutil

import (
	"net/http"

	id "custody/pkg/domain"
	"custody/pkg/requestcontext"
)

// WithPrincipal attaches principal to the request context, as the auth
// middleware does for a valid bearer token. Empty principals are ignored.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	p, err := id.ParsePrincipalID(principal)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}
