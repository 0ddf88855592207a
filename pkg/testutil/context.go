package testutil

import (
	"net/http"

	id "correspondence/pkg/domain"
	"correspondence/pkg/requestcontext"
)

// AccountHeader carries the acting account on API requests.
const AccountHeader = "X-Account-ID"

// WithAccount puts the acting account in the request context, as the account
// middleware would after resolving the header.
func WithAccount(req *http.Request, accountID id.AccountID) *http.Request {
	return req.WithContext(requestcontext.WithAccountID(req.Context(), accountID))
}

// AsAccount sets the account header for requests sent through the full router.
func AsAccount(req *http.Request, accountID id.AccountID) *http.Request {
	req.Header.Set(AccountHeader, accountID.String())
	return req
}
