package middleware

import (
	"context"
	"log/slog"
	"net/http"

	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/httputil"
	"correspondence/pkg/requestcontext"
)

// HeaderAccountID carries the acting account. Authentication happens at the
// gateway; this service trusts the header once the account is known.
const HeaderAccountID = "X-Account-ID"

// AccountChecker confirms an account exists and is active.
type AccountChecker interface {
	Exists(ctx context.Context, accountID id.AccountID) (bool, error)
}

// RequireAccount resolves the acting account from the request header and
// stores it in the context. Unknown or inactive accounts get 401.
func RequireAccount(accounts AccountChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			accountID, err := id.ParseAccountID(r.Header.Get(HeaderAccountID))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - missing account",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid account"))
				return
			}

			ok, err := accounts.Exists(ctx, accountID)
			if err != nil {
				logger.ErrorContext(ctx, "failed to check account",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - unknown account",
					"request_id", requestID,
					"account_id", accountID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown account"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccountID(ctx, accountID)))
		})
	}
}
