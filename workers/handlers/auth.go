package handlers

import (
	"context"
	"net/http"
	"strings"

	"gorecovery/txvalidator"

	"github.com/ethereum/go-ethereum/common"
)

type ctxKey int

const walletKey ctxKey = iota

// Authenticate requires a bearer session token and stores its wallet in the
// request context.
func (s *Service) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			responseJSON(w, &ErrorResponse{Error: "unauthenticated"}, http.StatusUnauthorized)
			return
		}

		claims, err := txvalidator.ParseSession(token, s.JWTSecret)
		if err != nil {
			responseJSON(w, &ErrorResponse{Error: "invalid session"}, http.StatusUnauthorized)
			return
		}
		wallet, err := claims.Wallet()
		if err != nil {
			responseJSON(w, &ErrorResponse{Error: "session has no wallet"}, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), walletKey, wallet)))
	})
}

func walletFrom(ctx context.Context) (common.Address, bool) {
	wallet, ok := ctx.Value(walletKey).(common.Address)
	return wallet, ok
}
