package handlers

import (
	"net/http"
	"strings"

	"gorecovery/logger"
	"gorecovery/redis"
	"gorecovery/types"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// ListCredits returns the caller's credit records with the given status.
func (s *Service) ListCredits(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFrom(r.Context())
	if !ok {
		responseJSON(w, &ErrorResponse{Error: "unauthenticated"}, http.StatusUnauthorized)
		return
	}
	status := chi.URLParam(r, "status")
	if status != redis.StatusCredited && status != redis.StatusFailed {
		responseError(w, "status must be credited or failed", "status", http.StatusBadRequest)
		return
	}

	recs, err := s.Credits.ListCredits(r.Context(), status)
	if err != nil {
		logger.Error("cannot list credits", zap.String("status", status), zap.Error(err))
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}
	own := make([]*types.CreditRecord, 0, len(recs))
	for _, rec := range recs {
		if strings.EqualFold(rec.WalletAddress, wallet.Hex()) {
			own = append(own, rec)
		}
	}
	responseJSON(w, own, http.StatusOK)
}
