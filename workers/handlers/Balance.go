package handlers

import (
	"net/http"
	"strconv"

	"gorecovery/logger"
	"gorecovery/templates"
	"gorecovery/txbuilder"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// TokenBalance reports an ERC-20 balance, typically of a smart account about
// to be recovered.
func (s *Service) TokenBalance(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseInt(chi.URLParam(r, "chainID"), 10, 64)
	if err != nil {
		responseError(w, "chain id must be a number", "chainID", http.StatusBadRequest)
		return
	}
	token, holder := r.URL.Query().Get("token"), r.URL.Query().Get("address")
	if err := txbuilder.ValidateAddress(token); err != nil {
		responseError(w, err.Error(), "token", http.StatusBadRequest)
		return
	}
	if err := txbuilder.ValidateAddress(holder); err != nil {
		responseError(w, err.Error(), "address", http.StatusBadRequest)
		return
	}
	if _, err := s.Networks.Require(chainID); err != nil {
		responseError(w, err.Error(), "chainID", http.StatusNotFound)
		return
	}

	erc20, err := s.Templates.InterfaceFor(templates.ERC20)
	if err != nil {
		responseError(w, "erc20 interface unavailable", "", http.StatusInternalServerError)
		return
	}
	balance, err := s.Builder.TokenBalance(r.Context(), chainID, erc20, common.HexToAddress(token), common.HexToAddress(holder))
	if err != nil {
		logger.Warn("balance lookup failed", zap.Int64("chainId", chainID), zap.String("token", token), zap.Error(err))
		responseError(w, "cannot read balance", "", http.StatusBadGateway)
		return
	}
	responseJSON(w, balance, http.StatusOK)
}
