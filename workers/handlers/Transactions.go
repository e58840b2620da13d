package handlers

import (
	"errors"
	"net/http"

	"gorecovery/logger"
	"gorecovery/txbuilder"

	"go.uber.org/zap"
)

func (s *Service) ValidateTransaction(w http.ResponseWriter, r *http.Request) {
	var cfg txbuilder.Config
	if err := decodeJSON(r, &cfg); err != nil {
		responseError(w, "Cannot unmarshal input JSON", "", http.StatusBadRequest)
		return
	}
	responseJSON(w, s.Builder.ValidateConfig(cfg), http.StatusOK)
}

func (s *Service) PreviewTransaction(w http.ResponseWriter, r *http.Request) {
	var cfg txbuilder.Config
	if err := decodeJSON(r, &cfg); err != nil {
		responseError(w, "Cannot unmarshal input JSON", "", http.StatusBadRequest)
		return
	}

	preview, err := s.Builder.CreatePreview(r.Context(), cfg)
	var cfgErr *txbuilder.ConfigurationError
	if errors.As(err, &cfgErr) {
		responseJSON(w, &txbuilder.ValidationResult{IsValid: false, Errors: cfgErr.Errors}, http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error("preview failed", zap.Int64("chainId", cfg.ChainID), zap.Error(err))
		responseError(w, "cannot create preview", "", http.StatusInternalServerError)
		return
	}
	responseJSON(w, preview, http.StatusOK)
}
