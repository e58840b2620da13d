package handlers

import (
	"errors"
	"net/http"

	"gorecovery/aa"
	"gorecovery/custody"
	"gorecovery/networks"
	"gorecovery/recovery"
	"gorecovery/txbuilder"
	"gorecovery/types"
)

func decodeRecovery(w http.ResponseWriter, r *http.Request) (*RecoveryRequest, bool) {
	var req RecoveryRequest
	if err := decodeJSON(r, &req); err != nil {
		responseError(w, "Cannot unmarshal input JSON", "", http.StatusBadRequest)
		return nil, false
	}
	if field := missingSessionField(req.Session); field != "" {
		responseError(w, "recovery session is incomplete", "session."+field, http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func missingSessionField(s types.RecoverySession) string {
	switch {
	case s.AuthBundle == "":
		return "authBundle"
	case s.EncryptionKey == "":
		return "encryptionKey"
	case s.SubOrganizationID == "":
		return "subOrganizationId"
	}
	return ""
}

// recoveryStatus maps pipeline errors to HTTP statuses. Results are written
// in every case so the caller sees the relayer's wording.
func recoveryStatus(err error) int {
	var (
		unsupported *networks.UnsupportedNetworkError
		cfgErr      *txbuilder.ConfigurationError
		encErr      *txbuilder.EncodingError
		revert      *aa.UserOpRevertError
		exhausted   *aa.RelayerExhaustionError
	)
	switch {
	case errors.As(err, &unsupported), errors.As(err, &cfgErr), errors.As(err, &encErr):
		return http.StatusBadRequest
	case errors.Is(err, custody.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, custody.ErrNoWalletFound):
		return http.StatusNotFound
	case errors.As(err, &revert):
		return http.StatusUnprocessableEntity
	case errors.As(err, &exhausted):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Service) DeployAccount(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRecovery(w, r)
	if !ok {
		return
	}
	res, err := s.Recovery.DeployAccount(r.Context(), req.Session, req.ChainID)
	if err != nil {
		responseJSON(w, res, recoveryStatus(err))
		return
	}
	responseJSON(w, res, http.StatusOK)
}

func (s *Service) AccountDeployed(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRecovery(w, r)
	if !ok {
		return
	}
	responseJSON(w, s.Recovery.IsAccountDeployed(r.Context(), req.Session, req.ChainID), http.StatusOK)
}

func (s *Service) ExecuteTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRecovery(w, r)
	if !ok {
		return
	}
	if req.Transaction == nil {
		responseError(w, "transaction is required", "transaction", http.StatusBadRequest)
		return
	}
	cfg := *req.Transaction
	if cfg.ChainID == 0 {
		cfg.ChainID = req.ChainID
	}

	res, err := s.Recovery.ExecuteTransaction(r.Context(), req.Session, cfg)
	if err != nil {
		responseJSON(w, res, recoveryStatus(err))
		return
	}
	responseJSON(w, res, http.StatusOK)
}

var _ Recovery = (*recovery.Orchestrator)(nil)
