package handlers

import (
	"net/http"
	"strconv"

	"gorecovery/networks"

	"github.com/go-chi/chi"
)

func (s *Service) ListNetworks(w http.ResponseWriter, r *http.Request) {
	testnet := false
	if v := r.URL.Query().Get("testnet"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			responseError(w, "testnet must be true or false", "testnet", http.StatusBadRequest)
			return
		}
		testnet = b
	}
	responseJSON(w, s.Networks.List(testnet), http.StatusOK)
}

func (s *Service) ExplorerURL(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseInt(chi.URLParam(r, "chainID"), 10, 64)
	if err != nil {
		responseError(w, "chain id must be a number", "chainID", http.StatusBadRequest)
		return
	}
	if _, err := s.Networks.Require(chainID); err != nil {
		responseError(w, err.Error(), "chainID", http.StatusNotFound)
		return
	}

	value := r.URL.Query().Get("address")
	if value == "" {
		responseError(w, "address is required", "address", http.StatusBadRequest)
		return
	}
	kind := networks.ExplorerAddress
	if k := r.URL.Query().Get("kind"); k != "" {
		var ok bool
		if kind, ok = networks.ParseExplorerKind(k); !ok {
			responseError(w, "kind must be one of address, tx, token, block", "kind", http.StatusBadRequest)
			return
		}
	}
	responseJSON(w, &ExplorerResponse{URL: s.Networks.ExplorerURLFor(chainID, value, kind)}, http.StatusOK)
}
