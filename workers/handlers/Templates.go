package handlers

import (
	"errors"
	"net/http"

	"gorecovery/templates"

	"github.com/go-chi/chi"
)

func (s *Service) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var filter []templates.ContractType
	if v := r.URL.Query().Get("type"); v != "" {
		ct, err := templates.ParseContractType(v)
		if err != nil {
			responseError(w, err.Error(), "type", http.StatusBadRequest)
			return
		}
		filter = append(filter, ct)
	}
	responseJSON(w, s.Templates.List(filter...), http.StatusOK)
}

func (s *Service) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.Templates.Get(chi.URLParam(r, "id"))
	if errors.Is(err, templates.ErrNotFound) {
		responseError(w, "template not found", "id", http.StatusNotFound)
		return
	}
	if err != nil {
		responseError(w, "cannot load template", "", http.StatusInternalServerError)
		return
	}
	responseJSON(w, tpl, http.StatusOK)
}
