package handlers

import (
	"net/http"

	"gorecovery/logger"

	"go.uber.org/zap"
)

func (s *Service) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.Ping != nil {
		if err := s.Ping(r.Context()); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "storage unavailable",
			}, http.StatusServiceUnavailable)
			return
		}
	}
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}
