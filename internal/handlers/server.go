// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tilewire/mahjong/internal/table"
)

// Server bundles the websocket endpoint's dependencies.
type Server struct {
	Log     *logrus.Logger
	Manager *table.Manager
}

func NewServer(log *logrus.Logger, m *table.Manager) *Server {
	return &Server{Log: log, Manager: m}
}

// HealthHandler reports liveness plus the number of live tables.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"tables": s.Manager.TableCount(),
		})
	}
}
