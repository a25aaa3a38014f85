package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/utils"
)

// handleHealth handles health check requests.
// Only a ping is performed; integrity checks run as a scheduled job.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	databases := make(map[string]string, 2)
	for _, db := range []*database.DB{s.container.LedgerDB, s.container.ClientDataDB} {
		if db == nil {
			continue
		}
		if err := db.QuickCheck(ctx); err != nil {
			s.log.Error().Err(err).Str("database", db.Name()).Msg("Health check failed")
			databases[db.Name()] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		databases[db.Name()] = "ok"
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "degraded"
	}

	utils.WriteJSON(w, s.log, status, map[string]interface{}{
		"status":    health,
		"service":   "paperledger",
		"databases": databases,
	})
}
