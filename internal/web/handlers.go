package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	trades := s.engine.OpenTrades()
	ranges := s.engine.Ranges()
	s.writeJSON(w, map[string]interface{}{
		"status":      "running",
		"open_trades": len(trades),
		"ranges":      len(ranges),
	})
}

func (s *Server) handleOpenTrades(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.OpenTrades())
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Ranges())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	trades, err := s.tradeRepo.ListClosedTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list closed trades", zap.Error(err))
		http.Error(w, "Failed to list closed trades", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, trades)
}
