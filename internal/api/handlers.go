package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/types"
)

// handleGetRankings serves the published cohort for a mode, optionally
// ordered by a rank key via ?by=.
func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	mode := mux.Vars(r)["mode"]
	if mode != models.ModeActive && mode != models.ModeInactive {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "mode must be active or inactive", map[string]interface{}{
			"mode": mode,
		})
		return
	}

	rank := r.URL.Query().Get("by")
	if rank == "" {
		rank = "all"
	} else if !validRankKey(rank) {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "unknown rank key", map[string]interface{}{
			"by":    rank,
			"valid": models.RankKeys,
		})
		return
	}

	snap, err := s.snapshots.GetSnapshot(r.Context(), mode, rank)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if snap == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "no published snapshot for this mode", nil)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// handleGetMeta serves the latest run metadata.
func (s *Server) handleGetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.snapshots.GetMeta(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if meta == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "no scan run published yet", nil)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// handleGetWalletHistory serves recorded metric samples for one wallet.
func (s *Server) handleGetWalletHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "metric history is not configured", nil)
		return
	}

	addr, ok := types.NormalizeAddress(mux.Vars(r)["address"])
	if !ok {
		respondServiceError(w, errors.NewInvalidAddressError(mux.Vars(r)["address"]))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	points, err := s.history.AddressHistory(r.Context(), addr, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr,
		"points":  points,
	})
}

func validRankKey(key string) bool {
	for _, k := range models.RankKeys {
		if k == key {
			return true
		}
	}
	return false
}
