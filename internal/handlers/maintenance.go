package handlers

import (
	"net/http"

	applog "tavola/internal/log"
	"tavola/internal/menu"
)

type auditResponse struct {
	Consistent bool         `json:"consistent"`
	Drifts     []menu.Drift `json:"drifts"`
}

// CalorieAudit reports dishes whose cached calorie total drifted.
func CalorieAudit(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	drifts, err := engine.Audit(r.Context())
	if err != nil {
		writeMenuError(w, r, err, "audit calorie totals")
		return
	}
	if drifts == nil {
		drifts = []menu.Drift{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Consistent: len(drifts) == 0, Drifts: drifts})
}

// RecomputeCalories recomputes every dish total.
func RecomputeCalories(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	count, err := engine.RecomputeAll(r.Context())
	if err != nil {
		writeMenuError(w, r, err, "recompute calorie totals")
		return
	}
	applog.Info(r.Context(), "calorie totals recomputed on request", "dishes", count)
	writeJSON(w, http.StatusOK, map[string]int{"recomputed": count})
}
