package handlers

import (
	"net/http"

	"github.com/a-h/templ"

	applog "tavola/internal/log"
	"tavola/internal/views/menuboard"
	"tavola/internal/views/theme"
	"tavola/models"
)

// RestaurantName is shown on the public menu board.
var RestaurantName = "Tavola"

// MenuBoard renders the active dishes grouped by dish type. HTMX requests
// receive the board fragment only.
func MenuBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	var dishes []models.Dish
	if err := database.WithContext(r.Context()).
		Preload("Type").
		Where("active = ?", true).
		Order("name asc").
		Find(&dishes).Error; err != nil {
		applog.Error(r.Context(), "failed to load menu board", "error", err)
		http.Error(w, "We were unable to load the menu. Please try again.", http.StatusInternalServerError)
		return
	}

	sections := menuboard.Group(dishes)
	th := theme.Resolve(r.URL.Query().Get("theme"))

	var component templ.Component
	if isHTMX(r) {
		component = menuboard.Board(RestaurantName, sections, th)
	} else {
		component = menuboard.Page(RestaurantName, sections, th)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render menu board", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
