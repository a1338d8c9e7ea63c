package handlers

import (
	"net/http"

	"tavola/models"
)

type dishTypeRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

// DishTypeResource lists and creates menu sections.
func DishTypeResource(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		var types []models.DishType
		if err := database.WithContext(r.Context()).Order("name asc").Find(&types).Error; err != nil {
			writeMenuError(w, r, err, "load dish types")
			return
		}
		writeJSON(w, http.StatusOK, types)
	case http.MethodPost:
		var payload dishTypeRequest
		if !decodePayload(w, r, &payload) {
			return
		}
		dishType, err := engine.CreateDishType(r.Context(), payload.Name)
		if err != nil {
			writeMenuError(w, r, err, "create dish type")
			return
		}
		writeJSON(w, http.StatusCreated, dishType)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
