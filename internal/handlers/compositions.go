package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	applog "tavola/internal/log"
	"tavola/internal/menu"
	"tavola/models"
)

const compositionsPath = "/api/dish-compositions"

type compositionRequest struct {
	DishID       uint             `json:"dish_id" validate:"required"`
	IngredientID uint             `json:"ingredient_id" validate:"required"`
	Quantity     *decimal.Decimal `json:"quantity" validate:"required"`
	Unit         string           `json:"unit" validate:"max=16"`
}

func (p compositionRequest) input() menu.CompositionInput {
	return menu.CompositionInput{
		DishID:       p.DishID,
		IngredientID: p.IngredientID,
		Quantity:     *p.Quantity,
		Unit:         p.Unit,
	}
}

type compositionIngredientSummary struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Calories  decimal.Decimal `json:"calories"`
	Available bool            `json:"available"`
}

type compositionResponse struct {
	ID           uint                          `json:"id"`
	DishID       uint                          `json:"dish_id"`
	IngredientID uint                          `json:"ingredient_id"`
	Quantity     decimal.Decimal               `json:"quantity"`
	Unit         string                        `json:"unit"`
	Ingredient   *compositionIngredientSummary `json:"ingredient,omitempty"`
	CreatedAt    time.Time                     `json:"created_at"`
	UpdatedAt    time.Time                     `json:"updated_at"`
}

// DishCompositionResource handles CRUD interactions for composition rows.
// Every write goes through the engine so the dish calorie totals follow.
func DishCompositionResource(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}

	id, action, ok := splitResourcePath(r.URL.Path, compositionsPath)
	if !ok || action != "" {
		applog.Debug(r.Context(), "invalid composition identifier", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	if id == 0 {
		switch r.Method {
		case http.MethodGet:
			listCompositions(w, r)
		case http.MethodPost:
			createComposition(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showComposition(w, r, id)
	case http.MethodPut:
		updateComposition(w, r, id)
	case http.MethodDelete:
		deleteComposition(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listCompositions(w http.ResponseWriter, r *http.Request) {
	query := database.WithContext(r.Context()).
		Preload("Ingredient").
		Order("dish_id asc, id asc")
	if dishID, ok := queryUint(r, "dish_id"); ok {
		query = query.Where("dish_id = ?", dishID)
	}

	var rows []models.DishComposition
	if err := query.Find(&rows).Error; err != nil {
		writeMenuError(w, r, err, "load composition rows")
		return
	}

	responses := make([]compositionResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, projectComposition(row))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showComposition(w http.ResponseWriter, r *http.Request, id uint) {
	row, err := engine.Composition(r.Context(), id)
	if err != nil {
		writeMenuError(w, r, err, "load composition row")
		return
	}
	writeJSON(w, http.StatusOK, projectComposition(*row))
}

func createComposition(w http.ResponseWriter, r *http.Request) {
	var payload compositionRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	row, err := engine.AddComposition(r.Context(), payload.input())
	if err != nil {
		writeMenuError(w, r, err, "create composition row")
		return
	}
	writeJSON(w, http.StatusCreated, projectComposition(*row))
}

func updateComposition(w http.ResponseWriter, r *http.Request, id uint) {
	var payload compositionRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	row, err := engine.UpdateComposition(r.Context(), id, payload.input())
	if err != nil {
		writeMenuError(w, r, err, "update composition row")
		return
	}
	writeJSON(w, http.StatusOK, projectComposition(*row))
}

func deleteComposition(w http.ResponseWriter, r *http.Request, id uint) {
	if err := engine.RemoveComposition(r.Context(), id); err != nil {
		writeMenuError(w, r, err, "delete composition row")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func projectComposition(row models.DishComposition) compositionResponse {
	response := compositionResponse{
		ID:           row.ID,
		DishID:       row.DishID,
		IngredientID: row.IngredientID,
		Quantity:     row.Quantity,
		Unit:         row.Unit,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Ingredient != nil {
		response.Ingredient = &compositionIngredientSummary{
			ID:        row.Ingredient.ID,
			Name:      row.Ingredient.Name,
			Calories:  row.Ingredient.Calories,
			Available: row.Ingredient.Available,
		}
	}
	return response
}
