package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	applog "tavola/internal/log"
	"tavola/internal/menu"
	"tavola/models"
)

const ingredientsPath = "/api/ingredients"

type ingredientRequest struct {
	Name      string           `json:"name" validate:"required,max=120"`
	Calories  *decimal.Decimal `json:"calories" validate:"required"`
	Price     *decimal.Decimal `json:"price"`
	Weight    *decimal.Decimal `json:"weight"`
	Available *bool            `json:"available"`
}

func (p ingredientRequest) input() menu.IngredientInput {
	in := menu.IngredientInput{
		Name:      p.Name,
		Calories:  *p.Calories,
		Available: true,
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	if p.Weight != nil {
		in.Weight = *p.Weight
	}
	if p.Available != nil {
		in.Available = *p.Available
	}
	return in
}

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type densityRequest struct {
	MicronutrientID uint             `json:"micronutrient_id" validate:"required"`
	Amount          *decimal.Decimal `json:"amount" validate:"required"`
}

type densitiesRequest struct {
	Micronutrients []densityRequest `json:"micronutrients" validate:"dive"`
}

// IngredientResource handles ingredients and their availability and
// micronutrient sub-resources.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}

	ingredientID, action, ok := splitResourcePath(r.URL.Path, ingredientsPath)
	if !ok {
		applog.Debug(r.Context(), "invalid ingredient identifier", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	switch {
	case ingredientID == 0:
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r)
		case http.MethodPost:
			createIngredient(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case action == "":
		switch r.Method {
		case http.MethodGet:
			showIngredient(w, r, ingredientID)
		case http.MethodPut:
			updateIngredient(w, r, ingredientID)
		case http.MethodDelete:
			deleteIngredient(w, r, ingredientID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case action == "availability":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		setIngredientAvailability(w, r, ingredientID)
	case action == "micronutrients":
		switch r.Method {
		case http.MethodGet:
			showIngredient(w, r, ingredientID)
		case http.MethodPut:
			setIngredientMicronutrients(w, r, ingredientID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request) {
	query := database.WithContext(r.Context()).Order("name asc")
	if search := strings.TrimSpace(r.URL.Query().Get("q")); search != "" {
		query = query.Where("lower(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("available"))) {
	case "true", "1":
		query = query.Where("available = ?", true)
	case "false", "0":
		query = query.Where("available = ?", false)
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		writeMenuError(w, r, err, "load ingredients")
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

func showIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ingredient, err := engine.Ingredient(r.Context(), ingredientID)
	if err != nil {
		writeMenuError(w, r, err, "load ingredient")
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

func createIngredient(w http.ResponseWriter, r *http.Request) {
	var payload ingredientRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	ingredient, err := engine.CreateIngredient(r.Context(), payload.input())
	if err != nil {
		writeMenuError(w, r, err, "create ingredient")
		return
	}
	writeJSON(w, http.StatusCreated, ingredient)
}

func updateIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	var payload ingredientRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	ingredient, err := engine.UpdateIngredient(r.Context(), ingredientID, payload.input())
	if err != nil {
		writeMenuError(w, r, err, "update ingredient")
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	if err := engine.DeleteIngredient(r.Context(), ingredientID); err != nil {
		writeMenuError(w, r, err, "delete ingredient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setIngredientAvailability(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	var payload availabilityRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	ingredient, err := engine.SetIngredientAvailability(r.Context(), ingredientID, *payload.Available)
	if err != nil {
		writeMenuError(w, r, err, "change ingredient availability")
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

func setIngredientMicronutrients(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	var payload densitiesRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	densities := make([]menu.DensityInput, 0, len(payload.Micronutrients))
	for _, item := range payload.Micronutrients {
		densities = append(densities, menu.DensityInput{MicronutrientID: item.MicronutrientID, Amount: *item.Amount})
	}
	if _, err := engine.SetIngredientMicronutrients(r.Context(), ingredientID, densities); err != nil {
		writeMenuError(w, r, err, "store ingredient micronutrients")
		return
	}
	showIngredient(w, r, ingredientID)
}
