package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	applog "tavola/internal/log"
	"tavola/internal/menu"
	"tavola/models"
)

const dishesPath = "/api/dishes"

type dishRequest struct {
	Name               string           `json:"name" validate:"required,max=120"`
	Price              *decimal.Decimal `json:"price" validate:"required"`
	TypeID             *uint            `json:"type_id" validate:"omitempty,gt=0"`
	CookingTimeMinutes int              `json:"cooking_time_minutes" validate:"gte=0,lte=1440"`
	Active             *bool            `json:"active"`
}

func (p dishRequest) input() menu.DishInput {
	return menu.DishInput{
		Name:               p.Name,
		Price:              *p.Price,
		TypeID:             p.TypeID,
		CookingTimeMinutes: p.CookingTimeMinutes,
		Active:             p.Active,
	}
}

type activationRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type nutritionResponse struct {
	DishID      uint                  `json:"dish_id"`
	Profile     menu.Profile          `json:"profile"`
	AgeGroup    string                `json:"age_group,omitempty"`
	Gender      string                `json:"gender,omitempty"`
	Comparisons []menu.NormComparison `json:"comparisons,omitempty"`
}

// DishResource handles dishes and their activation and nutrition sub-resources.
func DishResource(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}

	dishID, action, ok := splitResourcePath(r.URL.Path, dishesPath)
	if !ok {
		applog.Debug(r.Context(), "invalid dish identifier", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	switch {
	case dishID == 0:
		switch r.Method {
		case http.MethodGet:
			listDishes(w, r)
		case http.MethodPost:
			createDish(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case action == "":
		switch r.Method {
		case http.MethodGet:
			showDish(w, r, dishID)
		case http.MethodPut:
			updateDish(w, r, dishID)
		case http.MethodDelete:
			deleteDish(w, r, dishID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case action == "activation":
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		setDishActivation(w, r, dishID)
	case action == "nutrition":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		showDishNutrition(w, r, dishID)
	default:
		http.NotFound(w, r)
	}
}

func listDishes(w http.ResponseWriter, r *http.Request) {
	query := database.WithContext(r.Context()).Preload("Type").Order("name asc")
	if typeID, ok := queryUint(r, "type_id"); ok {
		query = query.Where("type_id = ?", typeID)
	}
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("active"))) {
	case "true", "1":
		query = query.Where("active = ?", true)
	case "false", "0":
		query = query.Where("active = ?", false)
	}

	var dishes []models.Dish
	if err := query.Find(&dishes).Error; err != nil {
		writeMenuError(w, r, err, "load dishes")
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

func showDish(w http.ResponseWriter, r *http.Request, dishID uint) {
	dish, err := engine.Dish(r.Context(), dishID)
	if err != nil {
		writeMenuError(w, r, err, "load dish")
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func createDish(w http.ResponseWriter, r *http.Request) {
	var payload dishRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	dish, err := engine.CreateDish(r.Context(), payload.input())
	if err != nil {
		writeMenuError(w, r, err, "create dish")
		return
	}
	writeJSON(w, http.StatusCreated, dish)
}

func updateDish(w http.ResponseWriter, r *http.Request, dishID uint) {
	var payload dishRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	dish, err := engine.UpdateDish(r.Context(), dishID, payload.input())
	if err != nil {
		writeMenuError(w, r, err, "update dish")
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func deleteDish(w http.ResponseWriter, r *http.Request, dishID uint) {
	if err := engine.DeleteDish(r.Context(), dishID); err != nil {
		writeMenuError(w, r, err, "delete dish")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setDishActivation(w http.ResponseWriter, r *http.Request, dishID uint) {
	var payload activationRequest
	if !decodePayload(w, r, &payload) {
		return
	}
	dish, err := engine.SetDishActive(r.Context(), dishID, *payload.Active)
	if err != nil {
		writeMenuError(w, r, err, "change dish activation")
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func showDishNutrition(w http.ResponseWriter, r *http.Request, dishID uint) {
	ctx := r.Context()
	ageGroup := models.NormalizeAgeGroup(r.URL.Query().Get("age_group"))

	profile, err := engine.ProjectNutrition(ctx, nil, dishID)
	if err != nil {
		writeMenuError(w, r, err, "project dish nutrition")
		return
	}
	response := nutritionResponse{DishID: dishID, Profile: profile}

	if ageGroup != "" {
		gender := models.NormalizeGender(r.URL.Query().Get("gender"))
		comparisons, err := engine.CompareWithNorms(ctx, dishID, ageGroup, gender)
		if err != nil {
			writeMenuError(w, r, err, "compare dish nutrition with daily norms")
			return
		}
		response.AgeGroup = ageGroup
		response.Gender = gender
		response.Comparisons = comparisons
	}

	writeJSON(w, http.StatusOK, response)
}
