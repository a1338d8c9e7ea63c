package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"tavola/internal/menu"
	"tavola/models"
)

type micronutrientRequest struct {
	Name string `json:"name" validate:"required,max=80"`
	Unit string `json:"unit" validate:"max=16"`
}

type dailyNormRequest struct {
	MicronutrientID uint             `json:"micronutrient_id" validate:"required"`
	AgeGroup        string           `json:"age_group" validate:"required,max=32"`
	Gender          string           `json:"gender" validate:"omitempty,oneof=any female male f m"`
	Amount          *decimal.Decimal `json:"amount" validate:"required"`
}

// MicronutrientResource lists and creates micronutrients.
func MicronutrientResource(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		var micronutrients []models.Micronutrient
		if err := database.WithContext(r.Context()).Order("name asc").Find(&micronutrients).Error; err != nil {
			writeMenuError(w, r, err, "load micronutrients")
			return
		}
		writeJSON(w, http.StatusOK, micronutrients)
	case http.MethodPost:
		var payload micronutrientRequest
		if !decodePayload(w, r, &payload) {
			return
		}
		micronutrient, err := engine.CreateMicronutrient(r.Context(), payload.Name, payload.Unit)
		if err != nil {
			writeMenuError(w, r, err, "create micronutrient")
			return
		}
		writeJSON(w, http.StatusCreated, micronutrient)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DailyNormResource lists daily norms and creates or updates one per key.
func DailyNormResource(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		query := database.WithContext(r.Context()).
			Preload("Micronutrient").
			Order("micronutrient_id asc, age_group asc, gender asc")
		if ageGroup := models.NormalizeAgeGroup(r.URL.Query().Get("age_group")); ageGroup != "" {
			query = query.Where("age_group = ?", ageGroup)
		}
		var norms []models.DailyNorm
		if err := query.Find(&norms).Error; err != nil {
			writeMenuError(w, r, err, "load daily norms")
			return
		}
		writeJSON(w, http.StatusOK, norms)
	case http.MethodPut, http.MethodPost:
		var payload dailyNormRequest
		if !decodePayload(w, r, &payload) {
			return
		}
		norm, err := engine.UpsertDailyNorm(r.Context(), menu.NormInput{
			MicronutrientID: payload.MicronutrientID,
			AgeGroup:        payload.AgeGroup,
			Gender:          payload.Gender,
			Amount:          *payload.Amount,
		})
		if err != nil {
			writeMenuError(w, r, err, "store daily norm")
			return
		}
		writeJSON(w, http.StatusOK, norm)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
