package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	applog "tavola/internal/log"
	"tavola/internal/menu"
	"tavola/internal/supplier"
	"tavola/models"
)

type supplierSheetResponse struct {
	Filename string               `json:"filename"`
	Drafts   []supplier.Draft     `json:"drafts"`
	Errors   []supplier.LineError `json:"errors"`
	Created  []models.Ingredient  `json:"created,omitempty"`
	Skipped  []string             `json:"skipped,omitempty"`
	Failed   []supplier.LineError `json:"failed,omitempty"`
}

// SupplierSheetResource parses an uploaded supplier sheet into ingredient
// drafts. With commit=true the drafts whose names are not yet known are
// created as ingredients.
func SupplierSheetResource(w http.ResponseWriter, r *http.Request) {
	if !requireEngine(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	filename, data, mime, err := readSheetUpload(w, r)
	if err != nil {
		applog.Debug(r.Context(), "invalid supplier sheet upload", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := supplier.ExtractText(data, mime)
	if err != nil {
		applog.Debug(r.Context(), "supplier sheet text extraction failed", "filename", filename, "error", err)
		writeJSONError(w, http.StatusUnprocessableEntity, "unable to read supplier sheet")
		return
	}

	drafts, lineErrs := supplier.ParseSheet(text)
	response := supplierSheetResponse{
		Filename: filename,
		Drafts:   drafts,
		Errors:   lineErrs,
	}
	if response.Drafts == nil {
		response.Drafts = []supplier.Draft{}
	}
	if response.Errors == nil {
		response.Errors = []supplier.LineError{}
	}

	if commitRequested(r) {
		commitDrafts(r, drafts, &response)
	}

	applog.Info(r.Context(), "supplier sheet processed",
		"filename", filename,
		"drafts", len(drafts),
		"lineErrors", len(lineErrs),
		"created", len(response.Created),
	)
	writeJSON(w, http.StatusOK, response)
}

func commitRequested(r *http.Request) bool {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("commit")))
	if value == "" {
		value = strings.ToLower(strings.TrimSpace(r.FormValue("commit")))
	}
	return value == "true" || value == "1"
}

func commitDrafts(r *http.Request, drafts []supplier.Draft, response *supplierSheetResponse) {
	ctx := r.Context()
	for _, draft := range drafts {
		var count int64
		if err := database.WithContext(ctx).Model(&models.Ingredient{}).
			Where("lower(name) = ?", strings.ToLower(draft.Name)).
			Count(&count).Error; err != nil {
			response.Failed = append(response.Failed, supplier.LineError{Line: draft.Line, Message: err.Error()})
			continue
		}
		if count > 0 {
			response.Skipped = append(response.Skipped, draft.Name)
			continue
		}
		ingredient, err := engine.CreateIngredient(ctx, menu.IngredientInput{
			Name:      draft.Name,
			Calories:  draft.Calories,
			Price:     draft.Price,
			Weight:    draft.Weight,
			Available: draft.Available,
		})
		if err != nil {
			applog.Warn(ctx, "failed to create ingredient from supplier sheet", "name", draft.Name, "error", err)
			response.Failed = append(response.Failed, supplier.LineError{Line: draft.Line, Message: err.Error()})
			continue
		}
		response.Created = append(response.Created, *ingredient)
	}
}

func readSheetUpload(w http.ResponseWriter, r *http.Request) (string, []byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, supplier.MaxUploadSize+1<<10)
	if err := r.ParseMultipartForm(supplier.MaxUploadSize); err != nil {
		return "", nil, "", errors.New("expected a multipart upload with a sheet file")
	}
	file, header, err := r.FormFile("sheet")
	if err != nil {
		return "", nil, "", errors.New("sheet file is required")
	}
	defer file.Close()

	if header.Size > supplier.MaxUploadSize {
		return "", nil, "", fmt.Errorf("file exceeds %d bytes", supplier.MaxUploadSize)
	}

	buf := bytes.NewBuffer(make([]byte, 0, header.Size))
	if _, err := io.Copy(buf, file); err != nil {
		return "", nil, "", err
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = supplier.MimeTypeFromName(header.Filename)
	}
	return header.Filename, buf.Bytes(), mime, nil
}
