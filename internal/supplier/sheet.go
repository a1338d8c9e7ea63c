// Package supplier turns supplier price sheets into ingredient drafts.
//
// A sheet is plain text, or a PDF whose text layer holds one ingredient per
// line:
//
//	name; kcal per 100; price; weight[; available]
//
// Blank lines and lines starting with '#' are ignored.
package supplier

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
)

// MaxUploadSize bounds the size of an uploaded sheet.
const MaxUploadSize = 5 << 20

// Draft is an ingredient parsed from a sheet line.
type Draft struct {
	Line      int             `json:"line"`
	Name      string          `json:"name"`
	Calories  decimal.Decimal `json:"calories"`
	Price     decimal.Decimal `json:"price"`
	Weight    decimal.Decimal `json:"weight"`
	Available bool            `json:"available"`
}

// LineError reports a sheet line that could not be parsed.
type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// MimeTypeFromName guesses the content type of an upload from its file name.
func MimeTypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".csv":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ExtractText returns the text content of an upload. PDFs are read page by
// page, everything else is taken as text.
func ExtractText(data []byte, mime string) (string, error) {
	if strings.Contains(strings.ToLower(mime), "pdf") || bytes.HasPrefix(data, []byte("%PDF-")) {
		return extractTextFromPDF(data)
	}
	return string(data), nil
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// ParseSheet parses every line of text. Valid lines become drafts, the rest
// are reported as line errors. A name listed twice is an error on the later
// line.
func ParseSheet(text string) ([]Draft, []LineError) {
	var (
		drafts []Draft
		errs   []LineError
		seen   = make(map[string]int)
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		draft, err := parseLine(raw)
		if err != nil {
			errs = append(errs, LineError{Line: line, Message: err.Error()})
			continue
		}
		key := strings.ToLower(draft.Name)
		if first, dup := seen[key]; dup {
			errs = append(errs, LineError{Line: line, Message: fmt.Sprintf("%q already listed on line %d", draft.Name, first)})
			continue
		}
		seen[key] = line
		draft.Line = line
		drafts = append(drafts, draft)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, LineError{Line: line + 1, Message: err.Error()})
	}
	return drafts, errs
}

func parseLine(raw string) (Draft, error) {
	fields := strings.Split(raw, ";")
	if len(fields) < 4 || len(fields) > 5 {
		return Draft{}, fmt.Errorf("expected 4 or 5 fields separated by ';', got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	draft := Draft{Name: fields[0], Available: true}
	if draft.Name == "" {
		return Draft{}, fmt.Errorf("name is required")
	}

	var err error
	if draft.Calories, err = parseAmount("kcal", fields[1]); err != nil {
		return Draft{}, err
	}
	if draft.Price, err = parseAmount("price", fields[2]); err != nil {
		return Draft{}, err
	}
	if draft.Weight, err = parseAmount("weight", fields[3]); err != nil {
		return Draft{}, err
	}
	if len(fields) == 5 && fields[4] != "" {
		if draft.Available, err = parseAvailability(fields[4]); err != nil {
			return Draft{}, err
		}
	}
	return draft, nil
}

func parseAmount(label, value string) (decimal.Decimal, error) {
	// Supplier sheets often use a decimal comma.
	normalized := strings.ReplaceAll(value, ",", ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a number", label, value)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", label)
	}
	return amount, nil
}

func parseAvailability(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y", "in stock", "available":
		return true, nil
	case "no", "n", "out", "out of stock", "unavailable":
		return false, nil
	}
	available, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("availability %q is not recognised", value)
	}
	return available, nil
}
