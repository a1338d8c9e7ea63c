package theme

import "strings"

// Option represents a selectable board theme.
type Option struct {
	Value string
	Label string
}

// BoardTheme contains the styling primitives of the menu board.
type BoardTheme struct {
	Key          string
	BodyClass    string
	SectionClass string
	PriceClass   string
	MutedClass   string
}

const (
	// DefaultKey defines the fallback theme when no theme is requested.
	DefaultKey = "daylight"
)

var catalogue = map[string]BoardTheme{
	"daylight": {
		Key:          "daylight",
		BodyClass:    "min-h-screen bg-stone-50 text-stone-900",
		SectionClass: "board-section light",
		PriceClass:   "board-price",
		MutedClass:   "board-muted",
	},
	"evening": {
		Key:          "evening",
		BodyClass:    "min-h-screen bg-slate-950 text-slate-100",
		SectionClass: "board-section dark",
		PriceClass:   "board-price accent",
		MutedClass:   "board-muted",
	},
}

var options = []Option{
	{Value: "daylight", Label: "Daylight (Light)"},
	{Value: "evening", Label: "Evening (Dark)"},
}

// Resolve returns the registered theme for key, falling back to DefaultKey.
func Resolve(key string) BoardTheme {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if value, ok := catalogue[normalized]; ok {
		return value
	}
	return catalogue[DefaultKey]
}

// Options exposes the available themes.
func Options() []Option {
	return options
}
