// Package menuboard renders the public board of dishes currently served.
package menuboard

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"tavola/internal/views/layout"
	"tavola/internal/views/theme"
	"tavola/models"
)

// UntypedSection collects dishes without a dish type.
const UntypedSection = "More from the kitchen"

// Item is one dish line on the board.
type Item struct {
	Name               string
	Price              decimal.Decimal
	Calories           decimal.Decimal
	CookingTimeMinutes int
}

// Section groups the items of one dish type.
type Section struct {
	Title string
	Items []Item
}

// Group turns active dishes into board sections ordered by title, with
// dishes ordered by name. Inactive dishes are skipped.
func Group(dishes []models.Dish) []Section {
	byTitle := make(map[string][]Item)
	for _, dish := range dishes {
		if !dish.Active {
			continue
		}
		title := UntypedSection
		if dish.Type != nil && dish.Type.Name != "" {
			title = dish.Type.Name
		}
		byTitle[title] = append(byTitle[title], Item{
			Name:               dish.Name,
			Price:              dish.Price,
			Calories:           dish.TotalCalories,
			CookingTimeMinutes: dish.CookingTimeMinutes,
		})
	}

	sections := make([]Section, 0, len(byTitle))
	for title, items := range byTitle {
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		sections = append(sections, Section{Title: title, Items: items})
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].Title == UntypedSection {
			return false
		}
		if sections[j].Title == UntypedSection {
			return true
		}
		return sections[i].Title < sections[j].Title
	})
	return sections
}

// Page renders the full board document.
func Page(restaurant string, sections []Section, th theme.BoardTheme) templ.Component {
	return layout.Layout(restaurant+" menu", th, Board(restaurant, sections, th))
}

// Board renders the board body.
func Board(restaurant string, sections []Section, th theme.BoardTheme) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<main class="menu-board"><h1>%s</h1>`, templ.EscapeString(restaurant)); err != nil {
			return err
		}
		if len(sections) == 0 {
			if _, err := fmt.Fprintf(w, `<p class="%s">Nothing is being served right now.</p>`, templ.EscapeString(th.MutedClass)); err != nil {
				return err
			}
		}
		for _, section := range sections {
			if err := renderSection(w, section, th); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</main>")
		return err
	})
}

func renderSection(w io.Writer, section Section, th theme.BoardTheme) error {
	if _, err := fmt.Fprintf(w, `<section class="%s"><h2>%s</h2><ul>`, templ.EscapeString(th.SectionClass), templ.EscapeString(section.Title)); err != nil {
		return err
	}
	for _, item := range section.Items {
		if _, err := fmt.Fprintf(w,
			`<li><span class="dish-name">%s</span> <span class="%s">%s</span> <span class="%s">%s kcal</span>%s</li>`,
			templ.EscapeString(item.Name),
			templ.EscapeString(th.PriceClass), item.Price.StringFixed(2),
			templ.EscapeString(th.MutedClass), item.Calories.StringFixed(0),
			cookingTime(item.CookingTimeMinutes, th),
		); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</ul></section>")
	return err
}

func cookingTime(minutes int, th theme.BoardTheme) string {
	if minutes <= 0 {
		return ""
	}
	return fmt.Sprintf(` <span class="%s">%d min</span>`, templ.EscapeString(th.MutedClass), minutes)
}
