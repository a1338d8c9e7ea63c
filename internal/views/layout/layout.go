package layout

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"tavola/internal/views/theme"
)

// Layout wraps content in the HTML document shared by public pages.
func Layout(title string, th theme.BoardTheme, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title></head><body class="%s" data-theme="%s">`,
			templ.EscapeString(title), templ.EscapeString(th.BodyClass), templ.EscapeString(th.Key),
		); err != nil {
			return err
		}
		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}
