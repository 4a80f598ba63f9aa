package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/view"
)

// Show renders the comparison table from persisted state. It never hits
// the network; run `refresh` first for fresh prices.
func (a *App) Show(ctx context.Context, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	return renderView(out, d.service.BuildView(ctx))
}

func renderView(out io.Writer, v view.View) error {
	if v.LastCheck != nil {
		fmt.Fprintf(out, "Last check: %s\n\n", v.LastCheck.Format("02/01/2006 15:04"))
	}

	if v.Empty {
		fmt.Fprintln(out, "No tracked stations. Use `carbualert station add <id>` or `carbualert search` to get started.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATION\tFUEL\tPRICE\tTREND\tUPDATED\tNOTE")

	for _, card := range v.Stations {
		name := sanitizeInline(card.DisplayName)
		if card.IsReference {
			name = "* " + name
		}
		if card.PostalCode != "" || card.City != "" {
			name = fmt.Sprintf("%s (%s %s)", name, card.PostalCode, sanitizeInline(card.City))
		}

		if len(card.Rows) == 0 {
			fmt.Fprintf(w, "%s\t\t\t\t\t\n", name)
			continue
		}

		for i, row := range card.Rows {
			label := name
			if i > 0 {
				label = ""
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				label,
				row.Label,
				formatPrice(row),
				trendArrow(row.Direction),
				fuel.FormatFeedTime(row.UpdatedAt),
				comparisonNote(row.Comparison),
			)
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n* reference station")
	return nil
}

func formatPrice(row view.Row) string {
	if row.Price == nil {
		return "—"
	}
	return fuel.Round(*row.Price).StringFixed(3) + " €"
}

func trendArrow(dir fuel.Direction) string {
	switch dir {
	case fuel.DirectionUp:
		return "▲"
	case fuel.DirectionDown:
		return "▼"
	default:
		return "="
	}
}

func comparisonNote(cmp view.Comparison) string {
	switch cmp {
	case view.ComparisonCheaper:
		return "lowest"
	case view.ComparisonMoreExpensive:
		return "below ref"
	default:
		return ""
	}
}

// sanitizeInline keeps names from breaking the table layout.
func sanitizeInline(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}
