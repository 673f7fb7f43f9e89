package terminal

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/thiagokokada/gitgud/internal/layout"
)

// Render draws geometry as text: one row per lane, one column per commit
// position. "o" marks a commit and "M" a merge arriving on that lane.
func Render(geom layout.Geometry) string {
	width := 0
	for _, l := range geom.Lanes {
		width = max(width, len(l.Branch))
	}
	columns := 0
	for _, c := range geom.Commits {
		columns = max(columns, c.Position)
	}
	for _, m := range geom.Merges {
		columns = max(columns, m.Position)
	}

	var b strings.Builder
	for _, lane := range geom.Lanes {
		cells := slices.Repeat([]string{"-"}, columns)
		for _, c := range geom.Commits {
			if c.Branch == lane.Branch {
				cells[c.Position-1] = "o"
			}
		}
		for _, m := range geom.Merges {
			if m.To == lane.Branch {
				cells[m.Position-1] = "M"
			}
		}
		marker := " "
		if lane.Current {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-*s  %s\n", marker, width, lane.Branch, strings.Join(cells, "-"))
	}
	for _, m := range geom.Merges {
		fmt.Fprintf(&b, "  merge %s -> %s at %d\n", m.From, m.To, m.Position)
	}
	return b.String()
}

func highlightDiff(w io.Writer, diff string, palette layout.Palette) error {
	style := "github"
	if palette.Name == layout.DarkPalette.Name {
		style = "github-dark"
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, diff, "diff", "terminal256", style); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
