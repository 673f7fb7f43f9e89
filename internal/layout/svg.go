package layout

import (
	"bytes"
	"fmt"
	"html"
)

const (
	labelOffsetX = 8
	labelOffsetY = -4
	commitRadius = 6
	laneInset    = 10
)

// SVG renders geometry as a standalone SVG document.
func SVG(geom Geometry) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(geom.Width), num(geom.Height), num(geom.Width), num(geom.Height))
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", attr(geom.Palette.Background))

	for _, lane := range geom.Lanes {
		width := 2
		if lane.Current {
			width = 4
		}
		fmt.Fprintf(&b, `<line x1="%d" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%d"/>`+"\n",
			laneInset, num(lane.Y), num(geom.Width), num(lane.Y), attr(lane.Color), width)
		fill := geom.Palette.Text
		if lane.Current {
			fill = geom.Palette.Current
		}
		fmt.Fprintf(&b, `<text x="%d" y="%s" fill="%s" font-size="11">%s</text>`+"\n",
			laneInset, num(lane.Y+labelOffsetY), attr(fill), html.EscapeString(lane.Branch))
	}
	for _, m := range geom.Merges {
		fmt.Fprintf(&b, `<path d="%s" stroke="%s" fill="transparent"/>`+"\n", attr(m.Path), attr(m.Color))
	}
	for _, c := range geom.Commits {
		fmt.Fprintf(&b, `<g><title>%s</title><circle cx="%s" cy="%s" r="%d" fill="%s"/>`,
			html.EscapeString(c.Message), num(c.X), num(c.Y), commitRadius, attr(c.Color))
		fmt.Fprintf(&b, `<text x="%s" y="%s" fill="%s" font-size="9">%s</text></g>`+"\n",
			num(c.X+labelOffsetX), num(c.Y+labelOffsetY), attr(geom.Palette.Text), html.EscapeString(c.Label))
	}
	b.WriteString("</svg>\n")
	return b.Bytes()
}

func attr(s string) string {
	return html.EscapeString(s)
}
