// Package layout turns a graph into drawable geometry: one horizontal lane
// per branch, commits along their lane and merge curves between lanes.
package layout

import (
	"fmt"
	"strconv"

	"github.com/thiagokokada/gitgud/internal/graph"
)

const (
	DefaultLaneSpacing   = 40
	DefaultCommitSpacing = 60

	labelLength = 5
	// Room to the right of the last commit so labels are not clipped.
	trailingColumns = 1
)

type Options struct {
	LaneSpacing   float64
	CommitSpacing float64
	Palette       Palette
}

func (o Options) withDefaults() Options {
	if o.LaneSpacing <= 0 {
		o.LaneSpacing = DefaultLaneSpacing
	}
	if o.CommitSpacing <= 0 {
		o.CommitSpacing = DefaultCommitSpacing
	}
	if o.Palette.Name == "" {
		o.Palette = LightPalette
	}
	return o
}

type Lane struct {
	Branch  string  `json:"branch"`
	Index   int     `json:"index"`
	Y       float64 `json:"y"`
	Current bool    `json:"current"`
	Color   string  `json:"color"`
}

type CommitNode struct {
	Branch    string  `json:"branch"`
	DisplayID string  `json:"displayId"`
	Label     string  `json:"label"`
	Message   string  `json:"message"`
	Position  int     `json:"position"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
}

type MergeCurve struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Position int     `json:"position"`
	X        float64 `json:"x"`
	FromY    float64 `json:"fromY"`
	ToY      float64 `json:"toY"`
	// Path is an SVG cubic Bézier path from the source lane to the target lane.
	Path  string `json:"path"`
	Color string `json:"color"`
}

type Geometry struct {
	Width   float64      `json:"width"`
	Height  float64      `json:"height"`
	Current string       `json:"current"`
	Palette Palette      `json:"palette"`
	Lanes   []Lane       `json:"lanes"`
	Commits []CommitNode `json:"commits"`
	Merges  []MergeCurve `json:"merges"`
}

// Compute lays out g. It is a pure function of its inputs; equal graphs and
// options always produce equal geometry.
func Compute(g graph.Graph, opts Options) Geometry {
	opts = opts.withDefaults()
	branches := g.Branches()
	geom := Geometry{
		Current: g.Current(),
		Palette: opts.Palette,
		Lanes:   make([]Lane, 0, len(branches)),
		Commits: []CommitNode{},
		Merges:  []MergeCurve{},
	}

	laneY := make(map[string]float64, len(branches))
	maxPosition := 0
	for i, b := range branches {
		y := float64(i+1) * opts.LaneSpacing
		laneY[b.Name] = y
		geom.Lanes = append(geom.Lanes, Lane{
			Branch:  b.Name,
			Index:   i,
			Y:       y,
			Current: b.Name == g.Current(),
			Color:   opts.Palette.laneColor(i),
		})
		for _, c := range b.Commits {
			geom.Commits = append(geom.Commits, CommitNode{
				Branch:    b.Name,
				DisplayID: c.DisplayID,
				Label:     shortLabel(c.DisplayID),
				Message:   c.Message,
				Position:  c.Position,
				X:         float64(c.Position) * opts.CommitSpacing,
				Y:         y,
				Color:     opts.Palette.laneColor(i),
			})
			maxPosition = max(maxPosition, c.Position)
		}
	}

	for _, b := range branches {
		for _, m := range b.Merges {
			fromY, okFrom := laneY[m.From]
			toY, okTo := laneY[m.To]
			if !okFrom || !okTo {
				continue
			}
			x := float64(m.Position) * opts.CommitSpacing
			geom.Merges = append(geom.Merges, MergeCurve{
				From:     m.From,
				To:       m.To,
				Position: m.Position,
				X:        x,
				FromY:    fromY,
				ToY:      toY,
				Path:     mergePath(m.Position, opts.CommitSpacing, fromY, toY),
				Color:    opts.Palette.MergeLine,
			})
			maxPosition = max(maxPosition, m.Position)
		}
	}

	geom.Width = float64(maxPosition+trailingColumns) * opts.CommitSpacing
	geom.Height = float64(len(branches)+1) * opts.LaneSpacing
	return geom
}

func mergePath(position int, commitSpacing, fromY, toY float64) string {
	x := float64(position) * commitSpacing
	cx := (float64(position) + 0.5) * commitSpacing
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(x), num(fromY),
		num(cx), num(fromY),
		num(cx), num(toY),
		num(x), num(toY),
	)
}

// num formats coordinates the same way on every call.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortLabel(id string) string {
	if len(id) <= labelLength {
		return id
	}
	return id[:labelLength]
}
