package pdftext

import (
	"math"
	"sort"
	"strings"

	"github.com/dslipak/pdf"
)

const (
	// glyphs further than this fraction of the font size from where the previous
	// glyph ended start a new run
	runGapRatio = 0.15

	// runs whose baselines differ by less than this fraction of the font size
	// share a line
	baselineRatio = 0.3

	minTolerance = 0.5
)

// textRun is a sequence of glyphs drawn one after another on the same baseline.
type textRun struct {
	x, end, y, size float64
	text            strings.Builder
}

// pageLines rebuilds the lines of a page from positioned glyphs: glyphs are merged
// into runs in drawing order, runs are grouped by baseline top to bottom, and the
// runs of a line are joined left to right with a single space between them.
func pageLines(glyphs []pdf.Text) []string {
	runs := collectRuns(glyphs)
	if len(runs) == 0 {
		return nil
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].y > runs[j].y })

	var lines []string
	for start := 0; start < len(runs); {
		ref := runs[start]
		tol := tolerance(ref.size, baselineRatio)

		end := start + 1
		for end < len(runs) && ref.y-runs[end].y <= tol {
			end++
		}

		line := runs[start:end]
		sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })
		lines = append(lines, joinRuns(line))
		start = end
	}
	return lines
}

// collectRuns merges consecutive glyphs into runs. A glyph continues the current run
// when it sits on the same baseline where the previous glyph ended. Fonts without
// width tables report zero widths, so every glyph of one show operation then shares
// the run's origin and any repositioning starts a new run.
func collectRuns(glyphs []pdf.Text) []*textRun {
	var runs []*textRun
	var cur *textRun

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}

		if cur != nil {
			tol := tolerance(g.FontSize, runGapRatio)
			sameBaseline := math.Abs(g.Y-cur.y) <= tolerance(g.FontSize, baselineRatio)
			if sameBaseline && math.Abs(g.X-cur.end) <= tol {
				cur.text.WriteString(g.S)
				cur.end = g.X + g.W
				continue
			}
		}

		cur = &textRun{x: g.X, end: g.X + g.W, y: g.Y, size: g.FontSize}
		cur.text.WriteString(g.S)
		runs = append(runs, cur)
	}
	return runs
}

func joinRuns(runs []*textRun) string {
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.text.String())
	}
	return b.String()
}

func tolerance(fontSize, ratio float64) float64 {
	return math.Max(math.Abs(fontSize)*ratio, minTolerance)
}
