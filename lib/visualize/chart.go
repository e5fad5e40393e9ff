package visualize

import (
	"html"
	"io"
	"sort"

	"eventbrite-cetd/lib/osutil"

	"github.com/wcharczuk/go-chart/v2"
)

// Bucket is one bar of a chart.
type Bucket struct {
	Label string
	Count int
}

// sortBuckets orders by count descending, then label.
func sortBuckets(buckets []Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})
}

type barChart struct {
	title  string
	yName  string
	bars   []Bucket
	rotate bool
}

const (
	barWidth   = 40
	barSpacing = 24
	minWidth   = 640
	height     = 560
)

func (c barChart) render(w io.Writer) error {
	values := make([]chart.Value, len(c.bars))
	top := 0
	for i, b := range c.bars {
		// the svg renderer writes text verbatim
		values[i] = chart.Value{Label: html.EscapeString(b.Label), Value: float64(b.Count)}
		if b.Count > top {
			top = b.Count
		}
	}

	width := len(c.bars)*(barWidth+barSpacing) + 160
	if width < minWidth {
		width = minWidth
	}
	xStyle := chart.Style{}
	bottom := 40
	if c.rotate {
		xStyle.TextRotationDegrees = 45
		bottom = 160
	}

	graph := chart.BarChart{
		Title:      html.EscapeString(c.title),
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{
			Padding: chart.Box{Top: 48, Left: 24, Right: 24, Bottom: bottom},
		},
		XAxis: xStyle,
		YAxis: chart.YAxis{
			Name: html.EscapeString(c.yName),
			// an explicit range keeps single valued charts from collapsing
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top)},
		},
		Bars: values,
	}
	return graph.Render(chart.SVG, w)
}

func (c barChart) writeFile(path string) error {
	return osutil.WriteFileAtomic(path, 0644, c.render)
}
