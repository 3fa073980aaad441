// Package export writes simulation snapshots and run series as SVG.
package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/viz"
)

const background = "#0a0a0a"

type dot struct {
	x, y, depth float64
	color       string
}

// ParticlesToSVG projects ps through cam and draws each visible particle as
// a circle in its own color. Far particles are drawn first and shrink with
// depth.
func ParticlesToSVG(w io.Writer, ps []dynamo.Particle, cam *viz.Camera, width, height int) error {
	proj := cam.Projector(width, height)
	dots := make([]dot, 0, len(ps))
	for i := range ps {
		x, y, depth, ok := proj.Project(ps[i].Position)
		if !ok {
			continue
		}
		dots = append(dots, dot{float64(x), float64(y), depth, ps[i].Color.Clamped().Hex()})
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].depth > dots[j].depth })

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	for _, d := range dots {
		// NDC depth is in [-1, 1]; nearer points get up to twice the radius.
		r := 1.0 + (1-d.depth)/2
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.2f" fill="%s"/>
`, d.x, d.y, r, d.color)
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesToSVG plots values against their index as a polyline. It returns an
// empty string for fewer than two points.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	hi += span * 0.1
	span = hi - lo
	last := float64(len(values) - 1)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i, v := range values {
		x := float64(i) / last * float64(width)
		y := float64(height) - (v-lo)/span*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
