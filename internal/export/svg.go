package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/armsim/internal/dynamo"
	"github.com/san-kum/armsim/internal/viz"
)

const background = "#0a0a0a"

// palette cycles per joint.
var palette = []string{"#00ffcc", "#ff66cc", "#ffcc00", "#66aaff", "#88ff44", "#ff8844", "#cc88ff", "#ffffff"}

// CanvasToSVG draws every set Braille dot as a circle. scale is the size of
// one dot cell in SVG units.
func CanvasToSVG(canvas *viz.Canvas, scale float64, color string) string {
	if canvas == nil {
		return ""
	}
	pw, ph := canvas.PixelSize()
	width, height := float64(pw)*scale, float64(ph)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, background, color)

	r := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// TrajectoryToSVG plots each joint position against time as a solid line
// and its drive target as a dashed line in the same color.
func TrajectoryToSVG(result *dynamo.Result, names []string, width, height int) string {
	if result == nil || result.Len() < 2 {
		return ""
	}
	t0, t1 := result.Times[0], result.Times[result.Len()-1]
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range result.Times {
		for _, v := range result.Q[i] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		for _, v := range result.Target[i] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	hi += span * 0.1
	dur := t1 - t0
	if dur == 0 {
		dur = 1
	}

	const legend = 16
	plotH := float64(height - legend)
	px := func(t float64) float64 { return (t - t0) / dur * float64(width) }
	py := func(v float64) float64 { return legend + plotH - (v-lo)/(hi-lo)*plotH }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	if lo < 0 && hi > 0 {
		fmt.Fprintf(&sb, "<line x1=\"0\" y1=\"%.1f\" x2=\"%d\" y2=\"%.1f\" stroke=\"#333333\"/>\n", py(0), width, py(0))
	}

	n := len(result.Q[0])
	for j := 0; j < n; j++ {
		color := palette[j%len(palette)]
		writePath(&sb, color, "", func(i int) (float64, float64) { return px(result.Times[i]), py(result.Q[i][j]) }, result.Len())
		if j < len(result.Target[0]) {
			writePath(&sb, color, ` stroke-dasharray="4 3" stroke-opacity="0.6"`,
				func(i int) (float64, float64) { return px(result.Times[i]), py(result.Target[i][j]) }, result.Len())
		}
		label := fmt.Sprintf("q%d", j)
		if j < len(names) {
			label = names[j]
		}
		fmt.Fprintf(&sb, "<text x=\"%d\" y=\"12\" font-size=\"10\" font-family=\"monospace\" fill=\"%s\">%s</text>\n",
			4+j*(width/max(n, 1)), color, escape(label))
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

func writePath(sb *strings.Builder, color, extra string, at func(int) (float64, float64), n int) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5"%s d="`, color, extra)
	for i := 0; i < n; i++ {
		x, y := at(i)
		if i == 0 {
			fmt.Fprintf(sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
