package analyzer

import (
	"fmt"
	"image/color"
	"log"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderColePlot draws the measurement's (resistance, reactance) scatter
// together with the fitted Cole circle and writes the image to outputPath.
// The format follows the file extension (.png, .svg, .pdf, ...). The axes are
// forced to a common scale so the circle is not distorted.
func RenderColePlot(m *Measurement, fit ColeFit, outputPath string) error {
	p := plot.New()
	p.Title.Text = "Cole Plot"
	p.X.Label.Text = "Resistance [ohm]"
	p.Y.Label.Text = "Reactance [ohm]"
	p.Add(plotter.NewGrid())

	// --- 1. Impedance sample scatter ---
	pts := make(plotter.XYs, len(m.Samples))
	for i, s := range m.Samples {
		pts[i].X = s.ResistanceOhm
		pts[i].Y = s.ReactanceOhm
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to build impedance scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("impedance samples", scatter)

	// --- 2. Fitted circle as a closed polyline ---
	circle := make(plotter.XYs, 0, 361)
	for deg := 0; deg <= 360; deg++ {
		th := float64(deg) * math.Pi / 180
		circle = append(circle, plotter.XY{
			X: fit.CenterR + fit.Radius*math.Cos(th),
			Y: fit.CenterX + fit.Radius*math.Sin(th),
		})
	}
	line, err := plotter.NewLine(circle)
	if err != nil {
		return fmt.Errorf("failed to build fitted circle: %w", err)
	}
	line.Color = color.RGBA{R: 0xcc, A: 0xff}
	p.Add(line)
	p.Legend.Add("fitted circle", line)

	// --- 3. Equal axis scaling ---
	xMin, xMax := fit.CenterR-fit.Radius, fit.CenterR+fit.Radius
	yMin, yMax := fit.CenterX-fit.Radius, fit.CenterX+fit.Radius
	for _, pt := range pts {
		xMin = math.Min(xMin, pt.X)
		xMax = math.Max(xMax, pt.X)
		yMin = math.Min(yMin, pt.Y)
		yMax = math.Max(yMax, pt.Y)
	}
	span := math.Max(xMax-xMin, yMax-yMin) * 1.05
	if span <= 0 {
		span = 1
	}
	xMid := (xMin + xMax) / 2
	yMid := (yMin + yMax) / 2
	p.X.Min, p.X.Max = xMid-span/2, xMid+span/2
	p.Y.Min, p.Y.Max = yMid-span/2, yMid+span/2

	if err := p.Save(8*vg.Inch, 8*vg.Inch, outputPath); err != nil {
		return fmt.Errorf("failed to save cole plot to '%s': %w", outputPath, err)
	}
	log.Printf("Cole plot written to %s", outputPath)
	return nil
}
