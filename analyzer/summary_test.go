package analyzer_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/azielinski/bia-analyzer/analyzer"
)

// referenceMeasurement builds a measurement whose impedance samples lie
// exactly on the circle with center (300, -60) and radius sqrt(43600), so the
// fitted circle crosses the resistance axis at exactly 100 and 500 ohm.
func referenceMeasurement() *analyzer.Measurement {
	r := math.Sqrt(43600)
	freqs := []float64{5, 10, 50, 100, 200}
	angles := []float64{155, 125, 90, 55, 25}

	m := &analyzer.Measurement{
		Device:   "BIA-450",
		Stamp:    "2024-03-18 09:12:44",
		HeightCm: 182.0,
		WeightKg: 79.5,
		AgeYears: 31,
		Sex:      "M",
	}
	for i, deg := range angles {
		th := deg * math.Pi / 180
		m.Samples = append(m.Samples, analyzer.ImpedanceSample{
			FrequencyKHz:  freqs[i],
			ResistanceOhm: 300 + r*math.Cos(th),
			ReactanceOhm:  -60 + r*math.Sin(th),
		})
	}
	return m
}

func TestSummarizeReferenceValues(t *testing.T) {
	m := referenceMeasurement()

	s, err := analyzer.Summarize(m)
	if err != nil {
		t.Fatalf("Error summarizing reference measurement: %v", err)
	}

	wantBMI := 79.5 / (1.82 * 1.82)
	if math.Abs(s.BMI-wantBMI) > metricTol {
		t.Errorf("BMI = %v, want %v", s.BMI, wantBMI)
	}

	// Circle crossings at 100 and 500: Re = 500, Ri = 100*500/400 = 125.
	if math.Abs(s.ExtracellularOhm-500) > metricTol {
		t.Errorf("Re = %v, want 500", s.ExtracellularOhm)
	}
	if math.Abs(s.IntracellularOhm-125) > metricTol {
		t.Errorf("Ri = %v, want 125", s.IntracellularOhm)
	}

	// The 50 kHz sample is at the circle apex: R = 300, Xc = sqrt(43600)-60.
	if s.PhaseAngleFreqKHz != 50 {
		t.Errorf("PhaseAngleFreqKHz = %v, want 50", s.PhaseAngleFreqKHz)
	}
	wantPhase := math.Atan2(math.Sqrt(43600)-60, 300) * 180 / math.Pi
	if math.Abs(s.PhaseAngleDeg-wantPhase) > metricTol {
		t.Errorf("PhaseAngleDeg = %v, want %v", s.PhaseAngleDeg, wantPhase)
	}

	wantFFM := 0.0
	for _, smp := range m.Samples {
		wantFFM += 0.7374*(182.0*182.0)/smp.ResistanceOhm +
			0.1763*79.5 - 0.1773*31 + 0.1198*smp.ReactanceOhm - 2.4658
	}
	wantFFM /= float64(len(m.Samples))
	if math.Abs(s.FatFreeMassKg-wantFFM) > metricTol {
		t.Errorf("FatFreeMassKg = %v, want %v", s.FatFreeMassKg, wantFFM)
	}

	base := 182.0 * 182.0 * math.Sqrt(79.5)
	wantEcw := (0.188/wantBMI + 0.2883) * math.Pow(base/500, 2.0/3.0)
	wantIcw := (5.8758/wantBMI + 0.4194) * math.Pow(base/125, 2.0/3.0)
	if math.Abs(s.ExtracellularWaterL-wantEcw) > metricTol {
		t.Errorf("ECW = %v, want %v", s.ExtracellularWaterL, wantEcw)
	}
	if math.Abs(s.IntracellularWaterL-wantIcw) > metricTol {
		t.Errorf("ICW = %v, want %v", s.IntracellularWaterL, wantIcw)
	}
	if math.Abs(s.TotalBodyWaterL-(wantEcw+wantIcw)) > metricTol {
		t.Errorf("TBW = %v, want %v", s.TotalBodyWaterL, wantEcw+wantIcw)
	}

	if len(s.Samples) != len(m.Samples) {
		t.Errorf("len(s.Samples) = %d, want %d", len(s.Samples), len(m.Samples))
	}
}

func TestSummarizeDoesNotMutateMeasurement(t *testing.T) {
	m := referenceMeasurement()
	before := *m
	beforeSamples := append([]analyzer.ImpedanceSample(nil), m.Samples...)

	if _, err := analyzer.Summarize(m); err != nil {
		t.Fatalf("Error summarizing: %v", err)
	}

	if m.HeightCm != before.HeightCm || m.WeightKg != before.WeightKg ||
		m.AgeYears != before.AgeYears || m.Sex != before.Sex {
		t.Errorf("Summarize mutated the measurement header")
	}
	if !reflect.DeepEqual(m.Samples, beforeSamples) {
		t.Errorf("Summarize mutated the impedance samples")
	}
}

func TestSummarizeOutOfDomain(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m *analyzer.Measurement)
	}{
		{
			name:   "ZeroFrequency",
			mutate: func(m *analyzer.Measurement) { m.Samples[2].FrequencyKHz = 0 },
		},
		{
			name:   "ZeroResistance",
			mutate: func(m *analyzer.Measurement) { m.Samples[2].ResistanceOhm = 0 },
		},
		{
			name:   "ZeroHeight",
			mutate: func(m *analyzer.Measurement) { m.HeightCm = 0 },
		},
		{
			name:   "ZeroWeight",
			mutate: func(m *analyzer.Measurement) { m.WeightKg = 0 },
		},
		{
			name: "CollinearSamples",
			mutate: func(m *analyzer.Measurement) {
				for i := range m.Samples {
					m.Samples[i].ResistanceOhm = 100 + float64(i)
					m.Samples[i].ReactanceOhm = 50
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := referenceMeasurement()
			tc.mutate(m)

			s, err := analyzer.Summarize(m)
			var ce *analyzer.ComputationError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *ComputationError, got %v", err)
			}
			if s != nil {
				t.Errorf("Expected no partial summary on computation failure, got %+v", s)
			}
		})
	}
}

func TestSummaryRenderText(t *testing.T) {
	m := referenceMeasurement()
	s, err := analyzer.Summarize(m)
	if err != nil {
		t.Fatalf("Error summarizing: %v", err)
	}

	text, err := s.Render("text")
	if err != nil {
		t.Fatalf("Error rendering text summary: %v", err)
	}

	expected := []string{
		"Bioimpedance Analysis Summary",
		"Height",
		"Weight",
		"BMI",
		"Phase angle",
		"Cole radius",
		"Resistance Re",
		"Resistance Ri",
		"Fat-free mass",
		"Extracellular water",
		"Intracellular water",
		"Total body water",
		"Per-frequency metrics",
	}
	for _, want := range expected {
		if !strings.Contains(text, want) {
			t.Errorf("Text summary does not contain %q", want)
		}
	}
}

func TestSummaryRenderMarkdown(t *testing.T) {
	m := referenceMeasurement()
	s, err := analyzer.Summarize(m)
	if err != nil {
		t.Fatalf("Error summarizing: %v", err)
	}

	md, err := s.Render("markdown")
	if err != nil {
		t.Fatalf("Error rendering markdown summary: %v", err)
	}
	if !strings.HasPrefix(md, "```text\n") {
		t.Errorf("Markdown summary does not start with a text fence")
	}
	if !strings.Contains(md, "Total body water") {
		t.Errorf("Markdown summary does not contain the body water row")
	}
}

func TestSummaryRenderJSON(t *testing.T) {
	m := referenceMeasurement()
	s, err := analyzer.Summarize(m)
	if err != nil {
		t.Fatalf("Error summarizing: %v", err)
	}

	out, err := s.Render("json")
	if err != nil {
		t.Fatalf("Error rendering json summary: %v", err)
	}

	var decoded analyzer.Summary
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Rendered JSON does not parse: %v", err)
	}
	if math.Abs(decoded.BMI-s.BMI) > metricTol {
		t.Errorf("Decoded BMI = %v, want %v", decoded.BMI, s.BMI)
	}
	if len(decoded.Samples) != len(s.Samples) {
		t.Errorf("Decoded sample count = %d, want %d", len(decoded.Samples), len(s.Samples))
	}
}

func TestSummaryRenderUnsupportedFormat(t *testing.T) {
	m := referenceMeasurement()
	s, err := analyzer.Summarize(m)
	if err != nil {
		t.Fatalf("Error summarizing: %v", err)
	}

	if _, err := s.Render("yaml"); err == nil {
		t.Fatalf("Expected an error for an unsupported output format")
	}
}
