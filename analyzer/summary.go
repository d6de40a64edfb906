package analyzer

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
)

// ReportFrequencyKHz is the excitation frequency the single phase angle in a
// Summary is reported at; the sample closest to it is used.
const ReportFrequencyKHz = 50.0

// Summarize derives the full set of summary metrics from a parsed
// measurement. The measurement is not modified; the returned Summary is a
// pure function of its fields. Out-of-domain inputs yield a
// *ComputationError, never NaN.
func Summarize(m *Measurement) (*Summary, error) {
	log.Printf("Summarizing measurement (%d impedance samples)", len(m.Samples))

	if err := validateSamples(m); err != nil {
		return nil, err
	}

	// --- 1. Anthropometrics ---
	bmi, err := BMI(m.HeightCm, m.WeightKg)
	if err != nil {
		return nil, err
	}

	// --- 2. Per-frequency electrical metrics ---
	samples := make([]SampleMetrics, 0, len(m.Samples))
	for _, s := range m.Samples {
		phase, err := PhaseAngleDeg(s.ResistanceOhm, s.ReactanceOhm)
		if err != nil {
			return nil, err
		}
		ratio, err := ReactanceRatio(s.ResistanceOhm, s.ReactanceOhm)
		if err != nil {
			return nil, err
		}
		samples = append(samples, SampleMetrics{
			FrequencyKHz:   s.FrequencyKHz,
			ImpedanceOhm:   ImpedanceMagnitude(s.ResistanceOhm, s.ReactanceOhm),
			PhaseAngleDeg:  phase,
			ReactanceRatio: ratio,
			ResistanceOhm:  s.ResistanceOhm,
			ReactanceOhm:   s.ReactanceOhm,
		})
	}
	report := nearestSample(samples, ReportFrequencyKHz)

	// --- 3. Cole circle fit and cell resistances ---
	fit, err := FitColeCircle(m.Samples)
	if err != nil {
		return nil, err
	}
	re, ri, err := fit.Resistances()
	if err != nil {
		return nil, err
	}

	// --- 4. Body composition ---
	ffm, err := FatFreeMass(m)
	if err != nil {
		return nil, err
	}
	ecw, icw, tbw, err := BodyWater(bmi, m.HeightCm, m.WeightKg, re, ri)
	if err != nil {
		return nil, err
	}

	return &Summary{
		HeightCm: m.HeightCm,
		WeightKg: m.WeightKg,
		AgeYears: m.AgeYears,
		Sex:      m.Sex,

		BMI: bmi,

		PhaseAngleDeg:     report.PhaseAngleDeg,
		PhaseAngleFreqKHz: report.FrequencyKHz,

		Cole: fit,

		ExtracellularOhm: re,
		IntracellularOhm: ri,

		FatFreeMassKg: ffm,

		ExtracellularWaterL: ecw,
		IntracellularWaterL: icw,
		TotalBodyWaterL:     tbw,

		Samples: samples,
	}, nil
}

// nearestSample picks the per-frequency metrics closest to the wanted
// excitation frequency. Samples is never empty here (validateSamples ran).
func nearestSample(samples []SampleMetrics, wantKHz float64) SampleMetrics {
	best := samples[0]
	bestDist := math.Abs(best.FrequencyKHz - wantKHz)
	for _, s := range samples[1:] {
		if d := math.Abs(s.FrequencyKHz - wantKHz); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

// Render formats the summary. Supported formats: "text", "markdown", "json".
func (s *Summary) Render(format string) (string, error) {
	switch format {
	case "text", "markdown":
		var b strings.Builder
		if format == "markdown" {
			b.WriteString("```text\n") // text block keeps the columns aligned
		}
		b.WriteString("Bioimpedance Analysis Summary\n")
		b.WriteString("--------------------------------------------------\n")
		writeRow(&b, "Height", FormatQuantity(s.HeightCm, "cm"))
		writeRow(&b, "Weight", FormatQuantity(s.WeightKg, "kg"))
		writeRow(&b, "Age", fmt.Sprintf("%d years", s.AgeYears))
		writeRow(&b, "Sex", s.Sex)
		writeRow(&b, "BMI", fmt.Sprintf("%.3f", s.BMI))
		b.WriteString("--------------------------------------------------\n")
		writeRow(&b, "Phase angle", fmt.Sprintf("%s at %s",
			FormatQuantity(s.PhaseAngleDeg, "deg"), FormatFrequency(s.PhaseAngleFreqKHz)))
		writeRow(&b, "Cole center", fmt.Sprintf("(%.3f, %.3f) ohm", s.Cole.CenterR, s.Cole.CenterX))
		writeRow(&b, "Cole radius", FormatQuantity(s.Cole.Radius, "ohm"))
		writeRow(&b, "Resistance Re", FormatQuantity(s.ExtracellularOhm, "ohm"))
		writeRow(&b, "Resistance Ri", FormatQuantity(s.IntracellularOhm, "ohm"))
		b.WriteString("--------------------------------------------------\n")
		writeRow(&b, "Fat-free mass", FormatQuantity(s.FatFreeMassKg, "kg"))
		writeRow(&b, "Extracellular water", FormatQuantity(s.ExtracellularWaterL, "L"))
		writeRow(&b, "Intracellular water", FormatQuantity(s.IntracellularWaterL, "L"))
		writeRow(&b, "Total body water", FormatQuantity(s.TotalBodyWaterL, "L"))

		b.WriteString("\nPer-frequency metrics\n")
		b.WriteString("--------------------------------------------------\n")
		b.WriteString(fmt.Sprintf("%-12s %-12s %-12s %-12s %s\n",
			"Freq [kHz]", "R [ohm]", "Xc [ohm]", "|Z| [ohm]", "Phase [deg]"))
		b.WriteString("--------------------------------------------------\n")
		for _, sm := range s.Samples {
			b.WriteString(fmt.Sprintf("%-12.1f %-12.3f %-12.3f %-12.3f %.3f\n",
				sm.FrequencyKHz, sm.ResistanceOhm, sm.ReactanceOhm, sm.ImpedanceOhm, sm.PhaseAngleDeg))
		}
		if format == "markdown" {
			b.WriteString("```\n")
		}
		return b.String(), nil

	case "json":
		jsonBytes, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			log.Printf("Error marshaling summary to JSON: %v", err)
			errJSON, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("failed to marshal summary to JSON: %v", err)})
			return string(errJSON), nil
		}
		return string(jsonBytes), nil

	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(fmt.Sprintf("%-25s %s\n", label, value))
}
