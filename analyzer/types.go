package analyzer

import "fmt"

// --- Input data model ---

// ImpedanceSample is one row of the .mfu channel table: the complex impedance
// reading at a single excitation frequency.
type ImpedanceSample struct {
	FrequencyKHz  float64 `json:"frequencyKHz"`
	ResistanceOhm float64 `json:"resistanceOhm"`
	ReactanceOhm  float64 `json:"reactanceOhm"`
}

// Measurement is the parsed contents of exactly one .mfu file. It is built
// once by Parse/ParseFile and never mutated afterwards.
type Measurement struct {
	Device string `json:"device"` // row 0, opaque vendor identifier
	Stamp  string `json:"stamp"`  // row 1, opaque acquisition stamp

	HeightCm float64 `json:"heightCm"`
	WeightKg float64 `json:"weightKg"`
	AgeYears int     `json:"ageYears"`
	Sex      string  `json:"sex"` // stored verbatim ("M"/"F" on known devices)

	// VendorFields preserves the uninterpreted header rows between the
	// patient block and the channel table.
	VendorFields []string `json:"vendorFields,omitempty"`

	Samples []ImpedanceSample `json:"samples"`
}

// --- Output data model (JSON) ---

// SampleMetrics carries the per-frequency electrical metrics derived from a
// single impedance sample.
type SampleMetrics struct {
	FrequencyKHz   float64 `json:"frequencyKHz"`
	ImpedanceOhm   float64 `json:"impedanceOhm"`   // |Z| = sqrt(R^2 + Xc^2)
	PhaseAngleDeg  float64 `json:"phaseAngleDeg"`  // atan2(Xc, R) in degrees
	ReactanceRatio float64 `json:"reactanceRatio"` // Xc / R
	ResistanceOhm  float64 `json:"resistanceOhm"`
	ReactanceOhm   float64 `json:"reactanceOhm"`
}

// ColeFit is the circle fitted to the (resistance, reactance) cloud. The
// center is expressed in the impedance plane (real part, imaginary part).
type ColeFit struct {
	CenterR    float64 `json:"centerR"`
	CenterX    float64 `json:"centerX"`
	Radius     float64 `json:"radius"`
	Iterations int     `json:"iterations"` // Gauss-Newton refinement steps used
}

// Summary is the full analysis result for one Measurement. Immutable once
// produced by Summarize.
type Summary struct {
	HeightCm float64 `json:"heightCm"`
	WeightKg float64 `json:"weightKg"`
	AgeYears int     `json:"ageYears"`
	Sex      string  `json:"sex"`

	BMI float64 `json:"bmi"`

	// PhaseAngleDeg is reported at the sample closest to 50 kHz, the
	// conventional single-frequency BIA reporting point.
	PhaseAngleDeg     float64 `json:"phaseAngleDeg"`
	PhaseAngleFreqKHz float64 `json:"phaseAngleFreqKHz"`

	Cole ColeFit `json:"cole"`

	ExtracellularOhm float64 `json:"extracellularOhm"` // Re
	IntracellularOhm float64 `json:"intracellularOhm"` // Ri

	FatFreeMassKg float64 `json:"fatFreeMassKg"`

	ExtracellularWaterL float64 `json:"extracellularWaterL"`
	IntracellularWaterL float64 `json:"intracellularWaterL"`
	TotalBodyWaterL     float64 `json:"totalBodyWaterL"`

	Samples []SampleMetrics `json:"samples"`
}

// ErrorResult is used to report an error inside a JSON payload.
type ErrorResult struct {
	Error string `json:"error"`
}

// --- Error kinds ---

// ParseError reports a missing, unreadable or malformed input file. It is
// terminal: a malformed file never yields a partial Measurement.
type ParseError struct {
	Path string // input path, may be empty when parsing a plain reader
	Line int    // 1-based line number, 0 when not tied to a line
	Msg  string
	Err  error // underlying cause, if any
}

func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "input"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", where, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ComputationError reports an out-of-domain input to one of the published
// formulas (zero denominator, negative square root operand, degenerate fit).
// Formulas fail with it instead of producing NaN or silently wrong values.
type ComputationError struct {
	Metric string // which derived quantity could not be computed
	Msg    string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("compute %s: %s", e.Metric, e.Msg)
}
