package analyzer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Body-composition regression constants.
//
// FFM: Kyle et al., multifrequency BIA fat-free mass regression.
// ECW/ICW: BMI-scaled volume model (Int J Environ Res Public Health 17:9433).
const (
	ffmResistivity = 0.7374
	ffmWeightCoef  = 0.1763
	ffmAgeCoef     = 0.1773
	ffmReactCoef   = 0.1198
	ffmIntercept   = 2.4658

	ecwBMICoef = 0.188
	ecwBase    = 0.2883
	icwBMICoef = 5.8758
	icwBase    = 0.4194
)

// BMI computes the body mass index from height [cm] and weight [kg].
func BMI(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 {
		return 0, &ComputationError{Metric: "bmi", Msg: fmt.Sprintf("height must be positive, got %.3f cm", heightCm)}
	}
	if weightKg <= 0 {
		return 0, &ComputationError{Metric: "bmi", Msg: fmt.Sprintf("weight must be positive, got %.3f kg", weightKg)}
	}
	hm := heightCm / 100
	return weightKg / (hm * hm), nil
}

// ImpedanceMagnitude returns |Z| for one sample.
func ImpedanceMagnitude(resistance, reactance float64) float64 {
	return math.Hypot(resistance, reactance)
}

// PhaseAngleDeg returns the phase angle atan2(Xc, R) in degrees.
func PhaseAngleDeg(resistance, reactance float64) (float64, error) {
	if resistance == 0 {
		return 0, &ComputationError{Metric: "phase angle", Msg: "zero resistance"}
	}
	return math.Atan2(reactance, resistance) * 180 / math.Pi, nil
}

// ReactanceRatio returns Xc/R for one sample.
func ReactanceRatio(resistance, reactance float64) (float64, error) {
	if resistance == 0 {
		return 0, &ComputationError{Metric: "reactance ratio", Msg: "zero resistance denominator"}
	}
	return reactance / resistance, nil
}

// FatFreeMass evaluates the FFM regression at every sample and returns the
// mean estimate in kg.
func FatFreeMass(m *Measurement) (float64, error) {
	if len(m.Samples) == 0 {
		return 0, &ComputationError{Metric: "fat-free mass", Msg: "no impedance samples"}
	}
	vals := make([]float64, 0, len(m.Samples))
	for i, s := range m.Samples {
		if s.ResistanceOhm == 0 {
			return 0, &ComputationError{
				Metric: "fat-free mass",
				Msg:    fmt.Sprintf("sample %d has zero resistance in the denominator", i+1),
			}
		}
		v := ffmResistivity*(m.HeightCm*m.HeightCm)/s.ResistanceOhm +
			ffmWeightCoef*m.WeightKg -
			ffmAgeCoef*float64(m.AgeYears) +
			ffmReactCoef*s.ReactanceOhm -
			ffmIntercept
		vals = append(vals, v)
	}
	return stat.Mean(vals, nil), nil
}

// BodyWater computes the extracellular, intracellular and total body water
// volumes in liters from the BMI-scaled model. re and ri are the resistances
// derived from the Cole fit.
func BodyWater(bmi, heightCm, weightKg, re, ri float64) (ecw, icw, tbw float64, err error) {
	if bmi <= 0 {
		return 0, 0, 0, &ComputationError{Metric: "body water", Msg: "zero BMI denominator"}
	}
	if weightKg < 0 {
		return 0, 0, 0, &ComputationError{Metric: "body water", Msg: "negative weight under square root"}
	}
	if re <= 0 || ri <= 0 {
		return 0, 0, 0, &ComputationError{
			Metric: "body water",
			Msg:    fmt.Sprintf("resistances must be positive, got Re=%.3f Ri=%.3f", re, ri),
		}
	}

	kEcw := ecwBMICoef/bmi + ecwBase
	kIcw := icwBMICoef/bmi + icwBase
	base := heightCm * heightCm * math.Sqrt(weightKg)

	ecw = kEcw * math.Pow(base/re, 2.0/3.0)
	icw = kIcw * math.Pow(base/ri, 2.0/3.0)
	return ecw, icw, ecw + icw, nil
}

// validateSamples rejects measurements whose channel table cannot feed the
// formulas: every sample needs a positive frequency and resistance.
func validateSamples(m *Measurement) error {
	for i, s := range m.Samples {
		if s.FrequencyKHz <= 0 {
			return &ComputationError{
				Metric: "sample validation",
				Msg:    fmt.Sprintf("sample %d has non-positive frequency %.3f kHz", i+1, s.FrequencyKHz),
			}
		}
		if s.ResistanceOhm <= 0 {
			return &ComputationError{
				Metric: "sample validation",
				Msg:    fmt.Sprintf("sample %d has non-positive resistance %.3f ohm", i+1, s.ResistanceOhm),
			}
		}
	}
	return nil
}
