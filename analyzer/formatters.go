package analyzer

import "fmt"

// FormatQuantity renders a measured or derived value with its unit, using the
// three-decimal precision the device reports at.
func FormatQuantity(value float64, unit string) string {
	return fmt.Sprintf("%.3f %s", value, unit)
}

// FormatFrequency renders an excitation frequency. Whole-kHz frequencies are
// shown without a fraction.
func FormatFrequency(kHz float64) string {
	if kHz == float64(int64(kHz)) {
		return fmt.Sprintf("%d kHz", int64(kHz))
	}
	return fmt.Sprintf("%.1f kHz", kHz)
}
