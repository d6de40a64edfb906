package analyzer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// Fixed row layout of the .mfu format. The patient block is bound by
// position; the label text in front of each value is vendor-localized and is
// deliberately not matched.
const (
	rowDevice = 0
	rowStamp  = 1
	rowHeight = 2
	rowWeight = 3
	rowAge    = 4
	rowSex    = 5

	// rows 6..12 are opaque vendor fields
	rowVendorFrom  = 6
	rowChannelFrom = 13
)

// ParseFile reads and parses one .mfu measurement file. Any failure (missing
// file, unreadable content, malformed layout) is reported as a *ParseError;
// a Measurement is only returned for a fully well-formed file.
func ParseFile(path string) (*Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Msg: "cannot open measurement file", Err: err}
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		// Attach the path to errors produced from the raw reader.
		var pe *ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	log.Printf("Parsed measurement file %s: %d impedance samples", path, len(m.Samples))
	return m, nil
}

// Parse parses .mfu content from a reader. See ParseFile.
func Parse(r io.Reader) (*Measurement, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Msg: "cannot read measurement content", Err: err}
	}

	lines := strings.Split(string(raw), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	if len(lines) <= rowChannelFrom {
		return nil, &ParseError{
			Msg: fmt.Sprintf("file too short: got %d rows, the channel table starts at row %d", len(lines), rowChannelFrom+1),
		}
	}

	m := &Measurement{
		Device: strings.TrimSpace(lines[rowDevice]),
		Stamp:  strings.TrimSpace(lines[rowStamp]),
	}

	// --- 1. Patient block (label value pairs, bound by row position) ---
	heightStr, err := headerValue(lines, rowHeight, "height")
	if err != nil {
		return nil, err
	}
	weightStr, err := headerValue(lines, rowWeight, "weight")
	if err != nil {
		return nil, err
	}
	ageStr, err := headerValue(lines, rowAge, "age")
	if err != nil {
		return nil, err
	}
	sexStr, err := headerValue(lines, rowSex, "sex")
	if err != nil {
		return nil, err
	}

	if m.HeightCm, err = parseNumeric(heightStr, rowHeight, "height"); err != nil {
		return nil, err
	}
	if m.WeightKg, err = parseNumeric(weightStr, rowWeight, "weight"); err != nil {
		return nil, err
	}
	age, err := strconv.Atoi(ageStr)
	if err != nil {
		return nil, &ParseError{Line: rowAge + 1, Msg: fmt.Sprintf("age value %q is not an integer", ageStr), Err: err}
	}
	m.AgeYears = age
	m.Sex = sexStr

	// --- 2. Opaque vendor rows, preserved verbatim ---
	for i := rowVendorFrom; i < rowChannelFrom; i++ {
		m.VendorFields = append(m.VendorFields, lines[i])
	}

	// --- 3. Channel table: frequency[kHz],resistance[ohm],reactance[ohm] ---
	cr := csv.NewReader(strings.NewReader(strings.Join(lines[rowChannelFrom:], "\n")))
	cr.FieldsPerRecord = -1 // row width is validated per record below
	cr.TrimLeadingSpace = true

	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("malformed channel table at sample row %d", row+1), Err: err}
		}
		row++
		if len(record) < 3 {
			return nil, &ParseError{
				Msg: fmt.Sprintf("channel table sample row %d has %d columns, expected at least 3", row, len(record)),
			}
		}

		var s ImpedanceSample
		if s.FrequencyKHz, err = parseChannelValue(record[0], row, "frequency"); err != nil {
			return nil, err
		}
		if s.ResistanceOhm, err = parseChannelValue(record[1], row, "resistance"); err != nil {
			return nil, err
		}
		if s.ReactanceOhm, err = parseChannelValue(record[2], row, "reactance"); err != nil {
			return nil, err
		}
		m.Samples = append(m.Samples, s)
	}

	if len(m.Samples) == 0 {
		return nil, &ParseError{Msg: "channel table is empty: no impedance samples"}
	}

	return m, nil
}

// headerValue extracts the value token of a `label value` header row.
func headerValue(lines []string, row int, name string) (string, error) {
	fields := strings.Fields(lines[row])
	if len(fields) < 2 {
		return "", &ParseError{
			Line: row + 1,
			Msg:  fmt.Sprintf("missing %s field: expected a label followed by a value, got %q", name, lines[row]),
		}
	}
	return fields[1], nil
}

func parseNumeric(value string, row int, name string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &ParseError{Line: row + 1, Msg: fmt.Sprintf("%s value %q is not numeric", name, value), Err: err}
	}
	return v, nil
}

func parseChannelValue(value string, row int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &ParseError{
			Msg: fmt.Sprintf("channel table sample row %d: %s value %q is not numeric", row, name, value),
			Err: err,
		}
	}
	return v, nil
}
