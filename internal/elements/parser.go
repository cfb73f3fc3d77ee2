// Package elements parses two/three-line orbital element records into
// immutable element sets.
//
// The format is the fixed-column NORAD catalog format: an optional name
// line followed by two 69-column data lines, each carrying a modulo-10
// checksum in its last column. Field positions and the checksum algorithm
// are honored bit-exactly for interoperability with public catalogs.
package elements

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

const lineLen = 69

// Parse converts one element record (optional name line plus two data
// lines) into an ElementSet. It is a pure function of its input: any
// checksum mismatch, malformed field, or out-of-range value returns a
// *ParseError and no element set.
func Parse(name, line1, line2 string) (ElementSet, error) {
	line1 = strings.TrimRight(line1, "\r\n ")
	line2 = strings.TrimRight(line2, "\r\n ")

	if err := checkLine(1, line1); err != nil {
		return ElementSet{}, err
	}
	if err := checkLine(2, line2); err != nil {
		return ElementSet{}, err
	}

	set := ElementSet{
		Name:  strings.TrimSpace(name),
		Line1: line1,
		Line2: line2,
	}

	var err error
	if set.CatalogNumber, err = fieldInt(1, line1, "catalog_number", line1[2:7]); err != nil {
		return ElementSet{}, err
	}
	cat2, err := fieldInt(2, line2, "catalog_number", line2[2:7])
	if err != nil {
		return ElementSet{}, err
	}
	if cat2 != set.CatalogNumber {
		return ElementSet{}, &ParseError{Line: line2, LineNum: 2, Field: "catalog_number",
			Reason: fmt.Sprintf("catalog number %d does not match line 1 (%d)", cat2, set.CatalogNumber)}
	}

	set.Classification = line1[7]
	set.IntlDesignator = strings.TrimSpace(line1[9:17])

	if set.Epoch, err = parseEpoch(line1, line1[18:32]); err != nil {
		return ElementSet{}, err
	}

	halfDot, err := fieldFloat(1, line1, "mean_motion_dot", line1[33:43])
	if err != nil {
		return ElementSet{}, err
	}
	set.MeanMotionDot = 2 * halfDot

	sixthDDot, err := fieldExp(1, line1, "mean_motion_ddot", line1[44:52])
	if err != nil {
		return ElementSet{}, err
	}
	set.MeanMotionDDot = 6 * sixthDDot

	if set.BStar, err = fieldExp(1, line1, "bstar", line1[53:61]); err != nil {
		return ElementSet{}, err
	}
	if set.ElementSetNumber, err = fieldInt(1, line1, "element_set_number", line1[64:68]); err != nil {
		return ElementSet{}, err
	}

	if set.InclinationDeg, err = fieldFloat(2, line2, "inclination", line2[8:16]); err != nil {
		return ElementSet{}, err
	}
	if set.RAANDeg, err = fieldFloat(2, line2, "raan", line2[17:25]); err != nil {
		return ElementSet{}, err
	}
	if set.Eccentricity, err = fieldAssumedDecimal(2, line2, "eccentricity", line2[26:33]); err != nil {
		return ElementSet{}, err
	}
	if set.ArgPerigeeDeg, err = fieldFloat(2, line2, "arg_perigee", line2[34:42]); err != nil {
		return ElementSet{}, err
	}
	if set.MeanAnomalyDeg, err = fieldFloat(2, line2, "mean_anomaly", line2[43:51]); err != nil {
		return ElementSet{}, err
	}
	if set.MeanMotion, err = fieldFloat(2, line2, "mean_motion", line2[52:63]); err != nil {
		return ElementSet{}, err
	}
	if set.RevolutionNumber, err = fieldInt(2, line2, "revolution_number", line2[63:68]); err != nil {
		return ElementSet{}, err
	}

	if err := validateRanges(set, line2); err != nil {
		return ElementSet{}, err
	}
	return set, nil
}

// ParseCatalog reads a stream of element records, skipping records that
// fail to parse with a warning. The only non-nil error is a read failure;
// per-record failures never abort the stream.
func ParseCatalog(r io.Reader, logger *slog.Logger) ([]ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading element data: %w", err)
	}

	var sets []ElementSet
	for i := 0; i < len(lines); {
		name := ""
		if !isDataLine(lines[i], '1') {
			name = lines[i]
			i++
			if i >= len(lines) {
				break
			}
		}
		if i+1 >= len(lines) || !isDataLine(lines[i], '1') || !isDataLine(lines[i+1], '2') {
			logger.Warn("skipping malformed element record", "line_index", i, "name", name)
			i++
			continue
		}

		set, err := Parse(name, lines[i], lines[i+1])
		if err != nil {
			logger.Warn("skipping unparseable element record", "name", name, "error", err)
			i += 2
			continue
		}
		sets = append(sets, set)
		i += 2
	}

	return sets, nil
}

func isDataLine(line string, num byte) bool {
	return len(line) >= 2 && line[0] == num && line[1] == ' '
}

// checkLine validates structure and checksum of one data line. The checksum
// is the modulo-10 sum of columns 1-68 where digits add their value and
// minus signs add 1.
func checkLine(num int, line string) error {
	if len(line) < lineLen {
		return &ParseError{Line: line, LineNum: num,
			Reason: fmt.Sprintf("line is %d columns, need %d", len(line), lineLen)}
	}
	want := byte('0' + num)
	if line[0] != want || line[1] != ' ' {
		return &ParseError{Line: line, LineNum: num,
			Reason: fmt.Sprintf("line must start with %q", string(want)+" ")}
	}

	sum := 0
	for _, ch := range []byte(line[:lineLen-1]) {
		switch {
		case ch >= '0' && ch <= '9':
			sum += int(ch - '0')
		case ch == '-':
			sum++
		}
	}
	stated := line[lineLen-1]
	if stated < '0' || stated > '9' {
		return &ParseError{Line: line, LineNum: num, Field: "checksum",
			Reason: fmt.Sprintf("checksum column is %q, not a digit", stated)}
	}
	if computed := byte('0' + sum%10); computed != stated {
		return &ParseError{Line: line, LineNum: num, Field: "checksum",
			Reason: fmt.Sprintf("checksum mismatch: computed %c, line states %c", computed, stated)}
	}
	return nil
}

func validateRanges(set ElementSet, line2 string) error {
	fail := func(field, reason string) error {
		return &ParseError{Line: line2, LineNum: 2, Field: field, Reason: reason}
	}
	if set.Eccentricity < 0 || set.Eccentricity >= 1 {
		return fail("eccentricity", fmt.Sprintf("eccentricity %g outside [0, 1)", set.Eccentricity))
	}
	if set.InclinationDeg < 0 || set.InclinationDeg > 180 {
		return fail("inclination", fmt.Sprintf("inclination %g° outside [0°, 180°]", set.InclinationDeg))
	}
	if set.MeanMotion <= 0 {
		return fail("mean_motion", fmt.Sprintf("mean motion %g rev/day must be positive", set.MeanMotion))
	}
	return nil
}

func fieldInt(num int, line, field, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ParseError{Line: line, LineNum: num, Field: field,
			Reason: fmt.Sprintf("invalid integer %q", strings.TrimSpace(s))}
	}
	return v, nil
}

func fieldFloat(num int, line, field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Line: line, LineNum: num, Field: field,
			Reason: fmt.Sprintf("invalid number %q", strings.TrimSpace(s))}
	}
	return v, nil
}

// fieldAssumedDecimal decodes a field with an assumed leading decimal point,
// e.g. "0006000" → 0.0006.
func fieldAssumedDecimal(num int, line, field, s string) (float64, error) {
	return fieldFloat(num, line, field, "."+strings.TrimSpace(s))
}

// fieldExp decodes the catalog's compact exponent notation, e.g.
// " 10270-3" → 0.10270e-3 and "-11606-4" → -0.11606e-4.
func fieldExp(num int, line, field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	mantSign := 1.0
	switch s[0] {
	case '-':
		mantSign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	// Last two characters are the exponent sign and digit.
	if len(s) < 3 {
		return 0, &ParseError{Line: line, LineNum: num, Field: field,
			Reason: fmt.Sprintf("exponent field %q too short", s)}
	}
	mant, err := strconv.ParseFloat("."+s[:len(s)-2], 64)
	if err != nil {
		return 0, &ParseError{Line: line, LineNum: num, Field: field,
			Reason: fmt.Sprintf("invalid mantissa in %q", s)}
	}
	exp, err := strconv.Atoi(s[len(s)-2:])
	if err != nil {
		return 0, &ParseError{Line: line, LineNum: num, Field: field,
			Reason: fmt.Sprintf("invalid exponent in %q", s)}
	}
	return mantSign * mant * math.Pow(10, float64(exp)), nil
}

// parseEpoch converts the YYDDD.DDDDDDDD epoch field to UTC with
// sub-second resolution. Years 57-99 pivot to the 1900s, 00-56 to the 2000s.
func parseEpoch(line, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return time.Time{}, &ParseError{Line: line, LineNum: 1, Field: "epoch",
			Reason: fmt.Sprintf("epoch %q too short", s)}
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, &ParseError{Line: line, LineNum: 1, Field: "epoch",
			Reason: fmt.Sprintf("invalid epoch year in %q", s)}
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil || dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, &ParseError{Line: line, LineNum: 1, Field: "epoch",
			Reason: fmt.Sprintf("invalid epoch day in %q", s)}
	}

	// Day 1 is January 1. The fractional day carries through as
	// nanoseconds; the epoch is never truncated to whole seconds.
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * 24 * float64(time.Hour))), nil
}
