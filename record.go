package kwpdf

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// RecordID identifies one land-register entry, written CCCC/NNNNNNNN/D:
// a four character court department code, an eight digit number and a
// control digit.
type RecordID struct {
	Court  string
	Number string
	Check  string
}

var recordPattern = regexp.MustCompile(`^([A-Z0-9]{4})/([0-9]{8})/([0-9])$`)

// ParseRecordID parses an identifier such as "WA2M/00436586/7". Surrounding
// space is ignored and letters are upper-cased. The control digit is not
// checked; see [RecordID.Verify].
func ParseRecordID(s string) (RecordID, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	m := recordPattern.FindStringSubmatch(norm)
	if m == nil {
		return RecordID{}, fmt.Errorf("%w: %q", ErrInvalidRecordID, s)
	}
	return RecordID{Court: m[1], Number: m[2], Check: m[3]}, nil
}

// String formats the identifier as CCCC/NNNNNNNN/D.
func (r RecordID) String() string {
	return r.Court + "/" + r.Number + "/" + r.Check
}

// FileName returns the PDF file name for the record, e.g.
// "WA2M_00436586_7.pdf".
func (r RecordID) FileName() string {
	return SafeFileName(r.String()) + ".pdf"
}

// Verify checks the control digit against the court code and number.
func (r RecordID) Verify() error {
	want, err := ControlDigit(r.Court, r.Number)
	if err != nil {
		return err
	}
	if strconv.Itoa(want) != r.Check {
		return fmt.Errorf("%w: %s should end in %d", ErrControlDigit, r, want)
	}
	return nil
}

// SafeFileName replaces every rune that is not an ASCII letter or digit
// with an underscore.
func SafeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, s)
}

// Control digit weights, repeated over the court code and number.
var checkWeights = [...]int{1, 3, 7}

// checkValue maps register characters to their control-sum values.
// Q and V never appear in court codes and have no value.
func checkValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r == 'X':
		return 10, true
	}
	const letters = "ABCDEFGHIJKLMNOPRSTUWYZ"
	if i := strings.IndexRune(letters, r); i >= 0 {
		return 11 + i, true
	}
	return 0, false
}

// ControlDigit computes the control digit of a register number: each of
// the twelve characters of court code and number is weighted 1, 3, 7, 1, ...
// and the digit is the weighted sum modulo 10.
func ControlDigit(court, number string) (int, error) {
	if len(court) != 4 || len(number) != 8 {
		return 0, fmt.Errorf("%w: %q/%q must be 4 and 8 characters long", ErrInvalidRecordID, court, number)
	}
	sum := 0
	for i, r := range strings.ToUpper(court + number) {
		v, ok := checkValue(r)
		if !ok {
			return 0, fmt.Errorf("%w: invalid character %q", ErrInvalidRecordID, r)
		}
		sum += v * checkWeights[i%len(checkWeights)]
	}
	return sum % 10, nil
}

// RecordRange yields the records of one court with numbers from through to
// inclusive, each with its computed control digit. Numbers that do not fit
// in eight digits end the sequence.
func RecordRange(court string, from, to int) iter.Seq[RecordID] {
	court = strings.ToUpper(court)
	return func(yield func(RecordID) bool) {
		for n := max(from, 0); n <= to && n <= 99999999; n++ {
			number := fmt.Sprintf("%08d", n)
			digit, err := ControlDigit(court, number)
			if err != nil {
				return
			}
			if !yield(RecordID{Court: court, Number: number, Check: strconv.Itoa(digit)}) {
				return
			}
		}
	}
}
