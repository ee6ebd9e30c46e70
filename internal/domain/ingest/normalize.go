package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes the combining marks
// (Unicode category Mn), so "Média" and "MEDIA" normalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader canonicalizes a raw header for schema comparison:
// diacritics stripped, upper-cased, trimmed. Non-string input yields "".
// The function is pure, total and idempotent.
func NormalizeHeader(cell RawCell) string {
	s, ok := cell.(string)
	if !ok {
		return ""
	}
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}

// ParseCurrency converts a raw cell into a monetary value. Numeric cells pass
// through unchanged; strings are cleaned of the "R$" prefix and Brazilian
// separators ("1.234,56") and parsed exactly via decimal. Every failure path
// returns nil; the function never panics.
func ParseCurrency(cell RawCell) *float64 {
	switch v := cell.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(v) {
			return nil
		}
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimPrefix(s, "R$")
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
		s = strings.TrimSpace(s)
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		f := d.InexactFloat64()
		return &f
	default:
		return nil
	}
}

// excelEpoch is the day-zero of spreadsheet serial dates. 1899-12-30 absorbs
// the format's historical leap-year quirk, so plain day arithmetic from here
// matches what spreadsheet applications display.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const canonicalDateLayout = "2006-01-02"

// ParseDate converts a raw cell into a canonical "YYYY-MM-DD" string, or ""
// when the value has no recognizable date shape. All formatting uses UTC
// calendar fields: inputs are calendar dates without time-of-day meaning,
// and local-zone formatting would shift them by a day on non-UTC hosts.
func ParseDate(cell RawCell) string {
	switch v := cell.(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(canonicalDateLayout)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		ms := int64(v * 86_400_000)
		return excelEpoch.Add(time.Duration(ms) * time.Millisecond).UTC().Format(canonicalDateLayout)
	case int:
		return ParseDate(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if isoDatePattern.MatchString(s) {
			return s
		}
		t, err := time.Parse(time.RFC3339, s+"T00:00:00Z")
		if err != nil {
			return ""
		}
		return t.UTC().Format(canonicalDateLayout)
	default:
		return ""
	}
}

// ParseCount reads a non-negative integer count from a raw cell. Anything
// non-numeric counts as zero and is never propagated as an error.
func ParseCount(cell RawCell) int {
	switch v := cell.(type) {
	case float64:
		if math.IsNaN(v) || v < 0 {
			return 0
		}
		return int(v)
	case int:
		if v < 0 {
			return 0
		}
		return v
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			if n < 0 {
				return 0
			}
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}

// FormatUF normalizes a region code: upper-cased, trimmed and truncated to
// two characters, defending against stray codes longer than a UF.
func FormatUF(cell RawCell) string {
	s := CellString(cell)
	s = strings.TrimSpace(strings.ToUpper(s))
	if utf8.RuneCountInString(s) > 2 {
		rs := []rune(s)
		s = string(rs[:2])
	}
	return s
}

// CellString renders a raw cell as a string; nil yields "". Numeric cells
// print without a trailing ".0" so contract numbers round-trip cleanly.
func CellString(cell RawCell) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case time.Time:
		return v.UTC().Format(canonicalDateLayout)
	default:
		return ""
	}
}
