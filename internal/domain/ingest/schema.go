package ingest

import (
	"slices"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ExpectedSchema is the set of headers a sheet must contain, in display
// order. Presence is required; position within the file is not.
type ExpectedSchema []string

// Expected header sets for the two workbook sheets. These are the exact
// normalized forms the validator compares against.
var (
	StockSchema = ExpectedSchema{"CONTRATO", "UF", "DATA", "STATUS CAPITAL", "REENVIO"}
	CostSchema  = ExpectedSchema{"UF", "MEDIA DE VALORES"}
)

// HeaderIndexMap maps each expected header (normalized form) to its
// zero-based column position in the actual file.
type HeaderIndexMap map[string]int

// ValidateHeaders checks a file's header row against an expected schema,
// matching on normalized identity. It returns the column index of each
// expected header, or a SchemaError listing every missing header at once.
//
// Duplicate column names in the source are not disambiguated: the first
// occurrence wins, which is how a position lookup behaves. Intentional or
// not in the source files we receive, it is the contract callers rely on.
func ValidateHeaders(fileHeader []RawCell, expected ExpectedSchema, sheet string) (HeaderIndexMap, error) {
	normalized := make([]string, len(fileHeader))
	for i, h := range fileHeader {
		normalized[i] = NormalizeHeader(h)
	}

	indexes := make(HeaderIndexMap, len(expected))
	var missing []string
	for _, want := range expected {
		key := NormalizeHeader(want)
		pos := slices.Index(normalized, key)
		if pos < 0 {
			missing = append(missing, want)
			continue
		}
		indexes[key] = pos
	}

	if len(missing) > 0 {
		return nil, &SchemaError{
			Sheet:       sheet,
			Missing:     missing,
			Expected:    expected,
			Suggestions: suggestHeaders(missing, normalized),
		}
	}
	return indexes, nil
}

// maxSuggestionDistance is how many edits away a file header may be to still
// count as a plausible slip of the expected one.
const maxSuggestionDistance = 3

// suggestHeaders pairs each missing header with the closest header actually
// present, so the error can point at an accent or spelling slip instead of
// leaving the user to diff the file by eye. Plain edit distance is used here
// rather than subsequence matching: a dropped letter ("CAPTAL") must still
// count as close to "CAPITAL".
func suggestHeaders(missing []string, present []string) map[string]string {
	suggestions := make(map[string]string)
	for _, m := range missing {
		want := NormalizeHeader(m)
		best := ""
		bestDist := maxSuggestionDistance + 1
		for _, p := range present {
			if p == "" {
				continue
			}
			if d := fuzzy.LevenshteinDistance(want, p); d < bestDist {
				best, bestDist = p, d
			}
		}
		if best != "" {
			suggestions[m] = best
		}
	}
	if len(suggestions) == 0 {
		return nil
	}
	return suggestions
}
