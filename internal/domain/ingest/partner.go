package ingest

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// partnerKeywords in priority order: when a status somehow mentions both,
// FLASH wins.
var partnerKeywords = []string{"FLASH", "INTERLOG"}

var partnerByKeyword = []Partner{PartnerFlash, PartnerInterlog}

// PartnerClassifier derives the fulfillment partner from a free-text status
// using a pre-built multi-pattern matcher, so adding partner keywords stays
// a single-pass scan regardless of dictionary size.
type PartnerClassifier struct {
	matcher *ahocorasick.Matcher
}

func NewPartnerClassifier() *PartnerClassifier {
	return &PartnerClassifier{matcher: ahocorasick.NewStringMatcher(partnerKeywords)}
}

// Classify maps a raw status cell to a Partner. Absent or non-string input
// is DESCONHECIDO; any other non-empty text without a known keyword is OUTRO.
func (c *PartnerClassifier) Classify(status RawCell) Partner {
	s, ok := status.(string)
	if !ok || s == "" {
		return PartnerDesconhecido
	}
	hits := c.matcher.Match([]byte(strings.ToUpper(s)))
	if len(hits) > 0 {
		best := hits[0]
		for _, h := range hits[1:] {
			if h < best {
				best = h
			}
		}
		return partnerByKeyword[best]
	}
	return PartnerOutro
}

var defaultClassifier = NewPartnerClassifier()

// DerivePartner classifies with the package-level default dictionary.
func DerivePartner(status RawCell) Partner {
	return defaultClassifier.Classify(status)
}
