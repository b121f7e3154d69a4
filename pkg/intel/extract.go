package intel

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Bundle holds the de-duplicated indicator classes extracted from a
// single message. JSON field names match the dashboard contract.
type Bundle struct {
	Links          []string `json:"phishingLinks"`
	Emails         []string `json:"emails"`
	PhoneNumbers   []string `json:"phoneNumbers"`
	BankAccounts   []string `json:"bankAccounts"`
	PaymentHandles []string `json:"upiIds"`
	Keywords       []string `json:"suspiciousKeywords"`
}

// IsEmpty reports whether no indicator of any class was extracted.
func (b Bundle) IsEmpty() bool {
	return len(b.Links) == 0 && len(b.Emails) == 0 && len(b.PhoneNumbers) == 0 &&
		len(b.BankAccounts) == 0 && len(b.PaymentHandles) == 0 && len(b.Keywords) == 0
}

// Extractor runs the indicator passes with a configurable trigger
// vocabulary. The zero-cost default is DefaultTriggers.
type Extractor struct {
	triggers []string
}

// NewExtractor creates an Extractor. A nil or empty trigger list falls
// back to DefaultTriggers.
func NewExtractor(triggers []string) *Extractor {
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}
	return &Extractor{triggers: triggers}
}

// Extract runs all indicator passes over the raw text. Deterministic,
// total and side-effect-free: identical input always yields identical
// sets, and no input can make it fail.
func (e *Extractor) Extract(text string) Bundle {
	var b Bundle

	b.Links = dedupe(reLink.FindAllString(text, -1))

	b.Emails = dedupe(reEmail.FindAllString(text, -1))
	emailSet := toSet(b.Emails)

	var phones []string
	for _, m := range rePhone.FindAllString(text, -1) {
		if len(reNonDigit.ReplaceAllString(m, "")) >= 10 {
			phones = append(phones, m)
		}
	}
	b.PhoneNumbers = dedupe(phones)
	phoneSet := toSet(b.PhoneNumbers)

	// Bank-shaped digit runs minus anything already claimed as a phone.
	var banks []string
	for _, m := range reBankAccount.FindAllString(text, -1) {
		if !phoneSet[m] {
			banks = append(banks, m)
		}
	}
	b.BankAccounts = dedupe(banks)

	// Payment handles minus anything already claimed as an email. The
	// handle pattern stops at the TLD dot, so "user@gmail" carved out of
	// "user@gmail.com" counts as claimed too.
	var handles []string
	for _, m := range rePaymentHandle.FindAllString(text, -1) {
		if emailSet[m] || claimedByEmail(m, b.Emails) {
			continue
		}
		handles = append(handles, m)
	}
	b.PaymentHandles = dedupe(handles)

	lower := strings.ToLower(text)
	var hits []string
	for _, trigger := range e.triggers {
		if strings.Contains(lower, trigger) {
			hits = append(hits, trigger)
		}
	}
	b.Keywords = dedupe(hits)

	return b
}

var defaultExtractor = NewExtractor(nil)

// Extract runs the default extractor over the raw text.
func Extract(text string) Bundle {
	return defaultExtractor.Extract(text)
}

// Domain extracts the host (without port) from a link, prepending a
// default scheme when absent. Returns "" on malformed input; a missing
// domain is never an error.
func Domain(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// zero-width and BOM code points scammers use to split trigger words.
var zeroWidth = runes.Predicate(func(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Cf, r)
})

var normalizer = transform.Chain(norm.NFKC, runes.Remove(zeroWidth))

// Normalize folds the text to NFKC and strips zero-width characters so
// that confusable-unicode obfuscation ("ｖerify", "ur​gent") still
// hits the pattern passes. Returns the input unchanged if the
// transform fails.
func Normalize(text string) string {
	out, _, err := transform.String(normalizer, text)
	if err != nil {
		return text
	}
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func claimedByEmail(handle string, emails []string) bool {
	for _, e := range emails {
		if strings.HasPrefix(e, handle+".") {
			return true
		}
	}
	return false
}

func toSet(in []string) map[string]bool {
	set := make(map[string]bool, len(in))
	for _, s := range in {
		set[s] = true
	}
	return set
}
