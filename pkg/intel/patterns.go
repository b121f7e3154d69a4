// Package intel extracts structured threat indicators (phishing links,
// emails, phone numbers, bank-style numbers, payment handles, trigger
// keywords) from free-form scammer text.
//
// Design principles:
// - COMPILE ONCE: all regexes are compiled at package init, not per-message
// - TOTAL: extraction never fails; malformed input yields empty classes
// - MUTUALLY EXCLUSIVE: later passes filter against earlier ones, so a
//   token lands in exactly one indicator class
package intel

import "regexp"

var (
	// URL-shaped substrings: scheme, host charset (incl. percent escapes),
	// optional path/query.
	reLink = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+(?:/[-\w%./?&;=+]*)?`)

	// local@domain with a 2+ character TLD.
	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Digit groups with optional country code, separators, parentheses.
	// Matches are kept only when the digit-only length is >= 10.
	rePhone = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	// Bare 9-18 digit runs; bank account shaped. Runs already classified
	// as phone numbers are excluded during extraction.
	reBankAccount = regexp.MustCompile(`\b\d{9,18}\b`)

	// token@token with a broader charset than email (UPI-style handles).
	// Matches already classified as emails are excluded during extraction.
	rePaymentHandle = regexp.MustCompile(`[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}`)

	reNonDigit = regexp.MustCompile(`\D`)
)

// DefaultTriggers is the fixed vocabulary of scam-pressure keywords
// reported in the suspiciousKeywords class. Membership is a
// case-insensitive substring test, not a count.
var DefaultTriggers = []string{
	"urgent", "verify", "block", "suspend", "kyc",
	"lapse", "immediately", "refund", "winner", "lottery",
}
