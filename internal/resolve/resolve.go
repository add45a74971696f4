// Package resolve rewrites description path templates and synthesizes
// JSON request bodies from a test configuration's substitution values.
package resolve

import "strings"

// tokens is the fixed substitution order. More specific tokens come
// before tokens they contain as a substring (OTHER_ACCOUNT_ID before
// ACCOUNT_ID), otherwise an earlier replacement would corrupt them.
var tokens = []string{
	"API_VERSION",
	"USERNAME",
	"USER_ID",
	"PROVIDER_ID",
	"CUSTOMER_ID",
	"BANK_ID",
	"BRANCH_ID",
	"ATM_ID",
	"OTHER_ACCOUNT_ID",
	"ACCOUNT_ID",
	"VIEW_ID",
	"TRANSACTION_ID",
	"COUNTERPARTY_ID",
	"FROM_CURRENCY_CODE",
	"TO_CURRENCY_CODE",
	"PRODUCT_CODE",
	"MEETING_ID",
	"CONSUMER_ID",
}

// defaults holds the positional fallback for each token, used when the
// configuration has no value for it.
var defaults = []string{
	"v4.0.0",     // API_VERSION
	"felixsmith", // USERNAME
	"1",          // USER_ID
	"1",          // PROVIDER_ID
	"1",          // CUSTOMER_ID
	"gh.29.uk",   // BANK_ID
	"1",          // BRANCH_ID
	"1",          // ATM_ID
	"2",          // OTHER_ACCOUNT_ID
	"1",          // ACCOUNT_ID
	"owner",      // VIEW_ID
	"1",          // TRANSACTION_ID
	"1",          // COUNTERPARTY_ID
	"EUR",        // FROM_CURRENCY_CODE
	"USD",        // TO_CURRENCY_CODE
	"1",          // PRODUCT_CODE
	"1",          // MEETING_ID
	"1",          // CONSUMER_ID
}

// Tokens returns the substitution tokens in their declared order.
func Tokens() []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}

// Path substitutes every known token in a path template. values is keyed
// by token name; an empty or missing value falls back to the token's
// positional default. Both the brace-delimited and the bare form are
// replaced. Resolving an already-resolved path is a no-op.
func Path(template string, values map[string]string) string {
	resolved := template
	for i, token := range tokens {
		value := values[token]
		if value == "" {
			value = defaults[i]
		}
		resolved = strings.ReplaceAll(resolved, "{"+token+"}", value)
		resolved = strings.ReplaceAll(resolved, token, value)
	}
	return resolved
}
