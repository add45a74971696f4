// Package profile persists test configurations: named, user-owned
// bundles of substitution values for one test identity/environment.
package profile

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned when a configuration does not exist or is not
// visible to the caller. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("test configuration not found")

// versionPattern is the required <STANDARD>v<VERSION> form, e.g. OBPv4.1.0.
var versionPattern = regexp.MustCompile(`^([A-Z]+)v(\d+(?:\.\d+)*)$`)

// TestConfiguration is one named bundle of substitution values.
type TestConfiguration struct {
	ID    int64
	Name  string
	Owner string // immutable after creation

	APIVersion        string
	ResourceDocParams string

	Username         string
	UserID           string
	ProviderID       string
	CustomerID       string
	BankID           string
	BranchID         string
	ATMID            string
	AccountID        string
	OtherAccountID   string
	ViewID           string
	TransactionID    string
	CounterpartyID   string
	FromCurrencyCode string
	ToCurrencyCode   string
	ProductCode      string
	MeetingID        string
	ConsumerID       string
}

// Validate checks the invariants that hold for every stored
// configuration. standards is the allow-listed set of API standards.
func (tc *TestConfiguration) Validate(standards []string) error {
	if tc.Name == "" {
		return errors.New("name is required")
	}
	if tc.Owner == "" {
		return errors.New("owner is required")
	}
	m := versionPattern.FindStringSubmatch(tc.APIVersion)
	if m == nil {
		return fmt.Errorf("api version %q does not match <STANDARD>v<VERSION>", tc.APIVersion)
	}
	for _, std := range standards {
		if m[1] == std {
			return nil
		}
	}
	return fmt.Errorf("api standard %q is not allowed", m[1])
}

// TokenValues maps substitution tokens onto this configuration's values.
// Empty values stay in the map; the resolver applies its defaults.
func (tc *TestConfiguration) TokenValues() map[string]string {
	return map[string]string{
		"API_VERSION":        tc.APIVersion,
		"USERNAME":           tc.Username,
		"USER_ID":            tc.UserID,
		"PROVIDER_ID":        tc.ProviderID,
		"CUSTOMER_ID":        tc.CustomerID,
		"BANK_ID":            tc.BankID,
		"BRANCH_ID":          tc.BranchID,
		"ATM_ID":             tc.ATMID,
		"OTHER_ACCOUNT_ID":   tc.OtherAccountID,
		"ACCOUNT_ID":         tc.AccountID,
		"VIEW_ID":            tc.ViewID,
		"TRANSACTION_ID":     tc.TransactionID,
		"COUNTERPARTY_ID":    tc.CounterpartyID,
		"FROM_CURRENCY_CODE": tc.FromCurrencyCode,
		"TO_CURRENCY_CODE":   tc.ToCurrencyCode,
		"PRODUCT_CODE":       tc.ProductCode,
		"MEETING_ID":         tc.MeetingID,
		"CONSUMER_ID":        tc.ConsumerID,
	}
}

// AttributeValues maps schema field names onto this configuration's
// values, for pre-filling synthesized request bodies. Only non-empty
// values are included.
func (tc *TestConfiguration) AttributeValues() map[string]string {
	all := map[string]string{
		"username":           tc.Username,
		"user_id":            tc.UserID,
		"provider_id":        tc.ProviderID,
		"customer_id":        tc.CustomerID,
		"bank_id":            tc.BankID,
		"branch_id":          tc.BranchID,
		"atm_id":             tc.ATMID,
		"account_id":         tc.AccountID,
		"other_account_id":   tc.OtherAccountID,
		"view_id":            tc.ViewID,
		"transaction_id":     tc.TransactionID,
		"counterparty_id":    tc.CounterpartyID,
		"from_currency_code": tc.FromCurrencyCode,
		"to_currency_code":   tc.ToCurrencyCode,
		"product_code":       tc.ProductCode,
		"meeting_id":         tc.MeetingID,
		"consumer_id":        tc.ConsumerID,
	}
	attrs := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			attrs[k] = v
		}
	}
	return attrs
}
