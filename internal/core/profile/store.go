package profile

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store manages test configuration persistence. Every read and write is
// owner-scoped: rows belonging to other owners behave as if they do not
// exist.
type Store struct {
	db *sql.DB
}

// NewStore creates a store at the given sqlite path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening profile db: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS test_configurations (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			name                TEXT NOT NULL UNIQUE,
			owner               TEXT NOT NULL,
			api_version         TEXT NOT NULL,
			resource_doc_params TEXT,
			username            TEXT,
			user_id             TEXT,
			provider_id         TEXT,
			customer_id         TEXT,
			bank_id             TEXT,
			branch_id           TEXT,
			atm_id              TEXT,
			account_id          TEXT,
			other_account_id    TEXT,
			view_id             TEXT,
			transaction_id      TEXT,
			counterparty_id     TEXT,
			from_currency_code  TEXT,
			to_currency_code    TEXT,
			product_code        TEXT,
			meeting_id          TEXT,
			consumer_id         TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_test_configurations_owner ON test_configurations(owner);
	`)
	if err != nil {
		return fmt.Errorf("creating test_configurations table: %w", err)
	}
	return nil
}

const configColumns = `id, name, owner, api_version, resource_doc_params,
	username, user_id, provider_id, customer_id, bank_id, branch_id, atm_id,
	account_id, other_account_id, view_id, transaction_id, counterparty_id,
	from_currency_code, to_currency_code, product_code, meeting_id, consumer_id`

// Create inserts a new configuration and returns its id. The name must
// be unique across all owners.
func (s *Store) Create(tc *TestConfiguration) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO test_configurations (name, owner, api_version, resource_doc_params,
			username, user_id, provider_id, customer_id, bank_id, branch_id, atm_id,
			account_id, other_account_id, view_id, transaction_id, counterparty_id,
			from_currency_code, to_currency_code, product_code, meeting_id, consumer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.Name, tc.Owner, tc.APIVersion, tc.ResourceDocParams,
		tc.Username, tc.UserID, tc.ProviderID, tc.CustomerID, tc.BankID,
		tc.BranchID, tc.ATMID, tc.AccountID, tc.OtherAccountID, tc.ViewID,
		tc.TransactionID, tc.CounterpartyID, tc.FromCurrencyCode,
		tc.ToCurrencyCode, tc.ProductCode, tc.MeetingID, tc.ConsumerID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, fmt.Errorf("configuration name %q is taken", tc.Name)
		}
		return 0, fmt.Errorf("inserting test configuration: %w", err)
	}
	return result.LastInsertId()
}

// Get returns the configuration with the given id, visible to owner.
func (s *Store) Get(id int64, owner string) (*TestConfiguration, error) {
	row := s.db.QueryRow(`
		SELECT `+configColumns+`
		FROM test_configurations
		WHERE id = ? AND owner = ?`, id, owner)
	return scanConfig(row)
}

// List returns all configurations of one owner, by name.
func (s *Store) List(owner string) ([]TestConfiguration, error) {
	rows, err := s.db.Query(`
		SELECT `+configColumns+`
		FROM test_configurations
		WHERE owner = ?
		ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing test configurations: %w", err)
	}
	defer rows.Close()

	var configs []TestConfiguration
	for rows.Next() {
		tc, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *tc)
	}
	return configs, rows.Err()
}

// Update overwrites the mutable fields of an owned configuration. The
// owner column is never written.
func (s *Store) Update(tc *TestConfiguration, owner string) error {
	result, err := s.db.Exec(`
		UPDATE test_configurations
		SET name = ?, api_version = ?, resource_doc_params = ?,
			username = ?, user_id = ?, provider_id = ?, customer_id = ?,
			bank_id = ?, branch_id = ?, atm_id = ?, account_id = ?,
			other_account_id = ?, view_id = ?, transaction_id = ?,
			counterparty_id = ?, from_currency_code = ?, to_currency_code = ?,
			product_code = ?, meeting_id = ?, consumer_id = ?
		WHERE id = ? AND owner = ?`,
		tc.Name, tc.APIVersion, tc.ResourceDocParams,
		tc.Username, tc.UserID, tc.ProviderID, tc.CustomerID,
		tc.BankID, tc.BranchID, tc.ATMID, tc.AccountID,
		tc.OtherAccountID, tc.ViewID, tc.TransactionID,
		tc.CounterpartyID, tc.FromCurrencyCode, tc.ToCurrencyCode,
		tc.ProductCode, tc.MeetingID, tc.ConsumerID,
		tc.ID, owner,
	)
	if err != nil {
		return fmt.Errorf("updating test configuration: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an owned configuration. Saved profile operations keep
// referring to the numeric id; no cascade.
func (s *Store) Delete(id int64, owner string) error {
	result, err := s.db.Exec(`
		DELETE FROM test_configurations WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("deleting test configuration: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*TestConfiguration, error) {
	var tc TestConfiguration
	err := row.Scan(
		&tc.ID, &tc.Name, &tc.Owner, &tc.APIVersion, &tc.ResourceDocParams,
		&tc.Username, &tc.UserID, &tc.ProviderID, &tc.CustomerID, &tc.BankID,
		&tc.BranchID, &tc.ATMID, &tc.AccountID, &tc.OtherAccountID, &tc.ViewID,
		&tc.TransactionID, &tc.CounterpartyID, &tc.FromCurrencyCode,
		&tc.ToCurrencyCode, &tc.ProductCode, &tc.MeetingID, &tc.ConsumerID,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning test configuration: %w", err)
	}
	return &tc, nil
}
