package registry

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages profile operation persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a store at the given sqlite path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profile_operations (
			profile_id   INTEGER NOT NULL,
			operation_id TEXT NOT NULL,
			replica_id   INTEGER NOT NULL DEFAULT 1,
			urlpath      TEXT,
			method       TEXT,
			json_body    TEXT,
			sort_order   INTEGER NOT NULL DEFAULT 100,
			remark       TEXT,
			is_deleted   INTEGER NOT NULL DEFAULT 0,
			saved_at     TEXT NOT NULL,
			PRIMARY KEY (profile_id, operation_id, replica_id)
		);
		CREATE INDEX IF NOT EXISTS idx_profile_operations_profile ON profile_operations(profile_id, is_deleted);
	`)
	if err != nil {
		return fmt.Errorf("creating profile_operations table: %w", err)
	}
	return nil
}

// Save upserts the entry keyed by (profile, operation, replica): it
// creates the row if absent, else overwrites all mutable fields in one
// statement. The key columns are never changed and a soft-deleted row
// stays deleted.
func (s *Store) Save(e Entry) error {
	savedAt := e.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO profile_operations
			(profile_id, operation_id, replica_id, urlpath, method, json_body, sort_order, remark, is_deleted, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, operation_id, replica_id) DO UPDATE SET
			urlpath = excluded.urlpath,
			method = excluded.method,
			json_body = excluded.json_body,
			sort_order = excluded.sort_order,
			remark = excluded.remark,
			saved_at = excluded.saved_at`,
		e.ProfileID, e.OperationID, e.ReplicaID, e.URLPath, e.Method,
		e.JSONBody, e.Order, e.Remark, boolToInt(e.IsDeleted),
		savedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving profile operation: %w", err)
	}
	return nil
}

// Get returns one entry, deleted or not.
func (s *Store) Get(profileID int64, operationID string, replicaID int) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT profile_id, operation_id, replica_id, urlpath, method, json_body, sort_order, remark, is_deleted, saved_at
		FROM profile_operations
		WHERE profile_id = ? AND operation_id = ? AND replica_id = ?`,
		profileID, operationID, replicaID)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile operation: %w", err)
	}
	return e, nil
}

// List returns all non-deleted entries of a profile, most recently
// saved first.
func (s *Store) List(profileID int64) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT profile_id, operation_id, replica_id, urlpath, method, json_body, sort_order, remark, is_deleted, saved_at
		FROM profile_operations
		WHERE profile_id = ? AND is_deleted = 0
		ORDER BY saved_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing profile operations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile operation: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// MaxReplica returns the highest replica id ever used for the operation,
// soft-deleted rows included, so ids are never reused.
func (s *Store) MaxReplica(profileID int64, operationID string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(replica_id) FROM profile_operations
		WHERE profile_id = ? AND operation_id = ?`,
		profileID, operationID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("reading max replica: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// SoftDelete flags the entry as deleted, leaving every other field and
// sibling replica ids untouched.
func (s *Store) SoftDelete(profileID int64, operationID string, replicaID int) error {
	result, err := s.db.Exec(`
		UPDATE profile_operations SET is_deleted = 1
		WHERE profile_id = ? AND operation_id = ? AND replica_id = ?`,
		profileID, operationID, replicaID)
	if err != nil {
		return fmt.Errorf("soft-deleting profile operation: %w", err)
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

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var deleted int
	var ts string
	err := row.Scan(&e.ProfileID, &e.OperationID, &e.ReplicaID, &e.URLPath,
		&e.Method, &e.JSONBody, &e.Order, &e.Remark, &deleted, &ts)
	if err != nil {
		return nil, err
	}
	e.IsDeleted = deleted != 0
	e.SavedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
