package registry

import (
	"context"
	"log/slog"

	"github.com/sahilm/fuzzy"

	"github.com/openbank/apitester/internal/core/profile"
	"github.com/openbank/apitester/internal/resolve"
	"github.com/openbank/apitester/internal/swagger"
	"github.com/openbank/apitester/internal/transport"
)

// ResolvedCall is one operation bound to a concrete path, body, and
// ordering, ready to execute.
type ResolvedCall struct {
	ProfileID      int64            `json:"profile_id"`
	OperationID    string           `json:"operation_id"`
	ReplicaID      int              `json:"replica_id"`
	Method         transport.Method `json:"-"`
	MethodName     string           `json:"method"`
	URLPath        string           `json:"urlpath"`
	JSONBody       string           `json:"json_body"`
	Order          int              `json:"order"`
	Remark         string           `json:"remark"`
	ExpectedStatus int              `json:"response_code"`
}

// Service reconciles the API description against stored bindings and is
// the only path to registry reads and writes.
type Service struct {
	store    *Store
	profiles *profile.Store
	cache    *swagger.Cache
	logger   *slog.Logger
}

// NewService wires the binder over its collaborators.
func NewService(store *Store, profiles *profile.Store, cache *swagger.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, profiles: profiles, cache: cache, logger: logger}
}

// Store exposes the underlying row store for the runner's lookups.
func (s *Service) Store() *Store { return s.store }

// ListCalls returns the profile's resolved calls, most recently saved
// first, binding any description operation not yet present. Failures to
// fetch the description degrade to an empty list plus one user-facing
// message; no error escapes.
func (s *Service) ListCalls(ctx context.Context, profileID int64, owner string) ([]ResolvedCall, []string) {
	tc, err := s.profiles.Get(profileID, owner)
	if err != nil {
		return nil, []string{"Test configuration not found!"}
	}

	doc, err := s.cache.Description(ctx, tc.APIVersion, tc.ResourceDocParams)
	if err != nil {
		s.logger.Error("description fetch failed", "profile_id", profileID, "error", err)
		return nil, []string{transport.Message(err)}
	}

	s.bind(profileID, tc, doc)

	rows, err := s.store.List(profileID)
	if err != nil {
		s.logger.Error("listing registry rows failed", "profile_id", profileID, "error", err)
		return nil, []string{err.Error()}
	}

	tokens := tc.TokenValues()
	calls := make([]ResolvedCall, 0, len(rows))
	for _, row := range rows {
		method, err := transport.ParseMethod(row.Method)
		if err != nil {
			s.logger.Warn("skipping row with unsupported method",
				"profile_id", profileID, "operation_id", row.OperationID, "method", row.Method)
			continue
		}

		expected := method.ExpectedStatus()
		remark := row.Remark
		if op, ok := doc.Operation(row.URLPath, method); ok {
			if code, ok := op.DeclaredSuccessCode(); ok {
				expected = code
			}
			if remark == "" {
				remark = op.Summary
			}
		}

		calls = append(calls, ResolvedCall{
			ProfileID:      profileID,
			OperationID:    row.OperationID,
			ReplicaID:      row.ReplicaID,
			Method:         method,
			MethodName:     method.String(),
			URLPath:        resolve.Path(row.URLPath, tokens),
			JSONBody:       row.JSONBody,
			Order:          row.Order,
			Remark:         remark,
			ExpectedStatus: expected,
		})
	}
	return calls, nil
}

// bind inserts a replica-1 row for every description operation the
// profile has not seen. Rows keep the template path; resolution happens
// at read time so configuration edits apply to saved operations too.
func (s *Service) bind(profileID int64, tc *profile.TestConfiguration, doc *swagger.Document) {
	attrs := tc.AttributeValues()
	doc.Walk(func(path string, method transport.Method, op swagger.Operation) {
		opID := op.ID(path, method)
		// Deleted replicas count too, so an operation the user removed
		// stays removed across listings.
		max, err := s.store.MaxReplica(profileID, opID)
		if err != nil {
			s.logger.Error("bind lookup failed", "operation_id", opID, "error", err)
			return
		}
		if max > 0 {
			return
		}

		var body string
		if method.HasBody() {
			body = resolve.Body(&op, doc, attrs)
		}
		entry := Entry{
			ProfileID:   profileID,
			OperationID: opID,
			ReplicaID:   1,
			URLPath:     path,
			Method:      method.Lower(),
			JSONBody:    body,
			Order:       100,
			Remark:      op.Summary,
		}
		if err := s.store.Save(entry); err != nil {
			s.logger.Error("bind insert failed", "operation_id", opID, "error", err)
		}
	})
}

// authorize verifies the caller owns the target profile. Callers who
// don't get the same error as for a profile that does not exist.
func (s *Service) authorize(profileID int64, owner string) error {
	_, err := s.profiles.Get(profileID, owner)
	return err
}

// Save upserts one binding's mutable fields on behalf of owner.
func (s *Service) Save(e Entry, owner string) error {
	if err := s.authorize(e.ProfileID, owner); err != nil {
		return err
	}
	return s.store.Save(e)
}

// Duplicate saves the caller's current field values on the source
// replica first, so unsaved edits are not lost, then inserts a copy
// under max(replica)+1 and returns the new replica id.
func (s *Service) Duplicate(e Entry, owner string) (int, error) {
	if err := s.authorize(e.ProfileID, owner); err != nil {
		return 0, err
	}
	if _, err := s.store.Get(e.ProfileID, e.OperationID, e.ReplicaID); err != nil {
		return 0, err
	}
	if err := s.store.Save(e); err != nil {
		return 0, err
	}

	max, err := s.store.MaxReplica(e.ProfileID, e.OperationID)
	if err != nil {
		return 0, err
	}
	dup := e
	dup.ReplicaID = max + 1
	if err := s.store.Save(dup); err != nil {
		return 0, err
	}
	return dup.ReplicaID, nil
}

// SoftDelete flags one binding as deleted on behalf of owner.
func (s *Service) SoftDelete(profileID int64, operationID string, replicaID int, owner string) error {
	if err := s.authorize(profileID, owner); err != nil {
		return err
	}
	return s.store.SoftDelete(profileID, operationID, replicaID)
}

// callSource adapts resolved calls for fuzzy matching.
type callSource []ResolvedCall

func (c callSource) String(i int) string {
	return c[i].MethodName + " " + c[i].URLPath + " " + c[i].Remark
}

func (c callSource) Len() int { return len(c) }

// Search filters calls by fuzzy-matching the query against method, path
// and remark. An empty query returns the input unchanged.
func Search(calls []ResolvedCall, query string) []ResolvedCall {
	if query == "" {
		return calls
	}
	matches := fuzzy.FindFrom(query, callSource(calls))
	out := make([]ResolvedCall, 0, len(matches))
	for _, m := range matches {
		out = append(out, calls[m.Index])
	}
	return out
}
