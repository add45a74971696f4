package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openbank/apitester/internal/core/registry"
	"github.com/openbank/apitester/internal/runner"
	"github.com/openbank/apitester/internal/transport"
)

// listOperations returns the profile's resolved calls, binding unseen
// description operations first. An optional query parameter filters the
// list fuzzily.
func (s *Server) listOperations(w http.ResponseWriter, r *http.Request) {
	profileID, err := strconv.ParseInt(chi.URLParam(r, "profileID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	calls, messages := s.registry.ListCalls(r.Context(), profileID, owner(r))
	if q := r.URL.Query().Get("query"); q != "" {
		calls = registry.Search(calls, q)
	}
	if calls == nil {
		calls = []registry.ResolvedCall{}
	}
	if messages == nil {
		messages = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"calls":    calls,
		"messages": messages,
	})
}

// runOperation executes one stored binding. Form fields urlpath,
// json_body and method override the saved row for this run only.
func (s *Server) runOperation(w http.ResponseWriter, r *http.Request) {
	profileID, err := strconv.ParseInt(chi.URLParam(r, "profileID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}
	replicaID, err := strconv.Atoi(chi.URLParam(r, "replicaID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid replica id")
		return
	}
	operationID := chi.URLParam(r, "operationID")
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	methodName := r.PostForm.Get("method")
	if methodName == "" {
		// The stored row belongs to the profile's owner; don't leak it
		// to anyone else.
		if _, err := s.profiles.Get(profileID, owner(r)); err != nil {
			denial(w)
			return
		}
		row, err := s.registry.Store().Get(profileID, operationID, replicaID)
		if err != nil {
			denial(w)
			return
		}
		methodName = row.Method
	}
	method, err := transport.ParseMethod(methodName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.runner.Run(r.Context(), runner.Request{
		ProfileID:   profileID,
		Owner:       owner(r),
		OperationID: operationID,
		ReplicaID:   replicaID,
		Method:      method,
		URLPath:     r.PostForm.Get("urlpath"),
		JSONBody:    r.PostForm.Get("json_body"),
	})

	if result.AuthExpired {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"logout":   true,
			"messages": result.Messages,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// entryFromForm reads the shared save/copy/delete form fields.
func entryFromForm(r *http.Request) (registry.Entry, error) {
	if err := r.ParseForm(); err != nil {
		return registry.Entry{}, err
	}
	profileID, err := strconv.ParseInt(r.PostForm.Get("profile_id"), 10, 64)
	if err != nil {
		return registry.Entry{}, err
	}
	replicaID := 1
	if v := r.PostForm.Get("replica_id"); v != "" {
		replicaID, err = strconv.Atoi(v)
		if err != nil {
			return registry.Entry{}, err
		}
	}
	order := 100
	if v := r.PostForm.Get("order"); v != "" {
		order, err = strconv.Atoi(v)
		if err != nil {
			return registry.Entry{}, err
		}
	}
	return registry.Entry{
		ProfileID:   profileID,
		OperationID: r.PostForm.Get("operation_id"),
		ReplicaID:   replicaID,
		URLPath:     r.PostForm.Get("urlpath"),
		Method:      r.PostForm.Get("method"),
		JSONBody:    r.PostForm.Get("json_body"),
		Order:       order,
		Remark:      r.PostForm.Get("remark"),
	}, nil
}

func (s *Server) saveOperation(w http.ResponseWriter, r *http.Request) {
	e, err := entryFromForm(r)
	if err != nil || e.OperationID == "" {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	if _, err := transport.ParseMethod(e.Method); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.registry.Save(e, owner(r)); err != nil {
		if isNotFound(err) {
			denial(w)
			return
		}
		s.logger.Error("save failed", "operation_id", e.OperationID, "error", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) copyOperation(w http.ResponseWriter, r *http.Request) {
	e, err := entryFromForm(r)
	if err != nil || e.OperationID == "" {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	replica, err := s.registry.Duplicate(e, owner(r))
	if err != nil {
		if isNotFound(err) {
			denial(w)
			return
		}
		s.logger.Error("copy failed", "operation_id", e.OperationID, "error", err)
		writeError(w, http.StatusInternalServerError, "copy failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replica_id": replica})
}

func (s *Server) deleteOperation(w http.ResponseWriter, r *http.Request) {
	e, err := entryFromForm(r)
	if err != nil || e.OperationID == "" {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	if err := s.registry.SoftDelete(e.ProfileID, e.OperationID, e.ReplicaID, owner(r)); err != nil {
		if isNotFound(err) {
			denial(w)
			return
		}
		s.logger.Error("delete failed", "operation_id", e.OperationID, "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
