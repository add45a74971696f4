package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openbank/apitester/internal/core/profile"
)

// configPayload is the wire shape of a test configuration.
type configPayload struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Owner             string `json:"owner"`
	APIVersion        string `json:"api_version"`
	ResourceDocParams string `json:"resource_doc_params"`
	Username          string `json:"username"`
	UserID            string `json:"user_id"`
	ProviderID        string `json:"provider_id"`
	CustomerID        string `json:"customer_id"`
	BankID            string `json:"bank_id"`
	BranchID          string `json:"branch_id"`
	ATMID             string `json:"atm_id"`
	AccountID         string `json:"account_id"`
	OtherAccountID    string `json:"other_account_id"`
	ViewID            string `json:"view_id"`
	TransactionID     string `json:"transaction_id"`
	CounterpartyID    string `json:"counterparty_id"`
	FromCurrencyCode  string `json:"from_currency_code"`
	ToCurrencyCode    string `json:"to_currency_code"`
	ProductCode       string `json:"product_code"`
	MeetingID         string `json:"meeting_id"`
	ConsumerID        string `json:"consumer_id"`
}

func (p *configPayload) toModel() *profile.TestConfiguration {
	return &profile.TestConfiguration{
		ID:                p.ID,
		Name:              p.Name,
		Owner:             p.Owner,
		APIVersion:        p.APIVersion,
		ResourceDocParams: p.ResourceDocParams,
		Username:          p.Username,
		UserID:            p.UserID,
		ProviderID:        p.ProviderID,
		CustomerID:        p.CustomerID,
		BankID:            p.BankID,
		BranchID:          p.BranchID,
		ATMID:             p.ATMID,
		AccountID:         p.AccountID,
		OtherAccountID:    p.OtherAccountID,
		ViewID:            p.ViewID,
		TransactionID:     p.TransactionID,
		CounterpartyID:    p.CounterpartyID,
		FromCurrencyCode:  p.FromCurrencyCode,
		ToCurrencyCode:    p.ToCurrencyCode,
		ProductCode:       p.ProductCode,
		MeetingID:         p.MeetingID,
		ConsumerID:        p.ConsumerID,
	}
}

func fromModel(tc *profile.TestConfiguration) configPayload {
	return configPayload{
		ID:                tc.ID,
		Name:              tc.Name,
		Owner:             tc.Owner,
		APIVersion:        tc.APIVersion,
		ResourceDocParams: tc.ResourceDocParams,
		Username:          tc.Username,
		UserID:            tc.UserID,
		ProviderID:        tc.ProviderID,
		CustomerID:        tc.CustomerID,
		BankID:            tc.BankID,
		BranchID:          tc.BranchID,
		ATMID:             tc.ATMID,
		AccountID:         tc.AccountID,
		OtherAccountID:    tc.OtherAccountID,
		ViewID:            tc.ViewID,
		TransactionID:     tc.TransactionID,
		CounterpartyID:    tc.CounterpartyID,
		FromCurrencyCode:  tc.FromCurrencyCode,
		ToCurrencyCode:    tc.ToCurrencyCode,
		ProductCode:       tc.ProductCode,
		MeetingID:         tc.MeetingID,
		ConsumerID:        tc.ConsumerID,
	}
}

func (s *Server) createConfig(w http.ResponseWriter, r *http.Request) {
	var payload configPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tc := payload.toModel()
	tc.ID = 0
	tc.Owner = owner(r)
	if err := tc.Validate(s.cfg.Standards); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.profiles.Create(tc)
	if err != nil {
		if strings.Contains(err.Error(), "is taken") {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("create config failed", "name", tc.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	tc.ID = id

	// A freshly bound configuration must see the live description, not
	// a stale cache entry.
	s.cache.Invalidate(tc.APIVersion, tc.ResourceDocParams)

	writeJSON(w, http.StatusCreated, fromModel(tc))
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.profiles.List(owner(r))
	if err != nil {
		s.logger.Error("list configs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	payloads := make([]configPayload, 0, len(configs))
	for i := range configs {
		payloads = append(payloads, fromModel(&configs[i]))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	tc, err := s.profiles.Get(id, owner(r))
	if err != nil {
		denial(w)
		return
	}
	writeJSON(w, http.StatusOK, fromModel(tc))
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var payload configPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tc := payload.toModel()
	tc.ID = id
	tc.Owner = owner(r)
	if err := tc.Validate(s.cfg.Standards); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.profiles.Update(tc, owner(r)); err != nil {
		if isNotFound(err) {
			denial(w)
			return
		}
		s.logger.Error("update config failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, fromModel(tc))
}

func (s *Server) deleteConfig(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.profiles.Delete(id, owner(r)); err != nil {
		if isNotFound(err) {
			denial(w)
			return
		}
		s.logger.Error("delete config failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
