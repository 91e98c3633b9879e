// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/sweepwars/database/types"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/gorilla/mux"
)

// AccountHeader carries the caller's address. Authenticating it is left to
// whatever sits in front of the API.
const AccountHeader = "X-Account"

// maxBodySize bounds request bodies
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errStr string, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// statusFor maps an error to its HTTP status by error kind
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, voting.ErrWarNotFound):
		return http.StatusNotFound
	}
	switch voting.Kind(err) {
	case voting.ErrValidation:
		return http.StatusBadRequest
	case voting.ErrAuthorization:
		return http.StatusForbidden
	case voting.ErrState:
		return http.StatusConflict
	case voting.ErrSolvency:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeBackendError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, http.StatusText(status), err.Error())
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
}

// caller returns the account in the X-Account header
func caller(r *http.Request) (voting.Account, error) {
	h := r.Header.Get(AccountHeader)
	if h == "" {
		return voting.Account{}, fmt.Errorf("missing %s header", AccountHeader)
	}
	return voting.ParseAddress(h)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (s *Server) handleEpoch(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, EpochResponse{Epoch: s.backend.CurrentEpoch()})
}

func (s *Server) handleAdvanceEpoch(w http.ResponseWriter, r *http.Request) {
	account, err := caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	evt, err := s.backend.AdvanceEpoch(r.Context(), account)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse(evt))
}

func (s *Server) handleSubjects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SubjectsResponse{
		Subjects: hexList(s.backend.Candidates()),
	})
}

func (s *Server) handleSubjectPower(w http.ResponseWriter, r *http.Request) {
	subject, err := voting.ParseAddress(mux.Vars(r)["subject"])
	if err != nil {
		badRequest(w, err)
		return
	}
	epoch := s.backend.CurrentEpoch()
	if q := r.URL.Query().Get("epoch"); q != "" {
		if epoch, err = strconv.ParseUint(q, 10, 64); err != nil {
			badRequest(w, fmt.Errorf("invalid epoch: %w", err))
			return
		}
	}
	power, err := s.backend.VotingPowerAt(subject, epoch)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubjectPowerResponse{
		Subject: subject.Hex(),
		Epoch:   epoch,
		Power:   wad.FormatSigned(power),
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := voting.ParseAddress(mux.Vars(r)["account"])
	if err != nil {
		badRequest(w, err)
		return
	}
	view, err := s.backend.Account(account)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		Account:     view.Account.Hex(),
		Staked:      view.Staked.Dec(),
		LockEpochs:  view.LockEpochs,
		UnlockEpoch: view.UnlockEpoch,
		Committed:   view.Committed.Dec(),
		Available:   view.Available.Dec(),
		Subjects:    hexList(view.Subjects),
	})
}

func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	account, err := caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	var req CastRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	subject, err := voting.ParseAddress(req.Subject)
	if err != nil {
		badRequest(w, err)
		return
	}
	amount, err := wad.ParseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	direction, err := voting.ParseDirection(req.Direction)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := s.backend.Cast(account, subject, amount, direction); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	account, err := caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	var req RevokeRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	voter := account
	if req.Voter != "" {
		if voter, err = voting.ParseAddress(req.Voter); err != nil {
			badRequest(w, err)
			return
		}
	}
	subjects := make([]voting.Subject, 0, len(req.Subjects))
	for _, str := range req.Subjects {
		subject, err := voting.ParseAddress(str)
		if err != nil {
			badRequest(w, err)
			return
		}
		subjects = append(subjects, subject)
	}
	if err := s.backend.Revoke(account, voter, subjects); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, _ *http.Request) {
	dist, err := s.backend.LatestDistribution()
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(dist))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	epoch, err := pathUint(r, "epoch")
	if err != nil {
		badRequest(w, err)
		return
	}
	dist, err := s.backend.Distribution(epoch)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(dist))
}

func (s *Server) handleCurrentWar(w http.ResponseWriter, _ *http.Request) {
	view, ok, err := s.backend.CurrentWar()
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", voting.ErrNoWarRunning.Error())
		return
	}
	writeJSON(w, http.StatusOK, warResponse(view))
}

func (s *Server) handleWar(w http.ResponseWriter, r *http.Request) {
	index, err := pathUint(r, "index")
	if err != nil {
		badRequest(w, err)
		return
	}
	view, err := s.backend.War(index)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, warResponse(view))
}

func (s *Server) handleWarVote(w http.ResponseWriter, r *http.Request) {
	account, err := caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	var req WarVoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	collection, err := voting.ParseAddress(req.Collection)
	if err != nil {
		badRequest(w, err)
		return
	}
	amount, err := wad.ParseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := s.backend.WarVote(account, collection, amount); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	account, err := caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	var req DepositRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := wad.ParseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := s.backend.Deposit(account, amount, req.LockEpochs); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	account, err := caller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	var req WithdrawRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := wad.ParseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := s.backend.Withdraw(account, amount); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
