// Copyright 2025 Tom Barlow
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
	"net/http"
	"strconv"

	"github.com/tombee/logprobe/internal/control"
	"github.com/tombee/logprobe/internal/daemon/httputil"
	"github.com/tombee/logprobe/internal/model"
)

type createDirectiveRequest struct {
	Module    string `json:"module"`
	Function  string `json:"function"`
	Statement string `json:"statement"`
}

func (a *API) createDirective(w http.ResponseWriter, r *http.Request) {
	var req createDirectiveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}

	d, err := a.ctrl.CreateDirective(r.Context(), control.CreateDirectiveInput{
		TraceSetKey: r.PathValue("key"),
		Module:      req.Module,
		Function:    req.Function,
		Statement:   req.Statement,
	})
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (a *API) listDesiredSet(w http.ResponseWriter, r *http.Request) {
	directives, err := a.ctrl.DesiredSet(r.Context(), r.PathValue("key"), r.URL.Query().Get("module"))
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	if directives == nil {
		directives = []model.Directive{}
	}
	httputil.WriteJSON(w, http.StatusOK, directives)
}

type updateDirectiveRequest struct {
	Statement *string `json:"statement,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

func (a *API) updateDirective(w http.ResponseWriter, r *http.Request) {
	var req updateDirectiveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}

	d, err := a.ctrl.UpdateDirective(r.Context(), control.UpdateDirectiveInput{
		ID:        r.PathValue("id"),
		Statement: req.Statement,
		Active:    req.Active,
	})
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (a *API) deleteDirective(w http.ResponseWriter, r *http.Request) {
	d, err := a.ctrl.DeleteDirective(r.Context(), r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// changeLogEntry is a change entry with its per-probe delivery status.
type changeLogEntry struct {
	model.ChangeEntry
	Deliveries []model.DeliveryRecord `json:"deliveries"`
}

func (a *API) listChangeLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := a.ctrl.ChangeLog(r.Context(), r.PathValue("key"), limit)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}

	out := make([]changeLogEntry, 0, len(entries))
	for _, entry := range entries {
		deliveries, err := a.ctrl.ListDeliveriesForChange(r.Context(), entry.ID)
		if err != nil {
			httputil.WriteError(w, r, a.logger, err)
			return
		}
		if deliveries == nil {
			deliveries = []model.DeliveryRecord{}
		}
		out = append(out, changeLogEntry{ChangeEntry: entry, Deliveries: deliveries})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (a *API) listFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := a.ctrl.ListFailures(r.Context(), r.PathValue("key"))
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	if failures == nil {
		failures = []model.FailureRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, failures)
}
