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

	"github.com/tombee/logprobe/internal/daemon/auth"
	"github.com/tombee/logprobe/internal/daemon/httputil"
	"github.com/tombee/logprobe/pkg/errors"
)

type createTraceSetRequest struct {
	Key string `json:"key"`
}

func (a *API) createTraceSet(w http.ResponseWriter, r *http.Request) {
	var req createTraceSetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}

	ts, err := a.ctrl.CreateTraceSet(r.Context(), req.Key)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ts)
}

func (a *API) getTraceSet(w http.ResponseWriter, r *http.Request) {
	ts, err := a.ctrl.GetTraceSet(r.Context(), r.PathValue("key"))
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ts)
}

type issueTokenRequest struct {
	Subject string `json:"subject"`
	Scope   string `json:"scope"`
}

type issueTokenResponse struct {
	Token string `json:"token"`
}

// issueToken mints a scoped operator JWT. Reachable only with write
// access (the raw operator secret or a write-scoped token).
func (a *API) issueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	if req.Subject == "" {
		httputil.WriteError(w, r, a.logger,
			&errors.ValidationError{Field: "subject", Message: "must not be empty"})
		return
	}

	token, err := a.issuer.Issue(req.Subject, auth.Scope(req.Scope))
	if err != nil {
		httputil.WriteError(w, r, a.logger,
			&errors.ValidationError{Field: "scope", Message: "must be read or write"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issueTokenResponse{Token: token})
}
