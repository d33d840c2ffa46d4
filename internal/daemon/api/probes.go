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
	"github.com/tombee/logprobe/internal/model"
)

// probeView decorates a probe with its self-reported liveness.
type probeView struct {
	model.Probe
	Alive bool `json:"alive"`
}

func (a *API) probeViewOf(p model.Probe) probeView {
	return probeView{Probe: p, Alive: a.ctrl.Alive(&p)}
}

type registerProbeRequest struct {
	Description string `json:"description,omitempty"`
}

type registerProbeResponse struct {
	probeView
	// Key is returned exactly once, at registration.
	Key string `json:"key"`
}

func (a *API) registerProbe(w http.ResponseWriter, r *http.Request) {
	var req registerProbeRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, r, a.logger, err)
			return
		}
	}

	probe, key, err := a.ctrl.RegisterProbe(r.Context(), r.PathValue("key"), req.Description)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registerProbeResponse{
		probeView: a.probeViewOf(*probe),
		Key:       key,
	})
}

func (a *API) listProbes(w http.ResponseWriter, r *http.Request) {
	probes, err := a.ctrl.ListProbes(r.Context(), r.PathValue("key"))
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}

	out := make([]probeView, 0, len(probes))
	for _, p := range probes {
		out = append(out, a.probeViewOf(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// findProbe resolves a probe bearer key; a miss is a null body, not an
// error, because probes use this to test whether a stored key is still
// valid.
func (a *API) findProbe(w http.ResponseWriter, r *http.Request) {
	probe, err := a.ctrl.FindProbe(r.Context(), r.PathValue("key"))
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	if probe == nil {
		httputil.WriteJSON(w, http.StatusOK, nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a.probeViewOf(*probe))
}

// Probe-authenticated endpoints. The probe identity comes from the
// bearer key, never from the request body.

func (a *API) probeHeartbeat(w http.ResponseWriter, r *http.Request) {
	probe := auth.ProbeFrom(r.Context())
	updated, err := a.ctrl.Heartbeat(r.Context(), probe.ID)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a.probeViewOf(*updated))
}

func (a *API) probeDesiredSet(w http.ResponseWriter, r *http.Request) {
	probe := auth.ProbeFrom(r.Context())
	directives, err := a.ctrl.DesiredSetForProbe(r.Context(), probe.ID)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	if directives == nil {
		directives = []model.Directive{}
	}
	httputil.WriteJSON(w, http.StatusOK, directives)
}

func (a *API) probePendingDeliveries(w http.ResponseWriter, r *http.Request) {
	probe := auth.ProbeFrom(r.Context())
	records, err := a.ctrl.PendingDeliveries(r.Context(), probe.ID)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	if records == nil {
		records = []model.DeliveryRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

type reportOutcomeRequest struct {
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

func (a *API) probeReportOutcome(w http.ResponseWriter, r *http.Request) {
	probe := auth.ProbeFrom(r.Context())

	var req reportOutcomeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}

	err := a.ctrl.ReportOutcome(r.Context(), probe.ID, r.PathValue("id"),
		model.DeliveryState(req.Outcome), req.Message)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type reportFailureRequest struct {
	Message     string  `json:"message"`
	DirectiveID *string `json:"directive_id,omitempty"`
}

func (a *API) probeReportFailure(w http.ResponseWriter, r *http.Request) {
	probe := auth.ProbeFrom(r.Context())

	var req reportFailureRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}

	record, err := a.ctrl.ReportFailure(r.Context(), probe.ID, req.Message, req.DirectiveID)
	if err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (a *API) probeDisconnect(w http.ResponseWriter, r *http.Request) {
	probe := auth.ProbeFrom(r.Context())
	if err := a.ctrl.Disconnect(r.Context(), probe.ID); err != nil {
		httputil.WriteError(w, r, a.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
