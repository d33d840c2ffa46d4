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

// Package api exposes the control plane over HTTP: operator endpoints
// for trace sets, directives and the audit trail, and probe endpoints
// for heartbeat, desired-set polling and outcome reporting.
package api

import (
	"log/slog"
	"net/http"

	"github.com/tombee/logprobe/internal/control"
	"github.com/tombee/logprobe/internal/daemon/auth"
	"github.com/tombee/logprobe/internal/daemon/httputil"
	"github.com/tombee/logprobe/internal/log"
)

// API holds the handler dependencies.
type API struct {
	ctrl   *control.Controller
	issuer *auth.TokenIssuer
	logger *slog.Logger
}

// Config collects everything the router needs.
type Config struct {
	Controller     *control.Controller
	Operator       *auth.Operator
	TokenIssuer    *auth.TokenIssuer
	RateLimiter    *auth.RateLimiter
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter builds the daemon's HTTP handler: operator routes behind
// operator auth, probe routes behind probe-key auth plus rate
// limiting, and the unauthenticated health and metrics endpoints.
func NewRouter(cfg Config) http.Handler {
	a := &API{
		ctrl:   cfg.Controller,
		issuer: cfg.TokenIssuer,
		logger: cfg.Logger,
	}

	operator := http.NewServeMux()
	operator.HandleFunc("POST /v1/tracesets", a.createTraceSet)
	operator.HandleFunc("GET /v1/tracesets/{key}", a.getTraceSet)
	operator.HandleFunc("POST /v1/tracesets/{key}/directives", a.createDirective)
	operator.HandleFunc("GET /v1/tracesets/{key}/directives", a.listDesiredSet)
	operator.HandleFunc("PATCH /v1/directives/{id}", a.updateDirective)
	operator.HandleFunc("DELETE /v1/directives/{id}", a.deleteDirective)
	operator.HandleFunc("GET /v1/tracesets/{key}/changelog", a.listChangeLog)
	operator.HandleFunc("GET /v1/tracesets/{key}/failures", a.listFailures)
	operator.HandleFunc("POST /v1/tracesets/{key}/probes", a.registerProbe)
	operator.HandleFunc("GET /v1/tracesets/{key}/probes", a.listProbes)
	operator.HandleFunc("GET /v1/probes/{key}", a.findProbe)
	operator.HandleFunc("POST /v1/auth/token", a.issueToken)

	probe := http.NewServeMux()
	probe.HandleFunc("POST /v1/probe/heartbeat", a.probeHeartbeat)
	probe.HandleFunc("GET /v1/probe/desired", a.probeDesiredSet)
	probe.HandleFunc("GET /v1/probe/deliveries", a.probePendingDeliveries)
	probe.HandleFunc("POST /v1/probe/deliveries/{id}", a.probeReportOutcome)
	probe.HandleFunc("POST /v1/probe/failures", a.probeReportFailure)
	probe.HandleFunc("DELETE /v1/probe", a.probeDisconnect)

	probeChain := auth.Probe(cfg.Controller, cfg.Logger)(cfg.RateLimiter.Middleware(probe))

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", a.healthz)
	if cfg.MetricsHandler != nil {
		root.Handle("GET /metrics", cfg.MetricsHandler)
	}
	root.Handle("/v1/probe/", probeChain)
	root.Handle("DELETE /v1/probe", probeChain)
	root.Handle("/v1/", cfg.Operator.Wrap(operator))

	return log.Middleware(cfg.Logger)(root)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
