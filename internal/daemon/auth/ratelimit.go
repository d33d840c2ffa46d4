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

package auth

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tombee/logprobe/internal/config"
)

// RateLimiter applies a per-probe token bucket to probe-facing
// endpoints. Probes retry aggressively on failure; the bucket caps the
// damage of a wedged retry loop.
type RateLimiter struct {
	cfg config.LimitsConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a RateLimiter from config.
func NewRateLimiter(cfg config.LimitsConfig) *RateLimiter {
	return &RateLimiter{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the given probe may proceed.
func (rl *RateLimiter) Allow(probeID string) bool {
	if !rl.cfg.Enabled {
		return true
	}
	rl.mu.Lock()
	limiter, ok := rl.limiters[probeID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.cfg.ProbeRequestsPerSecond), rl.cfg.ProbeBurst)
		rl.limiters[probeID] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects over-limit probe requests with 429. It must run
// after the probe auth middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probe := ProbeFrom(r.Context())
		if probe != nil && !rl.Allow(probe.ID) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
