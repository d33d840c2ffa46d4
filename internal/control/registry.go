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

package control

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tombee/logprobe/internal/log"
	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/pkg/errors"
)

const probeKeyPrefix = "pk"

// RegisterProbe creates a probe in the trace state's fleet and returns
// it together with its one-time bearer key. The key embeds the probe id
// so later requests can be resolved without a table scan; only a bcrypt
// hash of the secret half is stored. Registration is itself a
// reconciled event: it appends a create-probe change entry and fans it
// out, and the new probe (live as of now) is included in that fan-out.
func (c *Controller) RegisterProbe(ctx context.Context, traceStateKey, description string) (*model.Probe, string, error) {
	if traceStateKey == "" {
		return nil, "", &errors.ValidationError{Field: "trace_state_key", Message: "must not be empty"}
	}

	secret, err := newSecret()
	if err != nil {
		return nil, "", fmt.Errorf("generating probe secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing probe secret: %w", err)
	}

	now := c.now()
	probe := &model.Probe{
		ID:            uuid.NewString(),
		Description:   description,
		KeyHash:       string(hash),
		LastHeartbeat: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var fanout int
	err = c.store.WithTx(ctx, func(ctx context.Context) error {
		st, err := c.store.GetTraceStateByKey(ctx, traceStateKey)
		if err != nil {
			return err
		}
		if st == nil {
			return &errors.NotFoundError{Resource: "trace state", ID: traceStateKey}
		}

		probe.TraceStateID = st.ID
		if err := c.store.InsertProbe(ctx, probe); err != nil {
			return err
		}

		entry, err := model.NewProbeChange(model.ChangeCreateProbe, st.ID, probe.ID)
		if err != nil {
			return err
		}
		fanout, err = c.appendChange(ctx, st.TraceSetID, entry, now)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	c.metrics.RecordMutation(ctx, string(model.ChangeCreateProbe), fanout, c.now().Sub(now))
	c.logger.InfoContext(ctx, "probe registered",
		log.ProbeKey, probe.ID,
		log.TraceSetKey, traceStateKey)

	key := fmt.Sprintf("%s_%s_%s", probeKeyPrefix, probe.ID, secret)
	return probe, key, nil
}

// AuthenticateKey resolves and verifies a probe bearer key. The error
// is deliberately uniform across "no such probe", "closed" and "wrong
// secret" so the key format leaks nothing.
func (c *Controller) AuthenticateKey(ctx context.Context, key string) (*model.Probe, error) {
	id, secret, err := splitProbeKey(key)
	if err != nil {
		return nil, err
	}

	probe, err := c.store.GetProbe(ctx, id)
	if err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, &errors.AuthError{Reason: "unknown probe"}
	}
	if probe.Closed {
		return nil, &errors.AuthError{Reason: "probe is closed"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(probe.KeyHash), []byte(secret)); err != nil {
		return nil, &errors.AuthError{Reason: "secret mismatch"}
	}
	return probe, nil
}

// FindProbe returns the probe for a bearer key, or nil when the key
// does not resolve. Unlike AuthenticateKey it never errors on a bad
// key; lookups are expected to miss.
func (c *Controller) FindProbe(ctx context.Context, key string) (*model.Probe, error) {
	probe, err := c.AuthenticateKey(ctx, key)
	if err != nil {
		var authErr *errors.AuthError
		if errors.As(err, &authErr) {
			return nil, nil
		}
		return nil, err
	}
	return probe, nil
}

// Heartbeat refreshes the probe's last-heartbeat timestamp.
func (c *Controller) Heartbeat(ctx context.Context, probeID string) (*model.Probe, error) {
	now := c.now()

	probe, err := c.store.GetProbe(ctx, probeID)
	if err != nil {
		return nil, err
	}
	if probe == nil || probe.Closed {
		return nil, &errors.NotFoundError{Resource: "probe", ID: probeID}
	}
	if err := c.store.UpdateProbeHeartbeat(ctx, probeID, now); err != nil {
		return nil, err
	}
	probe.LastHeartbeat = now
	probe.UpdatedAt = now

	c.metrics.RecordHeartbeat(ctx)
	return probe, nil
}

// Disconnect marks the probe closed and records a delete-probe change.
// The probe row is kept so delivery and failure history stays valid.
func (c *Controller) Disconnect(ctx context.Context, probeID string) error {
	now := c.now()
	var fanout int

	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		probe, err := c.store.GetProbe(ctx, probeID)
		if err != nil {
			return err
		}
		if probe == nil || probe.Closed {
			return &errors.NotFoundError{Resource: "probe", ID: probeID}
		}

		if err := c.store.CloseProbe(ctx, probeID, now); err != nil {
			return err
		}

		st, err := c.store.GetTraceState(ctx, probe.TraceStateID)
		if err != nil {
			return err
		}
		if st == nil {
			return &errors.NotFoundError{Resource: "trace state", ID: probe.TraceStateID}
		}

		entry, err := model.NewProbeChange(model.ChangeDeleteProbe, st.ID, probe.ID)
		if err != nil {
			return err
		}
		fanout, err = c.appendChange(ctx, st.TraceSetID, entry, now)
		return err
	})
	if err != nil {
		return err
	}

	c.metrics.RecordMutation(ctx, string(model.ChangeDeleteProbe), fanout, c.now().Sub(now))
	c.logger.InfoContext(ctx, "probe disconnected", log.ProbeKey, probeID)
	return nil
}

// Alive reports the probe's self-reported liveness, using the
// self-report window rather than the fan-out window.
func (c *Controller) Alive(p *model.Probe) bool {
	return p.AliveWithin(c.windows.SelfReport(), c.now())
}

// FindLiveProbeIDs returns the fan-out-eligible probes of a trace set.
func (c *Controller) FindLiveProbeIDs(ctx context.Context, traceSetID string) ([]string, error) {
	cutoff := c.now().Add(-c.windows.Fanout())
	return c.store.FindLiveProbeIDs(ctx, traceSetID, cutoff)
}

func newSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// splitProbeKey parses "pk_<id>_<secret>". Probe ids are UUIDs and
// never contain underscores, so the split is unambiguous.
func splitProbeKey(key string) (id, secret string, err error) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 || parts[0] != probeKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", &errors.AuthError{Reason: "malformed probe key"}
	}
	return parts[1], parts[2], nil
}
