// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package lifecycle drives the daemon through
// install → configure → authorize → start → verify on the setup pass
// and stop → restore on the teardown pass. Each step carries a
// declared failure policy; this table is the single place that decides
// warn-and-continue versus abort.
package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/openrunner/sshgate/internal/errors"
	"github.com/openrunner/sshgate/internal/execx"
	"github.com/openrunner/sshgate/internal/export"
	"github.com/openrunner/sshgate/internal/hostkey"
	"github.com/openrunner/sshgate/internal/keys"
	"github.com/openrunner/sshgate/internal/logging"
	"github.com/openrunner/sshgate/internal/platform"
	"github.com/openrunner/sshgate/internal/state"
)

// FailurePolicy declares how the orchestrator treats a failing step.
type FailurePolicy int

const (
	// Fatal aborts the remaining forward transitions.
	Fatal FailurePolicy = iota
	// Warn logs and continues. Warnings never change the run outcome.
	Warn
)

// Options is the resolved, immutable input set for one run.
type Options struct {
	Port              int
	User              string
	ServerKeyMaterial string
	AuthorizedKeys    string
	UseRemoteKeys     bool
	RemoteUsername    string
	ProfileHost       string
}

// Orchestrator sequences the setup and teardown passes. One logical
// thread of control; every external command blocks until it completes.
type Orchestrator struct {
	profile     platform.Profile
	opts        Options
	runner      execx.Runner
	resolver    *keys.Resolver
	provisioner *hostkey.Provisioner
	log         *logging.Logger

	// stateDir holds the custom config, the Linux system-config
	// backup, and the daemon log file.
	stateDir string

	// Verification is bounded polling with the same total budget as a
	// fixed settle delay would have.
	verifyBudget   time.Duration
	verifyInterval time.Duration

	runID string
}

// New builds an orchestrator for one run.
func New(profile platform.Profile, opts Options, runner execx.Runner, log *logging.Logger) *Orchestrator {
	runID := uuid.NewString()[:8]
	return &Orchestrator{
		profile: profile,
		opts:    opts,
		runner:  runner,
		resolver: &keys.Resolver{
			ProfileHost: opts.ProfileHost,
			Log:         log,
		},
		provisioner: &hostkey.Provisioner{
			Runner: runner,
			Log:    log,
		},
		log:            log.With("run", runID),
		stateDir:       filepath.Join(os.TempDir(), "sshgate"),
		verifyBudget:   5 * time.Second,
		verifyInterval: 500 * time.Millisecond,
		runID:          runID,
	}
}

// step is one forward transition with its declared failure policy.
type step struct {
	name   string
	policy FailurePolicy
	run    func(ctx context.Context, st *state.State) error
}

func (o *Orchestrator) setupSteps() []step {
	return []step{
		{"install", Warn, o.install},
		{"host-keys", Fatal, o.ensureHostKeys},
		{"configure", Fatal, o.configure},
		{"config-check", Warn, o.checkConfig},
		{"authorize", Fatal, o.authorize},
		{"privsep-dir", Warn, o.ensurePrivSepDir},
		{"start", Fatal, o.start},
		{"verify", Fatal, o.verify},
	}
}

// Setup runs the forward pass and returns the connection info on
// success. The caller persists st before and after; on a fatal step
// the returned error carries the step name and st reflects whatever
// mutations already happened, so teardown can undo them.
func (o *Orchestrator) Setup(ctx context.Context, st *state.State) (export.ConnectionInfo, error) {
	st.RunID = o.runID
	st.Port = o.opts.Port
	st.User = o.opts.User

	for _, s := range o.setupSteps() {
		o.log.Info("step", "name", s.name)
		err := s.run(ctx, st)
		if err == nil {
			continue
		}
		if s.policy == Warn {
			o.log.Warn("step failed, continuing", "name", s.name, "err", err)
			continue
		}
		return export.ConnectionInfo{}, errors.Attr(err, "step", s.name)
	}

	return export.Collect(o.profile, o.opts.Port, o.opts.User, o.log), nil
}

// Teardown runs the reverse pass. Every failure is downgraded to a
// warning: by this point the job's primary work is done and cleanup is
// best-effort. Teardown is safe after a partial or failed setup.
func (o *Orchestrator) Teardown(ctx context.Context, st *state.State) {
	if err := o.stopDaemon(ctx, st); err != nil {
		o.log.Warn("stopping daemon failed", "err", err)
	}
	if err := o.restoreBackup(st); err != nil {
		o.log.Warn("restoring system config failed", "err", err)
	}
}
