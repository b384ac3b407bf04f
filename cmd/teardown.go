// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"

	"github.com/openrunner/sshgate/internal/config"
	"github.com/openrunner/sshgate/internal/execx"
	"github.com/openrunner/sshgate/internal/lifecycle"
	"github.com/openrunner/sshgate/internal/logging"
	"github.com/openrunner/sshgate/internal/platform"
	"github.com/openrunner/sshgate/internal/state"
)

// RunTeardown executes the reverse pass. It never fails the run: by
// the time it is invoked the job's primary work is complete, so every
// problem is a warning and cleanup stays best-effort.
func RunTeardown(ctx context.Context, configFile, stateFile string) error {
	log := logging.New("teardown")

	if stateFile == "" {
		stateFile = state.DefaultPath()
	}
	st, err := state.Load(stateFile)
	if err != nil {
		log.Warn("state file unreadable, skipping teardown", "err", err)
		return nil
	}
	if st.Phase == state.PhaseNotStarted {
		log.Info("setup never ran, nothing to tear down")
		return nil
	}
	if st.Phase == state.PhaseTornDown {
		log.Warn("teardown already ran")
		return nil
	}

	opts, err := config.Load(configFile)
	if err != nil {
		log.Warn("option load failed, using persisted state only", "err", err)
		opts = &config.Options{Port: st.Port}
	}
	if opts.Port == 0 {
		opts.Port = config.DefaultPort
	}

	profile := platform.Detect()
	orch := lifecycle.New(profile, lifecycle.Options{
		Port: opts.Port,
		User: st.User,
	}, &execx.Local{Log: log}, log)

	orch.Teardown(ctx, st)

	st.Phase = state.PhaseTornDown
	if err := state.Save(stateFile, st); err != nil {
		log.Warn("persisting state failed", "err", err)
	}

	log.Info("teardown complete")
	return nil
}
