// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmd wires options, persisted state, and the orchestrator
// into the two invocation entry points: setup and teardown.
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

// RunSetup executes the forward pass: load options, select the
// platform profile, record that setup was attempted, then drive the
// orchestrator and publish the connection contract.
func RunSetup(ctx context.Context, configFile, stateFile string) error {
	log := logging.New("setup")

	opts, err := config.Load(configFile)
	if err != nil {
		return err
	}
	user, err := opts.ResolveUser()
	if err != nil {
		return err
	}

	profile := platform.Detect()
	log.Info("platform selected",
		"family", profile.Family.String(),
		"distro", profile.Distro,
		"service_manager", profile.UsesServiceManager,
	)

	if stateFile == "" {
		stateFile = state.DefaultPath()
	}
	st, err := state.Load(stateFile)
	if err != nil {
		return err
	}
	if st.Phase != state.PhaseNotStarted {
		log.Warn("state file reports a previous run", "phase", string(st.Phase))
	}

	// Record the attempt before the first side effect so a later
	// teardown runs even if setup fails partway.
	st.Phase = state.PhaseSetupAttempted
	if err := state.Save(stateFile, st); err != nil {
		return err
	}

	orch := lifecycle.New(profile, lifecycle.Options{
		Port:              opts.Port,
		User:              user,
		ServerKeyMaterial: opts.ServerKey,
		AuthorizedKeys:    opts.AuthorizedKeys,
		UseRemoteKeys:     opts.UseActorSSHKeys,
		RemoteUsername:    opts.RemoteUsername,
		ProfileHost:       opts.ProfileHost,
	}, &execx.Local{Log: log}, log)

	info, setupErr := orch.Setup(ctx, st)

	// Persist whatever mutations happened, success or not; teardown
	// needs the config and backup paths.
	if setupErr == nil {
		st.Phase = state.PhaseSetupComplete
	}
	if err := state.Save(stateFile, st); err != nil {
		log.Warn("persisting state failed", "err", err)
	}

	if setupErr != nil {
		return setupErr
	}
	return info.Publish(log)
}
