// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package state persists the lifecycle marker across the two
// invocations of sshgate. Setup records that it was attempted before
// the first side effect, so teardown runs even after a partial
// failure and never leaks a running daemon or a mutated system file.
package state

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openrunner/sshgate/internal/errors"
)

// Phase is the persisted lifecycle position.
type Phase string

const (
	PhaseNotStarted     Phase = "not-started"
	PhaseSetupAttempted Phase = "setup-attempted"
	PhaseSetupComplete  Phase = "setup-complete"
	PhaseTornDown       Phase = "torn-down"
)

// State is the document persisted between invocations.
type State struct {
	Phase Phase  `yaml:"phase"`
	RunID string `yaml:"run_id,omitempty"`

	Port int    `yaml:"port,omitempty"`
	User string `yaml:"user,omitempty"`

	// ConfigPath is the configuration file the daemon was started
	// against (the custom file on Linux, the system file elsewhere).
	ConfigPath string `yaml:"config_path,omitempty"`

	// BackupPath is the copy of the system configuration taken before
	// setup mutated anything. Empty when no backup was needed.
	BackupPath string `yaml:"backup_path,omitempty"`
}

// EnvPathVar overrides the state file location.
const EnvPathVar = "SSHGATE_STATE_FILE"

// DefaultPath returns the state file location: the override variable
// when set, otherwise a fixed file under the OS temp directory.
func DefaultPath() string {
	if p := os.Getenv(EnvPathVar); p != "" {
		return p
	}
	return filepath.Join(os.TempDir(), "sshgate", "state.yaml")
}

// Load reads the persisted state. A missing file is not an error; it
// yields the not-started state, which routes the invocation down the
// setup path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{Phase: PhaseNotStarted}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindState, "reading state file %s", path)
	}

	st := &State{}
	if err := yaml.Unmarshal(data, st); err != nil {
		return nil, errors.Wrapf(err, errors.KindState, "parsing state file %s", path)
	}
	if st.Phase == "" {
		st.Phase = PhaseNotStarted
	}
	return st, nil
}

// Save persists the state, creating the parent directory with
// restrictive permissions.
func Save(path string, st *State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return errors.Wrap(err, errors.KindState, "encoding state")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, errors.KindState, "creating state directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, errors.KindState, "writing state file %s", path)
	}
	return nil
}
