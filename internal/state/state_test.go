// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsNotStarted(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Phase != PhaseNotStarted {
		t.Errorf("expected not-started, got %q", st.Phase)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")

	in := &State{
		Phase:      PhaseSetupComplete,
		RunID:      "abc123",
		Port:       2222,
		User:       "ci",
		ConfigPath: "/tmp/sshgate/sshd_config",
		BackupPath: "/tmp/sshgate/sshd_config.system",
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *out != *in {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "state.yaml")
	if err := Save(path, &State{Phase: PhaseSetupAttempted}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("state file mode = %o, want 600", perm)
	}
}

func TestLoadEmptyPhaseDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("port: 2222\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Phase != PhaseNotStarted {
		t.Errorf("expected not-started default, got %q", st.Phase)
	}
}

func TestDefaultPathOverride(t *testing.T) {
	t.Setenv(EnvPathVar, "/custom/state.yaml")
	if got := DefaultPath(); got != "/custom/state.yaml" {
		t.Errorf("DefaultPath() = %q", got)
	}
}
