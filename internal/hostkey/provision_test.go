// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hostkey

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/openrunner/sshgate/internal/execx"
	"github.com/openrunner/sshgate/internal/logging"
	"github.com/openrunner/sshgate/internal/platform"
)

func testProvisioner(fake *execx.Fake) *Provisioner {
	return &Provisioner{
		Runner: fake,
		Log:    logging.NewWithWriter(io.Discard, "test"),
	}
}

func linuxProfileAt(dir string) platform.Profile {
	p := platform.Select("linux", "debian", dir)
	p.HostKeyDir = dir
	return p
}

func ed25519Material(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "test host key")
	require.NoError(t, err)
	return string(pem.EncodeToMemory(block))
}

func TestEnsureInstallsSuppliedMaterial(t *testing.T) {
	dir := t.TempDir()
	fake := &execx.Fake{}
	p := testProvisioner(fake)

	err := p.Ensure(context.Background(), linuxProfileAt(dir), ed25519Material(t))
	require.NoError(t, err)

	privPath := filepath.Join(dir, "ssh_host_ed25519_key")
	info, err := os.Stat(privPath)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	pub, err := os.ReadFile(privPath + ".pub")
	require.NoError(t, err)
	_, _, _, _, err = ssh.ParseAuthorizedKey(pub)
	require.NoError(t, err)

	// Parsed material derives the public key in-process; the key
	// utility must not have been invoked.
	require.Empty(t, fake.Calls)
}

func TestEnsureUnparseableMaterialFallsBackToKeygen(t *testing.T) {
	dir := t.TempDir()
	fake := &execx.Fake{
		Results: map[string]execx.FakeResult{
			"ssh-keygen -y": {Output: "ssh-ed25519 AAAA derived\n"},
		},
	}
	p := testProvisioner(fake)

	err := p.Ensure(context.Background(), linuxProfileAt(dir), "not a real key")
	require.NoError(t, err)

	// Verbatim install under the default well-known name.
	data, err := os.ReadFile(filepath.Join(dir, "ssh_host_ed25519_key"))
	require.NoError(t, err)
	require.Equal(t, "not a real key\n", string(data))

	require.True(t, fake.Ran("ssh-keygen -y"))

	pub, err := os.ReadFile(filepath.Join(dir, "ssh_host_ed25519_key.pub"))
	require.NoError(t, err)
	require.Equal(t, "ssh-ed25519 AAAA derived\n", string(pub))
}

func TestEnsureSkipsExistingKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ssh_host_rsa_key"), []byte("existing"), 0o600))

	fake := &execx.Fake{}
	p := testProvisioner(fake)

	err := p.Ensure(context.Background(), linuxProfileAt(dir), "")
	require.NoError(t, err)
	require.Empty(t, fake.Calls, "existing installation must never be regenerated")
}

func TestEnsureGeneratesViaKeyUtility(t *testing.T) {
	dir := t.TempDir()
	fake := &execx.Fake{}
	p := testProvisioner(fake)

	err := p.Ensure(context.Background(), linuxProfileAt(dir), "")
	require.NoError(t, err)
	require.True(t, fake.Ran("ssh-keygen -A"))
}

func TestEnsureGeneratesInProcessWithoutUtility(t *testing.T) {
	dir := t.TempDir()
	fake := &execx.Fake{Missing: []string{"ssh-keygen"}}
	p := testProvisioner(fake)

	err := p.Ensure(context.Background(), linuxProfileAt(dir), "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "ssh_host_ed25519_key"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "ssh_host_ed25519_key.pub"))
	require.NoError(t, err)
}

func TestEnsureWindowsDefersToServiceBootstrap(t *testing.T) {
	fake := &execx.Fake{}
	p := testProvisioner(fake)

	profile := platform.Select("windows", "", t.TempDir())
	err := p.Ensure(context.Background(), profile, "")
	require.NoError(t, err)
	require.Empty(t, fake.Calls)
}

func TestEnsureGenerationFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	fake := &execx.Fake{
		Results: map[string]execx.FakeResult{
			"ssh-keygen -A": {Err: os.ErrPermission},
		},
	}
	p := testProvisioner(fake)

	err := p.Ensure(context.Background(), linuxProfileAt(dir), "")
	require.Error(t, err)
}
