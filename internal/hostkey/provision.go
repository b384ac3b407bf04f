// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package hostkey ensures the daemon has a host identity key pair
// before first start. Windows defers generation to the service's own
// first-start bootstrap; Unix-family platforms generate explicitly.
package hostkey

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/keygen"
	"golang.org/x/crypto/ssh"

	"github.com/openrunner/sshgate/internal/errors"
	"github.com/openrunner/sshgate/internal/execx"
	"github.com/openrunner/sshgate/internal/logging"
	"github.com/openrunner/sshgate/internal/platform"
)

// hostKeyFiles are the well-known private key filenames, one per
// algorithm the export step later looks for.
var hostKeyFiles = []string{
	"ssh_host_rsa_key",
	"ssh_host_ecdsa_key",
	"ssh_host_ed25519_key",
}

// Provisioner installs or generates the daemon's host identity.
type Provisioner struct {
	Runner execx.Runner
	Log    *logging.Logger
}

// Ensure guarantees a host identity exists under the profile's host
// key directory. Existing keys on an unmodified installation are never
// regenerated. Failure is fatal to setup: a daemon cannot start
// without an identity key.
func (p *Provisioner) Ensure(ctx context.Context, profile platform.Profile, suppliedKeyMaterial string) error {
	if suppliedKeyMaterial != "" {
		return p.installSupplied(ctx, profile, suppliedKeyMaterial)
	}

	if profile.Family == platform.FamilyWindows {
		// The service manager bootstraps missing host keys at first
		// start; generating here would race it.
		p.Log.Debug("deferring host key generation to service bootstrap")
		return nil
	}

	if existing := presentKeys(profile.HostKeyDir); len(existing) > 0 {
		p.Log.Info("host keys already present", "dir", profile.HostKeyDir, "count", len(existing))
		return nil
	}

	return p.generate(ctx, profile)
}

// installSupplied writes caller-provided private key material under a
// well-known filename with owner-only permissions, then derives the
// companion public key file.
func (p *Provisioner) installSupplied(ctx context.Context, profile platform.Profile, material string) error {
	name := "ssh_host_ed25519_key"
	var signer ssh.Signer

	if s, err := ssh.ParsePrivateKey([]byte(material)); err == nil {
		signer = s
		name = fileForKeyType(s.PublicKey().Type())
	} else {
		p.Log.Warn("supplied host key did not parse; installing verbatim", "err", err)
	}

	if err := os.MkdirAll(profile.HostKeyDir, 0o755); err != nil {
		return errors.Wrapf(err, errors.KindHostKey, "creating %s", profile.HostKeyDir)
	}

	privPath := filepath.Join(profile.HostKeyDir, name)
	if !strings.HasSuffix(material, "\n") {
		material += "\n"
	}
	if err := os.WriteFile(privPath, []byte(material), 0o600); err != nil {
		return errors.Wrapf(err, errors.KindHostKey, "writing host key %s", privPath)
	}
	p.Log.Info("installed supplied host key", "path", privPath)

	pubPath := privPath + ".pub"
	if signer != nil {
		pub := ssh.MarshalAuthorizedKey(signer.PublicKey())
		if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
			return errors.Wrapf(err, errors.KindHostKey, "writing host public key %s", pubPath)
		}
		return nil
	}

	// Unparseable material: let the key utility try to derive the
	// public half. The daemon can still load the private key alone, so
	// a failure here is only a warning.
	out, err := p.Runner.Run(ctx, []string{"ssh-keygen", "-y", "-f", privPath})
	if err != nil {
		p.Log.Warn("could not derive host public key", "err", err)
		return nil
	}
	if err := os.WriteFile(pubPath, []byte(out), 0o644); err != nil {
		p.Log.Warn("could not write derived host public key", "path", pubPath, "err", err)
	}
	return nil
}

// generate creates fresh host keys: the platform key utility when
// available, otherwise an in-process ed25519 pair.
func (p *Provisioner) generate(ctx context.Context, profile platform.Profile) error {
	if _, err := p.Runner.LookPath("ssh-keygen"); err == nil {
		if _, err := p.Runner.Run(ctx, []string{"ssh-keygen", "-A"}); err != nil {
			return errors.Wrap(err, errors.KindHostKey, "generating host keys")
		}
		p.Log.Info("generated host keys", "dir", profile.HostKeyDir)
		return nil
	}

	path := filepath.Join(profile.HostKeyDir, "ssh_host_ed25519_key")
	if err := os.MkdirAll(profile.HostKeyDir, 0o755); err != nil {
		return errors.Wrapf(err, errors.KindHostKey, "creating %s", profile.HostKeyDir)
	}
	if _, err := keygen.New(path, keygen.WithKeyType(keygen.Ed25519), keygen.WithWrite()); err != nil {
		return errors.Wrap(err, errors.KindHostKey, "generating ed25519 host key")
	}
	p.Log.Info("generated host key in-process", "path", path)
	return nil
}

// presentKeys lists the well-known private key files that already
// exist in dir.
func presentKeys(dir string) []string {
	var found []string
	for _, name := range hostKeyFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			found = append(found, name)
		}
	}
	return found
}

func fileForKeyType(keyType string) string {
	switch {
	case keyType == ssh.KeyAlgoED25519:
		return "ssh_host_ed25519_key"
	case keyType == ssh.KeyAlgoRSA:
		return "ssh_host_rsa_key"
	case strings.HasPrefix(keyType, "ecdsa-"):
		return "ssh_host_ecdsa_key"
	default:
		return "ssh_host_ed25519_key"
	}
}
