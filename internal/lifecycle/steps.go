// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package lifecycle

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sethvargo/go-retry"

	"github.com/openrunner/sshgate/internal/errors"
	"github.com/openrunner/sshgate/internal/platform"
	"github.com/openrunner/sshgate/internal/sshdconf"
	"github.com/openrunner/sshgate/internal/state"
)

// install invokes the platform's install recipe. A pre-check for an
// already-present daemon binary short-circuits reinstallation, and the
// whole step is warning-only: the daemon may exist in ways the check
// does not see.
func (o *Orchestrator) install(ctx context.Context, _ *state.State) error {
	if o.daemonPresent() {
		o.log.Info("daemon already installed", "binary", o.profile.DaemonBinary)
		return nil
	}

	if len(o.profile.Install) == 0 {
		o.log.Warn("no install recipe for this platform, assuming daemon is present",
			"family", o.profile.Family.String(), "distro", o.profile.Distro)
		return nil
	}

	for _, argv := range o.profile.Install {
		if _, err := o.runner.Run(ctx, argv); err != nil {
			return err
		}
	}
	o.log.Info("daemon installed")
	return nil
}

func (o *Orchestrator) daemonPresent() bool {
	if o.profile.DaemonBinary != "" {
		if _, err := os.Stat(o.profile.DaemonBinary); err == nil {
			return true
		}
	}
	_, err := o.runner.LookPath("sshd")
	return err == nil
}

// ensureHostKeys delegates to the provisioner. Fatal: no daemon can
// start without an identity key.
func (o *Orchestrator) ensureHostKeys(ctx context.Context, _ *state.State) error {
	return o.provisioner.Ensure(ctx, o.profile, o.opts.ServerKeyMaterial)
}

// configure renders the configuration document and persists it. On
// Linux the system default file is first copied aside and the daemon
// later started against a separate custom file via -f; the backup
// protects the default path during restoration. Windows and macOS
// write in place.
func (o *Orchestrator) configure(_ context.Context, st *state.State) error {
	doc := sshdconf.Render(o.profile, sshdconf.Options{
		Port: o.opts.Port,
		User: o.opts.User,
	})

	target := o.profile.ConfigPath
	if o.profile.Family == platform.FamilyLinux {
		if err := os.MkdirAll(o.stateDir, 0o700); err != nil {
			return errors.Wrapf(err, errors.KindConfig, "creating %s", o.stateDir)
		}
		if _, err := os.Stat(o.profile.ConfigPath); err == nil {
			backup := filepath.Join(o.stateDir, "sshd_config.system."+o.runID)
			if err := copyFile(o.profile.ConfigPath, backup); err != nil {
				return errors.Wrap(err, errors.KindConfig, "backing up system config")
			}
			st.BackupPath = backup
			o.log.Info("backed up system config", "path", backup)
		}
		target = filepath.Join(o.stateDir, "sshd_config")
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, errors.KindConfig, "creating config directory for %s", target)
	}
	if err := os.WriteFile(target, []byte(doc), 0o644); err != nil {
		return errors.Wrapf(err, errors.KindConfig, "writing config %s", target)
	}

	st.ConfigPath = target
	o.log.Info("wrote daemon config", "path", target)
	return nil
}

// checkConfig asks the daemon to validate the written document.
// Warning-only: an older daemon may not support the check flag.
func (o *Orchestrator) checkConfig(ctx context.Context, st *state.State) error {
	if o.profile.UsesServiceManager {
		return nil
	}
	bin, err := o.daemonBinary()
	if err != nil {
		return err
	}
	_, err = o.runner.Run(ctx, []string{bin, "-t", "-f", st.ConfigPath})
	return err
}

// authorize resolves the key set and writes the authorized-keys
// file(s) with owner-only permissions. An empty resolved set is the
// fatal NoAuthorizedKeys condition.
func (o *Orchestrator) authorize(ctx context.Context, _ *state.State) error {
	set, err := o.resolver.Resolve(ctx, o.opts.AuthorizedKeys, o.opts.UseRemoteKeys, o.opts.RemoteUsername)
	if err != nil {
		return err
	}

	content := strings.Join(set, "\n") + "\n"
	if err := writeAuthorizedKeys(o.profile.AuthorizedKeysPath, content); err != nil {
		return err
	}
	o.log.Info("wrote authorized keys", "path", o.profile.AuthorizedKeysPath, "count", len(set))

	if o.profile.AdminAuthorizedKeysPath != "" {
		if err := writeAuthorizedKeys(o.profile.AdminAuthorizedKeysPath, content); err != nil {
			return err
		}
		for _, argv := range o.profile.TightenACL {
			if _, err := o.runner.Run(ctx, argv); err != nil {
				o.log.Warn("tightening admin key file ACL failed", "err", err)
			}
		}
	}
	return nil
}

func writeAuthorizedKeys(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, errors.KindInternal, "creating key directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return errors.Wrapf(err, errors.KindInternal, "writing authorized keys %s", path)
	}
	return nil
}

// ensurePrivSepDir creates the privilege-separation runtime directory.
// Warning-only: it may already exist system-wide.
func (o *Orchestrator) ensurePrivSepDir(_ context.Context, _ *state.State) error {
	if o.profile.PrivSepDir == "" {
		return nil
	}
	return os.MkdirAll(o.profile.PrivSepDir, 0o755)
}

// start launches the daemon: service-manager start on Windows, a
// direct launch bound to the configured port elsewhere. The Unix
// daemon logs to a file under the state dir so startup failures are
// diagnosable.
func (o *Orchestrator) start(ctx context.Context, st *state.State) error {
	if o.profile.UsesServiceManager {
		if _, err := o.runner.Run(ctx, o.profile.ServiceStart); err != nil {
			return errors.Wrap(err, errors.KindCommand, "starting daemon service")
		}
		o.log.Info("daemon service started")
		return nil
	}

	bin, err := o.daemonBinary()
	if err != nil {
		return errors.Wrap(err, errors.KindCommand, "locating daemon binary")
	}
	logPath := filepath.Join(o.stateDir, "sshd.log")

	argv := []string{bin, "-f", st.ConfigPath, "-p", strconv.Itoa(o.opts.Port), "-E", logPath}
	if _, err := o.runner.Run(ctx, argv); err != nil {
		return errors.Wrap(err, errors.KindCommand, "starting daemon")
	}
	o.log.Info("daemon started", "port", o.opts.Port, "log", logPath)
	return nil
}

func (o *Orchestrator) daemonBinary() (string, error) {
	if o.profile.DaemonBinary != "" {
		if _, err := os.Stat(o.profile.DaemonBinary); err == nil {
			return o.profile.DaemonBinary, nil
		}
	}
	return o.runner.LookPath("sshd")
}

// verify probes the configured port until it accepts a connection or
// the budget is exhausted. A configured-but-unreachable daemon is a
// hard setup failure, not a warning.
func (o *Orchestrator) verify(ctx context.Context, _ *state.State) error {
	addr := net.JoinHostPort("localhost", strconv.Itoa(o.opts.Port))

	backoff := retry.WithMaxDuration(o.verifyBudget, retry.NewConstant(o.verifyInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := net.DialTimeout("tcp", addr, o.verifyInterval)
		if err != nil {
			return retry.RetryableError(err)
		}
		conn.Close()
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, errors.KindUnreachable, "daemon not reachable on %s", addr)
	}
	o.log.Info("daemon verified", "addr", addr)
	return nil
}

// stopDaemon stops the daemon on teardown: service-manager stop on
// Windows, process-match-and-terminate by configured port elsewhere.
func (o *Orchestrator) stopDaemon(ctx context.Context, st *state.State) error {
	if o.profile.UsesServiceManager {
		_, err := o.runner.Run(ctx, o.profile.ServiceStop)
		return err
	}

	port := st.Port
	if port == 0 {
		port = o.opts.Port
	}
	// Matches daemon processes whose command line references the
	// configured port (we start them with an explicit -p).
	pattern := fmt.Sprintf("sshd.*-p %d", port)
	_, err := o.runner.Run(ctx, []string{"pkill", "-f", pattern})
	return err
}

// restoreBackup puts the backed-up system configuration back.
func (o *Orchestrator) restoreBackup(st *state.State) error {
	if st.BackupPath == "" {
		return nil
	}
	if err := copyFile(st.BackupPath, o.profile.ConfigPath); err != nil {
		return err
	}
	o.log.Info("restored system config", "path", o.profile.ConfigPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
