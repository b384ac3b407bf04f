// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package execx is the single seam through which sshgate invokes
// external commands. Every call is blocking; the orchestrator attempts
// each command once and decides warn-vs-abort itself.
package execx

import (
	"context"
	"os/exec"
	"strings"

	"github.com/openrunner/sshgate/internal/errors"
	"github.com/openrunner/sshgate/internal/logging"
)

// Runner executes external commands. Tests substitute a fake.
type Runner interface {
	// Run executes argv and returns its combined output. A non-zero
	// exit yields a KindCommand error with the output attached.
	Run(ctx context.Context, argv []string) (string, error)

	// LookPath reports the absolute path of an executable, or an error
	// when it is not present.
	LookPath(name string) (string, error)
}

// Local runs commands on the local host.
type Local struct {
	Log *logging.Logger
}

// Run implements Runner.
func (l *Local) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New(errors.KindInternal, "empty command")
	}

	l.Log.Debug("exec", "argv", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		wrapped := errors.Wrapf(err, errors.KindCommand, "running %s", argv[0])
		return string(out), errors.Attr(wrapped, "output", strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// LookPath implements Runner.
func (l *Local) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
