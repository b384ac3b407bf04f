// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sshdconf renders the daemon configuration document. The
// renderer is a pure function of its inputs and performs no I/O;
// persisting the document is the orchestrator's job.
package sshdconf

import (
	"fmt"
	"strings"

	"github.com/openrunner/sshgate/internal/platform"
)

// Options are the caller-controlled knobs of the rendered document.
// Everything else is fixed policy.
type Options struct {
	Port int
	User string
}

// Render produces the complete configuration document for the given
// profile and options. Identical inputs produce byte-identical output.
//
// Two directives are non-negotiable regardless of platform or options:
// PasswordAuthentication is always off (key-only auth is the system's
// core security invariant) and AllowUsers restricts access to exactly
// the configured account.
func Render(profile platform.Profile, opts Options) string {
	var b strings.Builder

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("Port %d", opts.Port)
	line("Protocol 2")
	// Absolute platform path plus the conventional per-user fallback.
	line("AuthorizedKeysFile %s .ssh/authorized_keys", profile.AuthorizedKeysPath)
	line("PermitRootLogin no")
	line("PasswordAuthentication no")
	line("PubkeyAuthentication yes")
	line("ChallengeResponseAuthentication no")
	if profile.Family != platform.FamilyWindows {
		line("UsePAM yes")
	}
	line("SyslogFacility AUTH")
	line("LogLevel INFO")
	// Keep-alive probes and conservative bounds against brute force
	// and session exhaustion.
	line("ClientAliveInterval 30")
	line("ClientAliveCountMax 4")
	line("MaxAuthTries 4")
	line("MaxSessions 10")
	// Forwarding stays off except TCP, which tunneling relies on.
	line("AllowAgentForwarding no")
	line("AllowTcpForwarding yes")
	line("X11Forwarding no")
	line("PermitTunnel no")
	line("GatewayPorts no")
	line("AllowUsers %s", opts.User)
	line("Subsystem sftp %s", profile.SFTPSubsystemPath)

	if profile.Family == platform.FamilyWindows {
		line("Match Group administrators")
		line("       AuthorizedKeysFile __PROGRAMDATA__/ssh/administrators_authorized_keys")
	}

	return b.String()
}
