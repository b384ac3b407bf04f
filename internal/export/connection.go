// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package export publishes the caller-facing connection contract.
// Host/port/user are the load-bearing outputs; host public keys are a
// best-effort convenience and their absence is only a warning.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/openrunner/sshgate/internal/logging"
	"github.com/openrunner/sshgate/internal/platform"
)

// EnvOutputVar names the file output lines are appended to. Unset
// means outputs are only logged.
const EnvOutputVar = "SSHGATE_OUTPUT"

// hostPublicKeyFiles are the public key files tried per algorithm.
var hostPublicKeyFiles = []string{
	"ssh_host_rsa_key.pub",
	"ssh_host_ecdsa_key.pub",
	"ssh_host_ed25519_key.pub",
}

// HostKey is one host public key in the export contract.
type HostKey struct {
	Type    string
	Content string
}

// ConnectionInfo is the endpoint contract produced once at the end of
// a successful setup pass and immutable afterward.
type ConnectionInfo struct {
	Hostname string
	Port     int
	User     string
	HostKeys []HostKey
}

// Collect builds the connection info for a completed setup. Host key
// lookup failures are logged, not returned: an empty key list is a
// valid export.
func Collect(profile platform.Profile, port int, user string, log *logging.Logger) ConnectionInfo {
	info := ConnectionInfo{
		Hostname: "localhost",
		Port:     port,
		User:     user,
	}

	for _, name := range hostPublicKeyFiles {
		path := filepath.Join(profile.HostKeyDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		keyType := ""
		if pub, _, _, _, err := ssh.ParseAuthorizedKey(data); err == nil {
			keyType = pub.Type()
		} else {
			log.Warn("host public key did not parse, exporting raw", "path", path, "err", err)
		}
		info.HostKeys = append(info.HostKeys, HostKey{Type: keyType, Content: content})
	}

	if len(info.HostKeys) == 0 {
		log.Warn("no host public keys found", "dir", profile.HostKeyDir)
	}
	return info
}

// HostKeysText returns the concatenated host public key lines, one per
// line, possibly empty.
func (c ConnectionInfo) HostKeysText() string {
	var b strings.Builder
	for _, k := range c.HostKeys {
		b.WriteString(k.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Publish appends the output contract to the output file named by
// EnvOutputVar and logs the endpoint. Multiline values use the
// heredoc form so they survive the name=value framing.
func (c ConnectionInfo) Publish(log *logging.Logger) error {
	log.Info("connection ready",
		"hostname", c.Hostname,
		"port", c.Port,
		"username", c.User,
		"host_keys", len(c.HostKeys),
	)

	path := os.Getenv(EnvOutputVar)
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", path, err)
	}
	defer f.Close()

	return c.write(f)
}

func (c ConnectionInfo) write(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("hostname=%s", c.Hostname),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("username=%s", c.User),
		"host-keys<<SSHGATE_EOF",
		strings.TrimRight(c.HostKeysText(), "\n"),
		"SSHGATE_EOF",
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
