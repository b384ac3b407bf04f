// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package platform

import (
	"bufio"
	"io"
	"os"
	"os/user"
	"runtime"
	"strings"
)

const osReleasePath = "/etc/os-release"

// Detect selects the profile for the current process: GOOS, the
// release identification file for Linux distro resolution, and the
// invoking account's home directory for the authorized-keys path.
func Detect() Profile {
	distro := ""
	if runtime.GOOS == "linux" {
		if f, err := os.Open(osReleasePath); err == nil {
			distro = ParseOSRelease(f)
			f.Close()
		}
	}
	return Select(runtime.GOOS, distro, homeDir())
}

// ParseOSRelease reads an os-release document and maps the ID and
// ID_LIKE fields onto a package-manager family. Unknown distributions
// yield the empty string.
func ParseOSRelease(r io.Reader) string {
	var id, idLike string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		val = strings.Trim(val, `"`)
		switch key {
		case "ID":
			id = strings.ToLower(val)
		case "ID_LIKE":
			idLike = strings.ToLower(val)
		}
	}

	if d := matchDistro(id); d != "" {
		return d
	}
	// ID_LIKE lists parent distributions, e.g. "rhel fedora" on Rocky.
	for _, tok := range strings.Fields(idLike) {
		if d := matchDistro(tok); d != "" {
			return d
		}
	}
	return ""
}

func matchDistro(id string) string {
	switch id {
	case "ubuntu", "debian":
		return "debian"
	case "centos", "rhel", "fedora":
		return "rhel"
	case "alpine":
		return "alpine"
	}
	return ""
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return h
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	return "/root"
}
