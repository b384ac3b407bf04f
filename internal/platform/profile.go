// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package platform centralizes every per-OS decision behind one
// immutable Profile value. Exactly one profile is active per run; the
// rest of the system never branches on the OS directly.
package platform

import (
	"path/filepath"
)

// Family identifies the operating system family of the worker.
type Family int

const (
	FamilyLinux Family = iota
	FamilyDarwin
	FamilyWindows
)

func (f Family) String() string {
	switch f {
	case FamilyDarwin:
		return "macos"
	case FamilyWindows:
		return "windows"
	default:
		return "linux"
	}
}

// Profile holds the static per-OS knowledge: daemon paths and the
// command recipes for install, service start/stop, and permission
// tightening. Profiles are built once by Select and read-only after.
type Profile struct {
	Family Family

	// Distro is the resolved Linux package-manager family ("debian",
	// "rhel", "alpine"). Empty on non-Linux and on unrecognized
	// distributions, where installation is skipped with a warning.
	Distro string

	// ConfigPath is the system daemon configuration file. On Linux the
	// daemon is started against a separately written custom file and
	// this path is only backed up, never rewritten.
	ConfigPath string

	// HostKeyDir holds the daemon's host identity key pairs.
	HostKeyDir string

	// AuthorizedKeysPath is the per-user authorized_keys file.
	AuthorizedKeysPath string

	// AdminAuthorizedKeysPath is the machine-wide administrators key
	// file. Windows only; empty elsewhere.
	AdminAuthorizedKeysPath string

	// SFTPSubsystemPath is the sftp-server binary referenced by the
	// rendered Subsystem directive.
	SFTPSubsystemPath string

	// UsesServiceManager selects service-manager start/stop (Windows)
	// over direct daemon launch and process-match termination (Unix).
	UsesServiceManager bool

	// PrivSepDir is the privilege-separation runtime directory the
	// daemon expects to exist. Creation is best-effort.
	PrivSepDir string

	// DaemonBinary is the sshd executable path used for presence
	// checks and for direct launch on Unix.
	DaemonBinary string

	// Install holds zero or more commands that install the daemon. An
	// empty list means installation is skipped.
	Install [][]string

	// ServiceStart and ServiceStop are the service-manager recipes.
	// Populated only when UsesServiceManager is true.
	ServiceStart []string
	ServiceStop  []string

	// TightenACL holds post-write permission commands for the admin
	// authorized-keys file. Windows only; best-effort.
	TightenACL [][]string
}

// Select builds the active profile for the given OS identifier. It
// never fails: unknown families fall back to Linux-style paths with
// the zero-value Distro, a documented limitation rather than an error.
func Select(goos, distro, home string) Profile {
	switch goos {
	case "windows":
		programData := `C:\ProgramData\ssh`
		adminKeys := programData + `\administrators_authorized_keys`
		return Profile{
			Family:                  FamilyWindows,
			ConfigPath:              programData + `\sshd_config`,
			HostKeyDir:              programData,
			AuthorizedKeysPath:      filepath.Join(home, ".ssh", "authorized_keys"),
			AdminAuthorizedKeysPath: adminKeys,
			SFTPSubsystemPath:       "sftp-server.exe",
			UsesServiceManager:      true,
			DaemonBinary:            `C:\Windows\System32\OpenSSH\sshd.exe`,
			Install: [][]string{
				{"powershell", "-Command", "Add-WindowsCapability -Online -Name OpenSSH.Server~~~~0.0.1.0"},
			},
			ServiceStart: []string{"powershell", "-Command", "Start-Service sshd"},
			ServiceStop:  []string{"powershell", "-Command", "Stop-Service sshd"},
			TightenACL: [][]string{
				{"icacls", adminKeys, "/inheritance:r", "/grant", "Administrators:F", "/grant", "SYSTEM:F"},
			},
		}
	case "darwin":
		return Profile{
			Family:             FamilyDarwin,
			ConfigPath:         "/etc/ssh/sshd_config",
			HostKeyDir:         "/etc/ssh",
			AuthorizedKeysPath: filepath.Join(home, ".ssh", "authorized_keys"),
			SFTPSubsystemPath:  "/usr/libexec/sftp-server",
			PrivSepDir:         "/var/empty",
			DaemonBinary:       "/usr/sbin/sshd",
			// sshd ships with the OS; install is a presence check only.
			Install: nil,
		}
	default:
		return linuxProfile(distro, home)
	}
}

func linuxProfile(distro, home string) Profile {
	p := Profile{
		Family:             FamilyLinux,
		Distro:             distro,
		ConfigPath:         "/etc/ssh/sshd_config",
		HostKeyDir:         "/etc/ssh",
		AuthorizedKeysPath: filepath.Join(home, ".ssh", "authorized_keys"),
		PrivSepDir:         "/run/sshd",
		DaemonBinary:       "/usr/sbin/sshd",
	}

	switch distro {
	case "debian":
		p.SFTPSubsystemPath = "/usr/lib/openssh/sftp-server"
		p.Install = [][]string{
			{"apt-get", "update"},
			{"apt-get", "install", "-y", "openssh-server"},
		}
	case "rhel":
		p.SFTPSubsystemPath = "/usr/libexec/openssh/sftp-server"
		p.Install = [][]string{
			{"yum", "install", "-y", "openssh-server"},
		}
	case "alpine":
		p.SFTPSubsystemPath = "/usr/lib/ssh/sftp-server"
		p.Install = [][]string{
			{"apk", "add", "openssh"},
		}
	default:
		// Unrecognized distribution: the daemon binary may already be
		// present, so installation is skipped rather than failed.
		p.SFTPSubsystemPath = "/usr/lib/openssh/sftp-server"
		p.Install = nil
	}

	return p
}
