// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config ingests the declarative option set. Options arrive
// either as environment variables with the SSHGATE_INPUT_ prefix (the
// CI input path) or from an HCL file; the file takes precedence.
package config

import (
	"os"
	"os/user"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/kelseyhightower/envconfig"

	"github.com/openrunner/sshgate/internal/errors"
)

// CurrentUserSentinel resolves to the invoking account. The source
// revisions disagreed on the spelling; "current-user" is the one we
// accept, alongside the empty string.
const CurrentUserSentinel = "current-user"

// EnvPrefix is the prefix for environment-variable option ingestion.
const EnvPrefix = "sshgate_input"

const (
	// DefaultPort is deliberately distinct from the platform's default
	// SSH port so a pre-existing daemon is never collided with.
	DefaultPort = 2222

	// DefaultProfileHost serves `GET /<username>.keys`.
	DefaultProfileHost = "github.com"
)

// Options is the declarative input set, immutable once loaded.
type Options struct {
	Port            int    `hcl:"port,optional" envconfig:"PORT"`
	SSHUser         string `hcl:"ssh_user,optional" envconfig:"SSH_USER"`
	ServerKey       string `hcl:"server_key,optional" envconfig:"SERVER_KEY"`
	AuthorizedKeys  string `hcl:"authorized_keys,optional" envconfig:"AUTHORIZED_KEYS"`
	UseActorSSHKeys bool   `hcl:"use_actor_ssh_keys,optional" envconfig:"USE_ACTOR_SSH_KEYS"`
	RemoteUsername  string `hcl:"remote_username,optional" envconfig:"REMOTE_USERNAME"`
	ProfileHost     string `hcl:"profile_host,optional" envconfig:"PROFILE_HOST"`
}

// Load builds the option set. Environment inputs are read first; when
// path is non-empty the HCL file is loaded over them. Defaults are
// applied last and the result validated.
func Load(path string) (*Options, error) {
	opts := &Options{}
	if err := envconfig.Process(EnvPrefix, opts); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "reading environment inputs")
	}

	if path != "" {
		if err := hclsimple.DecodeFile(path, nil, opts); err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, "loading option file %s", path)
		}
	}

	opts.applyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) applyDefaults() {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.ProfileHost == "" {
		o.ProfileHost = DefaultProfileHost
	}
}

// Validate checks the option set for values the rest of the system
// cannot act on.
func (o *Options) Validate() error {
	if o.Port < 1 || o.Port > 65535 {
		return errors.Errorf(errors.KindConfig, "port %d out of range [1, 65535]", o.Port)
	}
	if o.UseActorSSHKeys && strings.TrimSpace(o.RemoteUsername) == "" {
		return errors.New(errors.KindConfig, "use_actor_ssh_keys requires remote_username")
	}
	return nil
}

// ResolveUser returns the account the daemon will allow. The empty
// string and the current-user sentinel both resolve to the invoking
// account; anything else is taken literally.
func (o *Options) ResolveUser() (string, error) {
	name := strings.TrimSpace(o.SSHUser)
	if name != "" && name != CurrentUserSentinel {
		return name, nil
	}

	if env := os.Getenv("USER"); env != "" {
		return env, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", errors.Wrap(err, errors.KindConfig, "resolving invoking account")
	}
	// Windows reports DOMAIN\name; the daemon directives want the bare
	// account name.
	if i := strings.LastIndexByte(u.Username, '\\'); i >= 0 {
		return u.Username[i+1:], nil
	}
	return u.Username, nil
}
