// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package keys gathers the authorized public keys the daemon will
// accept. Key syntax is not validated here; malformed lines are passed
// through and rejected by the daemon at its own config-parse time.
package keys

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openrunner/sshgate/internal/errors"
	"github.com/openrunner/sshgate/internal/logging"
)

const fetchTimeout = 10 * time.Second

// Resolver merges literal key material with keys fetched from the
// profile host.
type Resolver struct {
	// ProfileHost serves `GET https://<host>/<username>.keys`.
	ProfileHost string

	// Client is the HTTP client for remote fetches. Nil selects a
	// default with a bounded timeout.
	Client *http.Client

	Log *logging.Logger
}

// SplitLiteral splits raw multiline key text into individual key
// lines, dropping blank and whitespace-only lines and preserving
// order.
func SplitLiteral(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// FetchRemote retrieves the newline-delimited public keys published
// for username on the profile host. Any non-200 status or transport
// error is returned to the caller; Resolve downgrades it to a warning.
func (r *Resolver) FetchRemote(ctx context.Context, username string) ([]string, error) {
	url := fmt.Sprintf("https://%s/%s.keys", r.ProfileHost, username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "building key fetch request")
	}

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnreachable, "fetching keys for %s", username)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf(errors.KindUnreachable, "profile host returned %d for %s", resp.StatusCode, username)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnreachable, "reading key response for %s", username)
	}

	return SplitLiteral(string(body)), nil
}

// Resolve builds the authorized key set: literal lines first, then
// remotely fetched lines when enabled. A remote failure is a warning
// and resolution continues; an empty resulting set is the one
// unrecoverable condition, because a keyless daemon with no password
// fallback is useless.
func (r *Resolver) Resolve(ctx context.Context, literal string, useRemote bool, remoteUsername string) ([]string, error) {
	set := SplitLiteral(literal)

	if useRemote {
		remote, err := r.FetchRemote(ctx, remoteUsername)
		if err != nil {
			r.Log.Warn("remote key fetch failed, continuing with literal keys", "user", remoteUsername, "err", err)
		} else {
			r.Log.Info("fetched remote keys", "user", remoteUsername, "count", len(remote))
			set = append(set, remote...)
		}
	}

	if len(set) == 0 {
		return nil, errors.New(errors.KindNoAuthorizedKeys, "no authorized keys resolved; key-only authentication requires at least one public key")
	}
	return set, nil
}
