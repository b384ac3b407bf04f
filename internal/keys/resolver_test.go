// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package keys

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/openrunner/sshgate/internal/errors"
	"github.com/openrunner/sshgate/internal/logging"
)

func TestSplitLiteral(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "single key",
			raw:  "ssh-ed25519 AAAA user@x",
			want: []string{"ssh-ed25519 AAAA user@x"},
		},
		{
			name: "order preserved, blanks dropped",
			raw:  "ssh-rsa BBBB a@x\n\n   \nssh-ed25519 AAAA b@x\n",
			want: []string{"ssh-rsa BBBB a@x", "ssh-ed25519 AAAA b@x"},
		},
		{
			name: "crlf input",
			raw:  "ssh-rsa BBBB a@x\r\nssh-ed25519 AAAA b@x\r\n",
			want: []string{"ssh-rsa BBBB a@x", "ssh-ed25519 AAAA b@x"},
		},
		{
			name: "empty",
			raw:  "",
			want: nil,
		},
		{
			name: "whitespace only",
			raw:  "  \n\t\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SplitLiteral(tt.raw))
		})
	}
}

// profileHost spins up a fake profile host serving <username>.keys.
func profileHost(t *testing.T, keys map[string]string) (*httptest.Server, *Resolver) {
	t.Helper()

	r := mux.NewRouter()
	r.HandleFunc("/{username}.keys", func(w http.ResponseWriter, req *http.Request) {
		body, ok := keys[mux.Vars(req)["username"]]
		if !ok {
			http.NotFound(w, req)
			return
		}
		io.WriteString(w, body)
	})

	srv := httptest.NewTLSServer(r)
	t.Cleanup(srv.Close)

	resolver := &Resolver{
		ProfileHost: srv.Listener.Addr().String(),
		Client:      srv.Client(),
		Log:         logging.NewWithWriter(io.Discard, "test"),
	}
	return srv, resolver
}

func TestFetchRemote(t *testing.T) {
	_, resolver := profileHost(t, map[string]string{
		"octocat": "ssh-ed25519 AAAA octocat@github\nssh-rsa BBBB octocat@github\n",
	})

	got, err := resolver.FetchRemote(context.Background(), "octocat")
	require.NoError(t, err)
	require.Equal(t, []string{
		"ssh-ed25519 AAAA octocat@github",
		"ssh-rsa BBBB octocat@github",
	}, got)
}

func TestFetchRemoteNotFound(t *testing.T) {
	_, resolver := profileHost(t, nil)

	_, err := resolver.FetchRemote(context.Background(), "ghost")
	require.Error(t, err)
	require.Equal(t, errors.KindUnreachable, errors.GetKind(err))
}

func TestResolveLiteralOnly(t *testing.T) {
	resolver := &Resolver{Log: logging.NewWithWriter(io.Discard, "test")}

	got, err := resolver.Resolve(context.Background(), "ssh-ed25519 AAAA user@x", false, "")
	require.NoError(t, err)
	require.Equal(t, []string{"ssh-ed25519 AAAA user@x"}, got)
}

func TestResolveLiteralThenRemote(t *testing.T) {
	_, resolver := profileHost(t, map[string]string{
		"octocat": "ssh-rsa REMOTE octocat@github\n",
	})

	got, err := resolver.Resolve(context.Background(), "ssh-ed25519 LOCAL user@x", true, "octocat")
	require.NoError(t, err)
	// Literal lines come first; remote lines follow.
	require.Equal(t, []string{
		"ssh-ed25519 LOCAL user@x",
		"ssh-rsa REMOTE octocat@github",
	}, got)
}

func TestResolveRemoteFailureContinuesWithLiteral(t *testing.T) {
	_, resolver := profileHost(t, nil)

	got, err := resolver.Resolve(context.Background(), "ssh-ed25519 LOCAL user@x", true, "ghost")
	require.NoError(t, err)
	require.Equal(t, []string{"ssh-ed25519 LOCAL user@x"}, got)
}

func TestResolveEmptyIsFatal(t *testing.T) {
	resolver := &Resolver{Log: logging.NewWithWriter(io.Discard, "test")}

	_, err := resolver.Resolve(context.Background(), "", false, "")
	require.Error(t, err)
	require.Equal(t, errors.KindNoAuthorizedKeys, errors.GetKind(err))
}

func TestResolveEmptyAfterRemoteFailureIsFatal(t *testing.T) {
	_, resolver := profileHost(t, nil)

	_, err := resolver.Resolve(context.Background(), "", true, "ghost")
	require.Error(t, err)
	require.Equal(t, errors.KindNoAuthorizedKeys, errors.GetKind(err))
}
