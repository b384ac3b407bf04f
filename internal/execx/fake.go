// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package execx

import (
	"context"
	"strings"
	"sync"
)

// Fake records commands instead of executing them. Used by tests.
type Fake struct {
	mu    sync.Mutex
	Calls [][]string

	// Results maps a command prefix (joined with spaces) to a scripted
	// outcome. The first matching prefix wins; unmatched commands
	// succeed with empty output.
	Results map[string]FakeResult

	// Missing lists executable names LookPath reports as absent.
	Missing []string
}

// FakeResult scripts one command outcome.
type FakeResult struct {
	Output string
	Err    error
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, argv []string) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, argv)
	f.mu.Unlock()

	joined := strings.Join(argv, " ")
	for prefix, res := range f.Results {
		if strings.HasPrefix(joined, prefix) {
			return res.Output, res.Err
		}
	}
	return "", nil
}

// LookPath implements Runner.
func (f *Fake) LookPath(name string) (string, error) {
	for _, m := range f.Missing {
		if m == name {
			return "", &notFoundError{name: name}
		}
	}
	return "/usr/bin/" + name, nil
}

// Ran reports whether any recorded command starts with prefix.
func (f *Fake) Ran(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, argv := range f.Calls {
		if strings.HasPrefix(strings.Join(argv, " "), prefix) {
			return true
		}
	}
	return false
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "executable not found: " + e.name }
