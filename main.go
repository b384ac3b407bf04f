// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// sshgate provisions a key-only SSH daemon on an ephemeral CI worker
// and tears it down again. Two invocations per job: `sshgate setup`
// and `sshgate teardown`, sequenced by the persisted lifecycle state.
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/openrunner/sshgate/cmd"
	"github.com/openrunner/sshgate/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sshgate <setup|teardown> [flags]

Flags:
  --config FILE       load options from an HCL file (overrides env inputs)
  --state-file FILE   lifecycle state location (default: $SSHGATE_STATE_FILE
                      or the OS temp directory)
  --version           print version and exit
`)
}

func main() {
	flags := flag.NewFlagSet("sshgate", flag.ExitOnError)
	configFile := flags.String("config", "", "option file (HCL)")
	stateFile := flags.String("state-file", "", "lifecycle state file")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Usage = usage

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	if *showVersion || command == "version" || command == "--version" {
		fmt.Println("sshgate", version)
		return
	}

	ctx := context.Background()

	var err error
	switch command {
	case "setup":
		err = cmd.RunSetup(ctx, *configFile, *stateFile)
	case "teardown":
		err = cmd.RunTeardown(ctx, *configFile, *stateFile)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logging.Error("run failed", "err", err)
		os.Exit(1)
	}
}
