// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the Compass CLI for analyzing repositories and
// inspecting the resulting dependency graph.
//
// Usage:
//
//	compass init                 Create .compass/project.yaml configuration
//	compass index [--full]       Analyze the current repository
//	compass status [--json]      Show project status
//	compass reset --yes          Delete local project data
//	compass watch                Re-analyze on a polling interval
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/opengraph-dev/compass/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags recognized before the subcommand name, shared by
// every command's output formatting decisions.
type GlobalFlags struct {
	JSON     bool
	Quiet    bool
	NoColor  bool
	Verbose  int
	Config   string
}

func main() {
	fs := flag.NewFlagSet("compass", flag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true

	var globals GlobalFlags
	showVersion := fs.Bool("version", false, "Show version and exit")
	fs.BoolVar(&globals.JSON, "json", false, "Output machine-readable JSON")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase logging verbosity (repeatable)")
	fs.StringVar(&globals.Config, "config", "", "Path to .compass/project.yaml (default: ./.compass/project.yaml)")

	fs.Usage = usage

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	ui.InitColors(globals.NoColor)

	if *showVersion {
		fmt.Printf("compass version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		return
	}

	args := fs.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	command, cmdArgs := args[0], args[1:]
	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "index":
		runIndex(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs, globals)
	case "watch":
		runWatch(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Compass - source dependency graph analysis CLI

Usage:
  compass <command> [options]

Commands:
  init      Create .compass/project.yaml configuration
  index     Analyze the current repository
  status    Show project status
  reset     Delete local project data (destructive!)
  watch     Re-analyze on a polling interval

Global Options:
  --json        Output machine-readable JSON
  -q, --quiet   Suppress progress output
  --no-color    Disable colored output
  -v            Increase logging verbosity (repeatable)
  --config      Path to .compass/project.yaml
  --version     Show version and exit

Examples:
  compass init
  compass index
  compass index --full
  compass status --json
  compass watch --interval 30s

Data Storage:
  Data is stored locally in ~/.compass/data/<project_id>/
`)
}
