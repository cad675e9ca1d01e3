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

package main

import (
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/afero"

	"github.com/opengraph-dev/compass/pkg/config"
)

// runInit executes the 'init' CLI command, creating .compass/project.yaml,
// grounded on the teacher's cmd/cie/init.go (interactive prompting dropped,
// .gitignore bookkeeping kept; Compass's Config has no server addresses to
// collect, so init is a straight defaults-plus-overrides write).
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing configuration")
	includeTests := fs.Bool("include-test-files", false, "Include test files in analysis")
	includeVendor := fs.Bool("include-vendored-dependencies", false, "Include node_modules/vendor in analysis")
	maxConcurrency := fs.Int("max-concurrency", 0, "Parse worker pool size (0 = default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: compass init [options]

Creates .compass/project.yaml configuration.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fs2 := afero.NewOsFs()
	configPath := cwd + string(os.PathSeparator) + config.DefaultPath
	if _, err := fs2.Stat(configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.IncludeTestFiles = *includeTests
	cfg.IncludeVendoredDependencies = *includeVendor
	if *maxConcurrency > 0 {
		cfg.MaxConcurrency = *maxConcurrency
	}

	if err := config.Save(fs2, cwd, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s\n", configPath)
	addToGitignore(fs2, cwd)

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Review and edit .compass/project.yaml if needed")
	fmt.Println("  2. Run 'compass index' to analyze your repository")
	fmt.Println("  3. Run 'compass status' to verify the results")
}

// addToGitignore adds .compass/ to the project's .gitignore file if
// present, mirroring the teacher's cmd/cie/init.go addToGitignore.
func addToGitignore(fs afero.Fs, dir string) {
	path := dir + string(os.PathSeparator) + ".gitignore"
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".compass/" || line == ".compass" || line == "/.compass/" || line == "/.compass" {
			return
		}
	}
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.Write([]byte("\n"))
	}
	_, _ = f.Write([]byte("\n# Compass configuration\n.compass/\n"))
	fmt.Println("Added .compass/ to .gitignore")
}
