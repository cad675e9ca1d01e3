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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/spf13/afero"

	"github.com/opengraph-dev/compass/internal/bootstrap"
	"github.com/opengraph-dev/compass/internal/errors"
	"github.com/opengraph-dev/compass/internal/output"
	"github.com/opengraph-dev/compass/internal/ui"
	"github.com/opengraph-dev/compass/pkg/config"
	"github.com/opengraph-dev/compass/pkg/ingestion"
)

// runIndex executes the 'index' CLI command, analyzing the current
// repository and writing the resulting dependency graph to the local store.
//
// Flags:
//   - --full: force a full pass, ignoring the Incremental Controller's diff
//
// Examples:
//
//	compass index          Incremental analysis (only changed files)
//	compass index --full   Force a full re-analysis
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force a full analysis pass")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: compass index [options]

Analyzes the current repository using configuration from .compass/project.yaml.
Data is stored locally in ~/.compass/data/<project_id>/

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := newLogger(globals)
	slog.SetDefault(logger)

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot run index", err.Error(), "", err), globals.JSON)
	}

	cfg, err := config.Load(afero.NewOsFs(), cwd)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load Compass configuration",
			err.Error(),
			"Run 'compass init' to create .compass/project.yaml",
			err,
		), globals.JSON)
	}
	if *full {
		cfg.ForceFullAnalysis = true
	}

	if *metricsAddr != "" {
		startMetricsServer(logger, *metricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	projectID := filepath.Base(cwd)
	s, err := bootstrap.OpenOrInitProject(bootstrap.ProjectConfig{ProjectID: projectID}, logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open Compass database",
			err.Error(),
			"Close other Compass instances or run: compass reset --yes",
			err,
		), globals.JSON)
	}
	defer func() { _ = s.Close() }()

	pipeline := ingestion.NewPipeline(afero.NewOsFs(), s, logger)

	summary, err := pipeline.Run(ctx, cwd, projectID, cfg)
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Analysis failed",
			err.Error(),
			"",
			err,
		), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(summary)
		return
	}
	printSummary(summary)
}

func printSummary(s *ingestion.Summary) {
	fmt.Println()
	ui.Header("Analysis Complete")
	fmt.Printf("Repository ID: %d\n", s.RepositoryID)
	fmt.Printf("Full Pass: %t\n", s.FullPass)
	fmt.Printf("Files Walked: %d\n", s.FilesWalked)
	fmt.Printf("Files Parsed: %d\n", s.FilesParsed)
	fmt.Printf("Files Skipped (unchanged): %d\n", s.FilesSkippedUnchanged)
	fmt.Printf("Files Removed: %d\n", s.FilesRemoved)
	fmt.Printf("Symbols Extracted: %d\n", s.SymbolsExtracted)
	fmt.Printf("Imports Extracted: %d\n", s.ImportsExtracted)
	fmt.Printf("Exports Extracted: %d\n", s.ExportsExtracted)
	fmt.Printf("Raw Dependencies Extracted: %d\n", s.RawDependenciesExtracted)
	fmt.Printf("File Edges Written: %d\n", s.FileEdgesWritten)
	fmt.Printf("Symbol Edges Written: %d\n", s.SymbolEdgesWritten)
	fmt.Printf("Unresolved Dependencies: %d\n", s.UnresolvedDependencies)
	fmt.Printf("Rebound Edges: %d\n", s.RebindCount)

	if len(s.ParseErrors) > 0 {
		ui.Warning(fmt.Sprintf("%d parse error(s)", len(s.ParseErrors)+s.ParseErrorsOmitted))
		for _, e := range s.ParseErrors {
			fmt.Printf("  %s: %s\n", e.Path, e.Message)
		}
		if s.ParseErrorsOmitted > 0 {
			fmt.Printf("  ... and %d more\n", s.ParseErrorsOmitted)
		}
	}

	if len(s.WalkSkipReasons) > 0 {
		fmt.Println("\nSkipped Files:")
		for reason, count := range s.WalkSkipReasons {
			fmt.Printf("  %s: %d\n", reason, count)
		}
	}

	fmt.Println("\nTimings:")
	fmt.Printf("  Walk:    %s\n", s.WalkDuration)
	fmt.Printf("  Parse:   %s\n", s.ParseDuration)
	fmt.Printf("  Resolve: %s\n", s.ResolveDuration)
	fmt.Printf("  Write:   %s\n", s.WriteDuration)
	fmt.Printf("  Total:   %s\n", s.TotalDuration)
	fmt.Println()
}
