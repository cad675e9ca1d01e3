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
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/opengraph-dev/compass/internal/bootstrap"
	"github.com/opengraph-dev/compass/internal/output"
	"github.com/opengraph-dev/compass/internal/ui"
	"github.com/opengraph-dev/compass/pkg/store"
)

// StatusResult is the project status, grounded on the teacher's
// cmd/cie/status.go StatusResult, renamed to Compass's own relations.
type StatusResult struct {
	ProjectID   string    `json:"project_id"`
	DataDir     string    `json:"data_dir"`
	Connected   bool      `json:"connected"`
	Files       int       `json:"files"`
	Symbols     int       `json:"symbols"`
	Imports     int       `json:"imports"`
	Exports     int       `json:"exports"`
	FileEdges   int       `json:"file_edges"`
	SymbolEdges int       `json:"symbol_edges"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, reporting indexed-entity
// counts from the local store.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: compass status [options]\n\nShows local project status.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := newLogger(globals)
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	projectID := filepath.Base(cwd)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dataDir := filepath.Join(homeDir, ".compass", "data", projectID)
	result := &StatusResult{ProjectID: projectID, DataDir: dataDir, Timestamp: time.Now()}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		result.Error = "Project not indexed yet. Run 'compass index' first."
		emitStatus(result, globals)
		return
	}

	s, err := bootstrap.OpenProject(bootstrap.ProjectConfig{ProjectID: projectID}, logger)
	if err != nil {
		result.Error = fmt.Sprintf("Cannot open database: %v", err)
		emitStatus(result, globals)
		os.Exit(1)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	result.Connected = true
	result.Files = queryCount(ctx, s, "file")
	result.Symbols = queryCount(ctx, s, "symbol")
	result.Imports = queryCount(ctx, s, "import")
	result.Exports = queryCount(ctx, s, "export")
	result.FileEdges = queryCount(ctx, s, "file_edge")
	result.SymbolEdges = queryCount(ctx, s, "symbol_edge")

	emitStatus(result, globals)
}

// queryCount counts rows in a relation, mirroring the teacher's
// queryLocalCount (cmd/cie/status.go).
func queryCount(ctx context.Context, s *store.Store, relation string) int {
	script := fmt.Sprintf("?[count(id)] := *%s{id}", relation)
	result, err := s.Query(ctx, script)
	if err != nil || len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0
	}
	switch v := result.Rows[0][0].(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func emitStatus(result *StatusResult, globals GlobalFlags) {
	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	ui.Header("Compass Project Status")
	fmt.Printf("Project ID: %s\n", result.ProjectID)
	fmt.Printf("Data Dir:   %s\n", result.DataDir)
	fmt.Println()
	if !result.Connected {
		if result.Error != "" {
			ui.Warning(result.Error)
		}
		return
	}
	fmt.Println("Entities:")
	fmt.Printf("  Files:         %d\n", result.Files)
	fmt.Printf("  Symbols:       %d\n", result.Symbols)
	fmt.Printf("  Imports:       %d\n", result.Imports)
	fmt.Printf("  Exports:       %d\n", result.Exports)
	fmt.Printf("  File Edges:    %d\n", result.FileEdges)
	fmt.Printf("  Symbol Edges:  %d\n", result.SymbolEdges)
}
