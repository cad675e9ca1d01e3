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

// Package store persists the Compass dependency graph (repositories, files,
// symbols, imports/exports, raw dependencies and resolved edges) to an
// embedded CozoDB instance.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	cozo "github.com/opengraph-dev/compass/pkg/cozodb"

	"github.com/opengraph-dev/compass/internal/contract"
)

// Store wraps a CozoDB instance with the Compass graph schema.
type Store struct {
	db     *cozo.CozoDB
	mu     sync.RWMutex
	closed bool
}

// Config configures a Store.
type Config struct {
	// DataDir is the directory where CozoDB stores its data.
	// Defaults to ~/.compass/data/<project_id>.
	DataDir string

	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb" for persistence.
	Engine string

	// ProjectID namespaces the default data directory.
	ProjectID string
}

// Open opens (creating if necessary) a CozoDB-backed store.
func Open(config Config) (*Store, error) {
	if config.Engine == "" {
		config.Engine = "rocksdb"
	}
	if config.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dataDir := homeDir + "/.compass/data"
		if config.ProjectID != "" {
			dataDir += "/" + config.ProjectID
		}
		config.DataDir = dataDir
	}

	if config.Engine != "mem" {
		if err := os.MkdirAll(config.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := cozo.New(config.Engine, config.DataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("open cozodb: %w", err)
	}

	return &Store{db: &db}, nil
}

// Query executes a read-only Datalog query.
func (s *Store) Query(ctx context.Context, script string, params ...map[string]any) (*QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p := mergeParams(params)
	result, err := s.db.RunReadOnly(script, p)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &QueryResult{Headers: result.Headers, Rows: result.Rows}, nil
}

// Execute runs a Datalog mutation script inside a single CozoDB transaction.
func (s *Store) Execute(ctx context.Context, script string, params ...map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if result := contract.ValidateBatchScript(script); !result.OK {
		return fmt.Errorf("mutation script rejected: %s", result.Message)
	}

	p := mergeParams(params)
	if _, err := s.db.Run(script, p); err != nil {
		return fmt.Errorf("execute failed: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.db.Close()
	return nil
}

// DB returns the underlying CozoDB handle for advanced operations (test helpers).
func (s *Store) DB() *cozo.CozoDB {
	return s.db
}

// QueryResult mirrors cozodb.NamedRows for callers outside this package.
type QueryResult struct {
	Headers []string
	Rows    [][]any
}

func mergeParams(params []map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	return params[0]
}
