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

// Package testing provides test helpers for Compass integration tests.
//
// It wraps pkg/store with schema setup and data seeding utilities so that
// resolver, graph and ingestion tests can work against a real (in-memory)
// CozoDB instance without repeating boilerplate.
//
// # Quick Start
//
// Use SetupTestStore to create an in-memory store with schema:
//
//	func TestMyFeature(t *testing.T) {
//	    s := testing.SetupTestStore(t)
//
//	    testing.InsertTestRepository(t, s, 1, "/repo", "typescript")
//	    testing.InsertTestFile(t, s, 1, 1, "src/app.ts", "typescript")
//	    testing.InsertTestSymbol(t, s, 1, 1, "main", "function", 1, 10, true)
//
//	    rows := testing.QuerySymbols(t, s)
//	    require.Len(t, rows.Rows, 1)
//	}
//
// # Seeding Test Data
//
// The package provides helpers for inserting common test entities:
//   - InsertTestRepository: Add a repository row
//   - InsertTestFile: Add a file belonging to a repository
//   - InsertTestSymbol: Add a symbol belonging to a file
//   - InsertTestSymbolEdge: Link two symbols with a call/import edge
//
// # Querying Test Data
//
// Helper functions for common queries:
//   - QuerySymbols: Get all symbols
//   - QueryFiles: Get all files
//   - QuerySymbolEdges: Get all symbol edges
package testing
