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

// Package ingestion drives the Compass analysis pipeline: walking a
// repository, parsing its source files, resolving cross-file and
// cross-symbol dependencies, and writing the resulting graph to CozoDB.
//
// # Pipeline Overview
//
// Pipeline.Run processes a repository in six stages:
//
//  1. Walk: enumerate candidate files under the configured root, honoring
//     ignore rules and per-language extension filters (pkg/walker).
//  2. Detect: identify frameworks present in the repository from manifest
//     files such as package.json and composer.json (pkg/framework).
//  3. Plan: the Incremental Controller diffs the walked file set against
//     what is already stored, by path and content hash, to decide between a
//     full pass, an incremental pass, or a backstop promotion to full when
//     too much of the repository changed (see incremental.go).
//  4. Parse: Tree-sitter (or, for Godot scenes, a section scanner) extracts
//     symbols, imports, exports and raw (unresolved) dependencies from every
//     changed file, sequentially or across a bounded worker pool depending
//     on file count (pkg/parse).
//  5. Resolve: the Resolver is initialized over the full repository context
//     (both freshly parsed and previously stored files) and binds each raw
//     dependency to the symbol or file it actually targets (pkg/resolver,
//     pkg/graph).
//  6. Write: files, symbols, imports, exports, and the resolved file/symbol
//     graph edges are persisted in write batches, one transaction per
//     batch (pkg/store).
//
// # Quick Start
//
//	s, err := store.Open(store.Config{DataDir: dataDir, ProjectID: "my-project"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	pipeline := ingestion.NewPipeline(afero.NewOsFs(), s, logger)
//	summary, err := pipeline.Run(ctx, rootPath, "my-project", cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Indexed %d files, %d symbols, %d unresolved\n",
//	    summary.FilesParsed, summary.SymbolsExtracted, summary.UnresolvedDependencies)
//
// # Incremental Updates
//
// IncrementalController decides what a run needs to touch: a first run
// against an empty repository is always a full pass; later runs hash every
// discovered file's content against the stored file row for that path and
// only re-parse what changed. Files no longer discovered are treated as
// removed and their derived rows are cleaned up transactionally
// (CleanupFileData). If the fraction of the repository classified as
// changed or removed exceeds DefaultBackstopFraction, the controller
// promotes the run to a full pass rather than trust a diff that no longer
// reflects the bulk of the tree.
//
// Symbol edges left dangling by a file's removal (their source lies outside
// the removed set) are re-queued rather than deleted, and rebindUnresolved
// re-binds them once a symbol with the same qualified name reappears in a
// later pass, without needing to re-parse or re-resolve the file that held
// the original, still-live reference.
//
// # Metrics
//
// Prometheus metrics under the compass_ingestion_* namespace track files
// walked and skipped, symbols/edges written, unresolved dependencies, and
// per-stage duration; see metrics.go.
package ingestion
