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

package store

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// HashID derives a stable int64 id from a set of strings that jointly
// identify an entity (e.g. repository id + file path). Re-indexing an
// unchanged file therefore reuses the same symbol/import ids instead of
// accumulating duplicates.
func HashID(parts ...string) int64 {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	v := int64(binary.BigEndian.Uint64(sum[:8]))
	if v < 0 {
		v = -v
	}
	return v
}

// FileID derives the id for a file within a repository.
func FileID(repositoryID int64, path string) int64 {
	return HashID("file", fmt.Sprint(repositoryID), path)
}

// SymbolID derives the id for a named declaration within a file.
func SymbolID(fileID int64, name, symbolType string, startLine int) int64 {
	return HashID("symbol", fmt.Sprint(fileID), name, symbolType, fmt.Sprint(startLine))
}

// ImportID derives the id for an import declaration within a file.
func ImportID(fileID int64, specifier string, line int) int64 {
	return HashID("import", fmt.Sprint(fileID), specifier, fmt.Sprint(line))
}

// ExportID derives the id for an export declaration within a file.
func ExportID(fileID int64, name string, line int) int64 {
	return HashID("export", fmt.Sprint(fileID), name, fmt.Sprint(line))
}

// RawDependencyID derives the id for a raw dependency record.
func RawDependencyID(fileID int64, targetName, kind string, line int, callInstanceID string) int64 {
	return HashID("raw_dependency", fmt.Sprint(fileID), targetName, kind, fmt.Sprint(line), callInstanceID)
}

// FileEdgeID derives the id for a resolved file-to-file edge.
func FileEdgeID(fromFile, toFile int64, line int) int64 {
	return HashID("file_edge", fmt.Sprint(fromFile), fmt.Sprint(toFile), fmt.Sprint(line))
}

// SymbolEdgeID derives the id for a resolved symbol-to-symbol edge.
func SymbolEdgeID(fromSymbol, toSymbol int64, kind string, line int) int64 {
	return HashID("symbol_edge", fmt.Sprint(fromSymbol), fmt.Sprint(toSymbol), kind, fmt.Sprint(line))
}

// ExternalSymbolID derives a synthetic negative id for a symbol that is
// known to exist (by name or framework convention) but whose declaration
// was never parsed directly, e.g. a vendored or framework-provided class.
func ExternalSymbolID(qualifiedName string) int64 {
	return -HashID("external_symbol", qualifiedName)
}

// RepositoryID derives the id for a repository from its root path.
func RepositoryID(rootPath string) int64 {
	return HashID("repository", rootPath)
}
