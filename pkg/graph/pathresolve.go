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

// Package graph assembles the file graph and symbol graph from resolved
// dependencies, and answers pure read-only structural queries over them.
package graph

import (
	"path"
	"strings"
)

// DefaultExtensions are tried, in order, when an import specifier has none.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".vue"}

// ResolveRelativeImport resolves a relative or project-root-aliased import
// specifier to a repository-relative file path, grounded on the teacher
// pack's resolveImportPath (other_examples' codecontext relationships.go):
// try the specifier verbatim, then each extension, then `index.<ext>`
// inside it as a directory. exists is consulted for membership since the
// resolver only has a set of known file paths, not a live filesystem.
//
// aliasRoots maps a prefix (e.g. "@", "src") to the repository-relative
// directory it expands to, covering spec.md §4.6's "project-root aliases
// like src/ or @/".
func ResolveRelativeImport(fromPath, specifier string, exists func(path string) bool, extensions []string, aliasRoots map[string]string) (string, bool) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	var base string
	switch {
	case strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../"):
		base = path.Join(path.Dir(fromPath), specifier)
	case strings.HasPrefix(specifier, "/"):
		base = strings.TrimPrefix(specifier, "/")
	default:
		resolvedAlias, ok := resolveAlias(specifier, aliasRoots)
		if !ok {
			return "", false
		}
		base = resolvedAlias
	}
	base = path.Clean(base)

	if exists(base) {
		return base, true
	}
	for _, ext := range extensions {
		candidate := base + ext
		if exists(candidate) {
			return candidate, true
		}
	}
	for _, ext := range extensions {
		candidate := path.Join(base, "index"+ext)
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func resolveAlias(specifier string, aliasRoots map[string]string) (string, bool) {
	for prefix, dir := range aliasRoots {
		if specifier == prefix {
			return dir, true
		}
		trimmed := prefix
		if !strings.HasSuffix(trimmed, "/") {
			trimmed += "/"
		}
		if strings.HasPrefix(specifier, trimmed) {
			return path.Join(dir, strings.TrimPrefix(specifier, trimmed)), true
		}
	}
	return "", false
}

// IsRelativeSpecifier reports whether an import specifier refers to an
// in-repo module rather than an installed package/namespace.
func IsRelativeSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") || strings.HasPrefix(specifier, "/")
}
