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

package walker

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ignoreRule is one line of a .compassignore file.
type ignoreRule struct {
	pattern string
	negate  bool
}

func loadIgnoreFile(fs afero.Fs, path string) ([]ignoreRule, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var rules []ignoreRule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negate := strings.HasPrefix(line, "!")
		if negate {
			line = line[1:]
		}
		rules = append(rules, ignoreRule{pattern: line, negate: negate})
	}
	return rules, scanner.Err()
}

// matchesIgnore applies gitignore last-match-wins semantics across the
// .compassignore rules followed by any extra CLI-provided exclude globs.
func matchesIgnore(rules []ignoreRule, relPath string, extraGlobs []string) bool {
	excluded := false
	for _, rule := range rules {
		if matchesGlob(relPath, rule.pattern) {
			excluded = !rule.negate
		}
	}
	if excluded {
		return true
	}
	for _, pattern := range extraGlobs {
		if matchesGlob(relPath, pattern) {
			return true
		}
	}
	return false
}

// matchesGlob reports whether path matches a gitignore-style pattern,
// supporting *, **, directory anchors and trailing-slash directory rules.
func matchesGlob(path, pattern string) bool {
	pattern = filepath.ToSlash(strings.TrimSuffix(pattern, "/"))
	path = strings.TrimSuffix(path, "/")

	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && !strings.Contains(pattern, "/") {
		return strings.HasSuffix(path, pattern[1:])
	}

	if !strings.Contains(pattern, "/") {
		// Unanchored pattern: match any path component.
		for _, part := range strings.Split(path, "/") {
			if globMatch(part, pattern) {
				return true
			}
		}
		return false
	}

	return globMatch(path, pattern)
}

// globMatch matches a single pattern against a full path, supporting *
// (any run of non-slash characters) and ** (any run including slashes).
func globMatch(path, pattern string) bool {
	return globMatchRecursive(path, pattern, 0, 0)
}

func globMatchRecursive(path, pattern string, pi, pti int) bool {
	for pi < len(path) || pti < len(pattern) {
		if pti >= len(pattern) {
			return false
		}

		if pti+1 < len(pattern) && pattern[pti] == '*' && pattern[pti+1] == '*' {
			next := pti + 2
			if next < len(pattern) && pattern[next] == '/' {
				next++
			}
			if next >= len(pattern) {
				return true
			}
			for i := pi; i <= len(path); i++ {
				if globMatchRecursive(path, pattern, i, next) {
					return true
				}
			}
			return false
		}

		if pattern[pti] == '*' {
			next := pti + 1
			for i := pi; i <= len(path); i++ {
				if i > pi && path[i-1] == '/' {
					break
				}
				if globMatchRecursive(path, pattern, i, next) {
					return true
				}
			}
			return false
		}

		if pi >= len(path) || path[pi] != pattern[pti] {
			return false
		}
		pi++
		pti++
	}
	return pi == len(path) && pti == len(pattern)
}
