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

package resolver

import (
	"encoding/json"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// PHPAutoloader maps fully qualified class names to the file PSR-4
// autoloading would load them from, read from composer.json's
// autoload.psr-4 map. It has no teacher precedent (the teacher has no PHP
// support) and is grounded on the same "manifest -> rule table" shape as
// pkg/framework's package.json/composer.json readers.
type PHPAutoloader struct {
	// rules maps a namespace prefix (with trailing backslash) to the
	// repository-relative directory (no trailing slash) it maps to.
	rules map[string]string
}

type composerAutoload struct {
	Autoload struct {
		PSR4 map[string]string `json:"psr-4"`
	} `json:"autoload"`
}

// NewPHPAutoloader builds an autoloader from a psr-4 prefix->dir map.
func NewPHPAutoloader(psr4 map[string]string) *PHPAutoloader {
	rules := make(map[string]string, len(psr4))
	for prefix, dir := range psr4 {
		if !strings.HasSuffix(prefix, `\`) {
			prefix += `\`
		}
		rules[prefix] = strings.TrimSuffix(dir, "/")
	}
	return &PHPAutoloader{rules: rules}
}

// LoadPHPAutoloader reads composer.json under root and builds a
// PHPAutoloader from its autoload.psr-4 map. A missing or malformed
// manifest yields an empty (always-miss) autoloader rather than an error,
// matching pkg/framework's "absence is not fatal" convention.
func LoadPHPAutoloader(fs afero.Fs, root string) *PHPAutoloader {
	data, err := afero.ReadFile(fs, filepath.Join(root, "composer.json"))
	if err != nil {
		return NewPHPAutoloader(nil)
	}
	var doc composerAutoload
	if err := json.Unmarshal(data, &doc); err != nil {
		return NewPHPAutoloader(nil)
	}
	return NewPHPAutoloader(doc.Autoload.PSR4)
}

// Resolve maps a fully qualified class name to the repository-relative
// file PSR-4 would load it from, picking the longest matching namespace
// prefix.
func (a *PHPAutoloader) Resolve(fqn string) (string, bool) {
	fqn = strings.TrimPrefix(fqn, `\`)
	var bestPrefix, bestDir string
	for prefix, dir := range a.rules {
		if strings.HasPrefix(fqn, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix, bestDir = prefix, dir
		}
	}
	if bestPrefix == "" {
		return "", false
	}
	rel := strings.ReplaceAll(strings.TrimPrefix(fqn, bestPrefix), `\`, "/")
	return path.Join(bestDir, rel+".php"), true
}
