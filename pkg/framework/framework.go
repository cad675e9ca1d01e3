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

// Package framework inspects a repository's root-level manifests to produce
// a tag set describing which frameworks it uses, generalizing the teacher's
// manifest-driven detection (cmd/cie's language/extension rule tables) from
// "file extension -> language" to "dependency key -> framework tag".
package framework

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// Set is the outcome of Detect: the framework tags present in a repository
// root, plus whether cross-stack (frontend <-> backend) analysis applies.
type Set struct {
	Tags               map[string]bool
	CrossStackEligible bool
}

// Has reports whether tag was detected.
func (s Set) Has(tag string) bool { return s.Tags[tag] }

// packageJSONTags maps package.json dependency keys to framework tags.
// Matched against both "dependencies" and "devDependencies".
var packageJSONTags = map[string]string{
	"vue":     "vue",
	"react":   "react",
	"next":    "next",
	"nuxt":    "nuxt",
	"express": "express",
	"fastify": "fastify",
	"vitest":  "vitest",
	"jest":    "jest",
}

// composerJSONTags maps composer.json require keys (exact package names) to tags.
var composerJSONTags = map[string]string{
	"laravel/framework":  "laravel",
	"symfony/symfony":    "symfony",
	"symfony/framework-bundle": "symfony",
	"phpunit/phpunit":    "phpunit",
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

type composerJSON struct {
	Require    map[string]string `json:"require"`
	RequireDev map[string]string `json:"require-dev"`
}

// Detect reads package.json, composer.json, project.godot and .env under
// root to build a Set, per spec.md §4.3.
func Detect(fs afero.Fs, root string) (Set, error) {
	set := Set{Tags: make(map[string]bool)}

	if err := detectPackageJSON(fs, root, set.Tags); err != nil {
		return set, err
	}
	if err := detectComposerJSON(fs, root, set.Tags); err != nil {
		return set, err
	}
	if exists, err := afero.Exists(fs, filepath.Join(root, "project.godot")); err == nil && exists {
		set.Tags["godot"] = true
	}

	frontend := set.Tags["vue"] || set.Tags["nuxt"]
	if frontend && set.Tags["laravel"] {
		set.CrossStackEligible = !hasExternalAPIBaseURL(fs, root)
	}

	return set, nil
}

func detectPackageJSON(fs afero.Fs, root string, tags map[string]bool) error {
	data, err := afero.ReadFile(fs, filepath.Join(root, "package.json"))
	if err != nil {
		return nil // absence is not an error
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil // malformed manifest: treat as "no tags", not fatal
	}
	for dep := range pkg.Dependencies {
		if tag, ok := packageJSONTags[dep]; ok {
			tags[tag] = true
		}
	}
	for dep := range pkg.DevDependencies {
		if tag, ok := packageJSONTags[dep]; ok {
			tags[tag] = true
		}
	}
	return nil
}

func detectComposerJSON(fs afero.Fs, root string, tags map[string]bool) error {
	data, err := afero.ReadFile(fs, filepath.Join(root, "composer.json"))
	if err != nil {
		return nil
	}
	var composer composerJSON
	if err := json.Unmarshal(data, &composer); err != nil {
		return nil
	}
	for dep := range composer.Require {
		if tag, ok := composerJSONTags[dep]; ok {
			tags[tag] = true
		}
	}
	for dep := range composer.RequireDev {
		if tag, ok := composerJSONTags[dep]; ok {
			tags[tag] = true
		}
	}
	return nil
}

var apiBaseURLKeys = []string{"API_BASE_URL", "VITE_API_BASE_URL", "APP_URL"}

// hasExternalAPIBaseURL reports whether .env declares one of the known
// API-base-URL keys pointing somewhere other than localhost, which per
// spec.md §4.3 disqualifies cross-stack eligibility.
func hasExternalAPIBaseURL(fs afero.Fs, root string) bool {
	f, err := fs.Open(filepath.Join(root, ".env"))
	if err != nil {
		return false
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return false
	}
	for _, key := range apiBaseURLKeys {
		value, ok := env[key]
		if !ok || value == "" {
			continue
		}
		if !isLocalhost(value) {
			return true
		}
	}
	return false
}

func isLocalhost(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "localhost") || strings.Contains(lower, "127.0.0.1") || strings.Contains(lower, "0.0.0.0")
}
