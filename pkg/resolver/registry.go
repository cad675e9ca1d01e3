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

import "strings"

// Record describes a framework/external symbol the registry can vouch
// for, per spec.md §4.5.4.
type Record struct {
	SymbolType string
	Signature  string
	Visibility string
}

// Registry maps (framework, name) to a Record, producing a synthetic
// symbol id for step 5 of the resolver dispatch instead of an edge into a
// symbol nothing in the repository ever declared. Grounded on the
// teacher's CallResolver.generateExternalStubID pattern, generalized from
// one external-stub table per analysis run into a static table of common
// JS and Laravel externals (SPEC_FULL.md §4.5 "Framework/external
// registry").
type Registry struct {
	entries map[string]map[string]Record
}

// NewRegistry returns a registry pre-populated with the externals
// SPEC_FULL.md names: axios, lodash, vue, pinia on the JS side and a
// handful of Laravel facades/helpers on the PHP side.
func NewRegistry() *Registry {
	fn := Record{SymbolType: "function", Visibility: "public"}
	return &Registry{entries: map[string]map[string]Record{
		"axios": {
			"get": fn, "post": fn, "put": fn, "patch": fn, "delete": fn,
			"request": fn, "create": fn,
		},
		"lodash": {
			"debounce": fn, "throttle": fn, "cloneDeep": fn, "merge": fn,
			"isEqual": fn, "pick": fn, "omit": fn, "get": fn,
		},
		"vue": {
			"ref": fn, "reactive": fn, "computed": fn, "watch": fn, "watchEffect": fn,
			"onMounted": fn, "onUnmounted": fn, "nextTick": fn,
			"defineComponent": fn, "defineProps": fn, "defineEmits": fn,
		},
		"pinia": {
			"defineStore": fn, "storeToRefs": fn,
		},
		"laravel": {
			"config": fn, "env": fn, "trans": fn, "view": fn, "response": fn,
			"redirect": fn, "abort": fn, "route": fn, "request": fn,
			"Auth": {SymbolType: "class", Visibility: "public"},
			"Validator": {SymbolType: "class", Visibility: "public"},
			"Cache": {SymbolType: "class", Visibility: "public"},
			"DB": {SymbolType: "class", Visibility: "public"},
			"Log": {SymbolType: "class", Visibility: "public"},
			"Event": {SymbolType: "class", Visibility: "public"},
			"Mail": {SymbolType: "class", Visibility: "public"},
			"Storage": {SymbolType: "class", Visibility: "public"},
			"Queue": {SymbolType: "class", Visibility: "public"},
			"Session": {SymbolType: "class", Visibility: "public"},
		},
	}}
}

// Lookup consults the registry for a call target, using sourceHint (an
// import specifier, when known) to pick the framework bucket; for PHP,
// where global helpers and facades carry no import statement, an empty
// hint falls back to the "laravel" bucket.
func (reg *Registry) Lookup(targetName, language, sourceHint string) (int64, bool) {
	name := lastSegment(targetName)
	framework := frameworkFromHint(sourceHint, language)
	if framework == "" {
		return 0, false
	}
	entries, ok := reg.entries[framework]
	if !ok {
		return 0, false
	}
	if _, ok := entries[name]; !ok {
		return 0, false
	}
	return externalSymbolID(framework, name), true
}

func frameworkFromHint(sourceHint, language string) string {
	if sourceHint != "" {
		return strings.SplitN(sourceHint, "/", 2)[0]
	}
	if language == "php" {
		return "laravel"
	}
	return ""
}
