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
	"strings"

	"github.com/opengraph-dev/compass/pkg/model"
)

// resolveCSharp implements spec.md §4.5.2: a field_call_<f> context (or a
// dotted target whose receiver is field-like, leading underscore) resolves
// through the per-file field-type map to a class name, then a class-method
// search. When the declared type names an interface with exactly one
// in-pass implementer (Resolver.interfaceImpl, built in Init from each
// class's bases list), resolveClassMethod binds through that implementing
// class rather than the interface's own abstract method declaration,
// matching spec.md S3's "directly or via an IHandManager -> HandManager
// alias" requirement. A miss falls through to the generic strategies
// rather than forcing unresolved, since C# has no denylist-style "never
// fallback" rule.
func (r *Resolver) resolveCSharp(fc *FileContext, dep model.RawDependency) (symbolID int64, tag string, handled bool, forceUnresolved bool) {
	if dep.Kind != model.DependencyCall {
		return 0, "", false, false
	}

	method := lastSegment(dep.TargetName)
	class := dep.ResolvedClass
	if class == "" && strings.HasPrefix(dep.QualifiedContext, "field_call_") {
		field := strings.TrimPrefix(dep.QualifiedContext, "field_call_")
		class = r.fieldTypesByFile[fc.FileID][field]
	}
	if class == "" {
		return 0, "", false, false
	}

	if id, ok := r.resolveClassMethod(class, method, "."); ok {
		return id, "csharp_field_type", true, false
	}
	return 0, "", false, false
}

// resolveClassMethod finds a method symbol named `method` that belongs to
// a class/interface named `class`. If `class` is an interface with exactly
// one registered implementer, that implementer is tried first, so a field
// declared with an interface type binds to the concrete class's method
// instead of the interface's own abstract declaration. Either way the match
// is by an exact "Class<sep>Method" qualified-name match, then by checking
// whether a same-file class symbol named `class` spans the candidate
// method's declaration (spec.md §4.5.2's "line range" acceptance rule,
// shared with the PHP autoloader path).
func (r *Resolver) resolveClassMethod(class, method, sep string) (int64, bool) {
	if impl, ok := r.interfaceImpl[class]; ok {
		if id, ok := r.resolveClassMethodExact(impl, method, sep); ok {
			return id, true
		}
	}
	return r.resolveClassMethodExact(class, method, sep)
}

func (r *Resolver) resolveClassMethodExact(class, method, sep string) (int64, bool) {
	if sym, ok := r.byQualified[class+sep+method]; ok {
		return sym.ID, true
	}
	for _, cand := range r.symbolsByName[method] {
		if cand.SymbolType != model.SymbolMethod {
			continue
		}
		fc := r.contextsByFile[cand.FileID]
		if fc == nil {
			continue
		}
		for _, other := range fc.Symbols {
			if other.Name != class {
				continue
			}
			if other.SymbolType != model.SymbolClass && other.SymbolType != model.SymbolInterface {
				continue
			}
			if other.StartLine <= cand.StartLine && cand.EndLine <= other.EndLine {
				return cand.ID, true
			}
		}
	}
	return 0, false
}
