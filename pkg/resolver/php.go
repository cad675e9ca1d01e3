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

// phpDenylist recognizes Laravel/PHP built-in classes that never resolve
// to a user symbol, short-circuiting S2-style calls (spec.md §8) straight
// to unresolved instead of risking a false match against an unrelated
// same-named method.
var phpDenylist = map[string]bool{
	"Request": true, "UploadedFile": true, "Model": true, "Collection": true,
	"Str": true, "Arr": true, "Carbon": true,
	"stdClass": true, "Exception": true, "Throwable": true, "DateTime": true,
	"DateTimeImmutable": true, "ArrayObject": true, "Closure": true,
}

// resolvePHP implements spec.md §4.5.1: Class::Method and resolved-class
// instance calls resolve through use-statement FQN resolution, the
// qualified-name index, then the PSR-4 autoloader; any other outcome for a
// dependency that named a class is unresolved, never falling through to
// the generic strategies (prevents an unrelated same-named method from
// matching).
func (r *Resolver) resolvePHP(fc *FileContext, dep model.RawDependency) (symbolID int64, tag string, handled bool, forceUnresolved bool) {
	if dep.Kind != model.DependencyCall {
		return 0, "", false, false
	}

	class, method, ok := phpCallTarget(dep)
	if !ok {
		if dep.CallingObject != "" {
			// calling_object present but no class could be inferred.
			return 0, "", false, true
		}
		return 0, "", false, false
	}
	if phpDenylist[phpLastSegment(class)] {
		return 0, "", false, true
	}

	fqn := r.resolvePHPClassFQN(fc, class)
	if sym, ok := r.byQualified[fqn+"::"+method]; ok {
		return sym.ID, "php_qualified", true, false
	}
	if sym, ok := r.byQualified[class+"::"+method]; ok {
		return sym.ID, "php_qualified", true, false
	}
	if r.autoload != nil {
		if path, ok := r.autoload.Resolve(fqn); ok {
			if fileID, ok := r.pathToFileID[path]; ok {
				if target := r.contextsByFile[fileID]; target != nil {
					if id := symbolInFileByNameType(target, method, model.SymbolMethod); id != 0 {
						return id, "php_autoload", true, false
					}
				}
			}
		}
	}
	return 0, "", false, true
}

// phpCallTarget splits a raw dependency into (class, method) for either a
// static call ("Class::method", already split by the parser into
// TargetName) or an instance call carrying resolved_class.
func phpCallTarget(dep model.RawDependency) (class, method string, ok bool) {
	if i := strings.Index(dep.TargetName, "::"); i >= 0 {
		return dep.TargetName[:i], dep.TargetName[i+2:], true
	}
	if dep.ResolvedClass != "" {
		method := dep.TargetName
		if i := strings.Index(method, "->"); i >= 0 {
			method = method[i+2:]
		}
		return dep.ResolvedClass, method, true
	}
	return "", "", false
}

// resolvePHPClassFQN resolves a bare class name to a fully qualified name
// using the file's `use` imports (alias match, then last-segment match),
// falling back to the bare name under the file's own namespace.
func (r *Resolver) resolvePHPClassFQN(fc *FileContext, class string) string {
	for _, imp := range fc.Imports {
		if imp.ImportType == model.ImportUse && imp.Alias != "" && imp.Alias == class {
			return imp.Specifier
		}
	}
	for _, imp := range fc.Imports {
		if imp.ImportType == model.ImportUse && imp.Alias == "" && phpLastSegment(imp.Specifier) == class {
			return imp.Specifier
		}
	}
	ns := r.namespaceByFile[fc.FileID]
	if ns == "" {
		return class
	}
	return ns + `\` + class
}

func phpLastSegment(fqn string) string {
	if i := strings.LastIndex(fqn, `\`); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

func symbolInFileByNameType(fc *FileContext, name string, symType model.SymbolType) int64 {
	for _, sym := range fc.Symbols {
		if sym.Name == name && sym.SymbolType == symType {
			return sym.ID
		}
	}
	return 0
}
