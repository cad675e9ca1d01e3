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

// resolveJavaScript implements spec.md §4.5.3. Dotted targets try, in
// order, direct import of the receiver, the store-factory convention, and
// a locally declared object literal with a matching method; a miss falls
// through to the generic strategies (JS has no PHP-style "never fallback"
// rule). Plain targets are left to the generic strategies entirely.
func (r *Resolver) resolveJavaScript(fc *FileContext, dep model.RawDependency) (symbolID int64, tag string, handled bool, forceUnresolved bool) {
	if dep.Kind != model.DependencyCall || dep.CallingObject == "" {
		return 0, "", false, false
	}
	receiver := dep.CallingObject
	method := lastSegment(dep.TargetName)

	if id, ok := r.jsDirectImport(fc, receiver, method); ok {
		return id, "js_direct_import", true, false
	}
	if id, ok := r.jsStoreFactory(fc, receiver, method); ok {
		return id, "js_store_factory", true, false
	}
	if id, ok := r.jsLocalObject(fc, receiver, method); ok {
		return id, "js_local_object", true, false
	}
	return 0, "", false, false
}

// jsDirectImport resolves `receiver.method()` when `receiver` itself was
// imported (default, namespace, or named) from a module whose file this
// pass has indexed.
func (r *Resolver) jsDirectImport(fc *FileContext, receiver, method string) (int64, bool) {
	for _, imp := range fc.Imports {
		if !containsName(imp.ImportedNames, receiver) {
			continue
		}
		path, ok := r.resolveImportPath(fc, imp.Specifier)
		if !ok {
			continue
		}
		fileID, ok := r.pathToFileID[path]
		if !ok {
			continue
		}
		target := r.contextsByFile[fileID]
		if target == nil {
			continue
		}
		if id := symbolInFileByName(target, method); id != 0 {
			return id, true
		}
	}
	return 0, false
}

// jsStoreFactory implements the Pinia-style `useXxxStore` convention:
// `const xxxStore = useXxxStore()` then `xxxStore.method()` resolves into
// the file that exports `useXxxStore`, located either by that import's
// specifier or by the `stores/xxx.*` filename convention spec.md §4.5.3
// names as a fallback when the declaring variable's import can't be
// matched directly (e.g. composed across chunks).
func (r *Resolver) jsStoreFactory(fc *FileContext, receiver, method string) (int64, bool) {
	factoryName := "use" + strings.ToUpper(receiver[:1]) + receiver[1:]
	for _, imp := range fc.Imports {
		if !containsName(imp.ImportedNames, factoryName) {
			continue
		}
		if path, ok := r.resolveImportPath(fc, imp.Specifier); ok {
			if fileID, ok := r.pathToFileID[path]; ok {
				if target := r.contextsByFile[fileID]; target != nil {
					if id := symbolInFileByName(target, method); id != 0 {
						return id, true
					}
				}
			}
		}
	}

	suffix := strings.TrimSuffix(receiver, "Store")
	for path, fileID := range r.pathToFileID {
		base := baseNameNoExt(path)
		byFilename := base == receiver
		byStoresDir := base == suffix && strings.HasSuffix(pathDir(path), "stores")
		if !byFilename && !byStoresDir {
			continue
		}
		target := r.contextsByFile[fileID]
		if target == nil {
			continue
		}
		if id := symbolInFileByName(target, method); id != 0 {
			return id, true
		}
	}
	return 0, false
}

// jsLocalObject resolves a call against an object literal declared in the
// same file, whose methods the parser records as `owner.method` qualified
// symbols (pkg/parse/javascript.go's extractObjectMethods).
func (r *Resolver) jsLocalObject(fc *FileContext, receiver, method string) (int64, bool) {
	for _, sym := range fc.Symbols {
		if sym.SymbolType == model.SymbolMethod && sym.QualifiedName == receiver+"."+method {
			return sym.ID, true
		}
	}
	return 0, false
}

func baseNameNoExt(path string) string {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func pathDir(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}
