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

package parse

// TypeScript and TSX are handled by JSParser (see javascript.go):
// NewTypeScriptParser selects the typescript/tsx tree-sitter grammars via
// grammarFor while reusing the same jsWalker, since the language's
// function/class/call shapes are a superset of JavaScript's. This mirrors
// the teacher's parser_typescript.go, which likewise layers
// walkTSFunctions/extractTSInterface on top of the JS extraction helpers
// instead of duplicating the walk.
