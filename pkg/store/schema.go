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
	"context"
	"strings"
)

// schemaStatements are the CozoDB relation definitions for the Compass
// dependency graph. Each is run independently so that a relation that
// already exists (re-running EnsureSchema on an existing project) does
// not abort the rest.
var schemaStatements = []string{
	`:create repository {
		id: Int
		=>
		name: String,
		root_path: String,
		primary_language: String,
		frameworks: String,
		last_indexed_at: Int default 0,
		vcs_hash: String default ''
	}`,
	`:create file {
		id: Int
		=>
		repository_id: Int,
		path: String,
		language: String,
		size: Int default 0,
		mtime: Int default 0,
		content_hash: String default '',
		is_test: Bool default false,
		is_generated: Bool default false
	}`,
	`:create symbol {
		id: Int
		=>
		file_id: Int,
		name: String,
		symbol_type: String,
		start_line: Int default 0,
		end_line: Int default 0,
		is_exported: Bool default false,
		visibility: String default '',
		signature: String default '',
		qualified_name: String default '',
		declared_type: String default ''
	}`,
	`:create import {
		id: Int
		=>
		file_id: Int,
		specifier: String,
		import_type: String,
		imported_names: String default '',
		line: Int default 0
	}`,
	`:create export {
		id: Int
		=>
		file_id: Int,
		name: String,
		line: Int default 0,
		kind: String default 'named'
	}`,
	`:create raw_dependency {
		id: Int
		=>
		file_id: Int,
		from_symbol_name: String default '',
		target_name: String,
		kind: String,
		line: Int default 0,
		resolved_class: String default '',
		calling_object: String default '',
		qualified_context: String default '',
		parameter_context: String default '',
		parameter_types: String default '',
		call_instance_id: String default ''
	}`,
	`:create file_edge {
		id: Int
		=>
		from_file: Int,
		to_file: Int,
		import_kind: String default '',
		line: Int default 0
	}`,
	`:create symbol_edge {
		id: Int
		=>
		from_symbol: Int default 0,
		to_symbol: Int default 0,
		to_qualified_name: String default '',
		kind: String,
		line: Int default 0,
		parameter_context: String default ''
	}`,
	`:create framework_entity {
		id: Int
		=>
		repository_id: Int,
		kind: String,
		file_id: Int default 0,
		symbol_id: Int default 0,
		metadata: String default ''
	}`,
}

// indexStatements add lookup indices used heavily by the resolver and
// graph queries. Created after the base relations so relation creation
// failures surface before index failures.
var indexStatements = []string{
	`::index create file:by_repository { repository_id }`,
	`::index create file:by_path { repository_id, path }`,
	`::index create symbol:by_file { file_id }`,
	`::index create symbol:by_name { name }`,
	`::index create symbol:by_qualified_name { qualified_name }`,
	`::index create import:by_file { file_id }`,
	`::index create export:by_file { file_id }`,
	`::index create raw_dependency:by_file { file_id }`,
	`::index create file_edge:by_from { from_file }`,
	`::index create symbol_edge:by_from { from_symbol }`,
}

// EnsureSchema creates the Compass relations and indices if they do not
// already exist. Safe to call repeatedly against an existing project.
func (s *Store) EnsureSchema() error {
	ctx := context.Background()
	for _, stmt := range schemaStatements {
		if err := s.Execute(ctx, stmt); err != nil {
			if !isAlreadyExists(err) {
				return err
			}
		}
	}
	for _, stmt := range indexStatements {
		if err := s.Execute(ctx, stmt); err != nil {
			if !isAlreadyExists(err) {
				return err
			}
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "conflicts with an existing one")
}
