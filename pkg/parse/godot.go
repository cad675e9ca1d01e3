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

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/opengraph-dev/compass/pkg/model"
)

// GodotParser reads Godot's line/section text format directly rather than
// through a grammar, grounded on the teacher's line-oriented
// parser_protobuf.go (the only other non-AST parser in the corpus): both
// read a `[section]` / `key = value` structure without a general-purpose
// parser library. It emits FrameworkEntity records, never Symbols, per
// SPEC_FULL.md §4.2's final bullet.
type GodotParser struct{}

// NewGodotParser returns a Godot scene/project parser.
func NewGodotParser() *GodotParser { return &GodotParser{} }

// Language implements Parser.
func (p *GodotParser) Language() model.Language { return model.LanguageGodot }

var (
	sectionPattern  = regexp.MustCompile(`^\[(\w+)(?:\s+(.*))?\]$`)
	attrPattern     = regexp.MustCompile(`(\w+)=(?:"([^"]*)"|([^\s"]+))`)
	autoloadKVPattern = regexp.MustCompile(`^(\w+)\s*=\s*"(\*?)(.+)"$`)
)

// Parse implements Parser.
func (p *GodotParser) Parse(ctx context.Context, path string, content []byte) (*ParseResult, error) {
	result := &ParseResult{}
	base := strings.ToLower(filepath.Base(path))

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentSection string
	var currentAttrs map[string]string
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		if m := sectionPattern.FindStringSubmatch(line); m != nil {
			currentSection = m[1]
			currentAttrs = map[string]string{}
			for _, attr := range attrPattern.FindAllStringSubmatch(m[2], -1) {
				value := attr[2]
				if value == "" {
					value = attr[3]
				}
				currentAttrs[attr[1]] = value
			}

			switch currentSection {
			case "gd_scene":
				result.FrameworkEntities = append(result.FrameworkEntities, model.FrameworkEntity{
					Kind:     model.FrameworkEntityScene,
					Metadata: map[string]string{"path": path, "load_steps": currentAttrs["load_steps"]},
				})
			case "node":
				result.FrameworkEntities = append(result.FrameworkEntities, model.FrameworkEntity{
					Kind: model.FrameworkEntityNode,
					Metadata: map[string]string{
						"name":   currentAttrs["name"],
						"type":   currentAttrs["type"],
						"parent": currentAttrs["parent"],
					},
				})
				if script := currentAttrs["script"]; script != "" {
					result.FrameworkEntities = append(result.FrameworkEntities, model.FrameworkEntity{
						Kind: model.FrameworkEntityScript,
						Metadata: map[string]string{
							"node": currentAttrs["name"],
							"ref":  script,
						},
					})
				}
			case "ext_resource":
				if currentAttrs["type"] == "Script" {
					result.FrameworkEntities = append(result.FrameworkEntities, model.FrameworkEntity{
						Kind: model.FrameworkEntityScript,
						Metadata: map[string]string{
							"path": currentAttrs["path"],
							"id":   currentAttrs["id"],
						},
					})
				}
			}
			continue
		}

		if base == "project.godot" && currentSection == "autoload" {
			if m := autoloadKVPattern.FindStringSubmatch(line); m != nil {
				result.FrameworkEntities = append(result.FrameworkEntities, model.FrameworkEntity{
					Kind: model.FrameworkEntityAutoload,
					Metadata: map[string]string{
						"name": m[1],
						"path": m[3],
					},
				})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		result.Errors = append(result.Errors, ParseError{Severity: SeverityError, Message: err.Error()})
	}
	return result, nil
}
