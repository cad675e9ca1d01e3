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
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/opengraph-dev/compass/pkg/model"
)

// VueParser splits a .vue single-file-component into its <script> and
// <template> blocks with a simple tag scan (not a full HTML parser, per
// SPEC_FULL.md §4.2), delegating script content to the JS/TS parser with a
// line offset so emitted symbols carry their true position in the .vue
// file.
type VueParser struct {
	js   *JSParser
	ts   *JSParser
	opts Options
}

// NewVueParser returns a Vue SFC parser that delegates <script> blocks to
// js or ts depending on the block's lang attribute.
func NewVueParser(js, ts *JSParser, opts Options) *VueParser {
	return &VueParser{js: js, ts: ts, opts: opts}
}

// Language implements Parser.
func (p *VueParser) Language() model.Language { return model.LanguageVue }

var (
	scriptBlockPattern   = regexp.MustCompile(`(?is)<script([^>]*)>(.*?)</script>`)
	templateBlockPattern = regexp.MustCompile(`(?is)<template[^>]*>(.*?)</template>`)
	templateCallPattern  = regexp.MustCompile(`\b(axios\.\w+|fetch)\s*\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
	componentTagPattern  = regexp.MustCompile(`<([A-Z][A-Za-z0-9]*)\b`)
)

// Parse implements Parser.
func (p *VueParser) Parse(ctx context.Context, path string, content []byte) (*ParseResult, error) {
	result := &ParseResult{}

	base := filepath.Base(path)
	componentName := strings.TrimSuffix(base, filepath.Ext(base))
	result.Symbols = append(result.Symbols, model.Symbol{
		Name:       componentName,
		SymbolType: model.SymbolComponent,
		StartLine:  1,
		EndLine:    bytesLineCount(content),
		IsExported: true,
	})

	for _, match := range scriptBlockPattern.FindAllSubmatchIndex(content, -1) {
		attrs := string(content[match[2]:match[3]])
		body := content[match[4]:match[5]]
		lineOffset := strings.Count(string(content[:match[4]]), "\n")

		delegate := p.js
		if strings.Contains(attrs, "lang=\"ts\"") || strings.Contains(attrs, "lang='ts'") || strings.Contains(attrs, "setup lang=\"ts\"") {
			delegate = p.ts
		}

		scriptPath := path
		if delegate == p.ts {
			scriptPath = path + ".ts"
		} else {
			scriptPath = path + ".js"
		}

		scriptResult, err := delegate.parseWithOffset(ctx, scriptPath, body, lineOffset)
		if err != nil {
			return nil, fmt.Errorf("vue script block %s: %w", path, err)
		}
		result.Merge(scriptResult)
	}

	if tm := templateBlockPattern.FindSubmatchIndex(content); tm != nil {
		templateBody := content[tm[2]:tm[3]]
		lineOffset := strings.Count(string(content[:tm[2]]), "\n")
		p.extractTemplateDependencies(result, templateBody, lineOffset, componentName)
	}

	result.Symbols = dedupeSymbols(result.Symbols)
	return result, nil
}

func (p *VueParser) extractTemplateDependencies(result *ParseResult, template []byte, lineOffset int, componentName string) {
	for _, m := range templateCallPattern.FindAllSubmatchIndex(template, -1) {
		line := lineOffset + 1 + strings.Count(string(template[:m[0]]), "\n")
		method := string(template[m[2]:m[3]])
		url := string(template[m[4]:m[5]])
		result.RawDependencies = append(result.RawDependencies, model.RawDependency{
			FromSymbolName:   componentName,
			TargetName:       url,
			Kind:             model.DependencyCall,
			Line:             line,
			ParameterContext: method + " " + url,
			CallInstanceID:   componentName + ":" + strconv.Itoa(line),
		})
	}

	seen := make(map[string]bool)
	for _, m := range componentTagPattern.FindAllSubmatch(template, -1) {
		name := string(m[1])
		if name == componentName || seen[name] {
			continue
		}
		seen[name] = true
		result.RawDependencies = append(result.RawDependencies, model.RawDependency{
			FromSymbolName: componentName,
			TargetName:     name,
			Kind:           model.DependencyInstantiates,
		})
	}
}

func bytesLineCount(content []byte) int {
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}
