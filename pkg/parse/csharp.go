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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/opengraph-dev/compass/pkg/model"
)

// CSharpParser walks the csharp tree-sitter grammar, grounded on the same
// per-goroutine-parser dispatch style used for JS/TS and PHP. It builds a
// per-file field-name -> declared-type map so `_field.Method()` calls can
// carry `qualified_context = "field_call_<fieldName>"` per SPEC_FULL.md
// §4.2; the map is scoped to a single Parse call and discarded afterward.
type CSharpParser struct {
	opts Options
}

// NewCSharpParser returns a C# parser.
func NewCSharpParser(opts Options) *CSharpParser {
	return &CSharpParser{opts: opts}
}

// Language implements Parser.
func (p *CSharpParser) Language() model.Language { return model.LanguageCSharp }

// Parse implements Parser.
func (p *CSharpParser) Parse(ctx context.Context, path string, content []byte) (*ParseResult, error) {
	chunks := splitChunks(content, p.opts.ChunkingThreshold, p.opts.ChunkOverlapLines)
	result := &ParseResult{}
	for _, c := range chunks {
		cr, err := p.parseChunk(ctx, path, c)
		if err != nil {
			return nil, err
		}
		result.Merge(cr)
	}
	result.Symbols = dedupeSymbols(result.Symbols)
	return result, nil
}

func (p *CSharpParser) parseChunk(ctx context.Context, path string, c chunk) (*ParseResult, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(csharp.GetLanguage())

	tree, err := sp.ParseCtx(ctx, nil, c.content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", path, err)
	}
	defer tree.Close()

	w := &csharpWalker{
		src:        c.content,
		path:       path,
		baseLine:   c.startLine - 1,
		result:     &ParseResult{},
		fieldTypes: make(map[string]string),
	}
	root := tree.RootNode()
	if root.HasError() {
		w.result.Errors = append(w.result.Errors, ParseError{Severity: SeverityWarning, Message: "syntax error in file"})
	}
	w.walk(root)
	return w.result, nil
}

type csharpWalker struct {
	src         []byte
	path        string
	baseLine    int
	namespace   string
	result      *ParseResult
	scopeStack  []string
	fieldTypes  map[string]string
	callCounter int
}

func (w *csharpWalker) line(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 + w.baseLine }
func (w *csharpWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}
func (w *csharpWalker) currentScope() string {
	if len(w.scopeStack) == 0 {
		return ""
	}
	return w.scopeStack[len(w.scopeStack)-1]
}

func (w *csharpWalker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "namespace_declaration":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			w.namespace = w.text(nameNode)
		}
	case "using_directive":
		w.extractUsing(n)
	case "class_declaration", "interface_declaration", "struct_declaration":
		w.extractType(n)
		return
	case "invocation_expression":
		w.extractInvocation(n)
	case "object_creation_expression":
		w.extractInstantiation(n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}

func (w *csharpWalker) extractUsing(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	w.result.Imports = append(w.result.Imports, model.Import{
		Specifier:  w.text(nameNode),
		ImportType: model.ImportNamespace,
		Line:       w.line(n),
	})
}

func (w *csharpWalker) qualify(name string) string {
	if w.namespace == "" {
		return name
	}
	return w.namespace + "." + name
}

func (w *csharpWalker) extractType(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	symType := model.SymbolClass
	if n.Type() == "interface_declaration" {
		symType = model.SymbolInterface
	}

	var baseNames []string
	if base := n.ChildByFieldName("bases"); base != nil {
		for i := 0; i < int(base.ChildCount()); i++ {
			ref := base.Child(i)
			if ref.Type() != "identifier" && ref.Type() != "generic_name" {
				continue
			}
			baseName := w.text(ref)
			baseNames = append(baseNames, baseName)
			w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
				FromSymbolName: name,
				TargetName:     baseName,
				Kind:           model.DependencyExtends,
				Line:           w.line(ref),
			})
		}
	}

	// DeclaredType on a class/interface symbol carries its comma-joined
	// bases list (base class plus implemented interfaces -- the C#
	// grammar doesn't distinguish them), so the resolver can bind an
	// interface-typed field through to whichever class in the same
	// parse implements it, per spec.md's field-type alias requirement.
	w.result.Symbols = append(w.result.Symbols, model.Symbol{
		Name:          name,
		SymbolType:    symType,
		StartLine:     w.line(n),
		EndLine:       int(n.EndPoint().Row) + 1 + w.baseLine,
		QualifiedName: w.qualify(name),
		IsExported:    true,
		DeclaredType:  strings.Join(baseNames, ","),
	})

	savedFields := w.fieldTypes
	w.fieldTypes = make(map[string]string)
	body := n.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			member := body.Child(i)
			switch member.Type() {
			case "field_declaration":
				w.extractField(member, name)
			case "property_declaration":
				w.extractPropertyDecl(member, name)
			case "method_declaration", "constructor_declaration":
				w.extractMethod(member, name)
			default:
				w.walk(member)
			}
		}
	}
	w.fieldTypes = savedFields
}

func (w *csharpWalker) extractField(n *sitter.Node, owner string) {
	typeNode := n.ChildByFieldName("type")
	declaredType := ""
	if typeNode != nil {
		declaredType = w.text(typeNode)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		decl := n.Child(i)
		if decl.Type() != "variable_declaration" {
			continue
		}
		for j := 0; j < int(decl.ChildCount()); j++ {
			d := decl.Child(j)
			if d.Type() != "variable_declarator" {
				continue
			}
			nameNode := d.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			fieldName := w.text(nameNode)
			w.fieldTypes[fieldName] = declaredType
			w.result.Symbols = append(w.result.Symbols, model.Symbol{
				Name:          fieldName,
				SymbolType:    model.SymbolField,
				StartLine:     w.line(n),
				EndLine:       w.line(n),
				QualifiedName: owner + "." + fieldName,
				DeclaredType:  declaredType,
			})
		}
	}
}

func (w *csharpWalker) extractPropertyDecl(n *sitter.Node, owner string) {
	typeNode := n.ChildByFieldName("type")
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	declaredType := ""
	if typeNode != nil {
		declaredType = w.text(typeNode)
	}
	propName := w.text(nameNode)
	w.fieldTypes[propName] = declaredType
	w.result.Symbols = append(w.result.Symbols, model.Symbol{
		Name:          propName,
		SymbolType:    model.SymbolField,
		StartLine:     w.line(n),
		EndLine:       w.line(n),
		QualifiedName: owner + "." + propName,
		DeclaredType:  declaredType,
	})
}

func (w *csharpWalker) extractMethod(n *sitter.Node, owner string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	qualified := owner + "." + name

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.ChildCount()); i++ {
			param := params.Child(i)
			if param.Type() != "parameter" {
				continue
			}
			typeNode := param.ChildByFieldName("type")
			pNameNode := param.ChildByFieldName("name")
			if typeNode == nil || pNameNode == nil {
				continue
			}
			w.fieldTypes[w.text(pNameNode)] = w.text(typeNode)
		}
	}

	w.result.Symbols = append(w.result.Symbols, model.Symbol{
		Name:          name,
		SymbolType:    model.SymbolMethod,
		StartLine:     w.line(n),
		EndLine:       int(n.EndPoint().Row) + 1 + w.baseLine,
		QualifiedName: qualified,
		Signature:     w.signaturePreview(n),
	})

	w.scopeStack = append(w.scopeStack, qualified)
	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
	w.scopeStack = w.scopeStack[:len(w.scopeStack)-1]
}

func (w *csharpWalker) extractInvocation(n *sitter.Node) {
	functionNode := n.ChildByFieldName("function")
	if functionNode == nil || functionNode.Type() != "member_access_expression" {
		return
	}
	objectNode := functionNode.ChildByFieldName("expression")
	nameNode := functionNode.ChildByFieldName("name")
	if objectNode == nil || nameNode == nil {
		return
	}
	receiver := w.text(objectNode)
	method := w.text(nameNode)
	line := w.line(n)
	w.callCounter++

	dep := model.RawDependency{
		FromSymbolName: w.currentScope(),
		TargetName:     receiver + "." + method,
		Kind:           model.DependencyCall,
		Line:           line,
		CallingObject:  receiver,
		CallInstanceID: fmt.Sprintf("%s:%d:%d", w.path, line, w.callCounter),
	}

	if strings.HasPrefix(receiver, "_") {
		dep.QualifiedContext = "field_call_" + receiver
		dep.ResolvedClass = w.fieldTypes[receiver]
	} else if declaredType, ok := w.fieldTypes[receiver]; ok {
		dep.ResolvedClass = declaredType
	}

	w.result.RawDependencies = append(w.result.RawDependencies, dep)
}

func (w *csharpWalker) extractInstantiation(n *sitter.Node) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
		FromSymbolName: w.currentScope(),
		TargetName:     w.text(typeNode),
		Kind:           model.DependencyInstantiates,
		Line:           w.line(n),
	})
}

func (w *csharpWalker) signaturePreview(n *sitter.Node) string {
	text := w.text(n)
	if idx := strings.IndexByte(text, '{'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
