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
	"github.com/smacker/go-tree-sitter/php"

	"github.com/opengraph-dev/compass/pkg/model"
)

// PHPParser walks the php tree-sitter grammar, grounded on the dispatch
// style shown in other_examples' wpdocs parser.go (per-goroutine Parser
// instance, extension-based language selection). It distinguishes static
// (A::b) from instance ($x->b) call sites and tracks a small
// declared-type map to fill RawDependency.ResolvedClass for the simple
// `new ClassName()` and typed-property/parameter cases named in
// SPEC_FULL.md §4.2.
type PHPParser struct {
	opts Options
}

// NewPHPParser returns a PHP parser.
func NewPHPParser(opts Options) *PHPParser {
	return &PHPParser{opts: opts}
}

// Language implements Parser.
func (p *PHPParser) Language() model.Language { return model.LanguagePHP }

// Parse implements Parser.
func (p *PHPParser) Parse(ctx context.Context, path string, content []byte) (*ParseResult, error) {
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

func (p *PHPParser) parseChunk(ctx context.Context, path string, c chunk) (*ParseResult, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(php.GetLanguage())

	tree, err := sp.ParseCtx(ctx, nil, c.content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", path, err)
	}
	defer tree.Close()

	w := &phpWalker{
		src:        c.content,
		path:       path,
		baseLine:   c.startLine - 1,
		result:     &ParseResult{},
		localTypes: make(map[string]string),
	}
	root := tree.RootNode()
	if root.HasError() {
		w.result.Errors = append(w.result.Errors, ParseError{Severity: SeverityWarning, Message: "syntax error in file"})
	}
	w.walk(root)
	return w.result, nil
}

type phpWalker struct {
	src         []byte
	path        string
	baseLine    int
	namespace   string
	result      *ParseResult
	scopeStack  []string
	localTypes  map[string]string // "$var" or "this->field" -> class name
	callCounter int
}

func (w *phpWalker) line(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 + w.baseLine }
func (w *phpWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}
func (w *phpWalker) currentScope() string {
	if len(w.scopeStack) == 0 {
		return ""
	}
	return w.scopeStack[len(w.scopeStack)-1]
}

func (w *phpWalker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "namespace_definition":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			w.namespace = w.text(nameNode)
		}
	case "namespace_use_declaration":
		w.extractUse(n)
	case "class_declaration", "interface_declaration", "trait_declaration":
		w.extractClass(n)
		return
	case "function_definition":
		w.extractFunction(n, "")
		return
	case "assignment_expression":
		w.trackAssignment(n)
	case "scoped_call_expression":
		w.extractScopedCall(n)
	case "member_call_expression":
		w.extractMemberCall(n)
	case "object_creation_expression":
		w.extractInstantiation(n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}

func (w *phpWalker) extractUse(n *sitter.Node) {
	line := w.line(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		clause := n.Child(i)
		if clause.Type() != "namespace_use_clause" {
			continue
		}
		nameNode := clause.ChildByFieldName("name")
		aliasNode := clause.ChildByFieldName("alias")
		if nameNode == nil {
			continue
		}
		specifier := w.text(nameNode)
		alias := ""
		if aliasNode != nil {
			alias = w.text(aliasNode)
		}
		w.result.Imports = append(w.result.Imports, model.Import{
			Specifier:  specifier,
			ImportType: model.ImportUse,
			Alias:      alias,
			Line:       line,
		})
	}
}

func (w *phpWalker) qualify(name string) string {
	if w.namespace == "" {
		return name
	}
	return w.namespace + "\\" + name
}

func (w *phpWalker) extractClass(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	symType := model.SymbolClass
	if n.Type() == "interface_declaration" {
		symType = model.SymbolInterface
	}
	w.result.Symbols = append(w.result.Symbols, model.Symbol{
		Name:          name,
		SymbolType:    symType,
		StartLine:     w.line(n),
		EndLine:       int(n.EndPoint().Row) + 1 + w.baseLine,
		QualifiedName: w.qualify(name),
		IsExported:    true,
	})

	if base := n.ChildByFieldName("base_clause"); base != nil {
		w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
			FromSymbolName: name,
			TargetName:     strings.TrimPrefix(w.text(base), "extends "),
			Kind:           model.DependencyExtends,
			Line:           w.line(base),
		})
	}
	if iface := n.ChildByFieldName("interfaces"); iface != nil {
		ifaceLine := w.line(iface)
		for i := 0; i < int(iface.NamedChildCount()); i++ {
			w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
				FromSymbolName: name,
				TargetName:     w.text(iface.NamedChild(i)),
				Kind:           model.DependencyImplements,
				Line:           ifaceLine,
			})
		}
	}

	savedTypes := w.localTypes
	w.localTypes = make(map[string]string)
	body := n.ChildByFieldName("body")
	if body != nil {
		w.collectTypedMembers(body)
		for i := 0; i < int(body.ChildCount()); i++ {
			member := body.Child(i)
			switch member.Type() {
			case "method_declaration":
				w.extractFunction(member, w.qualify(name))
			case "property_declaration":
				w.extractProperty(member, w.qualify(name))
			}
		}
	}
	w.localTypes = savedTypes
}

// collectTypedMembers pre-scans a class body for typed properties so
// `$this->field` and constructor-promoted properties resolve to a class
// before the method bodies referencing them are walked.
func (w *phpWalker) collectTypedMembers(body *sitter.Node) {
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		if member.Type() != "property_declaration" {
			continue
		}
		typeNode := member.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		typeName := strings.TrimPrefix(w.text(typeNode), "?")
		for j := 0; j < int(member.ChildCount()); j++ {
			el := member.Child(j)
			if el.Type() != "property_element" {
				continue
			}
			nameNode := el.ChildByFieldName("name")
			if nameNode != nil {
				w.localTypes["this->"+strings.TrimPrefix(w.text(nameNode), "$")] = typeName
			}
		}
	}
}

func (w *phpWalker) extractProperty(n *sitter.Node, owner string) {
	typeNode := n.ChildByFieldName("type")
	declaredType := ""
	if typeNode != nil {
		declaredType = w.text(typeNode)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		el := n.Child(i)
		if el.Type() != "property_element" {
			continue
		}
		nameNode := el.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		fieldName := strings.TrimPrefix(w.text(nameNode), "$")
		w.result.Symbols = append(w.result.Symbols, model.Symbol{
			Name:          fieldName,
			SymbolType:    model.SymbolField,
			StartLine:     w.line(n),
			EndLine:       w.line(n),
			QualifiedName: owner + "::" + fieldName,
			DeclaredType:  declaredType,
		})
	}
}

func (w *phpWalker) extractFunction(n *sitter.Node, owner string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	symType := model.SymbolFunction
	qualified := w.qualify(name)
	visibility := ""
	if owner != "" {
		symType = model.SymbolMethod
		qualified = owner + "::" + name
		visibility = methodVisibility(w.text(n))
	}

	// Track typed parameters ($x of type ClassName) for ResolvedClass.
	savedTypes := make(map[string]string, len(w.localTypes))
	for k, v := range w.localTypes {
		savedTypes[k] = v
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.ChildCount()); i++ {
			param := params.Child(i)
			if param.Type() != "simple_parameter" {
				continue
			}
			typeNode := param.ChildByFieldName("type")
			nameNode := param.ChildByFieldName("name")
			if typeNode == nil || nameNode == nil {
				continue
			}
			pName := strings.TrimPrefix(w.text(nameNode), "$")
			w.localTypes[pName] = strings.TrimPrefix(w.text(typeNode), "?")
		}
	}

	w.result.Symbols = append(w.result.Symbols, model.Symbol{
		Name:          name,
		SymbolType:    symType,
		StartLine:     w.line(n),
		EndLine:       int(n.EndPoint().Row) + 1 + w.baseLine,
		QualifiedName: qualified,
		Visibility:    visibility,
		Signature:     w.signaturePreview(n),
	})

	w.scopeStack = append(w.scopeStack, qualified)
	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
	w.scopeStack = w.scopeStack[:len(w.scopeStack)-1]
	w.localTypes = savedTypes
}

func methodVisibility(signatureText string) string {
	switch {
	case strings.Contains(signatureText, "private"):
		return "private"
	case strings.Contains(signatureText, "protected"):
		return "protected"
	default:
		return "public"
	}
}

func (w *phpWalker) trackAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil || right.Type() != "object_creation_expression" {
		return
	}
	classNode := right.ChildByFieldName("class")
	if classNode == nil {
		return
	}
	varName := strings.TrimPrefix(w.text(left), "$")
	w.localTypes[varName] = w.text(classNode)
}

func (w *phpWalker) extractScopedCall(n *sitter.Node) {
	scopeNode := n.ChildByFieldName("scope")
	nameNode := n.ChildByFieldName("name")
	if scopeNode == nil || nameNode == nil {
		return
	}
	class := w.text(scopeNode)
	method := w.text(nameNode)
	line := w.line(n)
	w.callCounter++
	w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
		FromSymbolName: w.currentScope(),
		TargetName:     class + "::" + method,
		Kind:           model.DependencyCall,
		Line:           line,
		ResolvedClass:  class,
		CallInstanceID: fmt.Sprintf("%s:%d:%d", w.path, line, w.callCounter),
		ParameterContext: "static",
	})
}

func (w *phpWalker) extractMemberCall(n *sitter.Node) {
	objectNode := n.ChildByFieldName("object")
	nameNode := n.ChildByFieldName("name")
	if objectNode == nil || nameNode == nil {
		return
	}
	receiver := w.text(objectNode)
	method := w.text(nameNode)
	line := w.line(n)
	w.callCounter++

	key := strings.TrimPrefix(receiver, "$")
	resolvedClass := w.localTypes[key]
	if receiver == "$this" {
		resolvedClass = w.localTypes["this->"+method]
	}

	w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
		FromSymbolName:   w.currentScope(),
		TargetName:       receiver + "->" + method,
		Kind:             model.DependencyCall,
		Line:             line,
		ResolvedClass:    resolvedClass,
		CallingObject:    receiver,
		CallInstanceID:   fmt.Sprintf("%s:%d:%d", w.path, line, w.callCounter),
		ParameterContext: "instance",
	})
}

func (w *phpWalker) extractInstantiation(n *sitter.Node) {
	classNode := n.ChildByFieldName("class")
	if classNode == nil {
		return
	}
	line := w.line(n)
	w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
		FromSymbolName: w.currentScope(),
		TargetName:     w.text(classNode),
		Kind:           model.DependencyInstantiates,
		Line:           line,
	})
}

func (w *phpWalker) signaturePreview(n *sitter.Node) string {
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
