package lsp

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/stdlib"
)

// HoverParams represents hover request parameters.
type HoverParams struct {
	TextDocumentPositionParams
}

// Hover represents hover information.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s *Server) handleHover(msg *jsonrpcMessage) *jsonrpcMessage {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return replyError(msg.ID, codeInvalidParams, "Invalid params: %v", err)
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.Nodes == nil {
		return reply(msg.ID, nil)
	}
	return reply(msg.ID, hoverAt(doc, params.Position))
}

// hoverAt describes the innermost node under pos and, for a name, where it
// is bound.
func hoverAt(doc *Document, pos Position) *Hover {
	node := nodeAt(doc.Nodes, positionToOffset(doc.Content, pos))
	if node == nil {
		return nil
	}

	content := fmt.Sprintf("```mim\n%s\n```", ast.Label(node))
	if name := referencedName(node); name != "" {
		if d, ok := resolve(doc.Nodes, name, node.Range().Start.Offset); ok {
			content += fmt.Sprintf("\n\n`%s` declared at line %d", d.signature(), d.rng.Start.Line)
		} else if slices.Contains(stdlib.Names, name) {
			content += fmt.Sprintf("\n\n`%s` is a builtin", name)
		}
	}

	r := rangeOf(node.Range())
	return &Hover{
		Contents: MarkupContent{Kind: "markdown", Value: content},
		Range:    &r,
	}
}

// nodeAt returns the innermost node whose range holds offset.
func nodeAt(nodes []ast.Node, offset int) ast.Node {
	var found ast.Node
	visit := func(n ast.Node) bool {
		r := n.Range()
		if offset < r.Start.Offset || offset >= r.End.Offset {
			return false
		}
		found = n
		return true
	}
	for _, n := range nodes {
		ast.Walk(n, visit)
	}
	return found
}

// referencedName is the name a node reads or calls.
func referencedName(node ast.Node) string {
	switch n := node.(type) {
	case *ast.Identifier:
		return n.Name
	case *ast.FuncCall:
		return n.Name
	case *ast.MemberAccess:
		return n.Base
	case *ast.NamedBlock:
		return n.Name
	}
	return ""
}

// resolve finds the binding of name closest before offset, falling back to
// a later declaration such as a function used above its definition.
func resolve(nodes []ast.Node, name string, offset int) (declaration, bool) {
	var before, after *declaration
	for _, d := range declarations(nodes, -1) {
		if d.name != name {
			continue
		}
		if d.rng.Start.Offset <= offset {
			before = &d
		} else if after == nil {
			after = &d
		}
	}
	switch {
	case before != nil:
		return *before, true
	case after != nil:
		return *after, true
	}
	return declaration{}, false
}
