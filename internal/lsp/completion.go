package lsp

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/interpreter"
	"github.com/mim-lang/mim/internal/lexer"
	"github.com/mim-lang/mim/internal/stdlib"
)

// CompletionParams represents completion request parameters.
type CompletionParams struct {
	TextDocumentPositionParams
	Context *CompletionContext `json:"context,omitempty"`
}

type CompletionContext struct {
	TriggerKind      int    `json:"triggerKind"`
	TriggerCharacter string `json:"triggerCharacter,omitempty"`
}

// TextDocumentPositionParams represents a position in a text document.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// CompletionList represents a list of completion items.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

type CompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

const (
	completionKindMethod   = 2
	completionKindFunction = 3
	completionKindProperty = 10
	completionKindVariable = 6
	completionKindKeyword  = 14
	completionKindSnippet  = 15
	completionKindConstant = 21
)

// members lists what a `.` may be followed by, per receiver. Unknown
// receivers get the list, map and string members.
var members = map[string][]CompletionItem{
	"stdstream": {
		{Label: "end", Kind: completionKindProperty, Detail: "printed after each output"},
		{Label: "sep", Kind: completionKindProperty, Detail: "between call arguments"},
	},
	"Converter": {
		{Label: "jsonToMap", Kind: completionKindMethod, Detail: "jsonToMap(text)"},
		{Label: "yamlToMap", Kind: completionKindMethod, Detail: "yamlToMap(text)"},
		{Label: "mapToJson", Kind: completionKindMethod, Detail: "mapToJson(map)"},
		{Label: "mapToYaml", Kind: completionKindMethod, Detail: "mapToYaml(map)"},
	},
	"": {
		{Label: "size", Kind: completionKindProperty, Detail: "list, map, string"},
		{Label: "get", Kind: completionKindMethod, Detail: "get(index or key)"},
		{Label: "add", Kind: completionKindMethod, Detail: "add(value) or add(key, value)"},
		{Label: "remove", Kind: completionKindMethod, Detail: "remove(value or key)"},
		{Label: "removeAt", Kind: completionKindMethod, Detail: "removeAt(index)"},
		{Label: "insert", Kind: completionKindMethod, Detail: "insert(index, value)"},
		{Label: "insertCopy", Kind: completionKindMethod, Detail: "insertCopy(index, value)"},
	},
}

var constants = map[string]bool{"null": true, "true": true, "false": true}

func (s *Server) handleCompletion(msg *jsonrpcMessage) *jsonrpcMessage {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return replyError(msg.ID, codeInvalidParams, "Invalid params: %v", err)
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return reply(msg.ID, CompletionList{Items: []CompletionItem{}})
	}
	return reply(msg.ID, CompletionList{Items: completions(doc, params.Position)})
}

// completions returns the items for the word under pos, fuzzy-filtered by
// what has been typed so far.
func completions(doc *Document, pos Position) []CompletionItem {
	runes := []rune(doc.Content)
	offset := min(positionToOffset(doc.Content, pos), len(runes))
	start := offset
	for start > 0 && isIdentRune(runes[start-1]) {
		start--
	}
	prefix := string(runes[start:offset])

	var items []CompletionItem
	if start > 0 && runes[start-1] == '.' {
		items = memberItems(receiverBefore(runes, start-1))
	} else {
		items = globalItems(doc, offset)
	}
	return filter(items, prefix)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// receiverBefore returns the identifier ending right before the dot at
// index dot, if the chain is a single name.
func receiverBefore(runes []rune, dot int) string {
	end := dot
	start := end
	for start > 0 && isIdentRune(runes[start-1]) {
		start--
	}
	if start > 0 && runes[start-1] == '.' {
		return ""
	}
	return string(runes[start:end])
}

func memberItems(receiver string) []CompletionItem {
	if items, ok := members[receiver]; ok {
		return items
	}
	return members[""]
}

// globalItems collects keywords, builtins, block names and the names
// declared before offset.
func globalItems(doc *Document, offset int) []CompletionItem {
	var items []CompletionItem
	seen := make(map[string]bool)
	add := func(item CompletionItem) {
		if seen[item.Label] {
			return
		}
		seen[item.Label] = true
		items = append(items, item)
	}

	for _, d := range declarations(doc.Nodes, offset) {
		add(d.completionItem())
	}
	for _, name := range stdlib.Names {
		kind := completionKindFunction
		if constants[name] {
			kind = completionKindConstant
		}
		add(CompletionItem{Label: name, Kind: kind, Detail: "builtin"})
	}
	for _, name := range interpreter.BlockNames {
		add(CompletionItem{Label: name, Kind: completionKindSnippet, Detail: "named block"})
	}
	keywords := lexer.Keywords()
	slices.Sort(keywords)
	for _, kw := range keywords {
		add(CompletionItem{Label: kw, Kind: completionKindKeyword})
	}
	return items
}

func filter(items []CompletionItem, prefix string) []CompletionItem {
	out := []CompletionItem{}
	for _, item := range items {
		if prefix == "" || fuzzy.MatchFold(prefix, item.Label) {
			out = append(out, item)
		}
	}
	return out
}

// declaration is a name bound somewhere in a document.
type declaration struct {
	name   string
	kind   string // var, val, func, param, index, key or value
	params []string
	rng    lexer.Range
}

func (d declaration) completionItem() CompletionItem {
	if d.kind == "func" {
		return CompletionItem{Label: d.name, Kind: completionKindFunction, Detail: d.signature()}
	}
	return CompletionItem{Label: d.name, Kind: completionKindVariable, Detail: d.signature()}
}

func (d declaration) signature() string {
	if d.kind == "func" {
		return fmt.Sprintf("func %s(%s)", d.name, strings.Join(d.params, ", "))
	}
	return d.kind + " " + d.name
}

// declarations lists the names bound in nodes that start before offset,
// in source order. A negative offset keeps every one.
func declarations(nodes []ast.Node, offset int) []declaration {
	var out []declaration
	visit := func(n ast.Node) bool {
		r := n.Range()
		if offset >= 0 && r.Start.Offset >= offset {
			return false
		}
		switch n := n.(type) {
		case *ast.VarDecl:
			kind := "var"
			if n.Const {
				kind = "val"
			}
			out = append(out, declaration{name: n.Name, kind: kind, rng: r})
		case *ast.FuncDecl:
			out = append(out, declaration{name: n.Name, kind: "func", params: n.Params, rng: r})
			for _, p := range n.Params {
				out = append(out, declaration{name: p, kind: "param", rng: r})
			}
		case *ast.RepeatLoop:
			if n.Index != "" {
				out = append(out, declaration{name: n.Index, kind: "index", rng: r})
			}
		case *ast.ForLoop:
			if n.Key != "" {
				out = append(out, declaration{name: n.Key, kind: "key", rng: r})
			}
			out = append(out, declaration{name: n.Value, kind: "value", rng: r})
		}
		return true
	}
	for _, n := range nodes {
		ast.Walk(n, visit)
	}
	return out
}
