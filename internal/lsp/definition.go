package lsp

import (
	"encoding/json"
)

// DefinitionParams represents definition request parameters.
type DefinitionParams struct {
	TextDocumentPositionParams
}

// Location represents a location in a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

func (s *Server) handleDefinition(msg *jsonrpcMessage) *jsonrpcMessage {
	var params DefinitionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return replyError(msg.ID, codeInvalidParams, "Invalid params: %v", err)
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.Nodes == nil {
		return reply(msg.ID, nil)
	}
	return reply(msg.ID, definitionAt(doc, params.Position))
}

// definitionAt points at the declaration bound to the name under pos.
// Programs are single files, so the location is always in doc.
func definitionAt(doc *Document, pos Position) *Location {
	node := nodeAt(doc.Nodes, positionToOffset(doc.Content, pos))
	if node == nil {
		return nil
	}
	name := referencedName(node)
	if name == "" {
		return nil
	}
	d, ok := resolve(doc.Nodes, name, node.Range().Start.Offset)
	if !ok {
		return nil
	}
	return &Location{URI: doc.URI, Range: rangeOf(d.rng)}
}
