// Package lsp serves mim documents over the Language Server Protocol.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/lexer"
	"github.com/mim-lang/mim/internal/parser"
)

// Server represents the LSP server.
type Server struct {
	// Documents tracks open files by URI
	Documents map[string]*Document
	mu        sync.RWMutex

	in     *bufio.Reader
	out    io.Writer
	outMu  sync.Mutex
	logger *slog.Logger

	shutdown bool
}

// Document represents an open document.
type Document struct {
	URI     string
	Content string
	Version int

	// Nodes is the last tree that parsed without errors, so completion and
	// hover keep working while the user types.
	Nodes  []ast.Node
	Errors []diag.Diagnostic
}

type Option func(*Server)

// WithLogger sets where protocol problems are reported.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a server reading requests from in and writing to out.
func NewServer(in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		Documents: make(map[string]*Document),
		in:        bufio.NewReader(in),
		out:       out,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrExitWithoutShutdown is returned by Run when the client sends exit
// before shutdown.
var ErrExitWithoutShutdown = errors.New("lsp: exit before shutdown")

// Run serves requests until the client exits, the input ends or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var msg jsonrpcMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			s.logger.Warn("failed to parse JSON-RPC message", slog.Any("error", err))
			continue
		}

		if msg.Method == "exit" {
			if !s.shutdown {
				return ErrExitWithoutShutdown
			}
			return nil
		}

		if response := s.handleMessage(ctx, &msg); response != nil {
			if err := s.send(response); err != nil {
				s.logger.Warn("failed to send response", slog.String("method", msg.Method), slog.Any("error", err))
			}
		}
	}
}

// readMessage reads one Content-Length framed body. Other headers are
// skipped.
func (s *Server) readMessage() ([]byte, error) {
	contentLength := -1
	for {
		line, err := s.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" && contentLength < 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length header %q", line)
		}
		contentLength = n
	}
	if contentLength < 0 {
		return nil, errors.New("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.in, body); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	return body, nil
}

// jsonrpcMessage represents a JSON-RPC 2.0 message.
type jsonrpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInvalidRequest = -32600
)

func reply(id any, result any) *jsonrpcMessage {
	return &jsonrpcMessage{JSONRPC: "2.0", ID: id, Result: result}
}

func replyError(id any, code int, format string, args ...any) *jsonrpcMessage {
	return &jsonrpcMessage{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonrpcError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

// handleMessage processes a JSON-RPC message and returns a response.
// Notifications return nil.
func (s *Server) handleMessage(_ context.Context, msg *jsonrpcMessage) *jsonrpcMessage {
	if s.shutdown && msg.ID != nil {
		return replyError(msg.ID, codeInvalidRequest, "server is shutting down")
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "textDocument/didOpen":
		s.handleDidOpen(msg)
		return nil
	case "textDocument/didChange":
		s.handleDidChange(msg)
		return nil
	case "textDocument/didClose":
		s.handleDidClose(msg)
		return nil
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "shutdown":
		s.shutdown = true
		return reply(msg.ID, nil)
	}
	if msg.ID != nil {
		return replyError(msg.ID, codeMethodNotFound, "Method not found: %s", msg.Method)
	}
	return nil
}

// send writes a framed JSON-RPC message.
func (s *Server) send(msg *jsonrpcMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()

	if _, err := fmt.Fprintf(s.out, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}
	return nil
}

// InitializeParams represents the initialize request parameters.
type InitializeParams struct {
	ProcessID    int            `json:"processId,omitempty"`
	RootURI      string         `json:"rootUri,omitempty"`
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

// InitializeResult represents the initialize response.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

type ServerCapabilities struct {
	TextDocumentSync   int            `json:"textDocumentSync"`
	CompletionProvider map[string]any `json:"completionProvider,omitempty"`
	HoverProvider      bool           `json:"hoverProvider"`
	DefinitionProvider bool           `json:"definitionProvider"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Version is reported in the initialize response.
const Version = "0.1.0"

func (s *Server) handleInitialize(msg *jsonrpcMessage) *jsonrpcMessage {
	var params InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return replyError(msg.ID, codeInvalidParams, "Invalid params: %v", err)
		}
	}

	return reply(msg.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: 1, // full document sync
			CompletionProvider: map[string]any{
				"triggerCharacters": []string{"."},
			},
			HoverProvider:      true,
			DefinitionProvider: true,
		},
		ServerInfo: ServerInfo{Name: "mim-lsp", Version: Version},
	})
}

// DidOpenTextDocumentParams represents didOpen notification parameters.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

func (s *Server) handleDidOpen(msg *jsonrpcMessage) {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("failed to parse didOpen params", slog.Any("error", err))
		return
	}

	doc := &Document{
		URI:     params.TextDocument.URI,
		Content: params.TextDocument.Text,
		Version: params.TextDocument.Version,
	}
	updateDocument(doc)

	s.mu.Lock()
	s.Documents[doc.URI] = doc
	s.mu.Unlock()

	s.publishDiagnostics(doc)
}

// DidChangeTextDocumentParams represents didChange notification parameters.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

func (s *Server) handleDidChange(msg *jsonrpcMessage) {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("failed to parse didChange params", slog.Any("error", err))
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}

	s.mu.Lock()
	doc, ok := s.Documents[params.TextDocument.URI]
	if ok {
		// full sync: the last change holds the whole text
		doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
		doc.Version = params.TextDocument.Version
		updateDocument(doc)
	}
	s.mu.Unlock()

	if ok {
		s.publishDiagnostics(doc)
	}
}

func (s *Server) handleDidClose(msg *jsonrpcMessage) {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("failed to parse didClose params", slog.Any("error", err))
		return
	}

	s.mu.Lock()
	delete(s.Documents, params.TextDocument.URI)
	s.mu.Unlock()

	// clear what the client still shows for the file
	s.sendDiagnostics(params.TextDocument.URI, nil)
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// document returns the open document for uri.
func (s *Server) document(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.Documents[uri]
	return doc, ok
}

// updateDocument lexes and parses doc, keeping the previous tree when the
// new text does not parse.
func updateDocument(doc *Document) {
	nodes, err := parser.ParseString(doc.Content, parser.WithFilename(uriToPath(doc.URI)))
	if err == nil {
		doc.Nodes = nodes
		doc.Errors = nil
		return
	}

	var lexErr *lexer.LexerError
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &lexErr):
		doc.Errors = []diag.Diagnostic{lexErr.ToDiagnostic()}
	case errors.As(err, &parseErr):
		doc.Errors = []diag.Diagnostic{parseErr.ToDiagnostic()}
	default:
		doc.Errors = []diag.Diagnostic{{
			Stage:    diag.StageParser,
			Severity: diag.SeverityError,
			Message:  err.Error(),
		}}
	}
}

// publishDiagnostics sends the diagnostics of doc to the client.
func (s *Server) publishDiagnostics(doc *Document) {
	out := make([]Diagnostic, 0, len(doc.Errors))
	for _, d := range doc.Errors {
		out = append(out, Diagnostic{
			Range:    spanRange(doc.Content, d.Span),
			Severity: diagnosticSeverity(d.Severity),
			Message:  diagnosticMessage(d),
			Code:     string(d.Code),
			Source:   "mim",
		})
	}
	s.sendDiagnostics(doc.URI, out)
}

func (s *Server) sendDiagnostics(uri string, diagnostics []Diagnostic) {
	if diagnostics == nil {
		diagnostics = []Diagnostic{}
	}
	params, err := json.Marshal(PublishDiagnosticsParams{URI: uri, Diagnostics: diagnostics})
	if err != nil {
		s.logger.Warn("failed to marshal diagnostics", slog.Any("error", err))
		return
	}
	notification := &jsonrpcMessage{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params:  params,
	}
	if err := s.send(notification); err != nil {
		s.logger.Warn("failed to publish diagnostics", slog.String("uri", uri), slog.Any("error", err))
	}
}

func diagnosticMessage(d diag.Diagnostic) string {
	msg := d.Message
	if d.Suggestion != "" {
		msg += " (" + d.Suggestion + ")"
	}
	if d.Help != "" {
		msg += "\n" + d.Help
	}
	return msg
}

// PublishDiagnosticsParams is the payload of textDocument/publishDiagnostics.
type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Diagnostic represents an LSP diagnostic.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Source   string `json:"source,omitempty"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func diagnosticSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SeverityWarning:
		return 2
	case diag.SeverityNote:
		return 3
	default:
		return 1
	}
}

// spanRange converts a diagnostic span (rune offsets) to an LSP range.
func spanRange(content string, span diag.Span) Range {
	start := Position{Line: max(span.Line-1, 0), Character: max(span.Column-1, 0)}
	end := start
	if span.End > span.Start {
		end = offsetToPosition(content, span.End)
	}
	return Range{Start: start, End: end}
}

// rangeOf converts a node range to an LSP range.
func rangeOf(r lexer.Range) Range {
	return Range{
		Start: Position{Line: r.Start.Line - 1, Character: r.Start.Column - 1},
		End:   Position{Line: r.End.Line - 1, Character: r.End.Column - 1},
	}
}

// positionToOffset converts an LSP position to a rune offset.
func positionToOffset(content string, pos Position) int {
	line, col, offset := 0, 0, 0
	for _, r := range content {
		if line == pos.Line && col == pos.Character {
			return offset
		}
		if r == '\n' {
			if line == pos.Line {
				return offset
			}
			line++
			col = 0
		} else {
			col++
		}
		offset++
	}
	return offset
}

// offsetToPosition converts a rune offset to an LSP position.
func offsetToPosition(content string, offset int) Position {
	var pos Position
	i := 0
	for _, r := range content {
		if i == offset {
			break
		}
		if r == '\n' {
			pos.Line++
			pos.Character = 0
		} else {
			pos.Character++
		}
		i++
	}
	return pos
}

// uriToPath converts a file:// URI to a file path.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	path := u.Path
	// drive letters: /C:/x -> C:/x
	if len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return path
}
