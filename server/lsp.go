package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/Doddler/Scripting-Language-Guide/compiler"
	"github.com/Doddler/Scripting-Language-Guide/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "scriptc-ls"

// scriptKeywords are offered by completion alongside host functions and
// declared variables.
var scriptKeywords = []string{"var", "if", "else", "for"}

// LspServer serves editor features for script sources. Documents are
// compiled in memory on every change; nothing touches the filesystem.
type LspServer struct {
	hosts *vm.HostRegistry

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server resolving calls against the standard
// host registry.
func NewLSP() *LspServer {
	s := &LspServer{
		hosts:   vm.StandardHostRegistry(),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "script language server initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			text := whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language feature handlers ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, pos)
	if prefix == "" {
		return nil, nil
	}

	return s.complete(text, prefix, pos), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	word := extractWord(text, pos)
	if word == "" {
		return nil, nil
	}

	return s.hover(text, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	word := extractWord(text, pos)
	if word == "" {
		return nil, nil
	}

	locations := s.definition(text, uri, word)
	if len(locations) == 0 {
		return nil, nil
	}

	return locations, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	word := extractWord(text, pos)
	if word == "" {
		return nil, nil
	}

	return s.references(text, uri, word, params.Context.IncludeDeclaration), nil
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	return s.documentSymbols(text), nil
}

// --- Language feature logic ---

func (s *LspServer) complete(text, prefix string, pos protocol.Position) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	// Host functions
	for _, name := range s.hosts.Names() {
		if strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			kind := protocol.CompletionItemKindFunction
			detail := "host function"
			nameCopy := name
			items = append(items, protocol.CompletionItem{
				Label:      name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &nameCopy,
			})
		}
	}

	// Variables declared at or above the cursor line
	idx := indexDocument(text)
	offered := make(map[string]bool)
	for _, decl := range idx.decls {
		if decl.span.Start.Line-1 > int(pos.Line) {
			continue
		}
		if offered[decl.name] {
			continue
		}
		if strings.HasPrefix(strings.ToLower(decl.name), lowerPrefix) {
			offered[decl.name] = true
			kind := protocol.CompletionItemKindVariable
			detail := "variable"
			nameCopy := decl.name
			items = append(items, protocol.CompletionItem{
				Label:      decl.name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &nameCopy,
			})
		}
	}

	// Keywords
	for _, word := range scriptKeywords {
		if strings.HasPrefix(word, lowerPrefix) {
			kind := protocol.CompletionItemKindKeyword
			detail := "keyword"
			wordCopy := word
			items = append(items, protocol.CompletionItem{
				Label:      word,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &wordCopy,
			})
		}
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func (s *LspServer) hover(text, word string) *protocol.Hover {
	if id, ok := s.hosts.ResolveID(word); ok {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n\nHost function, id %d.", word, id)
		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: b.String(),
			},
		}
	}

	idx := indexDocument(text)
	decl, slot := idx.lookup(word)
	if decl == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\nVariable, slot %d, declared on line %d.", word, slot, decl.span.Start.Line)
	if n := len(idx.uses[word]); n > 0 {
		fmt.Fprintf(&b, "\n\nUsed %d times in this script.", n)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (s *LspServer) definition(text string, uri protocol.DocumentUri, word string) []protocol.Location {
	idx := indexDocument(text)
	decl, _ := idx.lookup(word)
	if decl == nil {
		return nil
	}

	return []protocol.Location{{
		URI:   uri,
		Range: declRange(text, decl.span),
	}}
}

func (s *LspServer) references(text string, uri protocol.DocumentUri, word string, includeDecl bool) []protocol.Location {
	idx := indexDocument(text)

	var locations []protocol.Location
	if includeDecl {
		for _, decl := range idx.decls {
			if decl.name == word {
				locations = append(locations, protocol.Location{
					URI:   uri,
					Range: declRange(text, decl.span),
				})
			}
		}
	}
	for _, span := range idx.uses[word] {
		locations = append(locations, protocol.Location{
			URI:   uri,
			Range: spanToRange(span),
		})
	}

	return locations
}

func (s *LspServer) documentSymbols(text string) []protocol.DocumentSymbol {
	idx := indexDocument(text)

	var symbols []protocol.DocumentSymbol
	for _, decl := range idx.decls {
		r := declRange(text, decl.span)
		detail := "variable"
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           decl.name,
			Detail:         &detail,
			Kind:           protocol.SymbolKindVariable,
			Range:          r,
			SelectionRange: r,
		})
	}

	return symbols
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := analyzeDocument(text)

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// analyzeDocument compiles the document in memory and converts the
// accumulated errors and warnings to diagnostics. The result is never nil;
// publishing an empty list clears stale diagnostics on the client.
func analyzeDocument(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	parser := compiler.NewParser(text)
	script := parser.ParseScript()
	if errs := parser.Errors(); len(errs) > 0 {
		// A broken parse makes lowering and analysis meaningless.
		for _, msg := range errs {
			diagnostics = append(diagnostics, diagnosticFor(text, msg, protocol.DiagnosticSeverityError))
		}
		return diagnostics
	}

	comp := compiler.NewCompiler()
	if _, err := comp.CompileScript(script); err != nil {
		if errs := comp.Errors(); len(errs) > 0 {
			for _, msg := range errs {
				diagnostics = append(diagnostics, diagnosticFor(text, msg, protocol.DiagnosticSeverityError))
			}
		} else {
			diagnostics = append(diagnostics, diagnosticFor(text, err.Error(), protocol.DiagnosticSeverityError))
		}
	}

	analyzer := compiler.NewSemanticAnalyzer()
	analyzer.AnalyzeScript(script)
	for _, msg := range analyzer.Warnings() {
		diagnostics = append(diagnostics, diagnosticFor(text, msg, protocol.DiagnosticSeverityWarning))
	}

	return diagnostics
}

// diagnosticFor converts one "line N: message" string to a diagnostic
// spanning the named line. Messages without a line prefix land on line 0.
func diagnosticFor(text, msg string, severity protocol.DiagnosticSeverity) protocol.Diagnostic {
	line, rest := splitLinePrefix(msg)
	source := lspName
	return protocol.Diagnostic{
		Range:    lineRange(text, line),
		Severity: &severity,
		Source:   &source,
		Message:  rest,
	}
}

// splitLinePrefix extracts the 1-based line number from a "line N: message"
// string, tolerating a "warning: " prefix. It returns the 0-based line and
// the message with the prefixes removed.
func splitLinePrefix(msg string) (int, string) {
	rest := strings.TrimPrefix(msg, "warning: ")
	tail, ok := strings.CutPrefix(rest, "line ")
	if !ok {
		return 0, msg
	}
	num, remainder, ok := strings.Cut(tail, ": ")
	if !ok {
		return 0, msg
	}
	line, err := strconv.Atoi(num)
	if err != nil || line < 1 {
		return 0, msg
	}
	return line - 1, remainder
}

// lineRange covers the full extent of a 0-based line.
func lineRange(text string, line int) protocol.Range {
	l := protocol.UInteger(line)
	return protocol.Range{
		Start: protocol.Position{Line: l, Character: 0},
		End:   lineEndPosition(text, l),
	}
}

// lineEndPosition returns the position just past the last character of a
// 0-based line.
func lineEndPosition(text string, line protocol.UInteger) protocol.Position {
	length := 0
	lines := strings.Split(text, "\n")
	if int(line) < len(lines) {
		length = len(strings.TrimRight(lines[line], "\r"))
	}
	return protocol.Position{Line: line, Character: protocol.UInteger(length)}
}

// --- Document indexing ---

// docSymbols is a best-effort index built from whatever the parser could
// recover. Editors query mid-keystroke, so parse errors are expected and
// ignored here.
type docSymbols struct {
	decls []symbolDecl
	uses  map[string][]compiler.Span
}

type symbolDecl struct {
	name string
	span compiler.Span
}

func indexDocument(text string) *docSymbols {
	idx := &docSymbols{uses: make(map[string][]compiler.Span)}

	parser := compiler.NewParser(text)
	script := parser.ParseScript()
	if script == nil {
		return idx
	}

	for _, stmt := range script.Statements {
		idx.addStmt(stmt)
	}
	return idx
}

// lookup finds the first declaration of name and its variable slot. Slots
// follow declaration order, matching the lowering stage.
func (idx *docSymbols) lookup(name string) (*symbolDecl, int) {
	seen := make(map[string]bool)
	slot := 0
	for i := range idx.decls {
		decl := &idx.decls[i]
		if decl.name == name {
			return decl, slot
		}
		if seen[decl.name] {
			continue
		}
		seen[decl.name] = true
		slot++
	}
	return nil, -1
}

func (idx *docSymbols) addStmt(stmt compiler.Stmt) {
	switch st := stmt.(type) {
	case *compiler.VarDeclaration:
		for _, name := range st.Names {
			idx.decls = append(idx.decls, symbolDecl{name: name, span: st.Span()})
		}
	case *compiler.IfStatement:
		idx.addExpr(st.Condition)
		idx.addStmt(st.Then)
		if st.Else != nil {
			idx.addStmt(st.Else)
		}
	case *compiler.ForLoop:
		idx.addExpr(st.Init)
		idx.addExpr(st.Condition)
		idx.addExpr(st.Post)
		idx.addStmt(st.Body)
	case *compiler.BlockStmt:
		for _, inner := range st.Statements {
			idx.addStmt(inner)
		}
	case *compiler.ExprStmt:
		idx.addExpr(st.Expr)
	}
}

func (idx *docSymbols) addExpr(expr compiler.Expr) {
	switch e := expr.(type) {
	case *compiler.Identifier:
		idx.uses[e.Name] = append(idx.uses[e.Name], nameSpan(e.SpanVal.Start, e.Name))
	case *compiler.Assignment:
		idx.uses[e.Target] = append(idx.uses[e.Target], nameSpan(e.SpanVal.Start, e.Target))
		idx.addExpr(e.Value)
	case *compiler.UnaryExpr:
		idx.uses[e.Target] = append(idx.uses[e.Target], nameSpan(e.SpanVal.Start, e.Target))
	case *compiler.BinaryExpr:
		idx.addExpr(e.Left)
		idx.addExpr(e.Right)
	case *compiler.ParenExpr:
		idx.addExpr(e.Inner)
	case *compiler.CallExpr:
		for _, arg := range e.Args {
			idx.addExpr(arg)
		}
	}
}

// nameSpan narrows a span to the identifier of the given length at its
// start. Parser spans run to the next token, which may sit on a later line.
func nameSpan(start compiler.Position, name string) compiler.Span {
	end := start
	end.Offset += len(name)
	end.Column += len(name)
	return compiler.Span{Start: start, End: end}
}

// spanToRange converts a 1-based source span to a 0-based LSP range.
func spanToRange(span compiler.Span) protocol.Range {
	return protocol.Range{
		Start: positionFor(span.Start),
		End:   positionFor(span.End),
	}
}

func positionFor(pos compiler.Position) protocol.Position {
	line, col := pos.Line-1, pos.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// declRange converts a declaration span to a range on its first line.
// Parser spans extend to the token after the declaration, which may start
// a later line.
func declRange(text string, span compiler.Span) protocol.Range {
	r := spanToRange(span)
	if r.End.Line != r.Start.Line {
		r.End = lineEndPosition(text, r.Start.Line)
	}
	return r
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Find start
	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}

	// Find end
	end := col
	for end < len(line) {
		ch := rune(line[end])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			end++
		} else {
			break
		}
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
