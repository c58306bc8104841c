// Package lsp implements a Language Server Protocol server for R source files.
package lsp

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	// commonlog is a required dependency of github.com/tliron/glsp.
	// We silence it in NewServer() via commonlog.Configure(0, nil) because
	// this server uses slog for all logging. The blank import of the "simple"
	// backend is required by glsp at runtime.
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple" // required backend for glsp

	"github.com/jbearak/rlsp/crossfile"
)

// isRURI reports whether uri refers to an R source file (.R or .r).
// Detection uses filepath.Ext on the filesystem path (not the raw URI
// suffix) to avoid false positives from query strings or fragments.
func isRURI(uri string) bool {
	path, err := URIToPath(uri)
	if err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".r"
}

const serverName = "rlsp"

// Server is the R cross-file language server.
type Server struct {
	logger    *slog.Logger
	config    Config
	handler   protocol.Handler
	server    *server.Server
	workspace *Workspace

	// notify holds the last notification capability captured from a
	// request context. Background events that don't originate from their
	// own glsp.Context (a reloaded settings file, for example) use it to
	// publish updated diagnostics.
	notifyMu sync.RWMutex
	notify   Notifier

	// shutdownCalled tracks whether shutdown was called before exit (LSP lifecycle)
	shutdownCalled bool

	// closeOnce ensures Close is idempotent
	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a new R language server. If logger is nil,
// slog.Default() is used.
func NewServer(logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	engineConfig := crossfile.DefaultConfig()
	if cfg.EngineConfig != nil {
		engineConfig = *cfg.EngineConfig
	}
	s := &Server{
		logger:    logger.With(slog.String("component", "server")),
		config:    cfg,
		workspace: NewWorkspace(logger, engineConfig),
		notify:    func(string, any) {},
	}

	// Silence commonlog - glsp uses it internally but we use slog for all logging.
	commonlog.Configure(0, nil)

	s.handler = protocol.Handler{
		// Lifecycle
		Initialize:    s.initialize,
		Initialized:   s.initialized,
		Shutdown:      s.shutdown,
		Exit:          s.exit,
		SetTrace:      s.setTrace,
		CancelRequest: s.cancelRequest,

		// Text Document Synchronization
		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		// Language Features
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentFormatting:     s.textDocumentFormatting,

		// Workspace
		WorkspaceDidChangeWatchedFiles:     s.workspaceDidChangeWatchedFiles,
		WorkspaceDidChangeWorkspaceFolders: s.workspaceDidChangeWorkspaceFolders,
	}

	s.server = server.NewServer(&s.handler, serverName, false)

	if cfg.ModuleRoot != "" {
		s.workspace.AddRoot(PathToURI(cfg.ModuleRoot))
	}

	return s
}

// Handler returns the protocol handler for testing purposes.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// RunStdio runs the server using stdio transport.
func (s *Server) RunStdio() error {
	if err := s.server.RunStdio(); err != nil {
		return fmt.Errorf("run stdio: %w", err)
	}
	return nil
}

// Shutdown initiates graceful server shutdown. It cancels pending
// workspace operations to ensure clean termination.
func (s *Server) Shutdown() {
	s.logger.Info("initiating shutdown")
	s.workspace.Shutdown()
}

// Close closes the JSON-RPC connection, causing RunStdio to return.
// This enables graceful shutdown when a signal is received.
//
// Close is idempotent: multiple calls return the same result and do not panic.
// It is safe to call before RunStdio (returns nil if connection not initialized).
func (s *Server) Close() error {
	conn := s.server.GetStdio()
	if conn == nil {
		return nil // Connection not ready, caller can retry
	}
	s.closeOnce.Do(func() {
		if err := conn.Close(); err != nil {
			s.closeErr = fmt.Errorf("close connection: %w", err)
		}
	})
	return s.closeErr
}

// UpdateEngineConfig applies a new engine configuration, reanalyzing
// already-open documents if the change affects scope resolution. Intended
// for a settings-file watcher running outside of any request's lifecycle;
// uses the notifier captured from the most recent request context.
func (s *Server) UpdateEngineConfig(cfg crossfile.Config) {
	if s.workspace.UpdateConfig(cfg) {
		s.notifyMu.RLock()
		notify := s.notify
		s.notifyMu.RUnlock()
		s.workspace.ReanalyzeOpenDocuments(notify)
	}
}

// captureNotifier remembers ctx's notification capability for later use by
// background events that aren't themselves dispatched through glsp.
func (s *Server) captureNotifier(ctx *glsp.Context) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notify = notifierFrom(ctx)
}

// notifierFrom captures only the notification capability from ctx, so
// revalidation closures scheduled well after the originating request
// don't hold onto glsp's broader context surface.
func notifierFrom(ctx *glsp.Context) Notifier {
	if ctx == nil {
		// Tests and other callers that invoke handlers directly (bypassing
		// glsp's dispatch loop) pass a nil context; notifications are
		// simply dropped rather than panicking on a nil *glsp.Context.
		return func(method string, params any) {}
	}
	return func(method string, params any) { ctx.Notify(method, params) }
}

// initialize handles the initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotifier(ctx)
	s.logger.Info("initialize request received",
		slog.String("client_name", s.clientName(params)),
		slog.String("root_uri", s.rootURI(params)),
	)

	s.logClientCapabilities(params.Capabilities)

	switch {
	case params.WorkspaceFolders != nil:
		for _, folder := range params.WorkspaceFolders {
			s.workspace.AddRoot(folder.URI)
			s.logger.Debug("workspace folder", slog.String("uri", folder.URI))
		}
	case params.RootURI != nil:
		s.workspace.AddRoot(*params.RootURI)
	case params.RootPath != nil:
		// Fallback for older LSP clients that only provide RootPath.
		s.workspace.AddRoot(PathToURI(*params.RootPath))
	}

	// Position encoding negotiation requires LSP 3.17; glsp only supports
	// 3.16, so UTF-16 (VS Code's convention) is assumed unconditionally.
	posEncoding := PositionEncodingUTF16
	s.workspace.SetPositionEncoding(posEncoding)
	s.logger.Info("using position encoding", slog.String("encoding", string(posEncoding)))

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	if syncOpts, ok := capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions); ok {
		syncOpts.Change = &syncKind
	}

	// Trigger characters relevant to R: "$" for data-frame/list member
	// access, ":" for namespace-qualified access (pkg::name, pkg:::name).
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"$", ":"},
	}

	version := "dev"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// initialized handles the initialized notification.
func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.logger.Info("server initialized")
	return nil
}

// shutdown handles the shutdown request.
func (s *Server) shutdown(ctx *glsp.Context) error {
	s.logger.Info("shutdown request received")
	s.shutdownCalled = true
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

// exit handles the exit notification per LSP spec. Exit code is 0 if
// shutdown was called first, 1 otherwise.
func (s *Server) exit(_ *glsp.Context) error {
	exitCode := 0
	if !s.shutdownCalled {
		s.logger.Warn("exit called without shutdown")
		exitCode = 1
	}
	s.logger.Info("exit notification received", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
	return nil // unreachable
}

// setTrace handles the $/setTrace notification.
func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	s.logger.Debug("setTrace", slog.String("value", string(params.Value)))
	protocol.SetTraceValue(params.Value)
	return nil
}

// cancelRequest handles the $/cancelRequest notification. The glsp library
// handles JSON-RPC level request cancellation; revalidation's own
// cancellation runs through context.Context checked cooperatively inside
// [revalidation.Scheduler].
func (s *Server) cancelRequest(ctx *glsp.Context, params *protocol.CancelParams) error {
	s.logger.Debug("cancelRequest", slog.Any("id", params.ID))
	return nil
}

// textDocumentDidOpen handles textDocument/didOpen.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didOpen",
		slog.String("uri", uri),
		slog.Int("version", int(params.TextDocument.Version)),
	)

	if !isRURI(uri) {
		s.logger.Debug("ignoring didOpen for unsupported file type", slog.String("uri", uri))
		return nil
	}

	s.workspace.SetActiveDocument(uri)
	s.workspace.DocumentOpened(notifierFrom(ctx), uri, params.TextDocument.Version, params.TextDocument.Text)
	return nil
}

// textDocumentDidChange handles textDocument/didChange.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didChange",
		slog.String("uri", uri),
		slog.Int("version", int(params.TextDocument.Version)),
	)

	if !isRURI(uri) {
		s.logger.Debug("ignoring didChange for unsupported file type", slog.String("uri", uri))
		return nil
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}

	var lastFullChange *protocol.TextDocumentContentChangeEventWhole
	for _, rawChange := range params.ContentChanges {
		if change, ok := rawChange.(protocol.TextDocumentContentChangeEventWhole); ok {
			lastFullChange = &change
		}
	}

	if lastFullChange != nil {
		s.workspace.DocumentChanged(notifierFrom(ctx), uri, params.TextDocument.Version, lastFullChange.Text)
	} else if _, ok := params.ContentChanges[0].(protocol.TextDocumentContentChangeEvent); ok {
		s.logger.Warn("received incremental change but server advertises full sync",
			slog.String("uri", uri), slog.Int("version", int(params.TextDocument.Version)))
		s.applyIncrementalChanges(ctx, params)
	}

	return nil
}

// applyIncrementalChanges applies incremental text changes to a document.
// This handles misbehaving clients that send incremental changes despite
// the server advertising full sync mode.
func (s *Server) applyIncrementalChanges(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) {
	current, ok := s.workspace.openDocumentText(params.TextDocument.URI)
	if !ok {
		s.logger.Warn("incremental change for unknown document",
			slog.String("uri", params.TextDocument.URI),
		)
		return
	}

	text := mergeIncrementalChanges(current, s.workspace.PositionEncoding(), params.ContentChanges, s.logger)
	s.workspace.DocumentChanged(notifierFrom(ctx), params.TextDocument.URI, params.TextDocument.Version, text)
}

// mergeIncrementalChanges applies incremental content changes to currentText
// and returns the merged result. It is a pure function with no side effects.
func mergeIncrementalChanges(currentText string, enc PositionEncoding, changes []any, logger *slog.Logger) string {
	text := normalizeLineEndings(currentText)

	for _, rawChange := range changes {
		change, ok := rawChange.(protocol.TextDocumentContentChangeEvent)
		if !ok {
			continue
		}
		if change.Range == nil {
			text = normalizeLineEndings(change.Text)
			continue
		}

		lines := strings.Split(text, "\n")
		startOffset := rangeToByteOffset(lines, int(change.Range.Start.Line), int(change.Range.Start.Character), enc)
		endOffset := rangeToByteOffset(lines, int(change.Range.End.Line), int(change.Range.End.Character), enc)

		if startOffset <= len(text) && endOffset <= len(text) && startOffset <= endOffset {
			text = text[:startOffset] + normalizeLineEndings(change.Text) + text[endOffset:]
		} else {
			if logger != nil {
				logger.Warn("incremental change has invalid range, using full-text fallback",
					slog.Int("start_offset", startOffset),
					slog.Int("end_offset", endOffset),
					slog.Int("text_len", len(text)),
				)
			}
			text = normalizeLineEndings(change.Text)
		}
	}
	return text
}

// rangeToByteOffset converts an LSP position to a byte offset in the document.
// The encoding parameter specifies how character positions are counted (UTF-16 or UTF-8).
func rangeToByteOffset(lines []string, line, char int, enc PositionEncoding) int {
	offset := 0

	for i := 0; i < line && i < len(lines); i++ {
		offset += len(lines[i]) + 1 // +1 for newline
	}

	if line < len(lines) {
		lineContent := []byte(lines[line])
		var charOffset int
		switch enc {
		case PositionEncodingUTF8:
			charOffset = min(char, len(lineContent))
		default:
			charOffset = utf16CharToByteOffset(lineContent, 0, char)
		}
		offset += charOffset
	}

	return offset
}

// textDocumentDidClose handles textDocument/didClose.
func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug("textDocument/didClose", slog.String("uri", uri))

	if !isRURI(uri) {
		s.logger.Debug("ignoring didClose for unsupported file type", slog.String("uri", uri))
		return nil
	}

	s.workspace.DocumentClosed(notifierFrom(ctx), uri)
	return nil
}

// workspaceDidChangeWatchedFiles handles workspace/didChangeWatchedFiles.
func (s *Server) workspaceDidChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		s.logger.Debug("watched file changed",
			slog.String("uri", change.URI),
			slog.Int("type", int(change.Type)),
		)
		s.workspace.FileChanged(notifierFrom(ctx), change.URI, change.Type)
	}
	return nil
}

// workspaceDidChangeWorkspaceFolders handles workspace/didChangeWorkspaceFolders.
func (s *Server) workspaceDidChangeWorkspaceFolders(ctx *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	for _, folder := range params.Event.Removed {
		s.logger.Debug("workspace folder removed", slog.String("uri", folder.URI))
		s.workspace.RemoveRoot(folder.URI)
	}

	for _, folder := range params.Event.Added {
		s.logger.Debug("workspace folder added", slog.String("uri", folder.URI))
		s.workspace.AddRoot(folder.URI)
	}

	s.workspace.ReanalyzeOpenDocuments(notifierFrom(ctx))
	return nil
}

func (s *Server) clientName(params *protocol.InitializeParams) string {
	if params.ClientInfo != nil {
		if params.ClientInfo.Version != nil {
			return params.ClientInfo.Name + " " + *params.ClientInfo.Version
		}
		return params.ClientInfo.Name
	}
	return "unknown"
}

func (s *Server) rootURI(params *protocol.InitializeParams) string {
	if params.RootURI != nil {
		return *params.RootURI
	}
	return ""
}

func (s *Server) logClientCapabilities(caps protocol.ClientCapabilities) {
	var features []string

	if caps.TextDocument != nil {
		if caps.TextDocument.Completion != nil {
			features = append(features, "completion")
			if caps.TextDocument.Completion.CompletionItem != nil {
				if caps.TextDocument.Completion.CompletionItem.SnippetSupport != nil &&
					*caps.TextDocument.Completion.CompletionItem.SnippetSupport {
					features = append(features, "snippets")
				}
			}
		}
		if caps.TextDocument.Hover != nil {
			features = append(features, "hover")
			if caps.TextDocument.Hover.ContentFormat != nil &&
				slices.Contains(caps.TextDocument.Hover.ContentFormat, protocol.MarkupKindMarkdown) {
				features = append(features, "hover-markdown")
			}
		}
		if caps.TextDocument.Definition != nil {
			features = append(features, "definition")
		}
		if caps.TextDocument.DocumentSymbol != nil {
			features = append(features, "document-symbol")
		}
		if caps.TextDocument.Formatting != nil {
			features = append(features, "formatting")
		}
	}

	s.logger.Info("client capabilities", slog.Any("features", features))
}
