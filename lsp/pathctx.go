package lsp

import (
	"sync"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/crossfile/pathresolve"
	"github.com/jbearak/rlsp/location"
)

// pathContexts tracks the [pathresolve.Context] in effect for each file the
// engine has seen, so [graph.PathResolveFunc] calls (which only see a bare
// fromURI/path pair) can still honor @lsp-working-directory directives and
// chdir=TRUE source() calls.
//
// A file's context depends on how it was reached: a source() call with
// chdir=TRUE makes the included file's own directory the working directory
// for everything it in turn sources, while a plain source() call or
// directive inherits the including file's effective working directory.
// Because that inheritance threads through the whole chain, every cached
// context embeds the workspace root; changing the root invalidates all of
// them at once, which setRoot does.
type pathContexts struct {
	mu    sync.Mutex
	root  location.CanonicalPath
	byURI map[string]pathresolve.Context
}

func newPathContexts() *pathContexts {
	return &pathContexts{byURI: make(map[string]pathresolve.Context)}
}

// setRoot updates the workspace root used to anchor "/"-prefixed paths and
// drops every cached context, since each one embeds the old root.
func (p *pathContexts) setRoot(root location.CanonicalPath) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = root
	p.byURI = make(map[string]pathresolve.Context)
}

// contextFor returns uri's cached context, or a fresh root context derived
// from uri's own path if none has been recorded yet (uri was opened
// directly rather than reached by traversing from a known parent).
func (p *pathContexts) contextFor(uri string) (pathresolve.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx, ok := p.byURI[uri]; ok {
		return ctx, true
	}

	path, err := uriToCanonicalPath(uri)
	if err != nil {
		return pathresolve.Context{}, false
	}
	return pathresolve.NewContext(path, p.root), true
}

// applyWorkingDirectory resolves an @lsp-working-directory directive's
// argument against uri's current context and records the result, so
// subsequent resolution within uri (and contexts derived for uri's own
// forward sources) picks it up.
func (p *pathContexts) applyWorkingDirectory(uri, directive string) {
	if directive == "" {
		return
	}
	ctx, ok := p.contextFor(uri)
	if !ok {
		return
	}
	resolved, ok := pathresolve.ResolveWorkingDirectory(directive, ctx)
	if !ok {
		return
	}
	ctx.WorkingDirectory = resolved

	p.mu.Lock()
	p.byURI[uri] = ctx
	p.mu.Unlock()
}

// recordChild derives and stores the context for the file reached by
// following a forward source from uri, so that when that file is in turn
// indexed, its own relative paths resolve against the right working
// directory.
func (p *pathContexts) recordChild(uri string, source crossfile.ForwardSource, childURI string) {
	parent, ok := p.contextFor(uri)
	if !ok {
		return
	}
	childPath, err := uriToCanonicalPath(childURI)
	if err != nil {
		return
	}

	var child pathresolve.Context
	if source.Chdir {
		child = parent.ChildContextWithChdir(childPath)
	} else {
		child = parent.ChildContext(childPath)
	}

	p.mu.Lock()
	p.byURI[childURI] = child
	p.mu.Unlock()
}

// resolve implements [graph.PathResolveFunc]: it resolves path as it
// appears in fromURI against fromURI's current context and converts the
// result back to a file:// URI.
func (p *pathContexts) resolve(fromURI, path string) (string, bool) {
	ctx, ok := p.contextFor(fromURI)
	if !ok {
		return "", false
	}
	resolved, ok := pathresolve.ResolvePath(path, ctx)
	if !ok {
		return "", false
	}
	return PathToURI(resolved.String()), true
}

func uriToCanonicalPath(uri string) (location.CanonicalPath, error) {
	p, err := URIToPath(uri)
	if err != nil {
		return location.CanonicalPath{}, err
	}
	return location.NewCanonicalPath(p)
}
