// Package pathresolve turns the path strings that appear in source()
// arguments and @lsp-* directives into resolved, canonical file paths.
//
// Resolution always happens relative to a [Context]: a leading "/" is
// workspace-root-relative, anything else resolves against the effective
// working directory, which is an explicit @lsp-working-directory directive
// if present, else the working directory inherited from whatever included
// this file via chdir=TRUE, else the file's own directory.
package pathresolve

import "github.com/jbearak/rlsp/location"

// Context carries the state needed to resolve a path string found in one
// file: the file's own location, any explicit or inherited working
// directory, and the workspace root that anchors "/"-prefixed paths.
type Context struct {
	FilePath                  location.CanonicalPath
	WorkingDirectory          location.CanonicalPath // zero if unset
	InheritedWorkingDirectory location.CanonicalPath // zero if unset
	WorkspaceRoot             location.CanonicalPath // zero if unset
}

// NewContext builds the root context for a file with no directive or
// inherited working directory yet applied.
func NewContext(filePath, workspaceRoot location.CanonicalPath) Context {
	return Context{FilePath: filePath, WorkspaceRoot: workspaceRoot}
}

// EffectiveWorkingDirectory resolves the directory that relative paths in
// this file are resolved against: explicit directive, then inherited
// chdir, then the file's own directory.
func (c Context) EffectiveWorkingDirectory() location.CanonicalPath {
	if !c.WorkingDirectory.IsZero() {
		return c.WorkingDirectory
	}
	if !c.InheritedWorkingDirectory.IsZero() {
		return c.InheritedWorkingDirectory
	}
	return c.FilePath.Dir()
}

// ChildContextWithChdir builds the context for a file reached via a
// source() call with chdir=TRUE: its working directory becomes its own
// directory, inherited forward to anything it sources in turn.
func (c Context) ChildContextWithChdir(childPath location.CanonicalPath) Context {
	return Context{
		FilePath:                  childPath,
		InheritedWorkingDirectory: childPath.Dir(),
		WorkspaceRoot:             c.WorkspaceRoot,
	}
}

// ChildContext builds the context for a file reached without chdir: it
// inherits the including file's effective working directory unchanged.
func (c Context) ChildContext(childPath location.CanonicalPath) Context {
	return Context{
		FilePath:                  childPath,
		InheritedWorkingDirectory: c.EffectiveWorkingDirectory(),
		WorkspaceRoot:             c.WorkspaceRoot,
	}
}

// ResolvePath resolves a path string from a source() call or @lsp-source
// directive against ctx. A leading "/" anchors to the workspace root;
// anything else resolves against the effective working directory.
//
// Returns false if path is empty, or if it is workspace-root-relative but
// ctx has no workspace root.
func ResolvePath(path string, ctx Context) (location.CanonicalPath, bool) {
	if path == "" {
		return location.CanonicalPath{}, false
	}
	if path[0] == '/' {
		if ctx.WorkspaceRoot.IsZero() {
			return location.CanonicalPath{}, false
		}
		return joinAndNormalize(ctx.WorkspaceRoot, path[1:])
	}
	return joinAndNormalize(ctx.EffectiveWorkingDirectory(), path)
}

// ResolveWorkingDirectory resolves a path string from an
// @lsp-working-directory directive against ctx. Unlike ResolvePath, a
// non-rooted path is always resolved against the file's own directory, not
// against any previously established working directory: a directive sets
// the working directory, it does not compose with one.
func ResolveWorkingDirectory(path string, ctx Context) (location.CanonicalPath, bool) {
	if path == "" {
		return location.CanonicalPath{}, false
	}
	if path[0] == '/' {
		if ctx.WorkspaceRoot.IsZero() {
			return location.CanonicalPath{}, false
		}
		return joinAndNormalize(ctx.WorkspaceRoot, path[1:])
	}
	return joinAndNormalize(ctx.FilePath.Dir(), path)
}

func joinAndNormalize(base location.CanonicalPath, rel string) (location.CanonicalPath, bool) {
	joined, err := base.Join(rel)
	if err != nil {
		return location.CanonicalPath{}, false
	}
	return joined, true
}
