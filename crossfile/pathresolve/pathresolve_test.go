package pathresolve

import (
	"testing"

	"github.com/jbearak/rlsp/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPath(t *testing.T, p string) location.CanonicalPath {
	t.Helper()
	cp, err := location.NewCanonicalPath(p)
	require.NoError(t, err)
	return cp
}

func makeContext(t *testing.T, file string, workspace string) Context {
	ctx := Context{FilePath: mustPath(t, file)}
	if workspace != "" {
		ctx.WorkspaceRoot = mustPath(t, workspace)
	}
	return ctx
}

func TestResolveRelativePath(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	resolved, ok := ResolvePath("utils.R", ctx)
	require.True(t, ok)
	assert.Equal(t, "/project/src/utils.R", resolved.String())
}

func TestResolveParentDirectory(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	resolved, ok := ResolvePath("../data/input.R", ctx)
	require.True(t, ok)
	assert.Equal(t, "/project/data/input.R", resolved.String())
}

func TestResolveWorkspaceRootRelative(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	resolved, ok := ResolvePath("/data/input.R", ctx)
	require.True(t, ok)
	assert.Equal(t, "/project/data/input.R", resolved.String())
}

func TestResolveWorkspaceRootRelativeNoWorkspace(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "")
	_, ok := ResolvePath("/data/input.R", ctx)
	assert.False(t, ok)
}

func TestResolveEmptyPath(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	_, ok := ResolvePath("", ctx)
	assert.False(t, ok)
}

func TestEffectiveWorkingDirectoryDefault(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	assert.Equal(t, "/project/src", ctx.EffectiveWorkingDirectory().String())
}

func TestEffectiveWorkingDirectoryExplicit(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	ctx.WorkingDirectory = mustPath(t, "/project/data")
	assert.Equal(t, "/project/data", ctx.EffectiveWorkingDirectory().String())
}

func TestEffectiveWorkingDirectoryInherited(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	ctx.InheritedWorkingDirectory = mustPath(t, "/project/scripts")
	assert.Equal(t, "/project/scripts", ctx.EffectiveWorkingDirectory().String())
}

func TestChildContextWithChdir(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	child := ctx.ChildContextWithChdir(mustPath(t, "/project/data/utils.R"))
	assert.Equal(t, "/project/data", child.EffectiveWorkingDirectory().String())
}

func TestChildContextWithoutChdir(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	child := ctx.ChildContext(mustPath(t, "/project/data/utils.R"))
	// Inherits the parent's effective working directory, not the child's own.
	assert.Equal(t, "/project/src", child.EffectiveWorkingDirectory().String())
}

func TestResolveWorkingDirectoryRelative(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	resolved, ok := ResolveWorkingDirectory("../data", ctx)
	require.True(t, ok)
	assert.Equal(t, "/project/data", resolved.String())
}

func TestResolveWorkingDirectoryWorkspaceRelative(t *testing.T) {
	ctx := makeContext(t, "/project/src/main.R", "/project")
	resolved, ok := ResolveWorkingDirectory("/data/scripts", ctx)
	require.True(t, ok)
	assert.Equal(t, "/project/data/scripts", resolved.String())
}
