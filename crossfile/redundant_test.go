package crossfile

import (
	"testing"

	"github.com/jbearak/rlsp/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedundantDirectiveIssues_BareDirectiveMatchingDetectedCall(t *testing.T) {
	directives := []ForwardSource{{Path: "utils.R", IsDirective: true}}
	detected := []ForwardSource{{Path: "utils.R", Line: 3}}

	issues := RedundantDirectiveIssues(directives, detected)

	require.Len(t, issues, 1)
	assert.Equal(t, diag.E_REDUNDANT_DIRECTIVE, issues[0].Code())
	assert.Equal(t, diag.Info, issues[0].Severity())
}

func TestRedundantDirectiveIssues_ExplicitLineNeverRedundant(t *testing.T) {
	directives := []ForwardSource{{Path: "utils.R", IsDirective: true, ExplicitLine: true, Line: 4}}
	detected := []ForwardSource{{Path: "utils.R", Line: 3}}

	issues := RedundantDirectiveIssues(directives, detected)

	assert.Empty(t, issues)
}

func TestRedundantDirectiveIssues_NoMatchingPathIsNotRedundant(t *testing.T) {
	directives := []ForwardSource{{Path: "other.R", IsDirective: true}}
	detected := []ForwardSource{{Path: "utils.R", Line: 3}}

	issues := RedundantDirectiveIssues(directives, detected)

	assert.Empty(t, issues)
}
