// Package directive parses the engine's own `# @lsp-...` comment directives
// out of R source text. Directives are the analyzer's complement to runtime
// inclusion (source()): a way for the author to declare cross-file structure
// that the parser cannot infer on its own.
package directive

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/jbearak/rlsp/crossfile"
)

var (
	backwardPattern = regexp.MustCompile(
		`#\s*@lsp-(?:sourced-by|run-by|included-by)\s*:?\s*["']?([^"'\s]+)["']?(?:\s+line\s*=\s*(\d+))?(?:\s+match\s*=\s*["']([^"']+)["'])?`)
	forwardPattern = regexp.MustCompile(
		`#\s*@lsp-source\s*:?\s*["']?([^"'\s]+)["']?(?:\s+line\s*=\s*(\d+))?`)
	workingDirPattern = regexp.MustCompile(
		`#\s*@lsp-(?:working-directory|working-dir|current-directory|current-dir|cd|wd)\s*:?\s*["']?([^"'\s]+)["']?`)
	ignorePattern     = regexp.MustCompile(`#\s*@lsp-ignore\s*:?\s*$`)
	ignoreNextPattern = regexp.MustCompile(`#\s*@lsp-ignore-next\s*:?\s*$`)
)

// Parse scans content line-by-line and extracts the directive-derived half
// of a file's CrossFileMetadata. It never fails: unrecognized directives (or
// plain comments) are passed through unchanged.
func Parse(content string) crossfile.CrossFileMetadata {
	meta := crossfile.NewCrossFileMetadata()

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lineNum uint32
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case backwardPattern.MatchString(line):
			caps := backwardPattern.FindStringSubmatch(line)
			spec := crossfile.CallSiteSpec{Kind: crossfile.CallSiteUnspecified}
			switch {
			case caps[2] != "":
				n, err := strconv.ParseUint(caps[2], 10, 32)
				if err != nil || n == 0 {
					n = 1
				}
				spec = crossfile.CallSiteSpec{Kind: crossfile.CallSiteLine, Line: uint32(n - 1)}
			case caps[3] != "":
				spec = crossfile.CallSiteSpec{Kind: crossfile.CallSiteMatch, Pattern: caps[3]}
			}
			meta.SourcedBy = append(meta.SourcedBy, crossfile.BackwardDirective{
				Path:          caps[1],
				CallSite:      spec,
				DirectiveLine: lineNum,
			})

		case forwardPattern.MatchString(line):
			caps := forwardPattern.FindStringSubmatch(line)
			fs := crossfile.ForwardSource{
				Path:               caps[1],
				Line:               lineNum,
				Column:             0,
				IsDirective:        true,
				SysSourceGlobalEnv: true,
			}
			if caps[2] != "" {
				if n, err := strconv.ParseUint(caps[2], 10, 32); err == nil && n > 0 {
					fs.Line = uint32(n - 1)
					fs.ExplicitLine = true
				}
			}
			meta.Sources = append(meta.Sources, fs)

		case workingDirPattern.MatchString(line):
			caps := workingDirPattern.FindStringSubmatch(line)
			meta.WorkingDirectory = caps[1]

		case ignorePattern.MatchString(line):
			meta.IgnoredLines[lineNum] = struct{}{}

		case ignoreNextPattern.MatchString(line):
			meta.IgnoredNextLines[lineNum+1] = struct{}{}
		}

		lineNum++
	}

	return meta
}

// IsLineIgnored reports whether diagnostics on the given 0-based line should
// be suppressed per the parsed metadata.
func IsLineIgnored(meta crossfile.CrossFileMetadata, line uint32) bool {
	return meta.IsLineIgnored(line)
}
