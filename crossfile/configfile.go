package crossfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/jbearak/rlsp/diag"
)

// parseSeverity converts a settings-file severity label to diag.Severity.
// diag.Severity has no parse counterpart to its String method since nothing
// else in the engine needs to read severities back out of text; this stays
// local rather than growing the diag package's public surface for one caller.
func parseSeverity(label string) (diag.Severity, error) {
	switch label {
	case "fatal":
		return diag.Fatal, nil
	case "error":
		return diag.Error, nil
	case "warning":
		return diag.Warning, nil
	case "info":
		return diag.Info, nil
	case "hint":
		return diag.Hint, nil
	default:
		return 0, fmt.Errorf("invalid severity %q (want fatal|error|warning|info|hint)", label)
	}
}

// fileConfig mirrors the subset of Config that is safe to expose through a
// user-editable settings file. Fields are pointers so that an absent key
// leaves the corresponding DefaultConfig value untouched, rather than
// zeroing it.
type fileConfig struct {
	MaxBackwardDepth *int    `json:"maxBackwardDepth"`
	MaxForwardDepth  *int    `json:"maxForwardDepth"`
	MaxChainDepth    *int    `json:"maxChainDepth"`
	AssumeCallSite   *string `json:"assumeCallSite"`
	IndexWorkspace   *bool   `json:"indexWorkspace"`

	MaxRevalidationsPerTrigger *int   `json:"maxRevalidationsPerTrigger"`
	RevalidationDebounceMillis *int64 `json:"revalidationDebounceMillis"`

	UndefinedVariablesEnabled *bool `json:"undefinedVariablesEnabled"`

	MissingFileSeverity    *string `json:"missingFileSeverity"`
	MissingPackageSeverity *string `json:"missingPackageSeverity"`
}

// LoadConfigFile reads a jsonc-formatted settings file (rlsp.jsonc) and
// overlays its fields onto DefaultConfig. Comments and trailing commas are
// accepted, matching the editor-config convention most LSP clients already
// use for their own settings files.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(jsonc.ToJSON(raw), &fc); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if fc.MaxBackwardDepth != nil {
		cfg.MaxBackwardDepth = *fc.MaxBackwardDepth
	}
	if fc.MaxForwardDepth != nil {
		cfg.MaxForwardDepth = *fc.MaxForwardDepth
	}
	if fc.MaxChainDepth != nil {
		cfg.MaxChainDepth = *fc.MaxChainDepth
	}
	if fc.AssumeCallSite != nil {
		switch *fc.AssumeCallSite {
		case "start":
			cfg.AssumeCallSite = CallSiteAssumeStart
		case "end":
			cfg.AssumeCallSite = CallSiteAssumeEnd
		default:
			return Config{}, fmt.Errorf("parse config file %q: invalid assumeCallSite %q (want \"start\" or \"end\")", path, *fc.AssumeCallSite)
		}
	}
	if fc.IndexWorkspace != nil {
		cfg.IndexWorkspace = *fc.IndexWorkspace
	}
	if fc.MaxRevalidationsPerTrigger != nil {
		cfg.MaxRevalidationsPerTrigger = *fc.MaxRevalidationsPerTrigger
	}
	if fc.RevalidationDebounceMillis != nil {
		cfg.RevalidationDebounceMillis = *fc.RevalidationDebounceMillis
	}
	if fc.UndefinedVariablesEnabled != nil {
		cfg.UndefinedVariablesEnabled = *fc.UndefinedVariablesEnabled
	}
	if fc.MissingFileSeverity != nil {
		sev, err := parseSeverity(*fc.MissingFileSeverity)
		if err != nil {
			return Config{}, fmt.Errorf("parse config file %q: missingFileSeverity: %w", path, err)
		}
		cfg.MissingFileSeverity = sev
	}
	if fc.MissingPackageSeverity != nil {
		sev, err := parseSeverity(*fc.MissingPackageSeverity)
		if err != nil {
			return Config{}, fmt.Errorf("parse config file %q: missingPackageSeverity: %w", path, err)
		}
		cfg.MissingPackageSeverity = sev
	}

	return cfg, nil
}
