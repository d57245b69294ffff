package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema. Nested
// sections map naturally to the flag/env surface.
type FileConfig struct {
	Input      string `yaml:"input" json:"input"`
	Output     string `yaml:"output" json:"output"`
	OutputXLSX string `yaml:"outputXLSX" json:"outputXLSX"`
	OutputPDF  string `yaml:"outputPDF" json:"outputPDF"`
	Source     string `yaml:"source" json:"source"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Pages struct {
		Start    int `yaml:"start" json:"start"`
		End      int `yaml:"end" json:"end"`
		PerBatch int `yaml:"perBatch" json:"perBatch"`
	} `yaml:"pages" json:"pages"`

	Retry struct {
		MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts"`
		BaseBackoff time.Duration `yaml:"baseBackoff" json:"baseBackoff"`
	} `yaml:"retry" json:"retry"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg. Flags should already have been parsed; this
// function lets file config supply defaults while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	const (
		outputDefault   = "courses.json"
		cacheDirDefault = ".courseminer-cache"
	)

	if cfg.InputPath == "" && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == outputDefault) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.XLSXPath == "" && fc.OutputXLSX != "" {
		cfg.XLSXPath = fc.OutputXLSX
	}
	if cfg.PDFPath == "" && fc.OutputPDF != "" {
		cfg.PDFPath = fc.OutputPDF
	}
	if cfg.SourceName == "" && fc.Source != "" {
		cfg.SourceName = fc.Source
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}

	if cfg.RangeStart == 0 && fc.Pages.Start > 0 {
		cfg.RangeStart = fc.Pages.Start
	}
	if cfg.RangeEnd == 0 && fc.Pages.End > 0 {
		cfg.RangeEnd = fc.Pages.End
	}
	if cfg.BatchPages == 0 && fc.Pages.PerBatch > 0 {
		cfg.BatchPages = fc.Pages.PerBatch
	}
	if cfg.MaxAttempts == 0 && fc.Retry.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.Retry.MaxAttempts
	}
	if cfg.BaseBackoff == 0 && fc.Retry.BaseBackoff > 0 {
		cfg.BaseBackoff = fc.Retry.BaseBackoff
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == cacheDirDefault) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if cfg.CacheMaxEntries == 0 && fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.InputPath) == "" {
		return errors.New("config: input path is required")
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return errors.New("config: output path is required")
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required (or set LLM_MODEL)")
	}
	if cfg.RangeStart < 0 || cfg.RangeEnd < 0 {
		return errors.New("config: negative page range is not allowed")
	}
	if cfg.RangeEnd > 0 && cfg.RangeStart > cfg.RangeEnd {
		return errors.New("config: pages.start must not exceed pages.end")
	}
	if cfg.BatchPages < 0 || cfg.MaxAttempts < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
