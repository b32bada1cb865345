package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/rs/zerolog/log"
	"github.com/titanous/json5"
	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the config file schema. Durations are strings such as "30s".
type FileConfig struct {
	Site struct {
		BaseURL   string `yaml:"baseURL" json:"baseURL"`
		UserAgent string `yaml:"userAgent" json:"userAgent"`
		Insecure  bool   `yaml:"insecure" json:"insecure"`
		Charset   string `yaml:"charset" json:"charset"`
		Timeout   string `yaml:"timeout" json:"timeout"`
	} `yaml:"site" json:"site"`

	Session struct {
		ID        string `yaml:"id" json:"id"`
		Auth      string `yaml:"auth" json:"auth"`
		LoginInfo string `yaml:"loginInfo" json:"loginInfo"`
		PageSize  int    `yaml:"pageSize" json:"pageSize"`
	} `yaml:"session" json:"session"`

	Query struct {
		Search        string            `yaml:"search" json:"search"`
		BeginDate     string            `yaml:"beginDate" json:"beginDate"`
		EndDate       string            `yaml:"endDate" json:"endDate"`
		MenuID        string            `yaml:"menuID" json:"menuID"`
		Form          map[string]string `yaml:"form" json:"form"`
		JQGridOp      string            `yaml:"jqgridOp" json:"jqgridOp"`
		JQGridReferer string            `yaml:"jqgridReferer" json:"jqgridReferer"`
	} `yaml:"query" json:"query"`

	Output struct {
		HTML       string `yaml:"html" json:"html"`
		PDF        string `yaml:"pdf" json:"pdf"`
		PDFFont    string `yaml:"pdfFont" json:"pdfFont"`
		JSON       string `yaml:"json" json:"json"`
		Title      string `yaml:"title" json:"title"`
		Layout     string `yaml:"layout" json:"layout"`
		Table      bool   `yaml:"table" json:"table"`
		NoManifest bool   `yaml:"noManifest" json:"noManifest"`
		OwnRows    bool   `yaml:"ownRowsOnly" json:"ownRowsOnly"`
	} `yaml:"output" json:"output"`

	Capture struct {
		Dir         string `yaml:"dir" json:"dir"`
		MaxAge      string `yaml:"maxAge" json:"maxAge"`
		Keep        int    `yaml:"keep" json:"keep"`
		Clear       bool   `yaml:"clear" json:"clear"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"capture" json:"capture"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

func parseConfigBytes(path string, b []byte, fc *FileConfig) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, fc); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, fc); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	case ".json5":
		if err := json5.Unmarshal(b, fc); err != nil {
			return fmt.Errorf("parse json5: %w", err)
		}
	default:
		// Try YAML then JSON5, which also accepts plain JSON.
		if err := yaml.Unmarshal(b, fc); err != nil {
			if jerr := json5.Unmarshal(b, fc); jerr != nil {
				return fmt.Errorf("parse config: %v (yaml) / %v (json5)", err, jerr)
			}
		}
	}
	return nil
}

// localPath returns the per-machine override next to path:
// invscrape.yaml -> invscrape.local.yaml.
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// LoadConfigFile reads YAML, JSON or JSON5 into FileConfig. A sibling
// "<name>.local.<ext>" file, when present, overrides values from path.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := parseConfigBytes(path, b, &fc); err != nil {
		return fc, err
	}

	lp := localPath(path)
	lb, err := os.ReadFile(lp)
	if errors.Is(err, os.ErrNotExist) {
		return fc, nil
	}
	if err != nil {
		return fc, err
	}
	var local FileConfig
	if err := parseConfigBytes(lp, lb, &local); err != nil {
		return fc, fmt.Errorf("%s: %w", lp, err)
	}
	if err := mergo.Merge(&fc, local, mergo.WithOverride); err != nil {
		return fc, err
	}
	log.Debug().Str("local", lp).Msg("merged local config overrides")
	return fc, nil
}

// toConfig converts the file schema into a Config.
func (fc FileConfig) toConfig() (Config, error) {
	cfg := Config{
		BaseURL:            fc.Site.BaseURL,
		UserAgent:          fc.Site.UserAgent,
		Insecure:           fc.Site.Insecure,
		Charset:            fc.Site.Charset,
		SessionID:          fc.Session.ID,
		AuthCookie:         fc.Session.Auth,
		LoginInfo:          fc.Session.LoginInfo,
		PageSize:           fc.Session.PageSize,
		Search:             fc.Query.Search,
		BeginDate:          fc.Query.BeginDate,
		EndDate:            fc.Query.EndDate,
		MenuID:             fc.Query.MenuID,
		FormOverrides:      fc.Query.Form,
		JQGridOp:           fc.Query.JQGridOp,
		JQGridReferer:      fc.Query.JQGridReferer,
		OutputPath:         fc.Output.HTML,
		OutputPDFPath:      fc.Output.PDF,
		PDFFontPath:        fc.Output.PDFFont,
		JSONPath:           fc.Output.JSON,
		Title:              fc.Output.Title,
		Layout:             fc.Output.Layout,
		PrintTable:         fc.Output.Table,
		NoManifest:         fc.Output.NoManifest,
		OwnRowsOnly:        fc.Output.OwnRows,
		CaptureDir:         fc.Capture.Dir,
		CaptureKeep:        fc.Capture.Keep,
		CaptureClear:       fc.Capture.Clear,
		CaptureStrictPerms: fc.Capture.StrictPerms,
		Verbose:            fc.Verbose,
	}
	var err error
	if cfg.Timeout, err = parseDuration(fc.Site.Timeout); err != nil {
		return cfg, fmt.Errorf("site.timeout: %w", err)
	}
	if cfg.CaptureMaxAge, err = parseDuration(fc.Capture.MaxAge); err != nil {
		return cfg, fmt.Errorf("capture.maxAge: %w", err)
	}
	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(strings.TrimSpace(s))
}

// ApplyFileConfig fills fields of cfg that are still zero from the file.
// Flags and env should already be applied so they keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	fromFile, err := fc.toConfig()
	if err != nil {
		return err
	}
	return mergo.Merge(cfg, fromFile)
}
