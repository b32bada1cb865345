package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Environment keys read by ApplyEnvToConfig.
const (
	EnvBaseURL       = "INVSCRAPE_BASE_URL"
	EnvSessionID     = "INVSCRAPE_SESSION_ID"
	EnvAuthCookie    = "INVSCRAPE_AUTH_COOKIE"
	EnvLoginInfo     = "INVSCRAPE_LOGIN_INFO"
	EnvOutput        = "INVSCRAPE_OUTPUT"
	EnvPDFFont       = "INVSCRAPE_PDF_FONT"
	EnvCaptureDir    = "INVSCRAPE_CAPTURE_DIR"
	EnvCaptureMaxAge = "INVSCRAPE_CAPTURE_MAX_AGE"
	EnvInsecure      = "INVSCRAPE_INSECURE"
	EnvCharset       = "INVSCRAPE_CHARSET"
	EnvTimeout       = "INVSCRAPE_TIMEOUT"
	EnvPageSize      = "INVSCRAPE_PAGE_SIZE"
	EnvVerbose       = "VERBOSE"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if *dst == "" {
			*dst = strings.TrimSpace(os.Getenv(key))
		}
	}
	setString(&cfg.BaseURL, EnvBaseURL)
	setString(&cfg.SessionID, EnvSessionID)
	setString(&cfg.AuthCookie, EnvAuthCookie)
	setString(&cfg.LoginInfo, EnvLoginInfo)
	setString(&cfg.OutputPath, EnvOutput)
	setString(&cfg.PDFFontPath, EnvPDFFont)
	setString(&cfg.CaptureDir, EnvCaptureDir)
	setString(&cfg.Charset, EnvCharset)

	if cfg.PageSize == 0 {
		if s := strings.TrimSpace(os.Getenv(EnvPageSize)); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				log.Warn().Str("env", EnvPageSize).Str("value", s).Msg("ignoring invalid page size")
			} else {
				cfg.PageSize = n
			}
		}
	}

	setDuration := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		s := strings.TrimSpace(os.Getenv(key))
		if s == "" {
			return
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			log.Warn().Str("env", key).Str("value", s).Msg("ignoring invalid duration")
			return
		}
		*dst = d
	}
	setDuration(&cfg.Timeout, EnvTimeout)
	setDuration(&cfg.CaptureMaxAge, EnvCaptureMaxAge)

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.Insecure, EnvInsecure)
	setBool(&cfg.Verbose, EnvVerbose)
}
