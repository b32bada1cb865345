package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfigFile_Formats(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "c.yaml")
	writeFile(t, yml, "site:\n  baseURL: https://lxy.example.com\n  timeout: 45s\nsession:\n  id: abc\nquery:\n  form:\n    txtTm: \"690\"\ncapture:\n  maxAge: 24h\n")
	jsn := filepath.Join(dir, "c.json")
	writeFile(t, jsn, `{"site":{"baseURL":"https://json.example.com"},"output":{"layout":"schema"}}`)
	j5 := filepath.Join(dir, "c.json5")
	writeFile(t, j5, `{
  // copied from the browser
  session: {auth: "AUTH",},
  output: {table: true},
}
`)

	fc, err := LoadConfigFile(yml)
	require.NoError(t, err)
	require.Equal(t, "https://lxy.example.com", fc.Site.BaseURL)
	require.Equal(t, "690", fc.Query.Form["txtTm"])
	cfg, err := fc.toConfig()
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, cfg.Timeout)
	require.Equal(t, 24*time.Hour, cfg.CaptureMaxAge)

	fc, err = LoadConfigFile(jsn)
	require.NoError(t, err)
	require.Equal(t, "schema", fc.Output.Layout)

	fc, err = LoadConfigFile(j5)
	require.NoError(t, err)
	require.Equal(t, "AUTH", fc.Session.Auth)
	require.True(t, fc.Output.Table)
}

func TestLoadConfigFile_LocalOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "invscrape.yaml")
	writeFile(t, base, "site:\n  baseURL: https://shared.example.com\n  charset: gbk\nsession:\n  id: shared\n")
	writeFile(t, filepath.Join(dir, "invscrape.local.yaml"), "session:\n  id: mine\n")

	fc, err := LoadConfigFile(base)
	require.NoError(t, err)
	require.Equal(t, "mine", fc.Session.ID)
	require.Equal(t, "https://shared.example.com", fc.Site.BaseURL)
	require.Equal(t, "gbk", fc.Site.Charset)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, "{not json")
	_, err = LoadConfigFile(bad)
	require.Error(t, err)

	badDur := filepath.Join(dir, "dur.yaml")
	writeFile(t, badDur, "site:\n  timeout: soon\n")
	fc, err := LoadConfigFile(badDur)
	require.NoError(t, err)
	var cfg Config
	require.Error(t, ApplyFileConfig(&cfg, fc))
}

func TestPrecedence_FlagsEnvFileDefaults(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://env.example.com")
	t.Setenv(EnvSessionID, "")
	t.Setenv(EnvCharset, "")

	var fc FileConfig
	fc.Site.BaseURL = "https://file.example.com"
	fc.Site.Charset = "gbk"
	fc.Session.ID = "file-session"
	fc.Output.HTML = "file.html"

	cfg := Config{OutputPath: "flag.html"}
	ApplyEnvToConfig(&cfg)
	require.NoError(t, ApplyFileConfig(&cfg, fc))
	require.NoError(t, ApplyDefaults(&cfg))

	require.Equal(t, "flag.html", cfg.OutputPath)
	require.Equal(t, "https://env.example.com", cfg.BaseURL)
	require.Equal(t, "file-session", cfg.SessionID)
	require.Equal(t, "gbk", cfg.Charset)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, LayoutReport, cfg.Layout)
}

func TestApplyEnvToConfig(t *testing.T) {
	t.Setenv(EnvInsecure, "yes")
	t.Setenv(EnvVerbose, "1")
	t.Setenv(EnvTimeout, "5s")
	t.Setenv(EnvCaptureMaxAge, "not-a-duration")
	t.Setenv(EnvAuthCookie, "  AUTH  ")

	cfg := Config{CaptureDir: "explicit"}
	t.Setenv(EnvCaptureDir, "from-env")
	ApplyEnvToConfig(&cfg)
	require.True(t, cfg.Insecure)
	require.True(t, cfg.Verbose)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Zero(t, cfg.CaptureMaxAge)
	require.Equal(t, "AUTH", cfg.AuthCookie)
	require.Equal(t, "explicit", cfg.CaptureDir)

	ApplyEnvToConfig(nil)
}

func TestApplyEnvToConfig_PageSize(t *testing.T) {
	t.Setenv(EnvPageSize, "50")
	var cfg Config
	ApplyEnvToConfig(&cfg)
	require.Equal(t, 50, cfg.PageSize)

	t.Setenv(EnvPageSize, "ten")
	cfg = Config{}
	ApplyEnvToConfig(&cfg)
	require.NoError(t, ApplyDefaults(&cfg))
	require.Equal(t, 10, cfg.PageSize)
}

func TestValidateConfig(t *testing.T) {
	ok := Defaults()
	ok.BaseURL = "https://lxy.example.com"
	ok.SessionID = "s"
	require.NoError(t, ValidateConfig(ok, CommandQuery))
	require.NoError(t, ValidateConfig(ok, CommandJQGrid))

	noURL := ok
	noURL.BaseURL = ""
	require.Error(t, ValidateConfig(noURL, CommandQuery))
	require.NoError(t, ValidateConfig(noURL, CommandParse))

	badURL := ok
	badURL.BaseURL = "lxy.example.com/path"
	require.Error(t, ValidateConfig(badURL, CommandQuery))

	noCookies := ok
	noCookies.SessionID = ""
	require.Error(t, ValidateConfig(noCookies, CommandJQGrid))

	noOut := ok
	noOut.OutputPath = ""
	require.Error(t, ValidateConfig(noOut, CommandParse))
	require.NoError(t, ValidateConfig(noOut, CommandJQGrid))

	badLayout := ok
	badLayout.Layout = "wide"
	require.Error(t, ValidateConfig(badLayout, CommandParse))

	negative := ok
	negative.Timeout = -time.Second
	require.Error(t, ValidateConfig(negative, CommandParse))
}
