package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv 让测试不受宿主环境变量影响。
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvLogFile, "")
	t.Setenv(EnvCacheDir, "")
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.json", APIKey: "k", APIKeySet: true})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeMissingAPIKey {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeMissingAPIKey, err, Code(err))
	}
}

func TestLoadEffective_InvalidJSON(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"api_key":`))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "env-key")
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("没有配置文件时 ConfigPath 应为空，实际 %q", eff.ConfigPath)
	}
	if eff.APIKey != "env-key" || eff.BaseURL != DefaultBaseURL || eff.Language != DefaultLanguage {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.Timeout != DefaultTimeoutSeconds*time.Second || eff.CacheTTL != DefaultCacheTTLMinutes*time.Minute {
		t.Fatalf("默认超时/TTL 不符合预期：%+v", eff)
	}
	if eff.Concurrency != 0 || eff.CacheDir != "" || eff.LogFile != "" {
		t.Fatalf("默认应不限并发且不启用磁盘缓存/日志文件：%+v", eff)
	}
	if eff.RateLimitPerSecond != DefaultRateLimitPerSecond || eff.ServerAddr != DefaultServerAddr || eff.ServerRatePerMinute != DefaultServerRatePerMinute {
		t.Fatalf("默认限速/地址不符合预期：%+v", eff)
	}
}

func TestLoadEffective_APIKeyMergeOrder(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"api_key":"file-key"}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.APIKey != "file-key" {
		t.Fatalf("期望 file-key，实际 %q", eff.APIKey)
	}

	t.Setenv(EnvAPIKey, "env-key")
	eff, err = LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.APIKey != "env-key" {
		t.Fatalf("env 应覆盖配置文件，实际 %q", eff.APIKey)
	}

	eff, err = LoadEffective(cwd, CLIArgs{APIKey: "cli-key", APIKeySet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.APIKey != "cli-key" {
		t.Fatalf("CLI 应覆盖 env，实际 %q", eff.APIKey)
	}
}

func TestLoadEffective_FileFieldsAndRelativePaths(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	cfgDir := filepath.Join(cwd, "conf")
	writeFile(t, filepath.Join(cfgDir, "custom.json"), []byte(`{
		"api_key": "k",
		"base_url": "http://127.0.0.1:9999/3/",
		"language": "de-DE",
		"proxy": {"url": "http://127.0.0.1:7890"},
		"timeout_seconds": 5,
		"concurrency": 500,
		"rate_limit_per_second": 0,
		"cache_dir": "cache",
		"cache_ttl_minutes": 60,
		"log_file": "logs/s.log",
		"server": {"addr": "127.0.0.1:9000", "rate_limit_per_minute": 0}
	}`))

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: filepath.Join("conf", "custom.json")})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.BaseURL != "http://127.0.0.1:9999/3" {
		t.Fatalf("base_url 应去掉尾部 /，实际 %q", eff.BaseURL)
	}
	if eff.Language != "de-DE" || eff.ProxyURL != "http://127.0.0.1:7890" || eff.Timeout != 5*time.Second {
		t.Fatalf("字段不符合预期：%+v", eff)
	}
	if eff.Concurrency != maxConcurrency {
		t.Fatalf("concurrency 应截断为 %d，实际 %d", maxConcurrency, eff.Concurrency)
	}
	if eff.RateLimitPerSecond != 0 || eff.ServerRatePerMinute != 0 {
		t.Fatalf("显式 0 应表示不限速：%+v", eff)
	}
	if eff.CacheDir != filepath.Join(cfgDir, "cache") || eff.LogFile != filepath.Join(cfgDir, "logs", "s.log") {
		t.Fatalf("相对路径应以配置文件目录为基准：cache=%q log=%q", eff.CacheDir, eff.LogFile)
	}
	if eff.CacheTTL != time.Hour || eff.ServerAddr != "127.0.0.1:9000" {
		t.Fatalf("字段不符合预期：%+v", eff)
	}

	// CLI / env 覆盖。
	t.Setenv(EnvCacheDir, "envcache")
	eff, err = LoadEffective(cwd, CLIArgs{
		ConfigPath:    filepath.Join(cfgDir, "custom.json"),
		LogFile:       "cli.log",
		LogFileSet:    true,
		ServerAddr:    ":7000",
		ServerAddrSet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.CacheDir != filepath.Join(cwd, "envcache") || eff.LogFile != filepath.Join(cwd, "cli.log") || eff.ServerAddr != ":7000" {
		t.Fatalf("覆盖结果不符合预期：%+v", eff)
	}
}

func TestLoadEffective_InvalidFields(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"base_url":  `{"api_key":"k","base_url":"ftp://x"}`,
		"proxy":     `{"api_key":"k","proxy":{"url":"127.0.0.1:1"}}`,
		"timeout":   `{"api_key":"k","timeout_seconds":-1}`,
		"conc":      `{"api_key":"k","concurrency":-2}`,
		"rate":      `{"api_key":"k","rate_limit_per_second":-1}`,
		"ttl":       `{"api_key":"k","cache_ttl_minutes":-1}`,
		"srv_rate":  `{"api_key":"k","server":{"rate_limit_per_minute":-5}}`,
		"image_url": `{"api_key":"k","image_base_url":"not a url"}`,
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(body))
		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v", name, ErrCodeInvalid, err)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "STREAMSCOUT_TEST_DOTENV"
	t.Setenv(key, "")
	os.Unsetenv(key)

	cwd := t.TempDir()
	if err := LoadDotEnv(cwd); err != nil {
		t.Fatalf(".env 不存在时不应报错：%v", err)
	}

	writeFile(t, filepath.Join(cwd, DotEnvName), []byte(key+"=from-dotenv\n"))
	if err := LoadDotEnv(cwd); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got := os.Getenv(key); got != "from-dotenv" {
		t.Fatalf("期望从 .env 载入，实际 %q", got)
	}

	// 已存在的变量不覆盖。
	t.Setenv(key, "from-shell")
	if err := LoadDotEnv(cwd); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got := os.Getenv(key); got != "from-shell" {
		t.Fatalf(".env 不应覆盖已有变量，实际 %q", got)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
}
