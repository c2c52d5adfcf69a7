package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingAPIKey 表示 CLI、环境变量与配置文件都没有提供 API key。
	ErrCodeMissingAPIKey = "config_missing_api_key"
)

const (
	FileName    = "streamscout.json"
	DotEnvName  = ".env"
	EnvAPIKey   = "TMDB_API_KEY"
	EnvLogFile  = "STREAMSCOUT_LOG_FILE"
	EnvCacheDir = "STREAMSCOUT_CACHE_DIR"

	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"
	DefaultLanguage     = "en-US"

	DefaultTimeoutSeconds      = 15
	DefaultRateLimitPerSecond  = 20.0
	DefaultCacheTTLMinutes     = 15
	DefaultServerAddr          = ":8080"
	DefaultServerRatePerMinute = 120
	maxConcurrency             = 64
)

// CLIArgs 保留 "是否显式指定" 的信息，保证覆盖优先级可实现。
type CLIArgs struct {
	// ConfigPath 非空表示 --config：文件必须存在。
	ConfigPath string

	APIKey    string
	APIKeySet bool

	LogFile    string
	LogFileSet bool

	ServerAddr    string
	ServerAddrSet bool
}

// FileConfig 对应 streamscout.json 的解析结构。
type FileConfig struct {
	APIKey             string        `json:"api_key"`
	BaseURL            string        `json:"base_url"`
	ImageBaseURL       string        `json:"image_base_url"`
	Language           string        `json:"language"`
	Proxy              *ProxyConfig  `json:"proxy"`
	TimeoutSeconds     int           `json:"timeout_seconds"`
	Concurrency        int           `json:"concurrency"`
	RateLimitPerSecond *float64      `json:"rate_limit_per_second"`
	CacheDir           string        `json:"cache_dir"`
	CacheTTLMinutes    int           `json:"cache_ttl_minutes"`
	LogFile            string        `json:"log_file"`
	Server             *ServerConfig `json:"server"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type ServerConfig struct {
	Addr               string `json:"addr"`
	RateLimitPerMinute *int   `json:"rate_limit_per_minute"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；没有读取任何文件时为空。
	ConfigPath string

	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string

	ProxyURL           string
	Timeout            time.Duration
	RateLimitPerSecond float64 // 0 表示不限速

	// Concurrency 为 0 表示 enrich 不限并发（并发数 = 结果数）。
	Concurrency int

	// CacheDir 非空时启用磁盘缓存层。
	CacheDir string
	CacheTTL time.Duration

	LogFile string

	ServerAddr          string
	ServerRatePerMinute int // 0 表示不限速
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingAPIKey:
		return fmt.Sprintf("%s：缺少 TMDB API key（--api-key / %s / %s 中的 api_key）", e.Code, EnvAPIKey, FileName)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadDotEnv 把 <cwd>/.env 载入进程环境变量（已存在的变量不覆盖）。文件不存在不算错误。
func LoadDotEnv(cwd string) error {
	p := filepath.Join(cwd, DotEnvName)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("读取 %s 失败：%w", p, err)
	}
	return nil
}

// LoadEffective 发现并读取配置文件，再与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：读取该文件（必选）
// 2) 否则尝试读取 <cwd>/streamscout.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 内置默认值。
// 环境变量只覆盖 api_key / log_file / cache_dir；其它字段仅由配置文件控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			cfgPath = ""
		}
	}

	// 相对路径以配置文件所在目录为基准；没有配置文件时以 cwd 为基准。
	base := cwdAbs
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}
	return merge(cwdAbs, base, cli, fc, cfgPath)
}

func merge(cwdAbs, base string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// api_key：CLI > env > config
	apiKey := strings.TrimSpace(fc.APIKey)
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		apiKey = v
	}
	if cli.APIKeySet {
		apiKey = strings.TrimSpace(cli.APIKey)
	}
	if apiKey == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingAPIKey, Path: cfgPath}
	}

	baseURL, err := httpURL("base_url", fc.BaseURL, DefaultBaseURL)
	if err != nil {
		return invalid(err)
	}
	imageBaseURL, err := httpURL("image_base_url", fc.ImageBaseURL, DefaultImageBaseURL)
	if err != nil {
		return invalid(err)
	}

	language := strings.TrimSpace(fc.Language)
	if language == "" {
		language = DefaultLanguage
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", proxyURL))
		}
	}

	if fc.TimeoutSeconds < 0 {
		return invalid(fmt.Errorf("timeout_seconds 不能为负数：%d", fc.TimeoutSeconds))
	}
	timeoutSeconds := fc.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}

	if fc.Concurrency < 0 {
		return invalid(fmt.Errorf("concurrency 不能为负数：%d", fc.Concurrency))
	}
	concurrency := fc.Concurrency
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}

	rps := DefaultRateLimitPerSecond
	if fc.RateLimitPerSecond != nil {
		rps = *fc.RateLimitPerSecond
	}
	if rps < 0 {
		return invalid(fmt.Errorf("rate_limit_per_second 不能为负数：%v", rps))
	}

	if fc.CacheTTLMinutes < 0 {
		return invalid(fmt.Errorf("cache_ttl_minutes 不能为负数：%d", fc.CacheTTLMinutes))
	}
	ttlMinutes := fc.CacheTTLMinutes
	if ttlMinutes == 0 {
		ttlMinutes = DefaultCacheTTLMinutes
	}

	// cache_dir / log_file：env 相对 cwd，config 相对配置文件目录。
	cacheDir := absCleanFrom(base, fc.CacheDir)
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cacheDir = absCleanFrom(cwdAbs, v)
	}
	logFile := absCleanFrom(base, fc.LogFile)
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		logFile = absCleanFrom(cwdAbs, v)
	}
	if cli.LogFileSet {
		logFile = absCleanFrom(cwdAbs, cli.LogFile)
	}

	serverAddr := DefaultServerAddr
	serverRate := DefaultServerRatePerMinute
	if fc.Server != nil {
		if a := strings.TrimSpace(fc.Server.Addr); a != "" {
			serverAddr = a
		}
		if fc.Server.RateLimitPerMinute != nil {
			serverRate = *fc.Server.RateLimitPerMinute
		}
	}
	if cli.ServerAddrSet && strings.TrimSpace(cli.ServerAddr) != "" {
		serverAddr = strings.TrimSpace(cli.ServerAddr)
	}
	if serverRate < 0 {
		return invalid(fmt.Errorf("server.rate_limit_per_minute 不能为负数：%d", serverRate))
	}

	return EffectiveConfig{
		ConfigPath:          cfgPath,
		APIKey:              apiKey,
		BaseURL:             baseURL,
		ImageBaseURL:        imageBaseURL,
		Language:            language,
		ProxyURL:            proxyURL,
		Timeout:             time.Duration(timeoutSeconds) * time.Second,
		RateLimitPerSecond:  rps,
		Concurrency:         concurrency,
		CacheDir:            cacheDir,
		CacheTTL:            time.Duration(ttlMinutes) * time.Minute,
		LogFile:             logFile,
		ServerAddr:          serverAddr,
		ServerRatePerMinute: serverRate,
	}, nil
}

func httpURL(field, v, def string) (string, error) {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return def, nil
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s 无效：%q", field, v)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s 必须是 http/https：%q", field, v)
	}
	return v, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；p 为空返回空串。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
