package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/streamscout/internal/app/search"
	"github.com/John-Robertt/streamscout/internal/config"
	"github.com/John-Robertt/streamscout/internal/domain"
)

// fakeTMDB 模拟 TMDB API 与图片服务器。
func fakeTMDB(t *testing.T, searchStatus int) *httptest.Server {
	t.Helper()

	var poster bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 400, 600))
	img.Set(10, 10, color.RGBA{R: 255, A: 255})
	require.NoError(t, png.Encode(&poster, img))

	mux := http.NewServeMux()
	mux.HandleFunc("/3/search/movie", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key 不符合预期：%s", r.URL.RawQuery)
		}
		if searchStatus != http.StatusOK {
			w.WriteHeader(searchStatus)
			_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[
			{"id":1,"title":"Dune","release_date":"2021-09-15","vote_average":7.8,"poster_path":"/p1.png"},
			{"id":2,"title":"Dune: Part Two","release_date":"2024-02-27","vote_average":8.2}
		]}`))
	})
	mux.HandleFunc("/3/search/tv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":7,"name":"Dune: Prophecy","first_air_date":"2024-11-17","vote_average":7.1}]}`))
	})
	mux.HandleFunc("/3/movie/1/watch/providers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"results":{
			"US":{"link":"https://www.themoviedb.org/movie/1/watch?locale=US","flatrate":[{"provider_id":8,"provider_name":"Netflix","logo_path":"/n.png"}]},
			"DE":{"buy":[{"provider_id":2,"provider_name":"Apple TV","logo_path":"/a.png"}]}
		}}`))
	})
	mux.HandleFunc("/3/movie/2/watch/providers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":2,"results":{}}`))
	})
	mux.HandleFunc("/3/tv/7/watch/providers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":7,"results":{"US":{"flatrate":[{"provider_id":9,"provider_name":"Max"}]}}}`))
	})
	mux.HandleFunc("/3/movie/99/watch/providers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
	})
	mux.HandleFunc("/img/w500/p1.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(poster.Bytes())
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setupWorkdir 在临时目录写入指向 fake 服务器的配置文件，并清理会干扰结果的环境变量。
func setupWorkdir(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvCacheDir, "")
	t.Setenv(config.EnvLogFile, "")

	dir := t.TempDir()
	cfg := map[string]any{
		"base_url":              srv.URL + "/3",
		"image_base_url":        srv.URL + "/img",
		"rate_limit_per_second": 0,
	}
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), b, 0o644))
	return dir
}

func runCLI(t *testing.T, cwd string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), cwd, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// decodeSingleJSON 断言 s 恰好是一个 JSON 文档。
func decodeSingleJSON(t *testing.T, s string, v any) {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(v); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\nstdout=%q", err, s)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Fatalf("stdout 只能包含一个 JSON 文档：%q", s)
	}
}

func TestSearch_NoTTY_StdoutIsSingleReport(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))

	code, stdout, stderr := runCLI(t, cwd, "search", "dune", "--type", "all", "--api-key", "test-key")
	require.Equal(t, 0, code, stderr)

	var rep domain.SearchReport
	decodeSingleJSON(t, stdout, &rep)
	assert.Equal(t, "dune", rep.Query)
	assert.Equal(t, domain.SelectAll, rep.Selection)
	require.Len(t, rep.Items, 3)
	assert.Equal(t, 7, rep.Items[0].ID, "默认按日期倒序")
	assert.Equal(t, domain.MediaTV, rep.Items[0].MediaType)
	assert.Equal(t, []string{"Max", "Netflix"}, optionLabels(rep.Providers))

	if strings.Contains(stdout, "进度:") || strings.Contains(stdout, "配置（生效）") {
		t.Fatalf("stdout 不应包含进度输出：%q", stdout)
	}
	assert.Contains(t, stderr, "完成：fetched=3 kept=3 displayed=3")
}

func TestSearch_ProviderFilter(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))

	code, stdout, stderr := runCLI(t, cwd, "search", "dune", "--provider", "8", "--api-key", "test-key")
	require.Equal(t, 0, code, stderr)

	var rep domain.SearchReport
	decodeSingleJSON(t, stdout, &rep)
	require.Len(t, rep.Items, 1)
	assert.Equal(t, 1, rep.Items[0].ID)
	assert.Equal(t, 2, rep.Summary.Kept)
	require.Len(t, rep.Items[0].TopProviders, 1)
	assert.Equal(t, "Netflix", rep.Items[0].TopProviders[0].Name)
}

func TestSearch_CatalogFailureExit1(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusUnauthorized))

	code, stdout, stderr := runCLI(t, cwd, "search", "dune", "--api-key", "test-key")
	require.Equal(t, 1, code, stderr)

	var rep domain.SearchReport
	decodeSingleJSON(t, stdout, &rep)
	assert.Equal(t, search.GenericMessage, rep.Error)
	assert.Empty(t, rep.Items)
	assert.NotContains(t, stdout, "test-key")
}

func TestSearch_UsageErrorsExit2(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))

	cases := [][]string{
		{"search"},
		{"search", "   "},
		{"search", "dune", "--type", "anime"},
		{"search", "dune", "--min-rating", "abc"},
		{"search", "dune", "--min-date", "2024/01/01"},
		{"search", "dune", "--sort", "title"},
		{"search", "dune", "--no-such-flag"},
		{"bogus"},
	}
	for _, args := range cases {
		code, stdout, stderr := runCLI(t, cwd, append(args, "--api-key", "test-key")...)
		if code != 2 {
			t.Fatalf("%v 期望退出码 2，实际 %d\nstderr=%s", args, code, stderr)
		}
		if stdout != "" {
			t.Fatalf("%v 参数错误时 stdout 应为空：%q", args, stdout)
		}
		assert.Contains(t, stderr, "参数错误")
	}
}

func TestSearch_MissingAPIKeyExit1(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))

	code, stdout, stderr := runCLI(t, cwd, "search", "dune")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, config.ErrCodeMissingAPIKey)
}

func TestSearch_APIKeyFromDotEnv(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))
	// godotenv 不覆盖已存在的变量（包括空值）；t.Setenv 会在结束时恢复。
	require.NoError(t, os.Unsetenv(config.EnvAPIKey))
	require.NoError(t, os.WriteFile(filepath.Join(cwd, config.DotEnvName), []byte(config.EnvAPIKey+"=test-key\n"), 0o644))

	code, _, stderr := runCLI(t, cwd, "search", "dune")
	assert.Equal(t, 0, code, stderr)
}

func TestSearch_SavesPosters(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))
	out := filepath.Join(cwd, "posters")

	code, _, stderr := runCLI(t, cwd, "search", "dune", "--posters", out, "--api-key", "test-key")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "海报: saved=1 skipped=1 failed=0 nfo=0")

	f, err := os.Open(filepath.Join(out, "movie-1.jpg"))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, posterThumbWidth, cfg.Width)
	assert.Equal(t, 600*posterThumbWidth/400, cfg.Height)
}

func TestSearch_PostersPathIsFileExit2(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))
	out := filepath.Join(cwd, "posters")
	require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))

	code, stdout, stderr := runCLI(t, cwd, "search", "dune", "--posters", out, "--api-key", "test-key")
	assert.Equal(t, 2, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "--posters 必须是目录")
	assert.Contains(t, stderr, "目标路径类型冲突")
}

func TestSearch_WritesNFO(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))
	out := filepath.Join(cwd, "export")

	code, _, stderr := runCLI(t, cwd, "search", "dune", "--posters", out, "--nfo", "--api-key", "test-key")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "nfo=2")

	b, err := os.ReadFile(filepath.Join(out, "movie-1.nfo"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "<thumb aspect=\"poster\">movie-1.jpg</thumb>")
	assert.Contains(t, string(b), "<tag>Netflix</tag>")

	b, err = os.ReadFile(filepath.Join(out, "movie-2.nfo"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "<thumb")

	code, _, _ = runCLI(t, cwd, "search", "dune", "--nfo", "--api-key", "test-key")
	assert.Equal(t, 2, code, "--nfo 需要 --posters")
}

func TestProviders_JSONRowsAndServiceFilter(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))

	code, stdout, stderr := runCLI(t, cwd, "providers", "movie", "1", "--api-key", "test-key")
	require.Equal(t, 0, code, stderr)
	var rep providersReport
	decodeSingleJSON(t, stdout, &rep)
	assert.Equal(t, 1, rep.ID)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "Germany", rep.Rows[0].CountryName)
	assert.Equal(t, "United States", rep.Rows[1].CountryName)
	assert.Empty(t, rep.Links)

	code, stdout, stderr = runCLI(t, cwd, "providers", "movie", "1", "--service", "8", "--api-key", "test-key")
	require.Equal(t, 0, code, stderr)
	rep = providersReport{}
	decodeSingleJSON(t, stdout, &rep)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "US", rep.Rows[0].Country)
	assert.Equal(t, "8", rep.Service)
}

func TestProviders_Errors(t *testing.T) {
	cwd := setupWorkdir(t, fakeTMDB(t, http.StatusOK))

	code, _, stderr := runCLI(t, cwd, "providers", "movie", "99", "--api-key", "test-key")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "条目不存在")

	code, _, _ = runCLI(t, cwd, "providers", "anime", "1", "--api-key", "test-key")
	assert.Equal(t, 2, code)
	code, _, _ = runCLI(t, cwd, "providers", "movie", "abc", "--api-key", "test-key")
	assert.Equal(t, 2, code)
	code, _, _ = runCLI(t, cwd, "providers", "movie", "--api-key", "test-key")
	assert.Equal(t, 2, code)

	// DE 没有 watch 页链接。
	code, stdout, stderr := runCLI(t, cwd, "providers", "movie", "1", "--links", "de", "--api-key", "test-key")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "解析外链失败")
	var rep providersReport
	decodeSingleJSON(t, stdout, &rep)
	assert.Len(t, rep.Rows, 2)
}

func TestParseTitleKey(t *testing.T) {
	k, err := parseTitleKey("series", " 42 ")
	require.NoError(t, err)
	assert.Equal(t, domain.TitleKey{MediaType: domain.MediaTV, ID: 42}, k)

	for _, c := range [][2]string{{"movie", "0"}, {"movie", "-3"}, {"book", "1"}} {
		_, err := parseTitleKey(c[0], c[1])
		var ue *usageError
		if !errors.As(err, &ue) {
			t.Fatalf("%v 期望 usageError，实际 %v", c, err)
		}
	}
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, exitCode(&buf, nil))
	assert.Equal(t, 1, exitCode(&buf, &exitError{code: 1}))
	assert.Empty(t, buf.String(), "exitError 不再重复输出")
	assert.Equal(t, 2, exitCode(&buf, usagef("坏参数")))
	assert.Contains(t, buf.String(), "参数错误：坏参数")
	buf.Reset()
	assert.Equal(t, 1, exitCode(&buf, errors.New("boom")))
	assert.Contains(t, buf.String(), "错误：boom")
}

func TestHelpExit0(t *testing.T) {
	code, stdout, _ := runCLI(t, t.TempDir(), "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "streamscout search")
}

func optionLabels(opts []domain.ProviderOption) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Label)
	}
	return out
}
