package logx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "streamscout.log")
	lg, closer := New(path, nil)
	lg.Printf("search query=%q", "dune")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close 失败：%v", err)
	}

	if _, ok := closer.(*lumberjack.Logger); !ok {
		t.Fatalf("期望 *lumberjack.Logger，实际 %T", closer)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志失败：%v", err)
	}
	if !strings.Contains(string(b), `search query="dune"`) {
		t.Fatalf("日志内容不符合预期：%q", string(b))
	}
}

func TestNew_FallbackWriter(t *testing.T) {
	var buf bytes.Buffer
	lg, closer := New("  ", &buf)
	lg.Print("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("nop Close 不应报错：%v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("期望写入 fallback，实际 %q", buf.String())
	}

	// nil fallback 等价于丢弃：不应 panic。
	lg, _ = New("", nil)
	lg.Print("dropped")
	Discard().Print("dropped")
}
