package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "app:\n  name: citementor-api\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Port != 8080 {
		t.Errorf("server.http.port = %d, want 8080", cfg.Server.HTTP.Port)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("retrieval.top_k = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Royalty.RankDecay != 0.85 {
		t.Errorf("royalty.rank_decay = %v, want 0.85", cfg.Royalty.RankDecay)
	}
	if cfg.Corpus.DefaultGenre != "philosophy" {
		t.Errorf("corpus.default_genre = %q, want philosophy", cfg.Corpus.DefaultGenre)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", `
llm:
  providers:
    openai:
      api_key: ${CITEMENTOR_TEST_KEY:fallback-key}
cache:
  redis:
    password: ${CITEMENTOR_TEST_REDIS_PW:}
`)

	t.Setenv("CITEMENTOR_TEST_REDIS_PW", "secret")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.LLM.Providers["openai"].APIKey; got != "fallback-key" {
		t.Errorf("未设置环境变量时应回退默认值, got %q", got)
	}
	if cfg.Cache.Redis.Password != "secret" {
		t.Errorf("redis password = %q, want secret", cfg.Cache.Redis.Password)
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "app:\n  env: test\nserver:\n  http:\n    port: 8080\n")
	writeConfigFile(t, dir, "config.test.yaml", "server:\n  http:\n    port: 9090\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTP.Port != 9090 {
		t.Errorf("环境配置应覆盖基础配置, port = %d", cfg.Server.HTTP.Port)
	}
}

func TestLoadMissingBaseFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("缺少 config.yaml 时应返回错误")
	}
}
