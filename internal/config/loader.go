package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置，优先读取 config.yaml 再以 config.<env>.yaml 覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := loadConfigFile(v, configPath, "config"); err != nil {
		return nil, fmt.Errorf("加载基础配置失败: %w", err)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = v.GetString("app.env")
	}
	if env != "" {
		if err := mergeConfigFile(v, configPath, "config."+env); err != nil {
			return nil, fmt.Errorf("加载环境配置失败: %w", err)
		}
	}

	expandEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &cfg, nil
}

// MustLoad 加载配置，失败时 panic
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return cfg
}

// loadConfigFile 读取指定名称的配置文件
func loadConfigFile(v *viper.Viper, path, name string) error {
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	return v.ReadInConfig()
}

// mergeConfigFile 合并环境配置文件，文件不存在时忽略
func mergeConfigFile(v *viper.Viper, path, name string) error {
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

// envPattern 匹配 ${VAR} 或 ${VAR:default} 形式的占位符
var envPattern = regexp.MustCompile(`\$\{(\w+)(:([^}]*))?\}`)

// expandEnv 展开所有字符串配置项中的环境变量占位符
func expandEnv(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)
		s, ok := val.(string)
		if !ok || !strings.Contains(s, "${") {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(s, func(match string) string {
			groups := envPattern.FindStringSubmatch(match)
			name := groups[1]
			def := groups[3]
			if ev, found := os.LookupEnv(name); found {
				return ev
			}
			return def
		})
		v.Set(key, expanded)
	}
}

// setDefaults 设置各配置项的默认值
func setDefaults(v *viper.Viper) {
	// app
	v.SetDefault("app.name", "citementor-api")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.env", "dev")

	// server
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "15s")
	v.SetDefault("server.http.write_timeout", "60s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// corpus
	v.SetDefault("corpus.dir", "./corpus")
	v.SetDefault("corpus.default_genre", "philosophy")
	v.SetDefault("corpus.max_passage_runes", 1200)

	// retrieval
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("retrieval.min_score", 0.15)

	// royalty
	v.SetDefault("royalty.rate_per_token_micros", 2)
	v.SetDefault("royalty.rank_decay", 0.85)
	v.SetDefault("royalty.rank_floor", 0.25)

	// database
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "citementor")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", "1h")
	v.SetDefault("database.postgres.conn_max_idle_time", "10m")

	// cache
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// vector
	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection_prefix", "citementor")
	v.SetDefault("vector.milvus.index_type", "HNSW")
	v.SetDefault("vector.milvus.metric_type", "COSINE")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)

	// llm
	v.SetDefault("llm.default_provider", "openai")

	// embedding
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.batch_size", 64)

	// messaging
	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "citementor")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)

	// observability
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// security
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 20)
	v.SetDefault("security.rate_limit.burst", 40)
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})
}
