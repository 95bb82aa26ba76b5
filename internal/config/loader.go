package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "boardroom.yaml"

// Load reads DefaultConfigFile. See LoadFrom.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom layers built-in defaults, then the YAML file at yamlPath (which
// may be absent), then BOARDROOM_* and service URL environment variables,
// and validates the result.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

// loadYAML decodes path over cfg; a missing file is not an error. A roster
// in the file replaces the default roster rather than merging with it.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv applies the environment over cfg. Empty or unparsable values are ignored.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BOARDROOM_PORT")
	setString(&cfg.Server.CORSOrigin, "BOARDROOM_CORS_ORIGIN")
	setDuration(&cfg.Server.IdempotencyTTL, "BOARDROOM_IDEMPOTENCY_TTL")
	setFloat64(&cfg.Server.GenerateRPS, "BOARDROOM_GENERATE_RPS")
	setInt(&cfg.Server.GenerateBurst, "BOARDROOM_GENERATE_BURST")
	setString(&cfg.Server.MetricsSecret, "BOARDROOM_METRICS_SECRET")
	setString(&cfg.Server.SecretsDir, "BOARDROOM_SECRETS_DIR")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "BOARDROOM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "BOARDROOM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "BOARDROOM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "BOARDROOM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "BOARDROOM_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.AssetBucket, "BOARDROOM_ASSET_BUCKET")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.ImageModel, "BOARDROOM_IMAGE_MODEL")
	setInt(&cfg.LiteLLM.MaxConcurrent, "BOARDROOM_LITELLM_MAX_CONCURRENT")
	setString(&cfg.Logging.Level, "BOARDROOM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BOARDROOM_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "BOARDROOM_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "BOARDROOM_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BOARDROOM_BREAKER_TIMEOUT")

	// OpenTelemetry
	setString(&cfg.OTEL.Endpoint, "BOARDROOM_OTEL_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "BOARDROOM_OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "BOARDROOM_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "BOARDROOM_OTEL_SAMPLE_RATE")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "BOARDROOM_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "BOARDROOM_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "BOARDROOM_CACHE_L2_TTL")

	// MCP
	setBool(&cfg.MCP.Enabled, "BOARDROOM_MCP_ENABLED")
	setInt(&cfg.MCP.Port, "BOARDROOM_MCP_PORT")
	setString(&cfg.MCP.APIKey, "BOARDROOM_MCP_API_KEY")

	// Notifications
	setString(&cfg.Notify.SlackWebhookURL, "BOARDROOM_SLACK_WEBHOOK_URL")
	setString(&cfg.Notify.DiscordWebhookURL, "BOARDROOM_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BOARDROOM_NOTIFY_EVENTS")

	// Agent and panel
	setDuration(&cfg.Agent.Timeout, "BOARDROOM_AGENT_TIMEOUT")
	setString(&cfg.Agent.BriefModel, "BOARDROOM_BRIEF_MODEL")
	setInt(&cfg.Agent.MaxTokens, "BOARDROOM_AGENT_MAX_TOKENS")
	setFloat64(&cfg.Agent.Temperature, "BOARDROOM_AGENT_TEMPERATURE")
	setString(&cfg.Panel.DefaultAuthor, "BOARDROOM_PANEL_AUTHOR")
	setInt(&cfg.Panel.MaxParallel, "BOARDROOM_PANEL_MAX_PARALLEL")
	setBool(&cfg.Panel.VoteOnComments, "BOARDROOM_PANEL_VOTE_ON_COMMENTS")

	// Brand
	setString(&cfg.Brand.Name, "BOARDROOM_BRAND_NAME")
	setString(&cfg.Brand.Voice, "BOARDROOM_BRAND_VOICE")
	setString(&cfg.Brand.Audience, "BOARDROOM_BRAND_AUDIENCE")
	setString(&cfg.Brand.Guidelines, "BOARDROOM_BRAND_GUIDELINES")

	// Revision and memory
	setInt(&cfg.Revision.Retries, "BOARDROOM_REVISION_RETRIES")
	setDuration(&cfg.Revision.RetryDelay, "BOARDROOM_REVISION_RETRY_DELAY")
	setInt(&cfg.Revision.DenyListSize, "BOARDROOM_REVISION_DENY_LIST")
	setInt(&cfg.Memory.Limit, "BOARDROOM_MEMORY_LIMIT")
	setDuration(&cfg.Memory.TTL, "BOARDROOM_MEMORY_TTL")
}

// rule is one validation check; msg is returned when ok reports false.
type rule struct {
	ok  func(*Config) bool
	msg string
}

var rules = []rule{
	{func(c *Config) bool { return c.Server.Port != "" }, "server.port is required"},
	{func(c *Config) bool { return c.Postgres.DSN != "" }, "postgres.dsn is required"},
	{func(c *Config) bool { return c.NATS.URL != "" }, "nats.url is required"},
	{func(c *Config) bool { return c.Postgres.MaxConns >= 1 }, "postgres.max_conns must be >= 1"},
	{func(c *Config) bool { return c.Breaker.MaxFailures >= 1 }, "breaker.max_failures must be >= 1"},
	{func(c *Config) bool { return c.Agent.Timeout > 0 }, "agent.timeout must be > 0"},
}

var panelRules = []rule{
	{func(c *Config) bool { return len(c.Panel.Roster) >= 2 }, "panel.roster needs at least one reviewer besides the author"},
	{func(c *Config) bool { return c.Panel.MaxParallel >= 1 }, "panel.max_parallel must be >= 1"},
	{func(c *Config) bool { return c.Revision.Retries >= 0 }, "revision.retries must be >= 0"},
	{func(c *Config) bool { return c.LiteLLM.MaxConcurrent >= 1 }, "litellm.max_concurrent must be >= 1"},
	{func(c *Config) bool { return c.Memory.Limit >= 1 }, "memory.limit must be >= 1"},
	{func(c *Config) bool { return c.OTEL.SampleRate >= 0 && c.OTEL.SampleRate <= 1 }, "otel.sample_rate must be within [0, 1]"},
}

func check(cfg *Config, rs []rule) error {
	for _, r := range rs {
		if !r.ok(cfg) {
			return errors.New(r.msg)
		}
	}
	return nil
}

// validate returns the first violated rule.
func validate(cfg *Config) error {
	if err := check(cfg, rules); err != nil {
		return err
	}
	if err := cfg.Panel.Roster.Validate(); err != nil {
		return fmt.Errorf("panel.%w", err)
	}
	if err := check(cfg, panelRules[:1]); err != nil {
		return err
	}
	if _, ok := cfg.Panel.Roster.Get(cfg.Panel.DefaultAuthor); !ok {
		return fmt.Errorf("panel.default_author %q is not in the roster", cfg.Panel.DefaultAuthor)
	}
	return check(cfg, panelRules[1:])
}

// setEnv overwrites *dst with parse(os.Getenv(key)). Unset variables and
// values that fail to parse leave *dst alone.
func setEnv[T any](dst *T, key string, parse func(string) (T, error)) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if parsed, err := parse(v); err == nil {
		*dst = parsed
	}
}

func setString(dst *string, key string) {
	setEnv(dst, key, func(v string) (string, error) { return v, nil })
}

// setStringSlice splits a comma-separated value and drops empty entries.
func setStringSlice(dst *[]string, key string) {
	setEnv(dst, key, func(v string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	})
}

func setInt(dst *int, key string) { setEnv(dst, key, strconv.Atoi) }

func setInt32(dst *int32, key string) {
	setEnv(dst, key, func(v string) (int32, error) {
		n, err := strconv.ParseInt(v, 10, 32)
		return int32(n), err
	})
}

func setInt64(dst *int64, key string) {
	setEnv(dst, key, func(v string) (int64, error) { return strconv.ParseInt(v, 10, 64) })
}

func setFloat64(dst *float64, key string) {
	setEnv(dst, key, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func setBool(dst *bool, key string) { setEnv(dst, key, strconv.ParseBool) }

func setDuration(dst *time.Duration, key string) { setEnv(dst, key, time.ParseDuration) }
