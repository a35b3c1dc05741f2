package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "JOBTRACK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_enabled", typ: kBool, env: "JOBTRACK_SERVER_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MCPEnabled },
	},
	{
		key: "server.api_token", typ: kString, env: apiTokenEnv,
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "JOBTRACK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "JOBTRACK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "jobs.max_page_size", typ: kInt, env: "JOBTRACK_JOBS_MAX_PAGE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Jobs.MaxPageSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Jobs.MaxPageSize },
	},
	{
		key: "client.owner_id", typ: kString, env: "JOBTRACK_CLIENT_OWNER_ID",
		apply:   func(cfg *Config, v any) { cfg.Client.OwnerID = v.(string) },
		extract: func(cfg Config) any { return cfg.Client.OwnerID },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetBool(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("ignoring unparsable integer env var", "var", s.env, "value", raw, "error", err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				slog.Warn("ignoring unparsable boolean env var", "var", s.env, "value", raw, "error", err)
			}
		}
	}
}
