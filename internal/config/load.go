// Package config loads configuration from files, env vars, and flags, and validates it.
package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"syscall"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var defineFlagsOnce sync.Once

// Load loads configuration from multiple sources with the following precedence:
// 1. Explicit overrides (v.Set) – used only for file/prompt secret resolution
// 2. Command line flags
// 3. Environment variables
// 4. Config file
// 5. Default values
func Load() (*Config, error) {
	v := viper.New()

	// Defaults (lowest priority)
	setDefaults(v)

	// --- Flags ---
	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	// --- Config file ---
	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("llm-sql-maker")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/llm-sql-maker/")
		v.AddConfigPath("$HOME/.llm-sql-maker")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// --- Environment variables ---
	// Canonical keys: dot + snake_case
	// Env vars: SQLMAKER_DATABASE_DSN, SQLMAKER_LLM_API_KEY
	v.SetEnvPrefix("SQLMAKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Flags binding (highest normal priority) ---
	bindChangedFlagsToViper(v)

	// --- DSN from file (explicit override) ---
	if v.GetString("database.dsn") == "" && v.GetString("database.dsn_file") != "" {
		dsn, err := readSecretFile(v.GetString("database.dsn_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database DSN file: %w", err)
		}
		v.Set("database.dsn", dsn)
	}

	// --- Secure password input (explicit override) ---
	if v.GetString("database.password") == "" && v.GetString("database.password_file") != "" {
		pwd, err := readSecretFile(v.GetString("database.password_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database password file: %w", err)
		}
		v.Set("database.password", pwd)
	}
	if v.GetString("database.password") == "" && v.GetBool("database.password_prompt") {
		pwd, err := promptPassword("Enter database password: ")
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		v.Set("database.password", pwd)
	}

	// --- Graph backend password from file (explicit override) ---
	if v.GetString("graph.neo4j.password") == "" && v.GetString("graph.neo4j.password_file") != "" {
		pwd, err := readSecretFile(v.GetString("graph.neo4j.password_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read neo4j password file: %w", err)
		}
		v.Set("graph.neo4j.password", pwd)
	}

	// --- LLM API key from file (explicit override) ---
	if v.GetString("llm.api_key") == "" && v.GetString("llm.api_key_file") != "" {
		key, err := readSecretFile(v.GetString("llm.api_key_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read llm API key file: %w", err)
		}
		v.Set("llm.api_key", key)
	}

	// --- Unmarshal (strict) ---
	var cfg Config
	if err := v.UnmarshalExact(
		&cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToStringSliceHookFunc(","),
			),
		),
	); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindChangedFlagsToViper copies only explicitly-set flags into Viper,
// preserving precedence: flags > env > file > defaults.
func bindChangedFlagsToViper(v *viper.Viper) {
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "version" {
			return
		}

		switch f.Value.Type() {
		case "string":
			val, _ := pflag.CommandLine.GetString(f.Name)
			v.Set(f.Name, val)
		case "int":
			val, _ := pflag.CommandLine.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := pflag.CommandLine.GetBool(f.Name)
			v.Set(f.Name, val)
		case "float64":
			val, _ := pflag.CommandLine.GetFloat64(f.Name)
			v.Set(f.Name, val)
		case "duration":
			val, _ := pflag.CommandLine.GetDuration(f.Name)
			v.Set(f.Name, val)
		case "stringSlice":
			val, _ := pflag.CommandLine.GetStringSlice(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}

// defineFlags defines all command line flags using canonical snake_case keys.
func defineFlags() {
	defineFlagsOnce.Do(func() {
		// Database connection flags
		pflag.String("database.dsn", "", "Complete MySQL DSN (user:pass@tcp(host:port)/db)")
		pflag.String("database.dsn_file", "", "Path to file containing database DSN (use @- for stdin)")

		// Database discrete connection flags (used when DSN is not set)
		pflag.String("database.host", "", "Database host")
		pflag.Int("database.port", 0, "Database port")
		pflag.String("database.user", "", "Database user")
		pflag.String("database.password", "", "Database password")
		pflag.String("database.password_file", "", "Path to file containing database password (use @- for stdin)")
		pflag.Bool("database.password_prompt", false, "Prompt for database password securely")
		pflag.String("database.database", "", "Database name")

		// Database TLS flags
		pflag.String("database.tls.mode", "", "TLS mode (off, skip-verify, verify-ca, verify-full)")
		pflag.String("database.tls.ca_file", "", "Path to CA certificate for server verification")
		pflag.String("database.tls.cert_file", "", "Path to client certificate for mTLS")
		pflag.String("database.tls.key_file", "", "Path to client private key for mTLS")
		pflag.String("database.tls.server_name", "", "Override TLS server name for verification")

		// Database pool flags
		pflag.Int("database.pool.max_open", 0, "Maximum open database connections")
		pflag.Int("database.pool.max_idle", 0, "Maximum idle connections in pool")
		pflag.Duration("database.pool.max_lifetime", 0, "Connection max lifetime (e.g. 5m, 30s)")
		pflag.Duration("database.connection_timeout", 0, "Max time to wait for database on startup")

		// Graph flags
		pflag.String("graph.backend", "", "Graph backend (memory, neo4j)")
		pflag.String("graph.neo4j.uri", "", "Neo4j Bolt URI (bolt://host:7687)")
		pflag.String("graph.neo4j.username", "", "Neo4j username")
		pflag.String("graph.neo4j.password", "", "Neo4j password")
		pflag.String("graph.neo4j.password_file", "", "Path to file containing Neo4j password")
		pflag.String("graph.neo4j.database", "", "Neo4j database name")
		pflag.Int("graph.max_hops", 0, "Maximum hops for path searches")
		pflag.Duration("graph.query_timeout", 0, "Per-query deadline for graph reads")
		pflag.Int("graph.neighbor_structural_limit", 0, "Cap on structural neighborhood expansion (0 = uncapped)")
		pflag.Int("graph.neighbor_semantic_limit", 0, "Cap on semantic neighborhood expansion (0 = uncapped)")

		// LLM flags
		pflag.String("llm.provider", "", "LLM provider (anthropic, ollama)")
		pflag.String("llm.base_url", "", "LLM API base URL")
		pflag.String("llm.api_key", "", "LLM API key (Anthropic)")
		pflag.String("llm.api_key_file", "", "Path to file containing LLM API key")
		pflag.String("llm.model", "", "LLM model name")
		pflag.Duration("llm.timeout", 0, "LLM request timeout")
		pflag.Bool("llm.semantic_judge", false, "Enable model-based semantic relationship inference")

		// Execution flags
		pflag.Bool("execution.enabled", false, "Execute generated SQL against the database")
		pflag.Int("execution.max_rows", 0, "Maximum result rows to fetch and display")

		// Observability flags
		pflag.String("observability.service_name", "", "Service name for telemetry")
		pflag.Bool("observability.tracing_enabled", false, "Enable OTLP trace export")
		pflag.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio (0.0-1.0)")
		pflag.String("observability.otlp.endpoint", "", "OTLP exporter endpoint")
		pflag.String("observability.otlp.protocol", "", "OTLP protocol (grpc, http/protobuf)")
		pflag.String("observability.logging.level", "", "Log level (debug, info, warn, error)")
		pflag.String("observability.logging.format", "", "Log format (json, text)")

		// Misc
		pflag.String("config", "", "Path to config file")
		pflag.Bool("version", false, "Print version and exit")
	})
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "")
	v.SetDefault("database.tls.mode", "")
	v.SetDefault("database.pool.max_open", 5)
	v.SetDefault("database.pool.max_idle", 2)
	v.SetDefault("database.pool.max_lifetime", "5m")
	v.SetDefault("database.connection_timeout", "30s")

	// Graph defaults
	v.SetDefault("graph.backend", "memory")
	v.SetDefault("graph.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("graph.neo4j.username", "neo4j")
	v.SetDefault("graph.neo4j.database", "")
	v.SetDefault("graph.max_hops", 3)
	v.SetDefault("graph.query_timeout", "10s")
	v.SetDefault("graph.neighbor_structural_limit", 0)
	v.SetDefault("graph.neighbor_semantic_limit", 0)

	// LLM defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.semantic_judge", true)

	// Execution defaults
	v.SetDefault("execution.enabled", true)
	v.SetDefault("execution.max_rows", 200)

	// Observability defaults
	v.SetDefault("observability.service_name", "llm-sql-maker")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "text")
	v.SetDefault("observability.logging.exports_enabled", false)
	v.SetDefault("observability.otlp.endpoint", "localhost:4317")
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.timeout", "10s")
	v.SetDefault("observability.otlp.compression", "none")
	v.SetDefault("observability.otlp.retry_enabled", true)
	v.SetDefault("observability.otlp.retry_max_attempts", 3)
}

// promptPassword prompts the user for a secret without echoing to terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func readSecretFile(path string) (string, error) {
	var data []byte
	var err error

	if path == "@-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}

		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}
