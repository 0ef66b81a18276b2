package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration concern.
type ValidationWarning struct {
	Field   string
	Message string
}

// ValidationResult aggregates validation errors and warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and warnings.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.Graph.validate(result)
	c.LLM.validate(result)
	c.Execution.validate(result)
	c.Observability.validate(result)
	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if d.ConnectionString == "" {
		if d.Host == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.host",
				Message: "database host is required",
				Hint:    "set database.host or provide database.dsn",
			})
		}
		if d.Port <= 0 || d.Port > 65535 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.port",
				Message: fmt.Sprintf("invalid port %d", d.Port),
				Hint:    "use a port between 1 and 65535",
			})
		}
		if d.User == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.user",
				Message: "database user is required",
			})
		}
	}

	if _, err := d.EffectiveDatabaseName(); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.database",
			Message: err.Error(),
		})
	}

	switch d.TLS.Mode {
	case "", "off", "skip-verify", "verify-ca", "verify-full":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.mode",
			Message: fmt.Sprintf("unknown TLS mode %q", d.TLS.Mode),
			Hint:    "use off, skip-verify, verify-ca, or verify-full",
		})
	}
	if (d.TLS.Mode == "verify-ca" || d.TLS.Mode == "verify-full") && d.TLS.CAFile == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.ca_file",
			Message: fmt.Sprintf("CA file is required for %s mode", d.TLS.Mode),
		})
	}
	if d.TLS.Mode == "skip-verify" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.tls.mode",
			Message: "skip-verify disables server certificate verification",
		})
	}

	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.pool.max_idle",
			Message: "max_idle exceeds max_open; the pool will cap idle connections",
		})
	}
}

func (g *GraphConfig) validate(result *ValidationResult) {
	switch g.Backend {
	case "memory":
	case "neo4j":
		if g.Neo4j.URI == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "graph.neo4j.uri",
				Message: "neo4j URI is required for the neo4j backend",
				Hint:    "bolt://host:7687",
			})
		}
		if g.Neo4j.Username == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "graph.neo4j.username",
				Message: "neo4j username is required for the neo4j backend",
			})
		}
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "graph.backend",
			Message: fmt.Sprintf("unknown graph backend %q", g.Backend),
			Hint:    "use memory or neo4j",
		})
	}

	if g.MaxHops <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "graph.max_hops",
			Message: fmt.Sprintf("max_hops must be positive, got %d", g.MaxHops),
		})
	} else if g.MaxHops > 6 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "graph.max_hops",
			Message: "hop bounds above 6 make path queries expensive on dense schemas",
		})
	}
	if g.NeighborStructuralLimit < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "graph.neighbor_structural_limit",
			Message: "limit must not be negative (0 means uncapped)",
		})
	}
	if g.NeighborSemanticLimit < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "graph.neighbor_semantic_limit",
			Message: "limit must not be negative (0 means uncapped)",
		})
	}
}

func (l *LLMConfig) validate(result *ValidationResult) {
	switch l.Provider {
	case "anthropic":
		if l.APIKey == "" {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "llm.api_key",
				Message: "no API key configured; model-backed features will be unavailable",
			})
		}
	case "ollama":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q", l.Provider),
			Hint:    "use anthropic or ollama",
		})
	}

	if l.Model == "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "llm.model",
			Message: "no model configured; model-backed features will be unavailable",
		})
	}
}

func (e *ExecutionConfig) validate(result *ValidationResult) {
	if e.MaxRows < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "execution.max_rows",
			Message: "max_rows must not be negative (0 means the default cap)",
		})
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.trace_sample_ratio",
			Message: fmt.Sprintf("sample ratio must be within [0, 1], got %g", o.TraceSampleRatio),
		})
	}

	switch o.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("unknown log level %q", o.Logging.Level),
		})
	}
	switch o.Logging.Format {
	case "", "json", "text":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("unknown log format %q", o.Logging.Format),
		})
	}

	if o.TracingEnabled || o.Logging.ExportsEnabled {
		o.OTLP.validate("observability.otlp", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	if o.Endpoint == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".endpoint",
			Message: "endpoint is required when OTLP export is enabled",
		})
	}
	switch strings.ToLower(strings.TrimSpace(o.Protocol)) {
	case "", "grpc", "http", "http/protobuf":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".protocol",
			Message: fmt.Sprintf("unknown protocol %q", o.Protocol),
			Hint:    "use grpc or http/protobuf",
		})
	}
	switch o.Compression {
	case "", "none", "gzip":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".compression",
			Message: fmt.Sprintf("unknown compression %q", o.Compression),
			Hint:    "use none or gzip",
		})
	}
}
