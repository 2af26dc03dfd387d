// Package config loads runtime configuration for the Memoria client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file, JSON or YAML by extension (see LoadFile).
//  3. Environment variables prefixed with MEMORIA_ (see LoadEnv).
//  4. Command-line flags, applied by the CLI only when explicitly set.
//
// # File schema
//
// Durations are strings accepted by time.ParseDuration, sizes are bytes:
//
//	{
//	  "api_base": "https://api.example.com",
//	  "max_concurrent_uploads": 2,
//	  "retry_backoff": "1s",
//	  "cache_ttl": "30m"
//	}
//
// The same keys are used in YAML files.
package config
