// Package config provides configuration management for the whereami CLI.
//
// The package uses a Provider interface to abstract configuration loading,
// with the primary implementation being filesystem-based configuration via
// YAML files.
//
// # Configuration Structure
//
// Configuration is structured as follows:
//
//	resolve:
//	  providers: [opendns, google, ipify]  # catalog providers to query (empty = all)
//	  strategy: race                       # race | fallback
//	  timeout: 5s                          # overall resolution deadline
//	  lookup_timeout: 3s                   # per DNS query / HTTP request
//
// # Basic Usage
//
// Load configuration using the default path (~/.whereami/config.yaml):
//
//	cfg, err := config.New().Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Values missing from the file keep their defaults, and a missing file
// yields the full default configuration.
//
// # Configuration Validation
//
// The package validates loaded configuration:
//   - Strategy must be "race" or "fallback"
//   - Timeout and lookup timeout must each be at least 1 second
//   - Provider names must be non-empty (existence in the catalog is
//     checked by the CLI, which owns the catalog)
//
// # Error Handling
//
// The package defines several error types:
//   - ErrInvalidConfig: configuration validation failed
//   - ErrNoConfig: configuration file not found (returns defaults)
//
// The package is designed to be extensible, allowing for additional
// configuration providers to be implemented (e.g., environment variables)
// by implementing the Provider interface.
package config
