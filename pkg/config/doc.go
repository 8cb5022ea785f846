// Package config provides configuration management for bidguard.
//
// Configuration is read from a YAML file, overlaid on built-in defaults,
// overridden by environment variables, and validated as a whole.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("bidguard.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("bidguard.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BIDGUARD_SECTION_FIELD.
// For example:
//
//   - BIDGUARD_ETHICS_MODE overrides ethics.mode
//   - BIDGUARD_ETHICS_STRICT_MODE overrides ethics.strict_mode
//   - BIDGUARD_LEDGER_KEY_FILE overrides ledger.key_file
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation collects every problem into a single ValidationError. A
// configuration that fails validation is a startup error: the rating
// weights must sum to 1, timeliness breakpoints must increase, risk bands
// must decrease, and the margin erosion contribution must exceed every
// other contribution's ceiling.
package config
