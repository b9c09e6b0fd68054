// Package config handles loading and validating IR HVAC controller configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of emitter and device bindings against the fixed table limits
//   - Default value handling
//
// Security Considerations:
//   - The web password and broker credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Line.Port)
package config
