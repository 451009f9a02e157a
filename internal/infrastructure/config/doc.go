// Package config handles loading and validating hvpsu configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields, including every PSU identity
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - Without security.jwt.secret the HTTP API accepts unauthenticated commands
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range cfg.PSUs {
//	    fmt.Println(p.Identity, p.MaxVoltage)
//	}
package config
