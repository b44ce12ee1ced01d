// Package config handles loading and validating the Coursebook gateway configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (COURSEBOOK_* and legacy names)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (broker passwords, JWT secret, InfluxDB token) should
//     be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - There is no default JWT secret; startup fails until one is provided
//
// Timing:
//   - pending.* bounds how long a synchronous-style request may wait for its
//     completion; api.timeouts.write must be larger than the longest of them
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Broker.Driver)
package config
