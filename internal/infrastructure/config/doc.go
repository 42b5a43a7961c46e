// Package config handles loading and validating geb-core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Signing secrets should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - Access and refresh secrets must be distinct; validation rejects a
//     configuration that reuses one for the other
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
