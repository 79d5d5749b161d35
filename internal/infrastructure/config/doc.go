// Package config loads and validates clinicauth configuration.
//
// Loading order is defaults, then the YAML file, then CLINICAUTH_* environment
// variables. Validate reports every problem in one error.
//
// Secrets (the ticket signing secret, MQTT and InfluxDB credentials, the seed
// admin password) belong in the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
