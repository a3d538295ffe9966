package telemetry

// SalesServiceConfig is the telemetry configuration for the sales service
var SalesServiceConfig = Config{
	ServiceName:    "sales-service",
	ServiceVersion: "1.0.0",
}

// WithOTLPEndpoint sets the OTLP endpoint for a config
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithVersion sets the service version for a config
func (c Config) WithVersion(version string) Config {
	if version != "" {
		c.ServiceVersion = version
	}
	return c
}
