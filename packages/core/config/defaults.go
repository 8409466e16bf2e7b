package config

// DefaultAllowedHeaders are the request headers a browser caller may send to
// the relay itself.
var DefaultAllowedHeaders = []string{
	"Accept",
	"Content-Type",
	"User-Agent",
	"Sec-Fetch-Mode",
	"Sec-Fetch-Dest",
	"Sec-Fetch-Site",
	"Referer",
	"Origin",
	"Access-Control-Request-Method",
	"Access-Control-Request-Headers",
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Timeout:         0, // no client-level timeout
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		AllowedHeaders:  append([]string(nil), DefaultAllowedHeaders...),
		LogLevel:        "info",
		LogFormat:       "text",
	}
}
