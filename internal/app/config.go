package app

// Config carries the command-line options that influence application
// bootstrap. File/environment configuration is layered underneath by
// internal/config; non-zero values here win.
type Config struct {
	Debug bool
	Host  string
	Port  int
}

// NewConfig creates an application configuration from command-line flags.
func NewConfig(debug bool, host string, port int) Config {
	return Config{
		Debug: debug,
		Host:  host,
		Port:  port,
	}
}
