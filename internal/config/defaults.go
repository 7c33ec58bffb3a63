package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 4361,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/copilot",
			},
		},
		Sheets: SheetsConfig{
			SpreadsheetTitle: "Investment CoPilot - Portfolio",
		},
		Providers: ProvidersConfig{
			YahooBaseURL: "https://query1.finance.yahoo.com",
			GeminiModel:  "gemini-2.5-flash",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"console", "file"},
		},
	}
}
