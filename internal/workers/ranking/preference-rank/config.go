// internal/workers/ranking/preference-rank/config.go
package preferencerank

type Config struct {
	// TopN is the number of recommendations per meal before CYO extras.
	TopN int
}

func LoadConfig() *Config {
	return &Config{TopN: 5}
}
