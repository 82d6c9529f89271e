package config

import (
	"strings"
	"time"

	"cicerone/pkg/config"
	"cicerone/pkg/version"
)

// Config stores environment configuration for Cicerone.
type Config struct {
	Port string

	// RequestTimeout is the wall-clock budget for one pipeline request.
	// Keep it below HTTP_WRITE_TIMEOUT or the timeout response cannot be
	// written.
	RequestTimeout time.Duration

	LLMProvider    string
	LLMModel       string
	LLMAPIKey      string
	LLMAPIURL      string
	LLMMaxTokens   int
	LLMTimeout     time.Duration
	LLMTemperature float64

	// ResearchModel overrides LLMModel for deep-research calls, so a
	// search-capable model (Perplexity sonar) can serve research while a
	// cheaper model writes scripts. Empty means use LLMModel.
	ResearchModel string

	WikipediaAPIURL  string
	WikidataAPIURL   string
	GeoNamesAPIURL   string
	GeoNamesUsername string
	NominatimAPIURL  string

	// RedisAddrs switches the cache store to the sentinel/cluster client
	// when set; RedisURL serves the common single-node case.
	RedisAddrs      string
	RedisMasterName string
	RedisPassword   string
	RedisURL        string

	SourceCacheTTL time.Duration
	// SourceCacheDisabled sends every gather straight to the upstreams.
	SourceCacheDisabled bool
}

// LoadConfig loads the Cicerone configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port: config.GetEnv("PORT", "18030"),

		RequestTimeout: config.GetEnvDuration("REQUEST_TIMEOUT", 9*time.Minute),

		LLMProvider:    config.GetEnv("LLM_PROVIDER", "openai"),
		LLMModel:       config.GetEnv("LLM_MODEL", ""),
		LLMAPIKey:      config.GetEnv("LLM_API_KEY", ""),
		LLMAPIURL:      config.GetEnv("LLM_API_URL", ""),
		LLMMaxTokens:   config.GetEnvInt("LLM_MAX_TOKENS", 0),
		LLMTimeout:     config.GetEnvDuration("LLM_TIMEOUT", 5*time.Minute),
		LLMTemperature: config.GetEnvFloat("LLM_TEMPERATURE", 0.7),

		ResearchModel: config.GetEnv("RESEARCH_MODEL", ""),

		WikipediaAPIURL:  config.GetEnv("WIKIPEDIA_API_URL", "https://en.wikipedia.org"),
		WikidataAPIURL:   config.GetEnv("WIKIDATA_API_URL", "https://www.wikidata.org/w/api.php"),
		GeoNamesAPIURL:   config.GetEnv("GEONAMES_API_URL", "http://api.geonames.org"),
		GeoNamesUsername: config.GetEnv("GEONAMES_USERNAME", "demo"),
		NominatimAPIURL:  config.GetEnv("NOMINATIM_API_URL", "https://nominatim.openstreetmap.org"),

		RedisAddrs:      config.GetEnv("REDIS_ADDRS", ""),
		RedisMasterName: config.GetEnv("REDIS_MASTER_NAME", ""),
		RedisPassword:   config.GetEnv("REDIS_PASSWORD", ""),
		RedisURL:        config.GetEnv("REDIS_URL", ""),

		SourceCacheTTL:      config.GetEnvDuration("SOURCE_CACHE_TTL", 10*time.Minute),
		SourceCacheDisabled: config.GetEnvBool("SOURCE_CACHE_DISABLED", false),
	}
}

// RedisAddrList splits REDIS_ADDRS into individual addresses.
func (c Config) RedisAddrList() []string {
	if strings.TrimSpace(c.RedisAddrs) == "" {
		return nil
	}
	parts := strings.Split(c.RedisAddrs, ",")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			addrs = append(addrs, p)
		}
	}
	return addrs
}

// UserAgent identifies Cicerone to upstream data sources. Nominatim's
// usage policy rejects requests without one.
func (c Config) UserAgent() string {
	return "cicerone/" + version.Version
}
