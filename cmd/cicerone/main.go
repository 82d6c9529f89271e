package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cicerone/internal/aggregate"
	ciceroneconfig "cicerone/internal/config"
	"cicerone/internal/narrate"
	"cicerone/internal/research"
	"cicerone/internal/script"
	"cicerone/internal/sources"
	"cicerone/pkg/clients"
	"cicerone/pkg/config"
	"cicerone/pkg/llm"
	"cicerone/pkg/logging"
	"cicerone/pkg/middleware"
	"cicerone/pkg/monitoring"
	"cicerone/pkg/redis"
	"cicerone/pkg/server"
	"cicerone/pkg/version"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("cicerone")

	// Load environment variables
	config.LoadEnv(logger)

	logger.WithFields(logging.Fields{
		"version": version.Version,
		"commit":  version.GetShortCommit(),
	}).Info("Starting Cicerone (Narration Script Service)")

	cfg := ciceroneconfig.LoadConfig()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("cicerone", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("cicerone", version.Version, version.GitCommit)
	metricsCollector.NewGauge("build_info", "Build information", []string{"version", "commit"}).
		WithLabelValues(version.Version, version.GetShortCommit()).Set(1)

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"LLM_MODEL":   cfg.LLMModel,
		"LLM_API_KEY": cfg.LLMAPIKey,
	}))
	healthChecker.AddCheck("sources", monitoring.ConfigurationHealthCheck(map[string]string{
		"WIKIPEDIA_API_URL": cfg.WikipediaAPIURL,
		"WIKIDATA_API_URL":  cfg.WikidataAPIURL,
		"GEONAMES_API_URL":  cfg.GeoNamesAPIURL,
		"NOMINATIM_API_URL": cfg.NominatimAPIURL,
	}))
	if strings.EqualFold(cfg.LLMProvider, "ollama") {
		// A local daemon is the one backend cheap enough to probe on
		// every health check.
		llmURL := cfg.LLMAPIURL
		if llmURL == "" {
			llmURL = llm.DefaultOllamaURL
		}
		healthChecker.AddCheck("llm", monitoring.HTTPServiceHealthCheck("ollama", strings.TrimSuffix(llmURL, "/")+"/models"))
	}

	// Generative backend client. Required: neither research nor script
	// generation can run without it.
	llmClient, err := llm.NewClient(llm.Config{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		APIURL:    cfg.LLMAPIURL,
		MaxTokens: cfg.LLMMaxTokens,
		Timeout:   cfg.LLMTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize LLM client")
	}

	// Optional Redis-backed source cache; in-process cache otherwise.
	// REDIS_ADDRS selects the sentinel/cluster client, REDIS_URL a single
	// node. Connection failures degrade to the in-process cache.
	var redisClient goredis.UniversalClient
	switch {
	case cfg.SourceCacheDisabled:
		logger.Warn("SOURCE_CACHE_DISABLED set - gatherers hit upstreams directly")
	case len(cfg.RedisAddrList()) > 0:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, redisErr := redis.NewUniversalClient(ctx, redis.Config{
			Addrs:      cfg.RedisAddrList(),
			MasterName: cfg.RedisMasterName,
			Password:   cfg.RedisPassword,
		})
		cancel()
		if redisErr != nil {
			logger.WithError(redisErr).Warn("Failed to connect to Redis - falling back to in-process source cache")
		} else {
			redisClient = client
			defer func() { _ = client.Close() }()
			healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisClient))
			logger.WithField("addrs", cfg.RedisAddrList()).Info("Redis source cache enabled")
		}
	case cfg.RedisURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, redisErr := redis.NewClientFromURL(ctx, cfg.RedisURL)
		cancel()
		if redisErr != nil {
			logger.WithError(redisErr).Warn("Failed to connect to Redis - falling back to in-process source cache")
		} else {
			redisClient = client
			defer func() { _ = client.Close() }()
			healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisClient))
			logger.Info("Redis source cache enabled")
		}
	default:
		logger.Info("REDIS_URL not set - using in-process source cache")
	}

	breaker := func(name string) *clients.CircuitBreaker {
		return clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
			Name:          name,
			Logger:        logger,
			OnStateChange: clients.CircuitBreakerMetricsCallback(name),
		})
	}
	cached := func(g sources.Gatherer) sources.Gatherer {
		if cfg.SourceCacheDisabled {
			return g
		}
		if redisClient != nil {
			return aggregate.WithRedisCache(g, redisClient, cfg.SourceCacheTTL, logger)
		}
		return aggregate.WithMemoryCache(g, cfg.SourceCacheTTL)
	}

	aggregator := aggregate.New(logger,
		cached(sources.NewNarrativeSource(sources.NarrativeConfig{
			APIURL:    cfg.WikipediaAPIURL,
			UserAgent: cfg.UserAgent(),
			Breaker:   breaker("wikipedia"),
		})),
		cached(sources.NewStructuredSource(sources.StructuredConfig{
			APIURL:    cfg.WikidataAPIURL,
			UserAgent: cfg.UserAgent(),
			Breaker:   breaker("wikidata"),
		})),
		cached(sources.NewHierarchySource(sources.HierarchyConfig{
			APIURL:    cfg.GeoNamesAPIURL,
			Username:  cfg.GeoNamesUsername,
			UserAgent: cfg.UserAgent(),
			Breaker:   breaker("geonames"),
		})),
		cached(sources.NewGeocodeSource(sources.GeocodeConfig{
			APIURL:    cfg.NominatimAPIURL,
			UserAgent: cfg.UserAgent(),
			Breaker:   breaker("nominatim"),
		})),
	)

	researcher := research.NewAdapter(llmClient, research.Config{
		Model:     cfg.ResearchModel,
		MaxTokens: cfg.LLMMaxTokens,
		Timeout:   cfg.LLMTimeout,
	}, logger)
	generator := script.NewGenerator(llmClient, script.Config{
		Timeout:     cfg.LLMTimeout,
		Temperature: cfg.LLMTemperature,
	}, logger)

	service := narrate.NewService(aggregator, researcher, generator, logger)
	handler := narrate.NewHandler(service, logger)

	// Setup router with unified monitoring endpoints
	router := server.SetupServiceRouter(logger, "cicerone", healthChecker, metricsCollector)

	// Pipeline routes run under a wall-clock deadline; the handlers map
	// the expired context to 504.
	api := router.Group("/", middleware.TimeoutMiddleware(cfg.RequestTimeout))
	narrate.RegisterRoutes(api, handler)

	// MCP endpoint exposing the pipeline as agent tools.
	mcpServer := narrate.NewMCPServer(narrate.MCPConfig{Service: service, Logger: logger})
	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	router.Any("/mcp/*path", gin.WrapH(http.Handler(mcpHandler)))

	// Start HTTP server with graceful shutdown
	serverConfig := server.DefaultConfig("cicerone", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
