// Copyright 2025 TCG Assistant
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"tcg-agent/platform/agents"
	"tcg-agent/platform/common/usage"
	"tcg-agent/platform/config"
	"tcg-agent/platform/connectors/gumgum"
	"tcg-agent/platform/connectors/perplexity"
	"tcg-agent/platform/connectors/shopify"
	"tcg-agent/platform/connectors/weathergov"
	"tcg-agent/platform/llm"
	"tcg-agent/platform/llm/bedrock"
	"tcg-agent/platform/shared/logger"
)

var (
	globalRouter *mux.Router
	globalCORS   *cors.Cors
	appReady     atomic.Bool
)

// initServerImmediately starts the HTTP server with only /health
// registered, so ECS/ALB health checks pass during initialization.
// Remaining routes are added once initialization completes; the server
// never restarts.
func initServerImmediately(port string) {
	globalRouter = mux.NewRouter()

	globalCORS = cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	globalRouter.HandleFunc("/health", readinessAwareHealthHandler).Methods("GET")

	go func() {
		handler := globalCORS.Handler(globalRouter)
		log.Printf("🚀 TCG gateway starting on port %s (status: starting)", port)
		if err := http.ListenAndServe(":"+port, handler); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Small delay to ensure server is ready to accept connections
	time.Sleep(50 * time.Millisecond)
	log.Println("✅ Health endpoint ready - initialization can proceed safely")
}

// readinessAwareHealthHandler returns health status based on
// initialization state
func readinessAwareHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "starting"
	if appReady.Load() {
		status = "healthy"
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"service":   "tcg-gateway",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// llmUsageObserver meters every model invocation through the usage
// recorder. The recorder is nil-safe, so the hook is wired
// unconditionally.
func llmUsageObserver(recorder *usage.Recorder) agents.CompletionObserver {
	return func(ctx context.Context, agent, model string, stats llm.UsageStats, latency time.Duration) {
		requestID, _ := ctx.Value(requestIDKey).(string)
		_ = recorder.RecordLLMRequest(usage.LLMRequestEvent{
			RequestID:        requestID,
			Agent:            agent,
			LLMProvider:      "bedrock",
			LLMModel:         model,
			PromptTokens:     stats.PromptTokens,
			CompletionTokens: stats.CompletionTokens,
			TotalTokens:      stats.TotalTokens,
			LatencyMs:        latency.Milliseconds(),
		})
	}
}

// Run is the exported entry point for the gateway service. It starts the
// health endpoint first, then wires configuration, the Bedrock provider,
// connectors, and agents before marking the app ready.
func Run() {
	ctx := context.Background()

	// Start server IMMEDIATELY with /health so load balancer health
	// checks pass while the slower AWS clients initialize.
	bootCfg, err := config.Load(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	initServerImmediately(bootCfg.Port)

	// Parameter Store backfills secrets missing from the environment
	var resolver config.SecretResolver
	params, err := config.NewParameterStore(ctx, bootCfg.AWSRegion)
	if err != nil {
		log.Printf("⚠️ Parameter Store unavailable: %v", err)
	} else {
		resolver = params
	}

	cfg, err := config.Load(ctx, resolver)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New("gateway")

	// Bedrock is the one hard dependency: without a model there are no
	// agents to serve.
	provider, err := bedrock.NewProvider(ctx, bedrock.Config{
		Region: cfg.AWSRegion,
		Model:  cfg.BedrockModelID,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Bedrock provider: %v", err)
	}
	log.Println("✅ Bedrock provider initialized")

	// Usage metering database (optional)
	var recorder *usage.Recorder
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Printf("⚠️ Failed to open usage database: %v", err)
		} else if err := db.Ping(); err != nil {
			log.Printf("⚠️ Failed to ping usage database: %v", err)
			_ = db.Close()
		} else {
			recorder = usage.NewRecorder(db)
			log.Println("✅ Usage metering database connected")
		}
	} else {
		log.Println("ℹ️  DATABASE_URL not set - usage metering disabled")
	}

	// Rate limiting (Redis-backed with in-memory fallback)
	limiter, err := NewRateLimiter(cfg.RedisURL, cfg.RateLimitPerMinute)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis: %v", err)
		log.Println("Falling back to in-memory rate limiting")
		limiter, _ = NewRateLimiter("", cfg.RateLimitPerMinute)
	} else if cfg.RedisURL != "" {
		log.Println("✅ Redis rate limiting enabled")
	} else {
		log.Println("ℹ️  REDIS_URL not set - using in-memory rate limiting")
	}

	opts := agents.Options{Model: cfg.BedrockModelID, Observer: llmUsageObserver(recorder)}

	// Weather agent needs only the public NWS API
	weather := agents.NewWeatherAgent(provider, weathergov.NewClient(), opts)

	// Card research requires a Perplexity key
	var researcher *agents.CardResearcher
	if cfg.HasPerplexity() {
		client, err := perplexity.NewClient(perplexity.Config{
			APIKey:       cfg.PerplexityAPIKey,
			CallLimit:    cfg.PerplexityCallLimit,
			LimitEnabled: cfg.PerplexityLimitEnabled,
		})
		if err != nil {
			log.Printf("⚠️ Failed to initialize Perplexity client: %v", err)
		} else {
			researcher = agents.NewCardResearcher(client)
			log.Println("✅ Card research configured")
		}
	} else {
		log.Println("ℹ️  PERPLEXITY_API_KEY not set - card research disabled")
	}

	var decks agents.DeckService
	if cfg.HasGumGum() {
		client, err := gumgum.NewClient(cfg.CompetitiveDeckEndpoint, cfg.CompetitiveDeckSecret)
		if err != nil {
			log.Printf("⚠️ Failed to initialize deck client: %v", err)
		} else {
			decks = client
			log.Println("✅ Competitive deck endpoint configured")
		}
	} else {
		log.Println("ℹ️  COMPETITIVE_DECK_ENDPOINT not set - deck lookup disabled")
	}

	var store agents.Storefront
	if cfg.HasShopify() {
		client, err := shopify.NewClient(shopify.Config{
			StoreDomain: cfg.ShopifyStoreDomain,
			Token:       cfg.ShopifyStorefrontToken,
		})
		if err != nil {
			log.Printf("⚠️ Failed to initialize storefront client: %v", err)
		} else {
			store = client
			log.Println("✅ Storefront configured")
		}
	} else {
		log.Println("ℹ️  Shopify credentials not set - storefront disabled")
	}

	var coordResearcher agents.Researcher
	if researcher != nil {
		coordResearcher = researcher
	}
	coordinator := agents.NewCoordinatorAgent(provider, decks, coordResearcher, store, opts)

	var cardSearch CardResearcher
	if researcher != nil {
		cardSearch = researcher
	}

	server := NewServer(cfg, appLog, weather, coordinator, cardSearch, limiter, recorder)
	server.Routes(globalRouter)

	// Prometheus metrics endpoint (Prometheus exposition format)
	globalRouter.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Mark application as ready - /health will now return "healthy"
	appReady.Store(true)
	log.Println("✅ All initialization complete - application ready")
	log.Printf("🚀 TCG gateway fully operational on port %s", cfg.Port)

	// Block forever - server is running in goroutine, nothing else to do
	select {}
}
