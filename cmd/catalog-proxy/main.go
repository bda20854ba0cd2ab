package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mkatze/catalog-client/pkg/client"
	"github.com/mkatze/catalog-client/pkg/logging"
)

func main() {
	// Configuration from environment
	baseURL := getEnv("CATALOG_URL", "https://catalog.example.com")
	redisURL := getEnv("REDIS_URL", "")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "catalog-proxy/0.3.0")
	rps := getEnvFloat("REQUESTS_PER_SECOND", 2)

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") != "",
	})

	cfg := client.DefaultConfig(baseURL)
	cfg.UserAgent = userAgent
	cfg.RequestsPerSecond = rps

	// Redis is optional: without it the proxy still works with the
	// in-process cache only.
	var redisClient *redis.Client
	if redisURL != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", redisURL, err)
		}
		cfg.Redis = redisClient
		log.Printf("Connected to Redis at %s", redisURL)
	}

	catalogClient, err := client.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create catalog client: %v", err)
	}
	defer catalogClient.Close()

	http.HandleFunc("/healthz", healthHandler)
	http.HandleFunc("/readyz", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/catalog/", catalogProxyHandler(catalogClient))

	addr := ":" + port
	log.Printf("Starting catalog proxy on %s (origin %s)", addr, baseURL)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports readiness. With Redis configured, readiness requires a
// successful ping.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, fmt.Sprintf("redis unavailable: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// catalogProxyHandler forwards /catalog/* to the origin through the full
// client pipeline, so repeated requests are served from cache.
func catalogProxyHandler(catalogClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// /catalog/search/ajax?keyword=x -> /search/ajax?keyword=x
		endpoint := r.URL.Path[len("/catalog"):]
		if r.URL.RawQuery != "" {
			endpoint += "?" + r.URL.RawQuery
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		body, err := catalogClient.Get(ctx, endpoint)
		if err != nil {
			http.Error(w, fmt.Sprintf("catalog request failed: %v", err), http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, body); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}
