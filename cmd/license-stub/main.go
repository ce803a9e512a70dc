// Command license-stub runs a standalone license validation endpoint
// backed by the placeholder key-format predicate. It answers the same
// wire contract a real licensing provider integration would, which
// makes it a drop-in LICENSE_API_URL target for development and tests.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/feedkit/x-feed-gateway/pkg/license"
	"github.com/feedkit/x-feed-gateway/pkg/logging"
)

func main() {
	port := getEnv("PORT", "8081")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})
	mux.HandleFunc("/api/license", validateHandler(license.FormatPredicate))

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	logger.Info().Str("addr", server.Addr).Msg("Starting license stub")
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// validateHandler answers {ok, plan} for a key/host query pair.
func validateHandler(predicate license.KeyPredicate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")

		ok := predicate(key)
		plan := string(license.EntitlementFree)
		if ok {
			plan = string(license.EntitlementPro)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]any{
			"ok":   ok,
			"plan": plan,
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
