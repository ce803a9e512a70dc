package gateway

import (
	"fmt"
	"net/http"
	"strconv"
)

// PlanHeader exposes the resolved entitlement so clients can react
// without a second call.
const PlanHeader = "X-Feed-Plan"

// staleWhileRevalidateFactor scales the cache directive into the
// stale-while-revalidate window for the edge cache.
const staleWhileRevalidateFactor = 4

// reservedParams are gateway control parameters, never forwarded
// upstream.
var reservedParams = map[string]bool{
	"path":    true,
	"license": true,
	"ttl":     true,
}

// HTTPHandler adapts the pipeline to the exposed HTTP surface: a single
// GET endpoint taking path, license, ttl, and pass-through query
// parameters. CORS is open to any origin, GET/OPTIONS only.
func HTTPHandler(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		query := r.URL.Query()

		resourcePath := query.Get("path")
		if resourcePath == "" {
			writeJSONError(w, http.StatusBadRequest, "missing path parameter")
			return
		}

		ttlOverride := 0
		if v := query.Get("ttl"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				ttlOverride = n
			}
		}

		params := make(map[string][]string, len(query))
		for key, values := range query {
			if reservedParams[key] {
				continue
			}
			params[key] = values
		}

		req := ProxyRequest{
			ResourcePath:       resourcePath,
			LicenseKey:         query.Get("license"),
			CallerOrigin:       r.Header.Get("Origin"),
			QueryParams:        params,
			TTLOverrideSeconds: ttlOverride,
		}

		resp := h.Handle(r.Context(), req)

		w.Header().Set(PlanHeader, string(resp.Entitlement))
		if resp.CacheTTLSeconds > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
				resp.CacheTTLSeconds, resp.CacheTTLSeconds*staleWhileRevalidateFactor))
		}
		if resp.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.Status)
		w.Write(resp.Body)
	}
}

// writeJSONError writes a gateway-shaped error body.
func writeJSONError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(errorBody(description))
}
