package handlers

import (
	"context"
	_ "embed"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	landingCacheKey = "landing_page_html"
	landingCacheTTL = 300 * time.Second
)

//go:embed templates/landing.html
var fallbackLanding []byte

type PageCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type LandingHandler struct {
	Cache   PageCache
	DistDir string
	Logger  *zap.Logger
}

func NewLandingHandler(cache PageCache, distDir string, logger *zap.Logger) *LandingHandler {
	return &LandingHandler{Cache: cache, DistDir: distDir, Logger: logger}
}

// Handle serves GET /. Cache failures fall through to rendering the page.
func (h *LandingHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Cache != nil {
		if html, err := h.Cache.Get(ctx, landingCacheKey); err == nil {
			writeHTML(w, []byte(html))
			return
		}
	}

	page := h.load()

	if h.Cache != nil {
		if err := h.Cache.Set(ctx, landingCacheKey, string(page), landingCacheTTL); err != nil {
			h.Logger.Debug("failed to cache landing page", zap.Error(err))
		}
	}

	writeHTML(w, page)
}

func (h *LandingHandler) load() []byte {
	if h.DistDir == "" {
		return fallbackLanding
	}
	page, err := os.ReadFile(filepath.Join(h.DistDir, "index.html"))
	if err != nil {
		h.Logger.Warn("frontend build not found, serving fallback page", zap.String("dist_dir", h.DistDir), zap.Error(err))
		return fallbackLanding
	}
	return page
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}
