package main

import (
	"net/http"

	"kbadmin/internal/auth"
	"kbadmin/internal/form"
	"kbadmin/internal/geo"
	"kbadmin/internal/http/middleware"
	"kbadmin/internal/httpapi"
	"kbadmin/internal/listing"
	"kbadmin/internal/logging"
	"kbadmin/internal/pending"
	"kbadmin/internal/store"
	"kbadmin/internal/upstream"
)

func newHTTPHandler(cfg Config, localStore *store.Store, logger *logging.Logger) (http.Handler, *upstream.Watcher) {
	client := upstream.NewHTTPClient(upstream.Config{
		BaseURL:        cfg.UpstreamURL,
		Token:          cfg.UpstreamToken,
		RequestTimeout: cfg.UpstreamTimeout,
		MaxRetries:     cfg.MaxRetries,
		CacheTTL:       cfg.CacheTTL,
	}, localStore)

	watcher := upstream.NewWatcher(client, cfg.ProbeInterval)

	authSvc := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL, localStore)
	listingSvc := listing.New(client, localStore, pending.NewRegistry())
	server := httpapi.New(authSvc, listingSvc, form.NewManager(), localStore, newGeocoder(cfg, logger), watcher)

	handler := server.Routes()
	for _, wrap := range []func(http.Handler) http.Handler{
		middleware.Recovery(),
		middleware.RequestLogging(),
		corsMiddleware(cfg.AllowedOrigins),
	} {
		handler = wrap(handler)
	}
	return handler, watcher
}

func newGeocoder(cfg Config, logger *logging.Logger) geo.Geocoder {
	if cfg.GeoProvider == string(geo.ProviderPhoton) {
		logger.Info("using Photon geocoder")
		return geo.NewPhotonClient(cfg.GeoBaseURL)
	}
	logger.Info("using Nominatim geocoder")
	return geo.NewNominatimClient(cfg.GeoBaseURL, cfg.GeoUserAgent)
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 1 {
		return middleware.CORS(origins[0])
	}
	if len(origins) == 0 {
		return middleware.CORS("")
	}
	// Multiple configured origins: match per request.
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed[origin] {
				middleware.CORS(origin)(next).ServeHTTP(w, r)
				return
			}
			middleware.CORS("")(next).ServeHTTP(w, r)
		})
	}
}
