package server

import (
	"fmt"
	"net/http"
	"strings"
)

type SecurityConfig struct {
	BaseURL         string
	StorageEndpoint string
}

const (
	youtubeScripts = "https://www.youtube.com https://s.ytimg.com"
	youtubeFrames  = "https://www.youtube.com https://www.youtube-nocookie.com"
	youtubeImages  = "https://i.ytimg.com"
)

// securityHeaders allows the browser player to load the YouTube iframe API
// and thumbnails; everything else stays same-origin.
func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := strings.HasPrefix(cfg.BaseURL, "https://")

	storageSuffix := ""
	if cfg.StorageEndpoint != "" {
		storageSuffix = " " + cfg.StorageEndpoint
	}

	csp := fmt.Sprintf(
		"default-src 'self'; img-src 'self' data: %s; script-src 'self' %s; frame-src %s; media-src 'self'; connect-src 'self'%s; style-src 'self'; frame-ancestors 'none';",
		youtubeImages, youtubeScripts, youtubeFrames, storageSuffix,
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Permissions-Policy", "autoplay=(self \"https://www.youtube.com\"), camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
