package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
)

// proxyTransforms is the ordered fallback chain for review media: the direct
// URL first, then public CORS-stripping proxies. The first transform whose
// fetch succeeds wins; exhaustion maps to the UI's "unavailable" placeholder.
var proxyTransforms = []func(string) string{
	func(u string) string { return u },
	func(u string) string { return "https://images.weserv.nl/?url=" + url.QueryEscape(u) },
	func(u string) string { return "https://corsproxy.io/?" + url.QueryEscape(u) },
}

var imageClient = &http.Client{Timeout: 10 * time.Second}

// proxyImage streams a review photo or video preview through the fallback
// chain. Only http(s) sources are accepted.
func (s *Server) proxyImage(c *gin.Context) {
	src := c.Query("src")
	if src == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing src"})
		return
	}
	parsed, err := url.Parse(src)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "src must be an http(s) URL"})
		return
	}

	for _, transform := range proxyTransforms {
		target := transform(src)
		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
		if err != nil {
			continue
		}
		resp, err := imageClient.Do(req)
		if err != nil {
			s.log.Debugw("image fetch failed, trying next proxy", "target", target, "err", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			s.log.Debugw("image fetch non-200, trying next proxy", "target", target, "status", resp.StatusCode)
			continue
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Cache-Control", "public, max-age=3600")
		c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, nil)
		resp.Body.Close()
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{"error": "image unavailable"})
}
