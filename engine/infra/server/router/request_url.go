package router

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	schemeHTTPS = "https"
	schemeHTTP  = "http"

	HeaderForwardedProto  = "X-Forwarded-Proto"
	HeaderForwardedHost   = "X-Forwarded-Host"
	HeaderForwardedPrefix = "X-Forwarded-Prefix"
)

// URLOptions controls how the externally visible URL is derived.
type URLOptions struct {
	// RootPath is the mount prefix stripped by the reverse proxy.
	RootPath string
	// TrustForwarded honors X-Forwarded-Proto, X-Forwarded-Host and X-Forwarded-Prefix.
	TrustForwarded bool
}

// PerceivedURL is the URL of a request as the server understands it.
type PerceivedURL struct {
	RootPath string
	HostURL  string
	URL      string
}

func ResolvePerceivedURL(r *http.Request, opts URLOptions) PerceivedURL {
	scheme := schemeHTTP
	if r.TLS != nil {
		scheme = schemeHTTPS
	}
	host := sanitizeHost(r.Host)
	rootPath := normalizeRootPath(opts.RootPath)
	if opts.TrustForwarded {
		if proto := firstValue(r.Header.Get(HeaderForwardedProto)); proto != "" {
			scheme = normalizeScheme(strings.ToLower(proto))
		}
		if fwdHost := sanitizeHost(r.Header.Get(HeaderForwardedHost)); fwdHost != "" {
			host = fwdHost
		}
		if prefix := firstValue(r.Header.Get(HeaderForwardedPrefix)); prefix != "" {
			rootPath = normalizeRootPath(prefix)
		}
	}
	if host == "" {
		host = sanitizeHost(r.URL.Host)
	}
	if host == "" {
		host = "localhost"
	}
	base := scheme + "://" + host
	return PerceivedURL{
		RootPath: rootPath,
		HostURL:  base + "/",
		URL:      base + rootPath + r.URL.RequestURI(),
	}
}

func normalizeRootPath(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimRight(raw, "/")
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return raw
}

func firstValue(raw string) string {
	if comma := strings.IndexByte(raw, ','); comma >= 0 {
		raw = raw[:comma]
	}
	return strings.TrimSpace(raw)
}

func normalizeScheme(raw string) string {
	switch raw {
	case schemeHTTPS:
		return schemeHTTPS
	default:
		return schemeHTTP
	}
}

func sanitizeHost(raw string) string {
	raw = firstValue(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse("//" + raw)
	if err != nil {
		return ""
	}
	return parsed.Host
}
