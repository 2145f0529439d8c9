// Package redirect decides whether a navigation is a real redirect the
// orchestrator should skip, reconciling the two signals a browser
// navigation can produce: an observed 3xx response on the navigation
// request, and the transport's own redirect chain (as surfaced by an
// independent HTTP preflight).
package redirect

import (
	"regexp"
	"strings"
)

// RedirectType classifies how the redirect happened, when known.
type RedirectType string

const (
	TypeHTTP       RedirectType = "http"
	TypeMeta       RedirectType = "meta"
	TypeJavaScript RedirectType = "javascript"
)

// Info is the detector's output.
type Info struct {
	IsRedirect       bool
	StatusCode       int
	OriginalURL      string
	FinalURL         string
	URLChanged       bool
	HasRedirectChain bool
	RedirectType     RedirectType // zero value if IsRedirect is false
}

// Input collects every signal observed during one navigation.
type Input struct {
	OriginalURL string
	FinalURL    string
	StatusCode  int // the navigation response's status code

	// ObservedHTTPRedirect is true if any navigation-class response during
	// the navigation carried a 3xx status (observed via a response
	// listener attached before navigation begins).
	ObservedHTTPRedirect bool

	// PreflightChain is the set of intermediate hops an independent HTTP
	// probe observed for the same URL, if one was run. Nil when no
	// preflight was performed.
	PreflightChain []string

	// HasMetaRefresh and HasJSRedirect let the orchestrator report
	// non-HTTP redirect mechanisms detected by inspecting the loaded DOM.
	HasMetaRefresh bool
	HasJSRedirect  bool
}

var (
	schemeRE = regexp.MustCompile(`^https?://`)
	wwwRE    = regexp.MustCompile(`^www\.`)
)

// Canonicalize strips the protocol, a leading "www.", and a trailing "/" so
// that http://www.example.com/ and https://example.com compare equal.
func Canonicalize(rawURL string) string {
	u := schemeRE.ReplaceAllString(strings.TrimSpace(rawURL), "")
	// Split host from path/query so www. is only stripped from the host.
	slash := strings.IndexAny(u, "/?#")
	host, rest := u, ""
	if slash >= 0 {
		host, rest = u[:slash], u[slash:]
	}
	host = wwwRE.ReplaceAllString(host, "")
	u = host + rest
	return strings.TrimSuffix(u, "/")
}

// Detect decides whether a navigation was a real redirect per the
// canonicalization rule: a 3xx was observed (directly or via the transport
// chain) AND the canonicalized final URL differs from the canonicalized
// original. HTTP->HTTPS and www<->non-www alone are never redirects.
func Detect(in Input) Info {
	hasChain := len(in.PreflightChain) > 0
	sawThreeXX := in.ObservedHTTPRedirect || hasChain

	changed := Canonicalize(in.OriginalURL) != Canonicalize(in.FinalURL)

	info := Info{
		StatusCode:       in.StatusCode,
		OriginalURL:      in.OriginalURL,
		FinalURL:         in.FinalURL,
		URLChanged:       changed,
		HasRedirectChain: hasChain,
	}

	if sawThreeXX && changed {
		info.IsRedirect = true
		info.RedirectType = TypeHTTP
		return info
	}

	// No HTTP-level 3xx observed, but the page itself redirected via a meta
	// refresh or script-driven navigation: still a real redirect if the
	// canonicalized URL moved.
	if changed && (in.HasMetaRefresh || in.HasJSRedirect) {
		info.IsRedirect = true
		if in.HasMetaRefresh {
			info.RedirectType = TypeMeta
		} else {
			info.RedirectType = TypeJavaScript
		}
		return info
	}

	return info
}
