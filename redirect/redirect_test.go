package redirect

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://example.com/", "example.com"},
		{"http://www.example.com", "example.com"},
		{"https://www.example.com/path/", "example.com/path"},
		{"  https://example.com  ", "example.com"},
		{"example.com/path?x=1", "example.com/path?x=1"},
	}
	for _, c := range cases {
		if got := Canonicalize(c.in); got != c.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDetect_SchemeAndWWWAloneAreNotRedirects(t *testing.T) {
	info := Detect(Input{
		OriginalURL:          "http://www.example.com/",
		FinalURL:             "https://example.com/",
		ObservedHTTPRedirect: true,
	})
	if info.IsRedirect {
		t.Errorf("scheme/www-only change flagged as redirect: %+v", info)
	}
}

func TestDetect_HTTPRedirectToDifferentPath(t *testing.T) {
	info := Detect(Input{
		OriginalURL:          "https://example.com/old",
		FinalURL:             "https://example.com/new",
		ObservedHTTPRedirect: true,
	})
	if !info.IsRedirect || info.RedirectType != TypeHTTP {
		t.Errorf("expected HTTP redirect, got %+v", info)
	}
}

func TestDetect_PreflightChainAloneIsSufficient(t *testing.T) {
	info := Detect(Input{
		OriginalURL:    "https://example.com/old",
		FinalURL:       "https://example.com/new",
		PreflightChain: []string{"https://example.com/old", "https://example.com/new"},
	})
	if !info.IsRedirect || !info.HasRedirectChain {
		t.Errorf("expected chain-backed redirect, got %+v", info)
	}
}

func TestDetect_MetaRefreshWithoutHTTPSignal(t *testing.T) {
	info := Detect(Input{
		OriginalURL:    "https://example.com/old",
		FinalURL:       "https://example.com/new",
		HasMetaRefresh: true,
	})
	if !info.IsRedirect || info.RedirectType != TypeMeta {
		t.Errorf("expected meta redirect, got %+v", info)
	}
}

func TestDetect_JSRedirectWithoutHTTPSignal(t *testing.T) {
	info := Detect(Input{
		OriginalURL:   "https://example.com/old",
		FinalURL:      "https://example.com/new",
		HasJSRedirect: true,
	})
	if !info.IsRedirect || info.RedirectType != TypeJavaScript {
		t.Errorf("expected javascript redirect, got %+v", info)
	}
}

func TestDetect_SameURLIsNeverARedirect(t *testing.T) {
	info := Detect(Input{
		OriginalURL:          "https://example.com/page",
		FinalURL:             "https://example.com/page",
		ObservedHTTPRedirect: true,
		HasMetaRefresh:       true,
		HasJSRedirect:        true,
	})
	if info.IsRedirect {
		t.Errorf("identical canonical URL flagged as redirect: %+v", info)
	}
}
