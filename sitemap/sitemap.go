// Package sitemap is the external sitemap-discovery collaborator: given
// a sitemap URL, it returns the flat list of page URLs it names,
// transparently following one level of sitemap-index nesting.
package sitemap

import (
	"fmt"

	gpsitemap "github.com/oxffaa/gopher-parse-sitemap"
)

// Parse fetches and parses the sitemap at url, returning every page URL
// it lists. If the document is a sitemap index (a sitemap of sitemaps)
// rather than a page sitemap, each child sitemap is fetched in turn and
// its entries merged into the result.
func Parse(url string) ([]string, error) {
	urls, err := parseURLSet(url)
	if err != nil {
		return nil, err
	}
	if len(urls) > 0 {
		return urls, nil
	}

	// Empty result from a well-formed document usually means it was a
	// sitemap index, not a page sitemap; gopher-parse-sitemap exposes
	// those through a separate entry point.
	children, err := parseIndex(url)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}

	var all []string
	for _, child := range children {
		childURLs, err := parseURLSet(child)
		if err != nil {
			return nil, fmt.Errorf("sitemap: child sitemap %q: %w", child, err)
		}
		all = append(all, childURLs...)
	}
	return all, nil
}

func parseURLSet(url string) ([]string, error) {
	var urls []string
	err := gpsitemap.ParseFromSite(url, func(e gpsitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sitemap: parse %q: %w", url, err)
	}
	return urls, nil
}

func parseIndex(url string) ([]string, error) {
	var locations []string
	err := gpsitemap.ParseIndexFromSite(url, func(e gpsitemap.Entry) error {
		locations = append(locations, e.GetLocation())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sitemap: parse index %q: %w", url, err)
	}
	return locations, nil
}
