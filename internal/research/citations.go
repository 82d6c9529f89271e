package research

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Citation is one source backing a research answer.
type Citation struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Domain      string  `json:"domain"`
	Credibility float64 `json:"credibility"`
}

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	bareURLRe      = regexp.MustCompile(`https?://[^\s\]\)\>\<\"']+`)
)

// extractCitations merges the URLs the backend reported with URLs found in
// the answer text, then normalizes, dedupes, scores, and orders them.
// Markdown-style links keep their link text as title; bare URLs carry the
// domain. Ordering is by credibility with each domain's first citation
// ranked ahead of repeats.
func extractCitations(text string, provided []string) []Citation {
	type candidate struct {
		url   string
		title string
	}
	var candidates []candidate
	for _, m := range markdownLinkRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, candidate{url: m[2], title: strings.TrimSpace(m[1])})
	}
	for _, u := range provided {
		candidates = append(candidates, candidate{url: u})
	}
	for _, u := range bareURLRe.FindAllString(text, -1) {
		candidates = append(candidates, candidate{url: u})
	}

	seen := make(map[string]bool, len(candidates))
	citations := make([]Citation, 0, len(candidates))
	for _, c := range candidates {
		normalized, err := normalizeURL(c.url)
		if err != nil || normalized == "" {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		domain := extractDomain(normalized)
		title := c.title
		if title == "" {
			title = domain
		}
		citations = append(citations, Citation{
			URL:         normalized,
			Title:       title,
			Domain:      domain,
			Credibility: scoreCredibility(domain),
		})
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].Credibility > citations[j].Credibility
	})
	return diversify(citations)
}

// diversify moves each domain's first citation ahead of repeat citations
// while keeping the credibility order within both groups.
func diversify(citations []Citation) []Citation {
	seen := make(map[string]bool, len(citations))
	firsts := make([]Citation, 0, len(citations))
	var repeats []Citation
	for _, c := range citations {
		if seen[c.Domain] {
			repeats = append(repeats, c)
			continue
		}
		seen[c.Domain] = true
		firsts = append(firsts, c)
	}
	return append(firsts, repeats...)
}

// normalizeURL canonicalizes a URL for deduplication: lowercase scheme and
// host, no www prefix, no fragment, no tracking params, no trailing slash.
// Trailing sentence punctuation picked up by the regex is dropped first.
func normalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimRight(rawURL, ".,;:!?")

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", nil
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Host = strings.TrimPrefix(parsed.Host, "www.")
	parsed.Fragment = ""

	if parsed.RawQuery != "" {
		q := parsed.Query()
		for _, param := range []string{
			"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
			"fbclid", "gclid", "msclkid",
			"ref", "source",
		} {
			q.Del(param)
		}
		parsed.RawQuery = q.Encode()
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/")

	return parsed.String(), nil
}

// extractDomain returns the host without port or www prefix. Subdomains
// other than www are kept.
func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	if colon := strings.Index(host, ":"); colon != -1 {
		host = host[:colon]
	}
	return strings.TrimPrefix(host, "www.")
}

var credibilityTLDs = []struct {
	suffix string
	score  float64
}{
	{".gov", 0.9},
	{".edu", 0.85},
	{".ac.uk", 0.85},
}

var credibilityGroups = []struct {
	score   float64
	domains []string
}{
	{0.8, []string{"wikipedia.org", "britannica.com", "nature.com", "jstor.org", "archive.org", "smithsonianmag.com", "nationalgeographic.com"}},
	{0.7, []string{"bbc.com", "bbc.co.uk", "reuters.com", "apnews.com", "nytimes.com", "theguardian.com"}},
	{0.4, []string{"medium.com", "substack.com", "blogspot.com", "wordpress.com", "tumblr.com"}},
	{0.2, []string{"bit.ly", "t.co", "goo.gl", "tinyurl.com", "ow.ly"}},
}

const defaultCredibility = 0.6

// scoreCredibility rates a domain by reputation class. TLD rules win over
// domain groups; unknown domains get the middle default.
func scoreCredibility(domain string) float64 {
	domain = strings.ToLower(domain)
	for _, tld := range credibilityTLDs {
		if strings.HasSuffix(domain, tld.suffix) {
			return tld.score
		}
	}
	for _, group := range credibilityGroups {
		for _, known := range group.domains {
			if domainMatches(domain, known) {
				return group.score
			}
		}
	}
	return defaultCredibility
}

// domainMatches reports whether host is the pattern domain or one of its
// subdomains.
func domainMatches(host, pattern string) bool {
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}
