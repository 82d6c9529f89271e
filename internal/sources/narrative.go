package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"cicerone/pkg/clients"
)

const (
	defaultWikipediaURL  = "https://en.wikipedia.org"
	narrativeTimeout     = 5 * time.Second
	minExtractWords      = 50
	maxNarrativeFacts    = 12
	maxArticleBodyBytes  = 2 << 20
	articleFallbackWords = 50
)

// NarrativeConfig configures the narrative-text gatherer.
type NarrativeConfig struct {
	// APIURL is the wiki base URL (REST summary endpoint and article
	// pages hang off it). Defaults to English Wikipedia.
	APIURL    string
	UserAgent string
	Breaker   *clients.CircuitBreaker
}

// NarrativeSource fetches prose about the queried subject from a
// Wikipedia-style REST summary endpoint, falling back to extracting
// readable text from the full article page when the summary is missing
// or too thin to narrate from.
type NarrativeSource struct {
	apiURL    string
	userAgent string
	breaker   *clients.CircuitBreaker
	client    *http.Client
}

func NewNarrativeSource(cfg NarrativeConfig) *NarrativeSource {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultWikipediaURL
	}
	return &NarrativeSource{
		apiURL:    apiURL,
		userAgent: cfg.UserAgent,
		breaker:   cfg.Breaker,
		client:    newSourceClient(narrativeTimeout),
	}
}

func (g *NarrativeSource) ID() string { return SourceNarrative }

type wikiSummaryResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	Thumbnail   struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	OriginalImage struct {
		Source string `json:"source"`
	} `json:"originalimage"`
}

func (g *NarrativeSource) Fetch(ctx context.Context, query string) Result {
	start := time.Now()
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	if title == "" {
		return failed(SourceNarrative, start, "empty_query")
	}

	// One budget for the summary call and the optional article fetch.
	ctx, cancel := context.WithTimeout(ctx, narrativeTimeout)
	defer cancel()

	var page wikiSummaryResponse
	sumErr := fetchJSON(ctx, g.client, g.breaker, g.userAgent,
		g.apiURL+"/api/rest_v1/page/summary/"+url.PathEscape(title), &page)

	extract := strings.TrimSpace(page.Extract)
	if sumErr == nil && len(strings.Fields(extract)) >= minExtractWords {
		return g.build(start, page, extract)
	}

	// Summary missing or too thin. Pull the article page and extract
	// readable text; a fallback failure leaves the original outcome in
	// place.
	body, fbErr := g.fetchArticleText(ctx, title)
	if fbErr == nil && len(strings.Fields(body)) >= articleFallbackWords {
		merged := page
		if merged.Extract == "" {
			merged.Extract = firstSentences(body, 3)
		}
		result := g.build(start, merged, merged.Extract)
		result.Facts = narrativeFacts(body)
		result.Quality = narrativeQuality(result)
		return result
	}

	if sumErr != nil {
		return failed(SourceNarrative, start, failTag(sumErr))
	}
	if extract == "" {
		return failed(SourceNarrative, start, "empty_extract")
	}
	return g.build(start, page, extract)
}

func (g *NarrativeSource) build(start time.Time, page wikiSummaryResponse, extract string) Result {
	result := Result{
		SourceID:    SourceNarrative,
		Succeeded:   true,
		Summary:     extract,
		Description: strings.TrimSpace(page.Description),
		Facts:       narrativeFacts(extract),
		Elapsed:     time.Since(start),
	}
	if page.OriginalImage.Source != "" {
		result.Media = append(result.Media, page.OriginalImage.Source)
	}
	if page.Thumbnail.Source != "" && page.Thumbnail.Source != page.OriginalImage.Source {
		result.Media = append(result.Media, page.Thumbnail.Source)
	}
	result.Quality = narrativeQuality(result)
	return result
}

// fetchArticleText GETs the article HTML page and runs it through the
// readability extraction chain.
func (g *NarrativeSource) fetchArticleText(ctx context.Context, title string) (string, error) {
	pageURL := g.apiURL + "/wiki/" + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := doRequest(g.client, g.breaker, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &statusError{Code: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read article body: %w", err)
	}
	return extractArticleText(data, pageURL), nil
}

// extractArticleText tries go-readability first, converts the cleaned
// subtree to markdown, and falls back to a plain DOM text walk when
// readability produces too little.
func extractArticleText(data []byte, pageURL string) string {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err == nil && article.Node != nil {
		md, mdErr := htmltomarkdown.ConvertNode(article.Node)
		if mdErr == nil {
			text := markdownToPlain(string(md))
			if len(strings.Fields(text)) >= articleFallbackWords {
				return text
			}
		}
		var buf bytes.Buffer
		_ = article.RenderText(&buf)
		text := strings.TrimSpace(buf.String())
		if len(strings.Fields(text)) >= articleFallbackWords {
			return text
		}
	}

	node, parseErr := html.Parse(bytes.NewReader(data))
	if parseErr != nil {
		return ""
	}
	return walkParagraphText(node)
}

var (
	markdownLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s*`)
)

// markdownToPlain strips link targets and heading markers so sentence
// segmentation sees prose, not markup.
func markdownToPlain(md string) string {
	text := markdownLinkRe.ReplaceAllString(md, "$1")
	text = markdownHeadingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// walkParagraphText collects paragraph text, skipping chrome elements.
func walkParagraphText(node *html.Node) string {
	var builder strings.Builder
	var walker func(*html.Node)
	walker = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript", "nav", "footer", "header", "aside", "form", "template":
				return
			case "p", "li", "blockquote":
				builder.WriteString("\n\n")
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				builder.WriteString(text)
				builder.WriteString(" ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walker(child)
		}
	}
	walker(node)
	return strings.TrimSpace(builder.String())
}

// narrativeFacts segments prose into discrete factual sentences.
func narrativeFacts(text string) []string {
	var facts []string
	for _, sentence := range splitSentences(text) {
		if len(strings.Fields(sentence)) < 4 {
			continue
		}
		facts = append(facts, sentence)
		if len(facts) == maxNarrativeFacts {
			break
		}
	}
	return facts
}

// splitSentences breaks text on terminal punctuation followed by a
// capitalized continuation. Decimal numbers and tight abbreviations
// (no space after the period) survive intact.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 && j < len(runes) {
			continue
		}
		if j >= len(runes) || unicode.IsUpper(runes[j]) || unicode.IsDigit(runes[j]) {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
			i = j - 1
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// firstSentences returns up to n leading sentences as a single string.
func firstSentences(text string, n int) string {
	sentences := splitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, " ")
}

// narrativeQuality weights the summary heaviest; facts, description, and
// media round it out.
func narrativeQuality(r Result) float64 {
	var points int
	if r.Summary != "" {
		points += 50
	}
	factPoints := len(r.Facts) * 6
	if factPoints > 30 {
		factPoints = 30
	}
	points += factPoints
	if r.Description != "" {
		points += 10
	}
	if len(r.Media) > 0 {
		points += 10
	}
	return float64(points) / 100
}
