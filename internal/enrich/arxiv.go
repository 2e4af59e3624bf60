package enrich

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/httpx"
)

const (
	arxivTimeout = 30 * time.Second

	// arxivHeader and arxivQueryLine drive the query-aware dedup on
	// the context block, so both must stay byte-stable.
	arxivHeader    = "**Recent Research Papers (arXiv)**"
	arxivQueryLine = "*Found %d recent papers relevant to: %s*"

	triggerThreshold = 0.4
)

// Graded trigger lexicon. The score has to clear triggerThreshold for
// a search to fire, so a single strong keyword is enough but weak ones
// have to pile up.
var (
	strongKeywords = []string{
		"arxiv", "preprint", "research paper", "academic paper", "peer review",
		"journal article", "publication", "study shows", "research shows",
		"empirical study", "systematic review", "meta-analysis", "literature review",
		"experimental results", "methodology", "hypothesis", "theoretical framework",
		"recent advances in", "state of the art", "cutting edge research",
		"breakthrough in", "scientific discovery", "research breakthrough",
	}
	mediumKeywords = []string{
		"algorithm", "machine learning", "deep learning", "neural network",
		"artificial intelligence", "computer vision", "natural language processing",
		"quantum computing", "cryptography", "blockchain research",
		"physics", "mathematics", "statistics", "computational",
		"optimization", "simulation", "modeling", "analysis",
		"theorem", "proof", "mathematical", "statistical",
	}
	weakKeywords = []string{
		"latest research", "recent developments", "new findings",
		"scientific", "academic", "technical advances",
		"innovations", "discoveries", "experiments",
	}

	// Exclusions short-circuit the trigger regardless of score.
	exclusions = []string{
		"how to", "tutorial", "guide", "best practices", "tips",
		"what is", "explain", "definition", "meaning",
		"stock market", "price", "news", "weather", "sports",
		"celebrity", "entertainment", "politics", "election",
		"restaurant", "recipe", "travel", "shopping",
		"today", "yesterday", "tomorrow", "current events",
	}
)

// categoryKeywords pick the arXiv archive to search first.
var categoryKeywords = map[string][]string{
	"cs": {"computer science", "algorithm", "programming", "software", "ai", "ml",
		"machine learning", "deep learning", "neural network", "nlp",
		"computer vision", "robotics", "data mining", "cybersecurity"},
	"math": {"mathematics", "mathematical", "theorem", "proof", "algebra",
		"calculus", "geometry", "topology", "number theory", "analysis"},
	"physics": {"physics", "quantum", "particle", "cosmology", "relativity",
		"thermodynamics", "mechanics", "optics", "condensed matter"},
	"stat": {"statistics", "statistical", "probability", "bayesian",
		"regression", "hypothesis testing", "data analysis"},
	"eess": {"signal processing", "image processing", "control systems",
		"electrical engineering", "communications"},
	"q-bio": {"biology", "bioinformatics", "genomics", "neuroscience",
		"molecular biology", "computational biology"},
	"q-fin": {"finance", "financial", "economics", "trading", "risk management",
		"quantitative finance", "portfolio optimization"},
}

// Arxiv fetches recent papers from the public arXiv export API.
type Arxiv struct {
	cfg     config.ArxivConfig
	http    *http.Client
	retry   httpx.RetryConfig
	limiter *rate.Limiter
}

// NewArxiv builds the adapter. The limiter keeps us inside arXiv's
// courtesy rate of roughly one request every three seconds.
func NewArxiv(cfg config.ArxivConfig) *Arxiv {
	return &Arxiv{
		cfg:     cfg,
		http:    &http.Client{Timeout: arxivTimeout},
		retry:   httpx.DefaultRetryConfig(),
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
}

// ShouldTrigger scores the prompt against the trigger lexicon. The
// returned query is the original prompt when the trigger fires.
func (a *Arxiv) ShouldTrigger(prompt string) (bool, string) {
	if !a.cfg.Enabled {
		return false, ""
	}
	lower := strings.ToLower(strings.TrimSpace(prompt))
	if lower == "" {
		return false, ""
	}

	for _, excl := range exclusions {
		if strings.Contains(lower, excl) {
			return false, ""
		}
	}

	score := 0.0
	for _, kw := range strongKeywords {
		if strings.Contains(lower, kw) {
			score += 0.4
		}
	}
	for _, kw := range mediumKeywords {
		if strings.Contains(lower, kw) {
			score += 0.25
		}
	}
	for _, kw := range weakKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}

	if score >= triggerThreshold {
		return true, prompt
	}
	return false, ""
}

// DetectCategory picks the best-matching arXiv archive, defaulting to
// computer science.
func DetectCategory(query string) string {
	lower := strings.ToLower(query)
	best, bestScore := "cs", 0
	for category, keywords := range categoryKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = category, score
		}
	}
	return best
}

// Atom feed shapes for the export API response.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

// Paper is one parsed search hit.
type Paper struct {
	Title      string
	Summary    string
	Authors    string
	Published  string
	URL        string
	Categories []string
}

// Search fetches recent papers for the query, preferring the detected
// category and falling back to a general search when it comes back
// empty.
func (a *Arxiv) Search(ctx context.Context, query string) Result {
	category := DetectCategory(query)

	papers, err := a.fetch(ctx, query, category)
	if err == nil && len(papers) == 0 && category != "" {
		papers, err = a.fetch(ctx, query, "")
	}
	if err != nil {
		return Result{Context: fmt.Sprintf("arXiv search failed: %v", err)}
	}

	if len(papers) == 0 {
		return Result{
			Context: arxivHeader + "\n\n" +
				fmt.Sprintf("*No papers found for query: %s*\n", query) +
				"*This may indicate the query is too specific or uses different terminology.*",
			Success: true,
		}
	}
	return Result{Context: renderPapers(papers, query), Success: true}
}

func (a *Arxiv) fetch(ctx context.Context, query, category string) ([]Paper, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search_query", buildSearchTerms(query, category))
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprint(a.cfg.MaxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	return httpx.RetryDo(ctx, a.retry, func() ([]Paper, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			a.cfg.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("arxiv: create request: %w", err)
		}

		resp, err := a.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("arxiv: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &httpx.HTTPError{
				Status:     resp.StatusCode,
				Body:       fmt.Sprintf("arxiv: %s", string(respBody)),
				RetryAfter: httpx.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		var feed atomFeed
		if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
			return nil, fmt.Errorf("arxiv: parse feed: %w", err)
		}
		return parseEntries(feed.Entries), nil
	})
}

// buildSearchTerms ORs up to five content words, optionally scoped to
// a category archive.
func buildSearchTerms(query, category string) string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) <= 2 {
			continue
		}
		if _, skip := stopWords[word]; skip {
			continue
		}
		terms = append(terms, word)
		if len(terms) == 5 {
			break
		}
	}
	joined := strings.Join(terms, " OR ")
	if category != "" {
		return fmt.Sprintf("cat:%s AND (%s)", category, joined)
	}
	return joined
}

func parseEntries(entries []atomEntry) []Paper {
	papers := make([]Paper, 0, len(entries))
	for _, e := range entries {
		title := strings.ReplaceAll(strings.TrimSpace(e.Title), "\n", " ")
		if title == "" {
			title = "No title"
		}

		summary := strings.ReplaceAll(strings.TrimSpace(e.Summary), "\n", " ")
		if len(summary) > 300 {
			summary = summary[:300] + "..."
		}

		published := e.Published
		if len(published) > 10 {
			published = published[:10]
		}

		names := make([]string, 0, len(e.Authors))
		for _, au := range e.Authors {
			names = append(names, au.Name)
		}
		authors := strings.Join(firstN(names, 3), ", ")
		if len(names) > 3 {
			authors += " et al."
		}

		var categories []string
		for _, c := range e.Categories {
			if c.Term != "" {
				categories = append(categories, c.Term)
			}
		}
		categories = firstN(categories, 3)

		papers = append(papers, Paper{
			Title:      title,
			Summary:    summary,
			Authors:    authors,
			Published:  published,
			URL:        e.ID,
			Categories: categories,
		})
	}
	return papers
}

func firstN(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}

func renderPapers(papers []Paper, query string) string {
	parts := []string{
		arxivHeader,
		"",
		fmt.Sprintf(arxivQueryLine, len(papers), query),
		"",
	}
	for i, p := range papers {
		parts = append(parts,
			fmt.Sprintf("**%d. %s**", i+1, p.Title),
			"   Authors: "+p.Authors,
			"   Published: "+p.Published,
			"   Categories: "+strings.Join(p.Categories, ", "),
			"   Summary: "+p.Summary,
			"   URL: "+p.URL,
			"",
		)
	}
	return Sanitize(strings.Join(parts, "\n"))
}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(` {2,}`)
)

// sanitizeReplacer normalizes smart punctuation that has tripped the
// platform's block API in the past.
var sanitizeReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"–", "-", "—", "-",
	"…", "...",
	"\u00a0", " ",
	"\u2028", "\n", "\u2029", "\n\n",
)

// Sanitize strips control characters and normalizes punctuation and
// whitespace before the text is written to a memory block.
func Sanitize(content string) string {
	cleaned := sanitizeReplacer.Replace(content)

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	cleaned = b.String()

	cleaned = multiNewline.ReplaceAllString(cleaned, "\n\n")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
