// Package scraper extracts intelligence articles from a news index page when
// no structured data provider is available. Selectors and keyword weights come
// from configuration, so a deployment can point it at a different index
// without code changes.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"intelpipeline/internal/config"
	"intelpipeline/internal/domain"
	"intelpipeline/internal/ports"
)

const (
	weightPriority     = 5
	weightJurisdiction = 3
	weightBase         = 1
)

// ErrCompaniesUnsupported marks FetchCompanies on a scrape-mode source; the
// index page carries no company records.
var ErrCompaniesUnsupported = errors.New("scraper source has no company feed")

// NewsScraper implements ports.IntelligenceSource by crawling one index page
// and scoring each extracted item against the configured keyword lists.
type NewsScraper struct {
	client  *http.Client
	cfg     config.ScrapeConfig
	rel     config.RelevanceConfig
	nowFunc func() time.Time
}

var _ ports.IntelligenceSource = (*NewsScraper)(nil)

// NewNewsScraper wires an HTTP client; a nil client gets a 20s-timeout default.
func NewNewsScraper(client *http.Client, cfg config.ScrapeConfig, rel config.RelevanceConfig) *NewsScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &NewsScraper{client: client, cfg: cfg, rel: rel, nowFunc: time.Now}
}

// FetchIntelligence crawls the configured index page and returns the scored
// articles, highest score first. Items below the configured minimum score are
// dropped before the dataset is assembled.
func (s *NewsScraper) FetchIntelligence(ctx context.Context) (domain.IntelligenceDataset, error) {
	if s.cfg.URL == "" {
		return domain.IntelligenceDataset{}, errors.New("scrape url is not configured")
	}

	doc, err := s.fetchDocument(ctx, s.cfg.URL)
	if err != nil {
		return domain.IntelligenceDataset{}, err
	}

	articles := s.extractArticles(doc)
	now := s.nowFunc().UTC()

	return domain.IntelligenceDataset{
		Articles: articles,
		Metadata: domain.DatasetMetadata{
			TotalArticles: len(articles),
			LastUpdated:   now.Format(time.RFC3339),
			DataSource:    s.cfg.URL,
		},
	}, nil
}

// FetchCompanies always fails; company records only exist in api mode.
func (s *NewsScraper) FetchCompanies(context.Context) (map[string]domain.Company, error) {
	return nil, ErrCompaniesUnsupported
}

func (s *NewsScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "intelpipeline/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request index page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	return doc, nil
}

func (s *NewsScraper) extractArticles(doc *goquery.Document) []domain.Article {
	var articles []domain.Article
	seen := map[string]struct{}{}

	doc.Find(s.cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(s.cfg.TitleSelector).First().Text())
		if title == "" {
			return
		}
		if _, ok := seen[title]; ok {
			return
		}
		seen[title] = struct{}{}

		href, _ := item.Find(s.cfg.LinkSelector).First().Attr("href")
		summary := strings.TrimSpace(item.Find(s.cfg.SummarySelector).First().Text())

		text := title + " " + summary
		score, jurisdiction := s.scoreText(text)
		if score < s.cfg.MinScore {
			return
		}

		article := domain.Article{
			Title:          title,
			Source:         s.cfg.URL,
			URL:            href,
			Published:      s.nowFunc().UTC().Format(time.RFC3339),
			Summary:        summary,
			Jurisdiction:   jurisdiction,
			RelevanceScore: relevanceFromScore(score),
		}
		article.Normalize()
		articles = append(articles, article)
	})

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].RelevanceScore > articles[j].RelevanceScore
	})
	return articles
}

// scoreText weighs keyword hits: priority keywords count most, jurisdiction
// keywords next and category keywords least. The jurisdiction of the first
// matching jurisdiction keyword labels the article.
func (s *NewsScraper) scoreText(text string) (int, string) {
	lower := strings.ToLower(text)
	score := 0
	jurisdiction := ""

	for _, kw := range s.rel.PriorityKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score += weightPriority
		}
	}
	for _, kw := range s.rel.JurisdictionKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score += weightJurisdiction
			if jurisdiction == "" {
				jurisdiction = kw
			}
		}
	}
	for _, kw := range s.rel.CategoryKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score += weightBase
		}
	}

	return score, jurisdiction
}

// relevanceFromScore maps a raw keyword score onto the 0-100 relevance scale.
func relevanceFromScore(score int) int {
	rel := score * 10
	if rel > 100 {
		rel = 100
	}
	return rel
}
