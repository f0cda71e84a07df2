package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"nft-curator/internal/domain"
	"nft-curator/internal/extractor"
	"nft-curator/internal/integrations/brightdata"
)

const (
	maxProfilePosts    = 10
	maxWebsites        = 2
	maxWebQueries      = 3
	resultsPerWebQuery = 7

	noTwitterURL     = "No Twitter URL found in analysis"
	noProjectSites   = "No project websites found in analysis"
	noWebSearchQuery = "No web search queries found in analysis"
)

// Scraper is the scraping service consumed by the search step.
type Scraper interface {
	LookupProfile(ctx context.Context, profileURL string, maxPosts int) (json.RawMessage, error)
	FetchContent(ctx context.Context, pageURL string) (brightdata.Page, error)
	SearchWeb(ctx context.Context, query string, limit int) (brightdata.SERP, error)
}

// SearchStep gathers social and web context for an analysis. Lookups run
// sequentially and every outcome is recorded; the step itself never fails.
type SearchStep struct {
	scraper   Scraper
	webSearch bool
	logger    *slog.Logger
}

func NewSearchStep(scraper Scraper, webSearch bool, logger *slog.Logger) (*SearchStep, error) {
	if scraper == nil {
		return nil, errors.New("usecase: scraper must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchStep{scraper: scraper, webSearch: webSearch, logger: logger}, nil
}

func (s *SearchStep) Search(ctx context.Context, analysis domain.AnalysisResult) domain.SearchResults {
	return domain.SearchResults{
		TwitterData:    s.lookupTwitter(ctx, analysis.CategorizedLinks.ArtistSocial),
		WebsiteContent: s.fetchWebsites(ctx, analysis.CategorizedLinks.ProjectWebsites),
		GoogleSearches: s.searchWeb(ctx, analysis.SearchQueries.Web),
	}
}

func (s *SearchStep) lookupTwitter(ctx context.Context, social domain.StringList) *domain.ProfileLookup {
	var profileURL string
	for _, link := range social {
		if extractor.IsTwitterURL(link) {
			profileURL = link
			break
		}
	}
	if profileURL == "" {
		s.logger.Info("no twitter url in artist_social")
		return &domain.ProfileLookup{Success: false, Error: noTwitterURL}
	}

	data, err := s.scraper.LookupProfile(ctx, profileURL, maxProfilePosts)
	if err != nil {
		s.logger.Warn("twitter lookup failed", "url", profileURL, "error", err)
		return &domain.ProfileLookup{Success: false, Source: profileURL, Error: err.Error()}
	}
	return &domain.ProfileLookup{Success: true, Source: profileURL, Data: data}
}

func (s *SearchStep) fetchWebsites(ctx context.Context, sites domain.StringList) []domain.PageFetch {
	var targets []string
	for _, site := range sites {
		if site = strings.TrimSpace(site); site != "" {
			targets = append(targets, site)
		}
		if len(targets) == maxWebsites {
			break
		}
	}
	if len(targets) == 0 {
		return []domain.PageFetch{{Success: false, Error: noProjectSites}}
	}

	out := make([]domain.PageFetch, 0, len(targets))
	for _, site := range targets {
		page, err := s.scraper.FetchContent(ctx, site)
		if err != nil {
			s.logger.Warn("website fetch failed", "url", site, "error", err)
			out = append(out, domain.PageFetch{Success: false, Source: site, Error: err.Error()})
			continue
		}
		out = append(out, domain.PageFetch{Success: true, Source: site, Content: page.Content, Truncated: page.Truncated})
	}
	return out
}

func (s *SearchStep) searchWeb(ctx context.Context, queries domain.StringList) []domain.WebSearch {
	out := []domain.WebSearch{}
	if !s.webSearch {
		return out
	}
	if len(queries) == 0 {
		return append(out, domain.WebSearch{Success: false, Error: noWebSearchQuery})
	}
	if len(queries) > maxWebQueries {
		queries = queries[:maxWebQueries]
	}
	for _, q := range queries {
		serp, err := s.scraper.SearchWeb(ctx, q, resultsPerWebQuery)
		if err != nil {
			s.logger.Warn("web search failed", "query", q, "error", err)
			out = append(out, domain.WebSearch{Success: false, Query: q, Error: err.Error()})
			continue
		}
		out = append(out, domain.WebSearch{Success: true, Query: q, Results: serp.Results, TotalResults: serp.Total})
	}
	return out
}
