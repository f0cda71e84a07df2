package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"nft-curator/internal/domain"
)

const (
	// ReportApplication is stamped into the report metadata.
	ReportApplication = "stream-of-consciousness"

	visionSystemPrompt   = "You are an expert NFT analyst with vision capabilities. You can see and analyze the artwork image. Return ONLY valid JSON."
	textOnlySystemPrompt = "You are an expert NFT analyst. No image was provided. Return ONLY valid JSON."
	curatorSystemPrompt  = "You are a high art curator. Return ONLY raw JSON - no markdown blocks, no explanations. Start with { and end with }."

	noSearchResults = "No search results"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type linkHint struct {
	Category string
	URL      string
}

type analysisPromptData struct {
	DataDump string
	Links    []linkHint
	HasImage bool
	Gateway  string
}

type curationPromptData struct {
	Analysis      string
	SearchResults string
	AwakenedBy    string
	Report        string
}

type reportTemplateData struct {
	AwakeningContract string
	Application       string
	GeneratedAt       string
}

func buildAnalysisMessages(dataDump, imageURL, gateway string, links domain.CategorizedLinks) ([]domain.ChatMessage, error) {
	prompt, err := render("analysis.tmpl", analysisPromptData{
		DataDump: dataDump,
		Links:    linkHints(links),
		HasImage: imageURL != "",
		Gateway:  gateway,
	})
	if err != nil {
		return nil, err
	}
	if imageURL == "" {
		return []domain.ChatMessage{
			{Role: "system", Content: textOnlySystemPrompt},
			{Role: "user", Content: prompt},
		}, nil
	}
	return []domain.ChatMessage{
		{Role: "system", Content: visionSystemPrompt},
		{Role: "user", Parts: []domain.ContentPart{
			domain.TextPart(prompt),
			domain.ImagePart(imageURL, "high"),
		}},
	}, nil
}

func buildCurationPrompt(analysis domain.AnalysisResult, search *domain.SearchResults, awakenedBy, awakeningContract string, now time.Time) (string, error) {
	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("usecase: marshal analysis: %w", err)
	}
	searchText := noSearchResults
	if search != nil {
		b, err := json.MarshalIndent(search, "", "  ")
		if err != nil {
			return "", fmt.Errorf("usecase: marshal search results: %w", err)
		}
		searchText = string(b)
	}
	report, err := render("report.tmpl", reportTemplateData{
		AwakeningContract: awakeningContract,
		Application:       ReportApplication,
		GeneratedAt:       now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	return render("curation.tmpl", curationPromptData{
		Analysis:      string(analysisJSON),
		SearchResults: searchText,
		AwakenedBy:    awakenedBy,
		Report:        strings.TrimSpace(report),
	})
}

func linkHints(links domain.CategorizedLinks) []linkHint {
	var hints []linkHint
	add := func(category string, urls domain.StringList) {
		for _, u := range urls {
			hints = append(hints, linkHint{Category: category, URL: u})
		}
	}
	add("artist social", links.ArtistSocial)
	add("project", links.ProjectWebsites)
	add("marketplace", links.Marketplace)
	add("other", links.Other)
	return hints
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("usecase: render %s: %w", name, err)
	}
	return buf.String(), nil
}
