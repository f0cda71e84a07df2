package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// AnalysisResult is the structured output of the analysis step. Decoding never
// fails on a field of the wrong shape, and keys outside the known layout are
// kept in Extra and written back on encode.
type AnalysisResult struct {
	Error            Text
	ExtractedInfo    ExtractedInfo
	ImageAnalysis    ImageAnalysis
	CategorizedLinks CategorizedLinks
	SearchQueries    SearchQueries
	KeyThemes        StringList
	FocusAreas       StringList
	DataQualityNotes Text

	Extra map[string]json.RawMessage
}

func (a *AnalysisResult) fields() []field {
	fields := make([]field, 0, 8)
	if a.Error.IsSet() {
		fields = append(fields, field{"error", &a.Error})
	}
	return append(fields,
		field{"extracted_info", &a.ExtractedInfo},
		field{"image_analysis", &a.ImageAnalysis},
		field{"categorized_links", &a.CategorizedLinks},
		field{"search_queries", &a.SearchQueries},
		field{"key_themes", &a.KeyThemes},
		field{"focus_areas", &a.FocusAreas},
		field{"data_quality_notes", &a.DataQualityNotes},
	)
}

func (a AnalysisResult) MarshalJSON() ([]byte, error) {
	return encodeFields(a.fields(), a.Extra)
}

// UnmarshalJSON rejects only a value that is not an object.
func (a *AnalysisResult) UnmarshalJSON(data []byte) error {
	*a = AnalysisResult{}
	fields := a.fields()
	fields = append(fields, field{"error", &a.Error})
	extra, err := decodeFields(data, fields)
	if err != nil {
		return err
	}
	a.Extra = extra
	return nil
}

// ExtractedInfo holds the identifying fields of the token. Each field may be
// unset or carry the "Unknown" placeholder.
type ExtractedInfo struct {
	Name         Text
	Collection   Text
	Contract     Text
	TokenID      Text
	Minter       Text
	CurrentOwner Text
	Chain        Text
	TokenURI     Text

	Extra map[string]json.RawMessage
}

func (e *ExtractedInfo) fields() []field {
	return []field{
		{"name", &e.Name},
		{"collection", &e.Collection},
		{"contract", &e.Contract},
		{"token_id", &e.TokenID},
		{"minter", &e.Minter},
		{"current_owner", &e.CurrentOwner},
		{"chain", &e.Chain},
		{"tokenuri", &e.TokenURI},
	}
}

func (e ExtractedInfo) MarshalJSON() ([]byte, error) {
	return encodeFields(e.fields(), e.Extra)
}

func (e *ExtractedInfo) UnmarshalJSON(data []byte) error {
	*e = ExtractedInfo{}
	e.Extra, _ = decodeFields(data, e.fields())
	return nil
}

type ImageAnalysis struct {
	ImageURL           Text
	NeedsMetadataFetch Flag
	VisualDescription  Text

	Extra map[string]json.RawMessage
}

func (i *ImageAnalysis) fields() []field {
	return []field{
		{"image_url", &i.ImageURL},
		{"needs_metadata_fetch", &i.NeedsMetadataFetch},
		{"visual_description", &i.VisualDescription},
	}
}

func (i ImageAnalysis) MarshalJSON() ([]byte, error) {
	return encodeFields(i.fields(), i.Extra)
}

func (i *ImageAnalysis) UnmarshalJSON(data []byte) error {
	*i = ImageAnalysis{}
	i.Extra, _ = decodeFields(data, i.fields())
	return nil
}

type CategorizedLinks struct {
	ArtistSocial    StringList
	ProjectWebsites StringList
	Marketplace     StringList
	Other           StringList

	Extra map[string]json.RawMessage
}

func (c *CategorizedLinks) fields() []field {
	return []field{
		{"artist_social", &c.ArtistSocial},
		{"project_websites", &c.ProjectWebsites},
		{"marketplace", &c.Marketplace},
		{"other", &c.Other},
	}
}

func (c CategorizedLinks) MarshalJSON() ([]byte, error) {
	return encodeFields(c.fields(), c.Extra)
}

// UnmarshalJSON files a flat list of links under Other.
func (c *CategorizedLinks) UnmarshalJSON(data []byte) error {
	*c = CategorizedLinks{}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return c.Other.UnmarshalJSON(trimmed)
	}
	c.Extra, _ = decodeFields(data, c.fields())
	return nil
}

type SearchQueries struct {
	Twitter StringList
	Web     StringList

	Extra map[string]json.RawMessage
}

func (s *SearchQueries) fields() []field {
	return []field{
		{"twitter", &s.Twitter},
		{"web", &s.Web},
	}
}

func (s SearchQueries) MarshalJSON() ([]byte, error) {
	return encodeFields(s.fields(), s.Extra)
}

func (s *SearchQueries) UnmarshalJSON(data []byte) error {
	*s = SearchQueries{}
	s.Extra, _ = decodeFields(data, s.fields())
	return nil
}

// Failed reports whether the result is the error sentinel.
func (a AnalysisResult) Failed() bool {
	return a.Error.IsSet() && strings.TrimSpace(a.Error.String()) != ""
}

// FailedAnalysis builds the error sentinel: the error is recorded and every
// other field holds its empty default.
func FailedAnalysis(reason string) AnalysisResult {
	return AnalysisResult{
		Error: NewText(reason),
		ImageAnalysis: ImageAnalysis{
			VisualDescription: NewText("Analysis failed"),
		},
		CategorizedLinks: CategorizedLinks{
			ArtistSocial:    StringList{},
			ProjectWebsites: StringList{},
			Marketplace:     StringList{},
			Other:           StringList{},
		},
		SearchQueries:    SearchQueries{Twitter: StringList{}, Web: StringList{}},
		KeyThemes:        StringList{},
		FocusAreas:       StringList{},
		DataQualityNotes: NewText("Error: " + reason),
	}
}
