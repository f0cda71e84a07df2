package domain

import "encoding/json"

// CurationReport is the eight-card narrative report produced by the curation
// step. Its shape is a template handed to the model; decoding is lenient and
// the stored form is always the model's own JSON.
type CurationReport struct {
	OnChain    OnChainCard    `json:"card_1_onchain"`
	ArtVisuals ArtVisualsCard `json:"card_2_art_visuals"`
	Transfers  TransfersCard  `json:"card_3_transfer_history"`
	Artist     ArtistCard     `json:"card_4_about_artist"`
	Exhibits   ExhibitsCard   `json:"card_5_irl_exhibits"`
	Discourse  DiscourseCard  `json:"card_6_social_discourse"`
	Subversion SubversionCard `json:"card_7_subversion_culture"`
	Notes      CurationNotes  `json:"card_8_curation_notes"`
	Metadata   ReportMetadata `json:"metadata"`

	// Missing names the sections that were absent or not objects, in card
	// order. It is set by DecodeReport.
	Missing []string `json:"-"`
}

type OnChainCard struct {
	Preview struct {
		MintedBy   Text `json:"minted_by"`
		Contract   Text `json:"contract"`
		ChainID    Text `json:"chain_id"`
		TokenID    Text `json:"token_id"`
		AwakenedBy Text `json:"awakened_by"`
	} `json:"preview"`
	Extended struct {
		AwakeningContract Text       `json:"awakening_contract"`
		ChainName         Text       `json:"chain_name"`
		BlockNumber       Text       `json:"block_number"`
		MintDate          Text       `json:"mint_date"`
		Links             ChainLinks `json:"links"`
	} `json:"extended"`
}

type ChainLinks struct {
	EtherscanMinter   Text `json:"etherscan_minter"`
	EtherscanTx       Text `json:"etherscan_tx"`
	EtherscanContract Text `json:"etherscan_contract"`
	EtherscanToken    Text `json:"etherscan_token"`
}

type ArtVisualsCard struct {
	Preview struct {
		Name    Text `json:"name"`
		Summary Text `json:"summary"`
	} `json:"preview"`
	Extended struct {
		StyleAnalysis     Text `json:"style_analysis"`
		InterestingDetail Text `json:"interesting_detail"`
		VisualElements    struct {
			ColorPalette Text `json:"color_palette"`
			Composition  Text `json:"composition"`
			Technique    Text `json:"technique"`
		} `json:"visual_elements"`
	} `json:"extended"`
}

type TransfersCard struct {
	Preview struct {
		CurrentOwner Text `json:"current_owner"`
		Summary      Text `json:"summary"`
	} `json:"preview"`
	Extended struct {
		DetailedAnalysis      Text            `json:"detailed_analysis"`
		MarketplaceAssessment Text            `json:"marketplace_assessment"`
		MarketClassification  Text            `json:"market_classification"`
		LatestTransferEvents  []TransferEvent `json:"latest_transfer_events"`
	} `json:"extended"`
}

type TransferEvent struct {
	Date     Text `json:"date"`
	From     Text `json:"from"`
	To       Text `json:"to"`
	PriceETH Text `json:"price_eth"`
	Source   Text `json:"source"`
}

type ArtistCard struct {
	Preview struct {
		ArtistName     Text `json:"artist_name"`
		MinterAddress  Text `json:"minter_address"`
		CollectionNote Text `json:"collection_note"`
		KeyHighlights  Text `json:"key_highlights"`
	} `json:"preview"`
	Extended struct {
		WorldviewAnalysis Text `json:"worldview_analysis"`
		CurrentWork       Text `json:"current_work"`
		SocialLinks       struct {
			Twitter            Text       `json:"twitter"`
			Website            Text       `json:"website"`
			Instagram          Text       `json:"instagram"`
			OtherRelevantLinks StringList `json:"other_relevant_links"`
		} `json:"social_links"`
		NotableAchievements Text `json:"notable_achievements"`
	} `json:"extended"`
}

type ExhibitsCard struct {
	Preview struct {
		Summary Text `json:"summary"`
	} `json:"preview"`
	Extended struct {
		ExhibitionHistory  Text            `json:"exhibition_history"`
		GallerySuitability Text            `json:"gallery_suitability"`
		Sources            []ExhibitSource `json:"sources"`
		Recommendation     Text            `json:"recommendation"`
	} `json:"extended"`
}

type ExhibitSource struct {
	Type  Text `json:"type"`
	Title Text `json:"title"`
	URL   Text `json:"url"`
	Date  Text `json:"date"`
}

type DiscourseCard struct {
	Preview struct {
		FeaturedQuote Quote `json:"featured_quote"`
	} `json:"preview"`
	Extended struct {
		AdditionalQuotes  []Quote    `json:"additional_quotes"`
		DiscourseThemes   StringList `json:"discourse_themes"`
		SentimentAnalysis Text       `json:"sentiment_analysis"`
	} `json:"extended"`
}

type Quote struct {
	Text    Text `json:"text"`
	Author  Text `json:"author"`
	Date    Text `json:"date"`
	URL     Text `json:"url"`
	Context Text `json:"context,omitempty"`
}

type SubversionCard struct {
	Preview struct {
		Summary Text `json:"summary"`
	} `json:"preview"`
	Extended struct {
		ComprehensiveAnalysis Text       `json:"comprehensive_analysis"`
		DeeperInsights        Text       `json:"deeper_insights"`
		CuratorPerspective    Text       `json:"curator_perspective"`
		ImportantCitations    StringList `json:"important_citations"`
	} `json:"extended"`
}

type CurationNotes struct {
	SourcesUsed struct {
		HighTrust   StringList `json:"high_trust"`
		MediumTrust StringList `json:"medium_trust"`
	} `json:"sources_used"`
	CuratorialVoice Text `json:"curatorial_voice"`
	TrustHierarchy  Text `json:"trust_hierarchy"`
	AnalysisDepth   Text `json:"analysis_depth"`
}

type ReportMetadata struct {
	Version           Text `json:"version"`
	Application       Text `json:"application"`
	AwakeningContract Text `json:"awakening_contract"`
	GeneratedAt       Text `json:"generated_at"`
	NFTContract       Text `json:"nft_contract"`
	TokenID           Text `json:"token_id"`
	ChainID           Text `json:"chain_id"`
}

// DecodeReport maps recovered JSON onto the report structure. Objects that do
// not match the template leave the corresponding card empty and are listed in
// Missing.
func DecodeReport(raw json.RawMessage) CurationReport {
	var sections map[string]json.RawMessage
	var report CurationReport
	_ = json.Unmarshal(raw, &sections)
	targets := []field{
		{"card_1_onchain", &report.OnChain},
		{"card_2_art_visuals", &report.ArtVisuals},
		{"card_3_transfer_history", &report.Transfers},
		{"card_4_about_artist", &report.Artist},
		{"card_5_irl_exhibits", &report.Exhibits},
		{"card_6_social_discourse", &report.Discourse},
		{"card_7_subversion_culture", &report.Subversion},
		{"card_8_curation_notes", &report.Notes},
		{"metadata", &report.Metadata},
	}
	for _, t := range targets {
		section, ok := sections[t.key]
		if !ok || json.Unmarshal(section, t.ptr) != nil {
			report.Missing = append(report.Missing, t.key)
		}
	}
	return report
}

// Complete reports whether every card and the metadata decoded.
func (r CurationReport) Complete() bool {
	return len(r.Missing) == 0
}
