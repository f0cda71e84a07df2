// Package extractor finds the artwork image and the links inside a raw NFT
// data dump before it is handed to the model.
package extractor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"nft-curator/internal/domain"
)

// DefaultIPFSGateway is the HTTP base substituted for the ipfs:// scheme.
const DefaultIPFSGateway = "https://ipfs.io/ipfs/"

const ipfsScheme = "ipfs://"

var (
	imageFields     = []string{"image", "image_url", "imageUrl", "image_original_url", "display_image_url"}
	animationFields = []string{"animation_url", "animationUrl"}
	tokenURIFields  = []string{"tokenURI", "token_uri", "tokenuri", "tokenUri"}

	imageURLPattern = regexp.MustCompile(`(?i)https?://[^\s<>"]+?\.(?:jpg|jpeg|png|gif|webp|svg)`)
)

// Extraction is the deterministic view of a data dump.
type Extraction struct {
	ImageURL string
	Links    domain.CategorizedLinks
}

// HasImage reports whether an image URL was found.
func (e Extraction) HasImage() bool {
	return e.ImageURL != ""
}

type Extractor struct {
	gateway string
}

// New creates an Extractor rewriting ipfs:// URLs onto gateway. An empty
// gateway selects DefaultIPFSGateway.
func New(gateway string) *Extractor {
	gateway = strings.TrimSpace(gateway)
	if gateway == "" {
		gateway = DefaultIPFSGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Extractor{gateway: gateway}
}

// Extract locates the image URL and categorises every link in raw.
func (e *Extractor) Extract(raw string) Extraction {
	return Extraction{
		ImageURL: e.ImageURL(raw),
		Links:    CategorizeLinks(raw),
	}
}

// ImageURL returns the first image candidate in raw, or "" when none exists.
// JSON input is searched field by field; anything else is scanned for an
// image-file URL.
func (e *Extractor) ImageURL(raw string) string {
	var found string
	data, isJSON := decodeJSON(raw)
	if isJSON {
		if obj, ok := data.(map[string]any); ok {
			found = imageFromObject(obj)
		}
	} else if m := imageURLPattern.FindString(raw); m != "" {
		found = m
	}
	return e.rewriteIPFS(found)
}

func (e *Extractor) rewriteIPFS(u string) string {
	if strings.HasPrefix(u, ipfsScheme) {
		return e.gateway + strings.TrimPrefix(u, ipfsScheme)
	}
	return u
}

func imageFromObject(obj map[string]any) string {
	if v := firstString(obj, imageFields); v != "" {
		return v
	}
	if metadata, ok := obj["metadata"].(map[string]any); ok {
		if v := firstString(metadata, imageFields); v != "" {
			return v
		}
	}
	if token, ok := obj["token"].(map[string]any); ok {
		if v := firstString(token, imageFields); v != "" {
			return v
		}
	}
	if v := firstString(obj, animationFields); v != "" {
		return v
	}
	if v := imageFromDataURI(firstString(obj, tokenURIFields)); v != "" {
		return v
	}
	if token, ok := obj["token"].(map[string]any); ok {
		return imageFromDataURI(firstString(token, tokenURIFields))
	}
	return ""
}

// imageFromDataURI decodes an inline base64 JSON token URI and returns its
// image field.
func imageFromDataURI(uri string) string {
	const prefix = "data:application/json"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return ""
	}
	var body []byte
	if strings.HasSuffix(header, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return ""
		}
		body = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return ""
		}
		body = []byte(unescaped)
	}
	var meta map[string]any
	if err := json.Unmarshal(body, &meta); err != nil {
		return ""
	}
	return firstString(meta, []string{"image", "image_url"})
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func decodeJSON(raw string) (any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewBufferString(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return v, true
}
