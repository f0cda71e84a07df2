package domain

import "encoding/json"

// Content part types understood by OpenAI-compatible chat endpoints.
const (
	PartText  = "text"
	PartImage = "image_url"
)

// ChatMessage is the provider-agnostic chat message shape sent to the language
// model. When Parts is non-empty the message is encoded with a multi-part
// content array, otherwise Content is sent as a plain string.
type ChatMessage struct {
	Role    string
	Content string
	Parts   []ContentPart
}

// ContentPart is one element of a multi-part user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`
}

// ImageRef points the model at an image with an optional detail hint.
type ImageRef struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: PartImage, ImageURL: &ImageRef{URL: url, Detail: detail}}
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	if len(m.Parts) > 0 {
		return json.Marshal(struct {
			Role    string        `json:"role"`
			Content []ContentPart `json:"content"`
		}{Role: m.Role, Content: m.Parts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: m.Role, Content: m.Content})
}
