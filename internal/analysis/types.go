package analysis

// Endpoint identifies the interpretation service and model for one call.
// It is resolved per cycle from the settings store, never cached by the
// client, so settings changes apply to the next call.
type Endpoint struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Result is the structured interpretation of one frame.
type Result struct {
	CurrentFocus    string   `json:"current_focus"`
	ActiveSoftware  string   `json:"active_software"`
	ContextKeywords []string `json:"context_keywords"`
}

// chat/completions wire shapes. Content is a string for text-only messages
// and a part list for multimodal ones.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			// Pointer so an absent content field is distinguishable
			// from a present empty reply.
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
