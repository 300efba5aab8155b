package gemini

// GenerateContentRequest is the body of a generateContent call.
type GenerateContentRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Content is one turn of a conversation. Parts are pointers so a null entry
// in a reply stays distinguishable from an empty part.
type Content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*Part `json:"parts"`
}

// Part is a text fragment of a Content.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig controls sampling on the provider side.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateContentResponse is the subset of the provider reply the relay reads.
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// DefaultGenerationConfig is applied to every prompt. Callers cannot change it.
var DefaultGenerationConfig = GenerationConfig{
	Temperature:     0.7,
	TopK:            1,
	TopP:            1,
	MaxOutputTokens: 256,
}

// NewTextRequest wraps a single prompt into a request with the default
// generation settings.
func NewTextRequest(prompt string) GenerateContentRequest {
	return GenerateContentRequest{
		Contents:         []Content{{Parts: []*Part{{Text: prompt}}}},
		GenerationConfig: DefaultGenerationConfig,
	}
}
