package generation

// ChatRequest is the body of a streamGenerateContent call
type ChatRequest struct {
	SystemInstruction *SystemInstruction `json:"system_instruction,omitempty"`
	Contents          []Content          `json:"contents"`
}

// SystemInstruction steers the model for the whole request
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// Content is one conversation turn
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a text fragment of a turn
type Part struct {
	Text string `json:"text"`
}

// StreamChunk is one element of the streamed response array
type StreamChunk struct {
	Candidates   []Candidate `json:"candidates"`
	ModelVersion string      `json:"modelVersion,omitempty"`
	CreateTime   string      `json:"createTime,omitempty"`
	ResponseID   string      `json:"responseId,omitempty"`
	Error        *APIError   `json:"error,omitempty"`
}

// Candidate is a generated continuation
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// APIError is the error object the service may emit in place of a chunk
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Text returns the first part of the first candidate, if there is one
func (c *StreamChunk) Text() (string, bool) {
	if len(c.Candidates) == 0 || len(c.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return c.Candidates[0].Content.Parts[0].Text, true
}

// NewUserRequest builds a request with a system instruction and a single user turn
func NewUserRequest(instruction, prompt string) *ChatRequest {
	req := &ChatRequest{
		Contents: []Content{
			{
				Role:  "user",
				Parts: []Part{{Text: prompt}},
			},
		},
	}
	if instruction != "" {
		req.SystemInstruction = &SystemInstruction{
			Parts: []Part{{Text: instruction}},
		}
	}
	return req
}
