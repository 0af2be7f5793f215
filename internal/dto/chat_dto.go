package dto

type ChatRequest struct {
	Message   string `json:"message"`
	SessionId string `json:"sessionId" validate:"omitempty,max=128"`
}

type ChatResponse struct {
	SessionId string `json:"sessionId"`
	Response  string `json:"response"`
	Mode      string `json:"mode"`
}

const StreamStatusStarted = "streaming_started"

// StreamAckResponse acknowledges a streaming turn before any token is produced
type StreamAckResponse struct {
	Status    string `json:"status"`
	SessionId string `json:"sessionId"`
	TurnId    string `json:"turnId"`
}

type HistoryMessageResponse struct {
	Role       string `json:"role"`
	Text       string `json:"text"`
	TokenCount int    `json:"tokenCount"`
}

type ChatHistoryResponse struct {
	SessionId  string                   `json:"sessionId"`
	TokenCount int                      `json:"tokenCount"`
	Messages   []HistoryMessageResponse `json:"messages"`
}
