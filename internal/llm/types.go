package llm

// Message is a single chat message sent to a completion backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest carries the per-call knobs the engines use.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	JSONOutput  bool
}

// Progress reports bytes fetched while a model is being pulled.
type Progress struct {
	Status    string `json:"status"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
}
