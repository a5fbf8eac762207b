// Package protocol holds the method names and payloads exchanged between the
// host and the engine process.
package protocol

import (
	"time"

	"github.com/dev-razz/Typerra/internal/normalize"
)

const (
	MethodPing                = "ping"
	MethodStatus              = "status"
	MethodWarmup              = "warmup"
	MethodEnsure              = "ensure"
	MethodDispose             = "dispose"
	MethodDisposeNonCorrector = "disposeNonCorrector"
	MethodWrite               = "write"
	MethodRewrite             = "rewrite"
	MethodProofread           = "proofread"

	// NotifyModelProgress is pushed by the engine while a model downloads.
	NotifyModelProgress = "model.progress"
)

type PingParams struct {
	Visible bool `json:"visible"`
}

type EnsureParams struct {
	Model string `json:"model"`
}

type WriteParams struct {
	Prompt string `json:"prompt"`
	Tone   string `json:"tone,omitempty"`
	Length string `json:"length,omitempty"`
}

type RewriteParams struct {
	Text    string `json:"text"`
	Tone    string `json:"tone,omitempty"`
	Length  string `json:"length,omitempty"`
	Context string `json:"context,omitempty"`
}

type ProofreadParams struct {
	Text string `json:"text"`
}

type OKResult struct {
	OK    bool   `json:"ok"`
	Model string `json:"model,omitempty"`
}

type TextResult struct {
	Text string `json:"text"`
}

type ProofreadResult = normalize.Payload

type StatusResult struct {
	Loaded         []string  `json:"loaded"`
	State          string    `json:"state"`
	LastActivityAt time.Time `json:"last_activity_at"`
	LastPingAt     time.Time `json:"last_ping_at"`
	Visible        bool      `json:"visible"`
}

type ProgressParams struct {
	Model     string `json:"model"`
	Status    string `json:"status,omitempty"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
}
