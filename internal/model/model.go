// Package model defines the engine kinds owned by the engine process, the
// backend contract that creates them, and the option enumerations accepted
// on the wire.
package model

import (
	"context"
	"strings"
)

type Kind string

const (
	KindCorrector Kind = "corrector"
	KindRewriter  Kind = "rewriter"
	KindGenerator Kind = "generator"
)

// Kinds lists every engine kind in disposal order.
func Kinds() []Kind {
	return []Kind{KindCorrector, KindRewriter, KindGenerator}
}

func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindCorrector:
		return KindCorrector, true
	case KindRewriter:
		return KindRewriter, true
	case KindGenerator:
		return KindGenerator, true
	default:
		return "", false
	}
}

// Availability is the outcome of a backend's probe for one engine kind.
type Availability string

const (
	Available    Availability = "available"
	Downloadable Availability = "downloadable"
	Unavailable  Availability = "unavailable"
)

// ProgressFunc receives model download progress while a downloadable engine
// is being instantiated.
type ProgressFunc func(kind Kind, completed, total int64)

// Options are fixed at creation time. The registry caches one engine per
// kind regardless of options, so they act as defaults for later calls.
type Options struct {
	Languages     []string
	Tone          string
	Length        string
	SharedContext string
	Progress      ProgressFunc
}

type Engine interface {
	Kind() Kind
	ID() string
	// Destroy releases the engine and cancels its in-flight calls.
	Destroy() error
}

// Corrector returns the backend's raw correction result. Its shape is not
// fixed; the normalizer reconciles it.
type Corrector interface {
	Engine
	Proofread(ctx context.Context, text string) (any, error)
}

type RewriteOptions struct {
	Tone    string
	Length  string
	Context string
}

type Rewriter interface {
	Engine
	Rewrite(ctx context.Context, text string, opts RewriteOptions) (string, error)
}

type WriteOptions struct {
	Tone    string
	Length  string
	Context string
}

type Generator interface {
	Engine
	Write(ctx context.Context, prompt string, opts WriteOptions) (string, error)
}

// Backend creates engines. Availability must be cheap compared to Create,
// which may block for a long time on a downloadable model.
type Backend interface {
	Availability(ctx context.Context, kind Kind, opts Options) (Availability, error)
	Create(ctx context.Context, kind Kind, opts Options) (Engine, error)
}
