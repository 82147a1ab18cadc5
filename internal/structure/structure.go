// Package structure turns an adapter's node stream into a section forest.
package structure

import (
	"io"
	"log/slog"
	"time"

	"github.com/medicsearch/rcpgest/internal/builder"
	"github.com/medicsearch/rcpgest/internal/doctree"
	"github.com/medicsearch/rcpgest/internal/element"
	"github.com/medicsearch/rcpgest/internal/parser"
	"github.com/medicsearch/rcpgest/internal/smpc"
)

// Engine classifies and structures sources. The zero value structures the
// whole stream with the default vocabulary. An Engine holds no per-document
// state and may be shared between goroutines.
type Engine struct {
	Classifier       element.Classifier
	Start            builder.Marker // nil: structure from the first element
	Stop             builder.Marker // nil: structure to the end
	UnsectionedTitle string
	Log              *slog.Logger

	// FallbackWhole structures the whole stream when Start never matches
	// instead of returning an empty document.
	FallbackWhole bool
}

// FromProfile returns an engine windowed by the profile markers.
func FromProfile(p smpc.Profile, log *slog.Logger) *Engine {
	return &Engine{
		Classifier:       p.Classifier(),
		Start:            p.Start(),
		Stop:             p.Stop(),
		UnsectionedTitle: p.UnsectionedTitle,
		Log:              log,
	}
}

// Result is the structured document and what the builder did to get there.
type Result struct {
	Document doctree.Document `json:"document"`
	Stats    builder.Stats    `json:"stats"`
	Windowed bool             `json:"windowed"` // false when the start marker was absent
	Duration time.Duration    `json:"-"`
}

// Structure runs classification and tree building over src.
func (e *Engine) Structure(src *parser.Source) Result {
	begin := time.Now()
	log := e.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	elements := e.Classifier.ClassifyAll(src.Nodes)
	opts := []builder.Option{builder.WithLogger(log), builder.WithUnsectionedTitle(e.UnsectionedTitle)}

	b := builder.New(opts...)
	windowed := b.FeedWindow(elements, e.Start, e.Stop)
	if !windowed && e.FallbackWhole {
		log.Info("start marker not found, structuring whole document", "title", src.Title, "format", src.Format)
		b = builder.New(opts...)
		b.FeedWindow(elements, nil, e.Stop)
	}

	res := Result{
		Document: b.Document(),
		Stats:    b.Stats(),
		Windowed: windowed,
		Duration: time.Since(begin),
	}
	log.Debug("structured document",
		"title", src.Title,
		"format", src.Format,
		"sections", res.Document.SectionCount(),
		"duplicates_dropped", res.Stats.Duplicates,
		"duration", res.Duration,
	)
	return res
}
