package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/medicsearch/rcpgest/internal/chunker"
	"github.com/medicsearch/rcpgest/internal/doctree"
	"github.com/medicsearch/rcpgest/internal/metrics"
	"github.com/medicsearch/rcpgest/internal/parser"
	"github.com/medicsearch/rcpgest/internal/smpc"
	"github.com/medicsearch/rcpgest/internal/store"
	"github.com/medicsearch/rcpgest/internal/structure"
)

// Store is the persistence the worker writes to.
type Store interface {
	FindByHash(ctx context.Context, hash string) (*store.Summary, error)
	PutMedicine(ctx context.Context, m *smpc.Medicine, chunks []doctree.Chunk) error
}

var errNoContent = errors.New("no structured content")

// Worker processes a single document job.
type Worker struct {
	engine   *structure.Engine
	store    Store
	fetcher  *Fetcher
	log      *slog.Logger
	metrics  metrics.Recorder
	chunkCfg chunker.Config
	parseOpt parser.Options

	// OnStored runs after every successful store write.
	OnStored func()
}

func NewWorker(engine *structure.Engine, st Store, fetcher *Fetcher, log *slog.Logger, rec metrics.Recorder, chunkCfg chunker.Config, parseOpt parser.Options) *Worker {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Worker{
		engine:   engine,
		store:    st,
		fetcher:  fetcher,
		log:      log,
		metrics:  rec,
		chunkCfg: chunkCfg,
		parseOpt: parseOpt,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	defer func() { w.metrics.IncJobOutcome(string(job.Snapshot().Status)) }()

	// Phase 1: Fetch
	if job.URL != "" && len(job.FileData()) == 0 {
		job.SetStatus(StatusFetching, "fetching")
		fetched, err := w.fetcher.Fetch(ctx, job.URL)
		if err != nil {
			log.Error("fetch failed", "url", job.URL, "error", err)
			job.Fail("fetching", err)
			return
		}
		job.SetFileData(fetched.Data, fetched.ContentType)
		job.mu.Lock()
		job.Filename = fetched.Filename
		job.mu.Unlock()
		log.Info("fetched document", "url", job.URL, "bytes", len(fetched.Data))
	}

	data := job.FileData()
	job.mu.Lock()
	job.ContentHash = smpc.ContentHash(data)
	hash, filename, contentType, force := job.ContentHash, job.Filename, job.contentType, job.Force
	job.mu.Unlock()

	// Phase 1.5: Dedup check
	if !force {
		existing, err := w.store.FindByHash(ctx, hash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != nil {
			log.Info("duplicate document, skipping", "existing_medicine_id", existing.ID)
			job.SetMedicine(existing.ID, existing.Title)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(filename, w.parseOpt)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.Fail("parsing", err)
		return
	}
	if hp, ok := p.(*parser.HTMLParser); ok {
		hp.ContentType = contentType
	}
	src, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		w.metrics.ObserveStructure(parser.FormatOf(filename), metrics.OutcomeFailed, 0)
		job.Fail("parsing", err)
		return
	}

	// Phase 3: Structure
	job.SetStatus(StatusStructuring, "structuring")
	res := w.engine.Structure(src)
	w.metrics.ObserveStructure(src.Format, outcome(res), res.Duration)
	sections := res.Document.SectionCount()
	w.metrics.AddSections(sections)
	w.metrics.AddDuplicatesDropped(res.Stats.Duplicates)
	if sections == 0 {
		log.Warn("no sections produced", "windowed", res.Windowed)
		job.Fail("structuring", errNoContent)
		return
	}

	md := smpc.Metadata{Title: src.Title, UpdateDate: smpc.DateNotFound}
	if src.HTML != nil {
		md = smpc.ExtractMetadata(src.HTML)
	}
	job.mu.Lock()
	if job.Title != "" {
		md.Title = job.Title
	}
	job.mu.Unlock()

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	m := &smpc.Medicine{URL: job.URL, ContentHash: hash, Document: res.Document}
	m.Apply(md)
	chunks := chunker.ChunkDocument(res.Document, w.chunkCfg)
	if err := w.store.PutMedicine(ctx, m, chunks); err != nil {
		log.Error("store failed", "error", err)
		job.Fail("storing", err)
		return
	}
	if w.OnStored != nil {
		w.OnStored()
	}

	job.SetResult(sections, len(chunks), res.Stats.Duplicates, res.Windowed)
	job.SetMedicine(m.ID, m.Title)
	log.Info("stored medicine",
		"medicine_id", m.ID,
		"title", m.Title,
		"sections", sections,
		"chunks", len(chunks),
		"duplicates_dropped", res.Stats.Duplicates,
	)
	job.SetStatus(StatusCompleted, "done")
}

func outcome(res structure.Result) string {
	switch {
	case res.Windowed:
		return metrics.OutcomeWindowed
	case res.Document.SectionCount() > 0:
		return metrics.OutcomeWhole
	default:
		return metrics.OutcomeEmpty
	}
}
