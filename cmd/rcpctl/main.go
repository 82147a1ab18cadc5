package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/medicsearch/rcpgest/internal/builder"
	"github.com/medicsearch/rcpgest/internal/chunker"
	"github.com/medicsearch/rcpgest/internal/config"
	"github.com/medicsearch/rcpgest/internal/parser"
	"github.com/medicsearch/rcpgest/internal/pipeline"
	"github.com/medicsearch/rcpgest/internal/render"
	"github.com/medicsearch/rcpgest/internal/smpc"
	"github.com/medicsearch/rcpgest/internal/store"
	"github.com/medicsearch/rcpgest/internal/structure"
)

var CLI struct {
	Verbose bool   `short:"v" help:"Enable verbose logging"`
	Profile string `help:"YAML structuring profile (vocabulary, markers, cutoff)" env:"PROFILE_FILE" type:"existingfile"`
	Cutoff  string `help:"Stop at the first heading numbered beyond this section, e.g. 6.6" env:"SECTION_CUTOFF"`

	Structure struct {
		File  string `arg:"" type:"existingfile" help:"Source document (html, pdf, docx, md, txt, csv)"`
		Start string `help:"Anchor name that opens the window (overrides the profile)"`
		Stop  string `help:"Anchor name that closes the window (overrides the profile)"`
		Whole bool   `help:"Structure the whole document, ignoring the start marker"`
	} `cmd:"" help:"Print the section tree of a document as JSON"`

	Render struct {
		File     string `arg:"" type:"existingfile" help:"Source document"`
		Markdown bool   `help:"Print Markdown instead of sanitized HTML"`
	} `cmd:"" help:"Structure a document and print it as HTML"`

	Ingest struct {
		URLs    []string      `arg:"" optional:"" name:"url" help:"Document URLs"`
		Links   string        `help:"Excel workbook with a 'liens' column of URLs" type:"existingfile"`
		DB      string        `help:"SQLite database path" env:"DB_PATH" default:"data/rcpgest.db"`
		Force   bool          `help:"Store documents even when identical bytes are already stored"`
		Timeout time.Duration `help:"Per-request fetch timeout" default:"30s"`
		Retries int           `help:"Fetch retries on transient failures" default:"3"`
	} `cmd:"" help:"Fetch, structure and store documents"`

	Search struct {
		Query      string `arg:"" help:"Full-text query"`
		DB         string `help:"SQLite database path" env:"DB_PATH" default:"data/rcpgest.db"`
		Substance  string `help:"Restrict to an active substance"`
		Forme      string `help:"Restrict to a pharmaceutical form"`
		Laboratory string `name:"laboratoire" help:"Restrict to a laboratory"`
		Limit      int    `default:"20" help:"Maximum results"`
	} `cmd:"" help:"Search stored documents"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("rcpctl"),
		kong.Description("Structure and search summaries of product characteristics."),
	)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	profile, err := config.Config{ProfileFile: CLI.Profile, SectionCutoff: CLI.Cutoff}.Profile()
	if err != nil {
		slog.Error("Invalid profile", "error", err)
		os.Exit(1)
	}
	if CLI.Cutoff != "" {
		if _, ok := builder.SectionNumber(CLI.Cutoff); !ok {
			slog.Error("Invalid cutoff", "cutoff", CLI.Cutoff)
			os.Exit(1)
		}
	}
	engine := structure.FromProfile(profile, logger)

	switch ctx.Command() {
	case "structure <file>":
		err = runStructure(os.Stdout, engine)
	case "render <file>":
		err = runRender(os.Stdout, engine)
	case "ingest", "ingest <url>":
		err = runIngest(engine, logger)
	case "search <query>":
		err = runSearch(os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

type structured struct {
	Title    string         `json:"title"`
	Format   string         `json:"format"`
	Metadata *smpc.Metadata `json:"metadata,omitempty"`
	structure.Result
}

func structureFile(path string, engine *structure.Engine) (structured, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return structured{}, err
	}
	p, err := parser.ForFile(path, parser.Options{PDFFallbackPdftotext: true})
	if err != nil {
		return structured{}, err
	}
	src, err := p.Parse(bytes.NewReader(data), path)
	if err != nil {
		return structured{}, fmt.Errorf("parse %s: %w", path, err)
	}
	out := structured{Title: src.Title, Format: src.Format, Result: engine.Structure(src)}
	if src.HTML != nil {
		md := smpc.ExtractMetadata(src.HTML)
		out.Metadata = &md
		out.Title = md.Title
	}
	if !out.Windowed {
		slog.Warn("Start marker not found", "file", path)
	}
	return out, nil
}

func runStructure(w io.Writer, engine *structure.Engine) error {
	e := *engine
	if CLI.Structure.Start != "" {
		e.Start = builder.Anchor(CLI.Structure.Start)
	}
	if CLI.Structure.Stop != "" {
		e.Stop = builder.Anchor(CLI.Structure.Stop)
	}
	if CLI.Structure.Whole {
		e.Start = nil
	}
	out, err := structureFile(CLI.Structure.File, &e)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runRender(w io.Writer, engine *structure.Engine) error {
	e := *engine
	e.FallbackWhole = true
	out, err := structureFile(CLI.Render.File, &e)
	if err != nil {
		return err
	}
	if CLI.Render.Markdown {
		_, err = io.WriteString(w, render.Markdown(out.Document))
		return err
	}
	body, err := render.HTML(out.Document)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, body)
	return err
}

func runIngest(engine *structure.Engine, log *slog.Logger) error {
	urls := CLI.Ingest.URLs
	if CLI.Ingest.Links != "" {
		f, err := os.Open(CLI.Ingest.Links)
		if err != nil {
			return err
		}
		links, err := pipeline.ReadLinks(f)
		f.Close()
		if err != nil {
			return err
		}
		urls = append(urls, links...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs: pass them as arguments or with --links")
	}

	st, err := store.Open(CLI.Ingest.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := *engine
	e.FallbackWhole = true
	fetcher := pipeline.NewFetcher(CLI.Ingest.Timeout, CLI.Ingest.Retries, log)
	w := pipeline.NewWorker(&e, st, fetcher, log, nil, chunker.DefaultConfig(), parser.Options{PDFFallbackPdftotext: true})

	counts := map[pipeline.JobStatus]int{}
	for i, u := range urls {
		if ctx.Err() != nil {
			break
		}
		job := pipeline.NewURLJob(u)
		job.Force = CLI.Ingest.Force
		w.Process(ctx, job)
		snap := job.Snapshot()
		counts[snap.Status]++
		log.Info("Processed", "n", i+1, "of", len(urls), "url", u, "status", snap.Status, "title", snap.Title)
	}
	log.Info("Ingest finished",
		"completed", counts[pipeline.StatusCompleted],
		"duplicates", counts[pipeline.StatusDupSkipped],
		"failed", counts[pipeline.StatusFailed],
	)
	if counts[pipeline.StatusFailed] > 0 && counts[pipeline.StatusCompleted] == 0 && counts[pipeline.StatusDupSkipped] == 0 {
		return fmt.Errorf("all %d documents failed", counts[pipeline.StatusFailed])
	}
	return ctx.Err()
}

func runSearch(w io.Writer) error {
	st, err := store.Open(CLI.Search.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Search(context.Background(), store.SearchOptions{
		Query:      CLI.Search.Query,
		Substance:  CLI.Search.Substance,
		Form:       CLI.Search.Forme,
		Laboratory: CLI.Search.Laboratory,
		Limit:      CLI.Search.Limit,
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEDICINE\tSECTION\tSNIPPET")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Title, r.Breadcrumb, r.Snippet)
	}
	return tw.Flush()
}
