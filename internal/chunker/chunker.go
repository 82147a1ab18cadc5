package chunker

import (
	"strings"

	"github.com/medicsearch/rcpgest/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns defaults sized for product characteristics sections,
// which are often a single line.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    512,
		ChunkOverlap: 64,
		MinChunk:     1,
	}
}

// ChunkDocument walks a section forest and produces structure-aware chunks,
// one or more per section with content.
func ChunkDocument(doc doctree.Document, cfg Config) []doctree.Chunk {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = def.MinChunk
	}

	var chunks []doctree.Chunk
	index := 0
	doc.Walk(func(bc []string, s *doctree.Section) {
		blocks := sectionBlocks(s)
		if len(blocks) == 0 {
			return
		}
		text := strings.Join(blocks, blockSep)
		parts := []string{text}
		if EstimateTokens(text) > cfg.ChunkSize {
			parts = splitBlocks(blocks, cfg.ChunkSize, cfg.ChunkOverlap)
		}
		for _, part := range parts {
			if EstimateTokens(part) < cfg.MinChunk {
				continue
			}
			chunks = append(chunks, doctree.Chunk{
				Text:       part,
				Index:      index,
				Breadcrumb: append([]string(nil), bc...),
			})
			index++
		}
	})
	return chunks
}

const blockSep = "\n\n"

// SectionText renders a section's own content as plain text: paragraphs
// separated by blank lines, table rows as "a | b | c" lines.
func SectionText(s *doctree.Section) string {
	return strings.Join(sectionBlocks(s), blockSep)
}

func sectionBlocks(s *doctree.Section) []string {
	var blocks []string
	for _, item := range s.Content {
		var t string
		switch item.Kind {
		case doctree.KindText:
			t = strings.TrimSpace(item.Text)
		case doctree.KindTable:
			t = tableText(item.Table)
		}
		if t != "" {
			blocks = append(blocks, t)
		}
	}
	return blocks
}

func tableText(t *doctree.TableBlock) string {
	if t == nil {
		return ""
	}
	var lines []string
	if t.Caption != "" {
		lines = append(lines, t.Caption)
	}
	for _, row := range t.Rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

// splitBlocks packs content blocks into chunks of about size tokens.
// Oversized blocks are cut at sentence boundaries, or row boundaries for
// tables, before packing.
func splitBlocks(blocks []string, size, overlap int) []string {
	var out []string
	var run []string
	flush := func() {
		if len(run) > 0 {
			out = append(out, pack(run, blockSep, size, overlap)...)
			run = nil
		}
	}
	for _, b := range blocks {
		if EstimateTokens(b) <= size {
			run = append(run, b)
			continue
		}
		flush()
		if strings.Contains(b, "\n") {
			out = append(out, pack(strings.Split(b, "\n"), "\n", size, overlap)...)
		} else {
			out = append(out, pack(sentences(b), " ", size, overlap)...)
		}
	}
	flush()
	return out
}

// pack greedily joins pieces with sep while the running total stays under
// size tokens. Each new chunk is seeded with the tail of the previous one.
func pack(pieces []string, sep string, size, overlap int) []string {
	var out []string
	var cur []string
	tokens := 0
	for _, p := range pieces {
		n := EstimateTokens(p)
		if tokens > 0 && tokens+n > size {
			prev := strings.Join(cur, sep)
			out = append(out, prev)
			cur, tokens = nil, 0
			if tail := lastWords(prev, overlap); tail != "" {
				cur = append(cur, tail)
				tokens = EstimateTokens(tail)
			}
		}
		cur = append(cur, p)
		tokens += n
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, sep))
	}
	return out
}

// Abbreviations common in French product leaflets that end with a period
// without ending the sentence.
var abbreviations = map[string]bool{
	"cf.": true, "ex.": true, "env.": true, "p.": true,
	"M.": true, "Dr.": true, "Pr.": true,
}

// sentences splits on terminal punctuation followed by a space, keeping
// decimal numbers and common abbreviations intact.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' && c != ';' {
			continue
		}
		if text[i+1] != ' ' {
			continue
		}
		if c == '.' && isAbbreviation(text[start:i+1]) {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isAbbreviation(sentence string) bool {
	fields := strings.Fields(sentence)
	if len(fields) == 0 {
		return false
	}
	return abbreviations[fields[len(fields)-1]]
}

// lastWords returns the shortest run of trailing words worth at least n
// tokens, or "" when text is no longer than that.
func lastWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	tokens := 0
	for i := len(words) - 1; i > 0; i-- {
		tokens += wordTokens(words[i])
		if tokens >= n {
			return strings.Join(words[i:], " ")
		}
	}
	return ""
}
