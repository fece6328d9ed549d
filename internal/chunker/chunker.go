// Package chunker splits oversized memory text into ordered,
// overlapping chunks before ingestion, so a single large note is never
// dispatched as one oversized extraction request.
//
// The splitting cascade is paragraph boundaries, then sentence
// terminators, then a hard character split — each stage only engaged
// when the previous one still leaves a chunk too large. Grounded on
// original_source/mcp-server/text_chunker.py's chunk_text_semantic,
// with one correction: every chunk after the first is prefixed with
// exactly OverlapSize characters of the previous chunk, never more.
// The original measured overlap before appending the paragraph
// separator, so its actual overlap could run over the configured
// size; here the prefix length is fixed before the next chunk's own
// content is appended.
package chunker

import (
	"regexp"
	"strings"
)

var (
	paragraphSplit = regexp.MustCompile(`\n\n+`)
	sentenceSplit  = regexp.MustCompile(`(?:[.!?])\s+`)
)

// Chunk is one piece of a chunked ingestion call.
type Chunk struct {
	Text        string
	ChunkIndex  int
	TotalChunks int
	ChunkSize   int
	HasOverlap  bool
}

// Config carries the two size parameters spec.md §4.1's chunking
// contract exposes as configuration.
type Config struct {
	MaxChunkSize int
	OverlapSize  int
}

// Split implements the chunking contract. When text already fits
// within cfg.MaxChunkSize, it returns a single chunk with no overlap
// metadata attached — callers forward it as an unchunked request.
func Split(text string, cfg Config) []Chunk {
	if len(text) <= cfg.MaxChunkSize {
		return []Chunk{{Text: text, ChunkIndex: 0, TotalChunks: 1, ChunkSize: len(text)}}
	}

	pieces := splitByParagraphs(text, cfg.MaxChunkSize)
	pieces = splitOversized(pieces, cfg.MaxChunkSize, splitBySentences)
	pieces = splitOversized(pieces, cfg.MaxChunkSize, splitByChars)

	// ChunkSize reports the size-bounded piece the splitting cascade
	// produced, before the overlap prefix is mixed in below — the
	// invariant chunk_size <= MaxChunkSize is a property of the split,
	// not of the overlap context riding along with it.
	sizes := make([]int, len(pieces))
	for i, p := range pieces {
		sizes[i] = len(p)
	}

	overlapped := withOverlap(pieces, cfg.OverlapSize)

	total := len(overlapped)
	chunks := make([]Chunk, total)
	for i, p := range overlapped {
		chunks[i] = Chunk{
			Text:        p,
			ChunkIndex:  i,
			TotalChunks: total,
			ChunkSize:   sizes[i],
			HasOverlap:  i > 0 && cfg.OverlapSize > 0,
		}
	}
	return chunks
}

// splitByParagraphs greedily packs paragraphs (split on blank lines)
// into pieces no larger than maxSize, joined by a blank line.
func splitByParagraphs(text string, maxSize int) []string {
	paragraphs := paragraphSplit.Split(text, -1)

	var pieces []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len()+len(para)+2 > maxSize && current.Len() > 0 {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	if len(pieces) == 0 {
		return []string{text}
	}
	return pieces
}

// splitOversized re-splits any piece still exceeding maxSize using
// splitFn, leaving already-conforming pieces untouched.
func splitOversized(pieces []string, maxSize int, splitFn func(string, int) []string) []string {
	var out []string
	for _, p := range pieces {
		if len(p) <= maxSize {
			out = append(out, p)
			continue
		}
		out = append(out, splitFn(p, maxSize)...)
	}
	return out
}

// splitBySentences greedily packs sentences into pieces no larger than
// maxSize.
func splitBySentences(text string, maxSize int) []string {
	sentences := sentenceSplit.Split(text, -1)

	var pieces []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
		}
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current.Len()+len(sentence)+1 > maxSize && current.Len() > 0 {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	if len(pieces) == 0 {
		return splitByChars(text, maxSize)
	}
	return pieces
}

// splitByChars is the last-resort hard split for a single run of text
// with no sentence or paragraph boundary to break on.
func splitByChars(text string, maxSize int) []string {
	runes := []rune(text)
	var pieces []string
	for len(runes) > 0 {
		end := maxSize
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[:end]))
		runes = runes[end:]
	}
	return pieces
}

// withOverlap prefixes every piece after the first with exactly
// overlapSize characters of the previous (post-overlap) piece,
// satisfying the exactly-OverlapSize contract regardless of which
// splitting stage produced the piece.
func withOverlap(pieces []string, overlapSize int) []string {
	if overlapSize <= 0 || len(pieces) < 2 {
		return pieces
	}

	out := make([]string, len(pieces))
	out[0] = pieces[0]
	for i := 1; i < len(pieces); i++ {
		prev := []rune(out[i-1])
		start := len(prev) - overlapSize
		if start < 0 {
			start = 0
		}
		out[i] = string(prev[start:]) + pieces[i]
	}
	return out
}
