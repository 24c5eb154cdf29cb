// Package chunker splits source documents into bounded, overlapping,
// sentence-aware segments and assigns each segment its deterministic
// content-addressed identifier.
//
// Splitting is sentence-boundary-aware rather than fixed-width: sentences
// are packed into a chunk until the size budget is reached, and the overlap
// between consecutive chunks is taken as whole trailing sentences within
// the overlap budget. A single sentence longer than the chunk size is
// hard-split as a fallback.
package chunker

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// DefaultChunkSize is the default maximum chunk length in bytes.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap budget in bytes.
const DefaultChunkOverlap = 200

// Chunker splits document text into chunks. It is a pure transformation:
// configuration is explicit and no state is carried between documents.
type Chunker struct {
	chunkSize int
	overlap   int
	now       func() time.Time
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap budget between consecutive chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithClock overrides the timestamp source. Testing hook.
func WithClock(now func() time.Time) Option {
	return func(c *Chunker) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for forward progress
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Chunk splits a document into chunks with namespace, category and position
// metadata attached. Empty or whitespace-only documents are rejected with
// domain.ErrEmptyDocument so callers can count and report them instead of
// silently indexing nothing.
func (c *Chunker) Chunk(doc domain.SourceDocument) ([]domain.Chunk, error) {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", doc.SourceKey, domain.ErrEmptyDocument)
	}

	segments := c.split(text)
	ingestedAt := c.now()

	chunks := make([]domain.Chunk, len(segments))
	for i, segment := range segments {
		chunks[i] = domain.Chunk{
			ID:              DeriveChunkID(doc.SourceKey, doc.Namespace, doc.ContentCategory, i),
			SourceKey:       doc.SourceKey,
			DocTitle:        doc.Title,
			SourceURL:       doc.SourceURL,
			Namespace:       doc.Namespace,
			ContentCategory: doc.ContentCategory,
			SeqIndex:        i,
			TotalInDoc:      len(segments),
			Text:            segment,
			IngestedAt:      ingestedAt,
		}
	}

	return chunks, nil
}

// split packs sentences into bounded segments with sentence-level overlap.
func (c *Chunker) split(text string) []string {
	sentences := splitSentences(text)

	var segments []string
	var current []string
	currentLen := 0
	// fresh tracks whether current holds any sentence that was not carried
	// over from the previous segment. A carried-only buffer is never
	// emitted: it would duplicate the previous segment's tail verbatim.
	fresh := false

	flush := func() {
		if len(current) == 0 {
			return
		}
		segments = append(segments, strings.Join(current, " "))

		// Carry trailing sentences into the next segment up to the
		// overlap budget.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			sentenceLen := len(current[i]) + 1
			if carriedLen+sentenceLen > c.overlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedLen += sentenceLen
		}
		current = carried
		currentLen = carriedLen
		fresh = false
	}

	for _, sentence := range sentences {
		// A single oversized sentence is hard-split; sentence awareness
		// cannot help there.
		if len(sentence) > c.chunkSize {
			if fresh {
				segments = append(segments, strings.Join(current, " "))
			}
			current = nil
			currentLen = 0
			fresh = false
			for start := 0; start < len(sentence); start += c.chunkSize - c.overlap {
				end := start + c.chunkSize
				if end > len(sentence) {
					end = len(sentence)
				}
				segments = append(segments, sentence[start:end])
				if end == len(sentence) {
					break
				}
			}
			continue
		}

		if currentLen+len(sentence)+1 > c.chunkSize {
			flush()
			// Drop the carried overlap if it cannot fit alongside the
			// incoming sentence; the size bound wins over overlap.
			if currentLen+len(sentence)+1 > c.chunkSize {
				current = nil
				currentLen = 0
			}
		}
		current = append(current, sentence)
		currentLen += len(sentence) + 1
		fresh = true
	}

	// The final buffer is emitted only when it gained a sentence of its
	// own since the last flush.
	if fresh {
		segments = append(segments, strings.Join(current, " "))
	}

	return segments
}

// splitSentences splits content into sentences by common terminators.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
