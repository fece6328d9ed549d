package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/snorlak1/mem0-server-mcp/internal/chunker"
)

// IngestResult is add_coding_preference's result shape: chunk count,
// the IDs of chunks that were successfully stored, and the run_id
// every chunk of this call shares.
type IngestResult struct {
	ChunkCount int      `json:"chunk_count"`
	ChunkIDs   []string `json:"chunk_ids"`
	RunID      string   `json:"run_id"`
	Failed     []int    `json:"failed_chunk_indexes,omitempty"`
	Partial    bool     `json:"partial"`
	Errors     []string `json:"errors,omitempty"`
}

// Ingest implements spec.md §4.1's chunking contract for
// add_coding_preference: split text, dispatch each chunk sequentially
// under one run_id, and report a partial result (successful chunk IDs
// plus which indexes failed) rather than aborting the whole call when
// one chunk's dispatch fails.
func Ingest(ctx context.Context, client *MemoryClient, cfg chunker.Config, userID, text string) (*IngestResult, error) {
	chunks := chunker.Split(text, cfg)
	runID := uuid.NewString()

	result := &IngestResult{ChunkCount: len(chunks), RunID: runID}
	for _, ch := range chunks {
		in := AddInput{
			Messages: []Message{{Role: "user", Content: ch.Text}},
			UserID:   userID,
			RunID:    runID,
		}
		// Text that fits in one chunk is forwarded with no chunk metadata.
		if ch.TotalChunks > 1 {
			in.Metadata = map[string]interface{}{
				"chunk_index":  ch.ChunkIndex,
				"total_chunks": ch.TotalChunks,
				"chunk_size":   ch.ChunkSize,
				"has_overlap":  ch.HasOverlap,
				"run_id":       runID,
			}
		}
		out, err := client.Add(ctx, in)
		if err != nil {
			result.Partial = true
			result.Failed = append(result.Failed, ch.ChunkIndex)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		for _, r := range out.Results {
			result.ChunkIDs = append(result.ChunkIDs, r.ID)
		}
	}
	return result, nil
}
