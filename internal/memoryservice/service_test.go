package memoryservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/extractor"
	"github.com/snorlak1/mem0-server-mcp/internal/llm"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store good enough to exercise
// Service's ownership and history logic without a real database.
type fakeStore struct {
	records map[int64]*vectorstore.Record
	history map[int64][]vectorstore.HistoryEvent
	nextErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int64]*vectorstore.Record{}, history: map[int64][]vectorstore.HistoryEvent{}}
}

func (f *fakeStore) Insert(ctx context.Context, rec *vectorstore.Record) error {
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeStore) Search(ctx context.Context, embedding []float64, opts *vectorstore.SearchOptions) ([]*vectorstore.Record, error) {
	var out []*vectorstore.Record
	for _, r := range f.records {
		if opts.UserID != "" && r.UserID != opts.UserID {
			continue
		}
		score := cosineSim(embedding, r.Embedding)
		if score < opts.MinScore {
			continue
		}
		cp := *r
		cp.Score = score
		out = append(out, &cp)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id int64, opts *vectorstore.GetOptions) (*vectorstore.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "fakeStore.Get", "not found")
	}
	if opts.UserID != "" && rec.UserID != opts.UserID {
		return nil, apperr.Newf(apperr.NotFound, "fakeStore.Get", "not found")
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) Update(ctx context.Context, id int64, content string, embedding []float64, opts *vectorstore.UpdateOptions) (*vectorstore.Record, error) {
	rec, ok := f.records[id]
	if !ok || (opts.UserID != "" && rec.UserID != opts.UserID) {
		return nil, apperr.Newf(apperr.NotFound, "fakeStore.Update", "not found")
	}
	rec.Content = content
	rec.Embedding = embedding
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64, opts *vectorstore.DeleteOptions) error {
	rec, ok := f.records[id]
	if !ok || (opts.UserID != "" && rec.UserID != opts.UserID) {
		return apperr.Newf(apperr.NotFound, "fakeStore.Delete", "not found")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeStore) GetAll(ctx context.Context, opts *vectorstore.GetAllOptions) ([]*vectorstore.Record, error) {
	var out []*vectorstore.Record
	for _, r := range f.records {
		if opts.UserID != "" && r.UserID != opts.UserID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) DeleteAll(ctx context.Context, opts *vectorstore.DeleteAllOptions) error {
	f.records = map[int64]*vectorstore.Record{}
	return nil
}

func (f *fakeStore) CreateIndex(ctx context.Context, cfg *vectorstore.IndexConfig) error { return nil }

func (f *fakeStore) AppendHistory(ctx context.Context, ev vectorstore.HistoryEvent) error {
	f.history[ev.MemoryID] = append(f.history[ev.MemoryID], ev)
	return nil
}

func (f *fakeStore) GetHistory(ctx context.Context, memoryID int64, userID string) ([]vectorstore.HistoryEvent, error) {
	var out []vectorstore.HistoryEvent
	for _, ev := range f.history[memoryID] {
		if userID == "" || ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

func cosineSim(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(v float64) float64 {
	if v == 0 {
		return 0
	}
	x := v
	for i := 0; i < 50; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// fakeEmbedder returns a fixed embedding per distinct text so
// similarity comparisons in tests are deterministic.
type fakeEmbedder struct {
	vectors map[string][]float64
	dims    int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float64{}, dims: 3}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	// Derive a stable pseudo-embedding from text so unregistered
	// inputs still produce a deterministic, distinguishable vector.
	sum := 0.0
	for _, r := range text {
		sum += float64(r)
	}
	return []float64{sum, 1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) Close() error    { return nil }

type fakeLLM struct {
	response string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return f.response, nil
}

func (f *fakeLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return f.response, nil
}

func (f *fakeLLM) Close() error { return nil }

func newTestService(t *testing.T, store *fakeStore, emb *fakeEmbedder, llmResponse string) *Service {
	t.Helper()
	ext := extractor.New(&fakeLLM{response: llmResponse})
	svc, err := New(store, nil, emb, ext, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestAddInsertsNewMemoryOnADD(t *testing.T) {
	store := newFakeStore()
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[{"content":"Name is Alice","action":"ADD"}]}`)

	result, err := svc.Add(context.Background(), AddInput{
		UserID:   "u1",
		Messages: []Message{{Role: "user", Content: "I'm Alice"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	require.Equal(t, EventAdd, result.Results[0].Event)
	require.Len(t, store.records, 1)
	id, err := parseMemID(result.Results[0].ID)
	require.NoError(t, err)
	require.Len(t, store.history[id], 1)
}

func TestAddIgnoresNoneItems(t *testing.T) {
	store := newFakeStore()
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[{"content":"thanks","action":"NONE"}]}`)

	result, err := svc.Add(context.Background(), AddInput{UserID: "u1", Messages: []Message{{Role: "user", Content: "thanks"}}})
	require.NoError(t, err)
	require.Empty(t, result.Results)
	require.Empty(t, store.records)
}

func TestAddRequiresUserID(t *testing.T) {
	store := newFakeStore()
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	_, err := svc.Add(context.Background(), AddInput{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	require.Equal(t, apperr.BadInput, apperr.KindOf(err))
}

func TestGetReturnsAccessDeniedForWrongOwner(t *testing.T) {
	store := newFakeStore()
	store.records[1] = &vectorstore.Record{ID: 1, UserID: "owner", Content: "secret", Embedding: []float64{1, 0, 0}}
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	_, err := svc.Get(context.Background(), 1, "intruder")
	require.Error(t, err)
	require.Equal(t, apperr.AccessDenied, apperr.KindOf(err))
}

func TestGetReturnsNotFoundForMissingMemory(t *testing.T) {
	store := newFakeStore()
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	_, err := svc.Get(context.Background(), 999, "u1")
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestUpdateRewritesContentAndRecordsHistory(t *testing.T) {
	store := newFakeStore()
	store.records[1] = &vectorstore.Record{ID: 1, UserID: "u1", Content: "old", Embedding: []float64{1, 0, 0}}
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	mem, err := svc.Update(context.Background(), 1, "u1", "new")
	require.NoError(t, err)
	require.Equal(t, "new", mem.Content)
	require.Len(t, store.history[1], 1)
	require.Equal(t, EventUpdate, Event(store.history[1][0].Event))
}

func TestDeleteRemovesRecordAndRecordsHistory(t *testing.T) {
	store := newFakeStore()
	store.records[1] = &vectorstore.Record{ID: 1, UserID: "u1", Content: "gone", Embedding: []float64{1, 0, 0}}
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	err := svc.Delete(context.Background(), 1, "u1")
	require.NoError(t, err)
	require.NotContains(t, store.records, int64(1))
	require.Len(t, store.history[1], 1)
}

func TestSearchFiltersByOwner(t *testing.T) {
	store := newFakeStore()
	store.records[1] = &vectorstore.Record{ID: 1, UserID: "u1", Content: "mine", Embedding: []float64{5, 1, 0}}
	store.records[2] = &vectorstore.Record{ID: 2, UserID: "u2", Content: "not mine", Embedding: []float64{5, 1, 0}}
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	results, err := svc.Search(context.Background(), SearchInput{Query: "mine", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "mem_1", results[0].ID)
}

func TestHistoryStillReturnsDeleteEventAfterHardDelete(t *testing.T) {
	store := newFakeStore()
	store.records[1] = &vectorstore.Record{ID: 1, UserID: "u1", Content: "gone", Embedding: []float64{1, 0, 0}}
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	require.NoError(t, svc.Delete(context.Background(), 1, "u1"))
	require.NotContains(t, store.records, int64(1))

	events, err := svc.History(context.Background(), 1, "u1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventDelete, events[0].Event)
}

func TestHistoryStillDeniesWrongOwnerAfterHardDelete(t *testing.T) {
	store := newFakeStore()
	store.records[1] = &vectorstore.Record{ID: 1, UserID: "owner", Content: "gone", Embedding: []float64{1, 0, 0}}
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	require.NoError(t, svc.Delete(context.Background(), 1, "owner"))

	_, err := svc.History(context.Background(), 1, "intruder")
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestResetWipesEveryMemory(t *testing.T) {
	store := newFakeStore()
	store.records[1] = &vectorstore.Record{ID: 1, UserID: "u1", Content: "x", Embedding: []float64{1, 0, 0}}
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, `{"memories":[]}`)

	require.NoError(t, svc.Reset(context.Background()))
	require.Empty(t, store.records)
}
