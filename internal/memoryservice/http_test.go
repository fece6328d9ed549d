package memoryservice

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, llmResponse string, admin bool) (http.Handler, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	emb := newFakeEmbedder()
	svc := newTestService(t, store, emb, llmResponse)
	isAdmin := func(r *http.Request) bool { return admin }
	return NewHandler(svc, nil, isAdmin, nil), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleAddReturns200AndPersistsMemory(t *testing.T) {
	h, store := newTestHandler(t, `{"memories":[{"content":"likes tea","action":"ADD"}]}`, false)

	rec := doJSON(t, h, http.MethodPost, "/memories", AddInput{
		UserID:   "u1",
		Messages: []Message{{Role: "user", Content: "I like tea"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result AddResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Results, 1)
	require.Len(t, store.records, 1)
}

func TestHandleAddRejectsMissingUserID(t *testing.T) {
	h, _ := newTestHandler(t, `{"memories":[]}`, false)

	rec := doJSON(t, h, http.MethodPost, "/memories", AddInput{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["detail"])
}

func TestHandleGetReturns404ForMissingMemory(t *testing.T) {
	h, _ := newTestHandler(t, `{"memories":[]}`, false)

	req := httptest.NewRequest(http.MethodGet, "/memories/999?user_id=u1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResetRejectsNonAdmin(t *testing.T) {
	h, _ := newTestHandler(t, `{"memories":[]}`, false)

	rec := doJSON(t, h, http.MethodPost, "/reset", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleResetAllowsAdmin(t *testing.T) {
	h, _ := newTestHandler(t, `{"memories":[]}`, true)

	rec := doJSON(t, h, http.MethodPost, "/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSearchReturnsResultsScopedToUser(t *testing.T) {
	h, _ := newTestHandler(t, `{"memories":[]}`, false)

	rec := doJSON(t, h, http.MethodPost, "/search", SearchInput{Query: "tea", UserID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "results")
}

func TestHandleDeleteThenHistoryShowsDeleteEvent(t *testing.T) {
	h, _ := newTestHandler(t, `{"memories":[{"content":"temp fact","action":"ADD"}]}`, false)

	addRec := doJSON(t, h, http.MethodPost, "/memories", AddInput{
		UserID:   "u1",
		Messages: []Message{{Role: "user", Content: "temp fact"}},
	})
	require.Equal(t, http.StatusOK, addRec.Code)
	var added AddResult
	require.NoError(t, json.Unmarshal(addRec.Body.Bytes(), &added))
	require.Len(t, added.Results, 1)
	idStr := added.Results[0].ID

	delReq := httptest.NewRequest(http.MethodDelete, "/memories/"+idStr+"?user_id=u1", nil)
	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)

	histReq := httptest.NewRequest(http.MethodGet, "/memories/"+idStr+"/history?user_id=u1", nil)
	histRec := httptest.NewRecorder()
	h.ServeHTTP(histRec, histReq)
	require.Equal(t, http.StatusOK, histRec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(histRec.Body.Bytes(), &body))
	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 2)
}
