package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mstransform/internal/engine"
	"mstransform/internal/models"
	"mstransform/internal/mstest"
	"mstransform/internal/predicate"
	"mstransform/internal/storage"
	"mstransform/internal/table"
)

func newServer(t *testing.T) (*echo.Echo, *Handler, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, storage.Write(filepath.Join(root, "obs1"), mstest.New(mstest.Options{Name: "obs1", Spws: []int{8, 8}})))
	require.NoError(t, storage.Write(filepath.Join(root, "obs2"), mstest.New(mstest.Options{Name: "obs2"})))

	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	h := NewHandler(engine.New(engine.Options{Predicate: predicate.Evaluator{}}), nil)
	h.RegisterRoutes(e)
	return e, h, root
}

func loaded(t *testing.T) (*echo.Echo, string) {
	t.Helper()
	e, h, root := newServer(t)
	cat, err := LoadCatalog(context.Background(), root)
	require.NoError(t, err)
	h.SetCatalog(cat)
	return e, root
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoadingReturns503(t *testing.T) {
	e, _, _ := newServer(t)
	for _, r := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/datasets", ""},
		{http.MethodGet, "/api/datasets/obs1/summary", ""},
		{http.MethodPost, "/api/transform", `{"source":"obs1","output":"x"}`},
		{http.MethodPost, "/api/merge", `{"partitions":["obs1"],"output":"x"}`},
	} {
		rec := do(e, r.method, r.path, r.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, r.path)
	}
}

func TestListDatasetsPagination(t *testing.T) {
	e, _ := loaded(t)

	rec := do(e, http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.Page[models.DatasetInfo]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "obs1", page.Data[0].Name)
	// 2 times x 2 fields x 2 DDIs x 6 baselines
	assert.Equal(t, 48, page.Data[0].Rows)

	rec = do(e, http.MethodGet, "/api/datasets?limit=1&offset=1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "obs2", page.Data[0].Name)

	rec = do(e, http.MethodGet, "/api/datasets?offset=5", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Data)
	assert.Equal(t, 2, page.Total)
}

func TestGetSummary(t *testing.T) {
	e, _ := loaded(t)

	rec := do(e, http.MethodGet, "/api/datasets/obs1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum models.DatasetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 48, sum.Rows)
	assert.Len(t, sum.FieldDDI, 4)

	rec = do(e, http.MethodGet, "/api/datasets/nope/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostTransform(t *testing.T) {
	e, root := loaded(t)

	rec := do(e, http.MethodPost, "/api/transform",
		`{"source":"obs1","output":"obs1-spw1","selection":{"spw":"1:0~7","width":[4],"predicate":"ANTENNA1 == 0"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Job)
	assert.Equal(t, "obs1-spw1", resp.Output)
	// 2 times x 2 fields x 3 baselines with antenna 0
	assert.Equal(t, 12, resp.Rows)

	ds, err := storage.Open(filepath.Join(root, "obs1-spw1"))
	require.NoError(t, err)
	assert.Equal(t, "obs1-spw1", ds.Name)
	spw, _ := ds.Table(table.SpectralWindow)
	nchan, _ := table.Get[int32](spw, table.ColNumChan)
	assert.Equal(t, []int32{2}, nchan)

	rec = do(e, http.MethodGet, "/api/datasets", "")
	var page models.Page[models.DatasetInfo]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
}

func TestPostTransformErrors(t *testing.T) {
	e, _ := loaded(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing output", `{"source":"obs1"}`, http.StatusBadRequest},
		{"bad json", `{"source":`, http.StatusBadRequest},
		{"unknown source", `{"source":"nope","output":"x"}`, http.StatusNotFound},
		{"bad output name", `{"source":"obs1","output":"../x","selection":{"field":"0"}}`, http.StatusBadRequest},
		{"null selection", `{"source":"obs1","output":"x","selection":{"timerange":"0~1"}}`, http.StatusUnprocessableEntity},
		{"missing spw", `{"source":"obs1","output":"x","selection":{"spw":"7"}}`, http.StatusUnprocessableEntity},
		{"unsupported", `{"source":"obs1","output":"x","selection":{"correlation":"XX,XY,YX"}}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/transform", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestPostMerge(t *testing.T) {
	e, _ := loaded(t)

	for _, spw := range []string{"0", "1"} {
		rec := do(e, http.MethodPost, "/api/transform", `{"source":"obs1","output":"part`+spw+`","selection":{"spw":"`+spw+`"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := do(e, http.MethodPost, "/api/merge", `{"partitions":["part0","part1"],"output":"merged"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp MergeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 48, resp.Rows)
	assert.Equal(t, []int{0, 1}, resp.SpwOffsets)

	rec = do(e, http.MethodPost, "/api/merge", `{"partitions":[],"output":"m"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(e, http.MethodPost, "/api/merge", `{"partitions":["nope"],"output":"m"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := loaded(t)
	do(e, http.MethodPost, "/api/transform", `{"source":"obs2","output":"copy"}`)

	rec := do(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mstransform_jobs_total")
	assert.Contains(t, rec.Body.String(), "mstransform_catalog_datasets")
}
