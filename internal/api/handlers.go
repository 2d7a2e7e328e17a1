package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mstransform/internal/engine"
	"mstransform/internal/logger"
	"mstransform/internal/metrics"
	"mstransform/internal/models"
	"mstransform/internal/storage"
	"mstransform/internal/table"
)

type TransformRequest struct {
	Source    string               `json:"source"`
	Output    string               `json:"output"`
	Selection engine.SelectionSpec `json:"selection"`
}

type TransformResponse struct {
	Job      string                `json:"job"`
	Output   string                `json:"output"`
	Rows     int                   `json:"rows"`
	Warnings []engine.Warning      `json:"warnings"`
	Outcomes []engine.TableOutcome `json:"outcomes"`
}

type MergeRequest struct {
	Partitions []string `json:"partitions"`
	Output     string   `json:"output"`
}

type MergeResponse struct {
	Job        string                `json:"job"`
	Output     string                `json:"output"`
	Rows       int                   `json:"rows"`
	SpwOffsets []int                 `json:"spw_offsets"`
	DDIOffsets []int                 `json:"ddi_offsets"`
	Outcomes   []engine.TableOutcome `json:"outcomes"`
}

type Handler struct {
	engine *engine.Engine
	log    logger.Logger

	mu      sync.RWMutex
	catalog *Catalog
}

// NewHandler returns a handler with no catalog. Until SetCatalog is called
// every dataset route answers 503.
func NewHandler(eng *engine.Engine, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger
	}
	return &Handler{engine: eng, log: log}
}

// SetCatalog swaps in a loaded catalog.
func (h *Handler) SetCatalog(c *Catalog) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.catalog = c
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/datasets", h.ListDatasets)
	api.GET("/datasets/:name/summary", h.GetSummary)
	api.POST("/transform", h.PostTransform)
	api.POST("/merge", h.PostMerge)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (h *Handler) current() (*Catalog, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.catalog == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "catalog is still loading")
	}
	return h.catalog, nil
}

// httpError maps engine and catalog errors onto status codes.
func httpError(err error) error {
	var (
		null   *engine.NullSelectionError
		unsup  *engine.UnsupportedSelectionError
		schema *engine.SchemaError
		he     *echo.HTTPError
	)
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &null), errors.As(err, &unsup):
		code = http.StatusUnprocessableEntity
	case errors.As(err, &schema), errors.Is(err, ErrBadName):
		code = http.StatusBadRequest
	case errors.Is(err, ErrUnknownDataset), errors.Is(err, storage.ErrNotDataset):
		code = http.StatusNotFound
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) ListDatasets(c echo.Context) error {
	cat, err := h.current()
	if err != nil {
		return err
	}
	infos := cat.Infos()
	total := len(infos)
	limit, offset := getPaginationParams(c, total)

	page := models.Page[models.DatasetInfo]{Data: []models.DatasetInfo{}, Total: total, Limit: limit, Offset: offset}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page.Data = infos[offset:end]
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetSummary(c echo.Context) error {
	cat, err := h.current()
	if err != nil {
		return err
	}
	ds, err := cat.Get(c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	sum, err := h.engine.Summarize(ds)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) PostTransform(c echo.Context) error {
	cat, err := h.current()
	if err != nil {
		return err
	}
	var req TransformRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Source == "" || req.Output == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source and output are required")
	}

	job := uuid.New().String()
	log := h.log.WithPrefix("job " + job)
	t0 := time.Now()
	log.Infof("transform %s -> %s", req.Source, req.Output)

	resp, err := func() (*TransformResponse, error) {
		src, err := cat.Get(req.Source)
		if err != nil {
			return nil, err
		}
		res, err := h.engine.Transform(c.Request().Context(), src, req.Selection)
		if err != nil {
			return nil, err
		}
		if err := cat.Save(req.Output, res.Dataset); err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			metrics.WarningsTotal.WithLabelValues(string(w.Kind)).Inc()
		}
		return &TransformResponse{
			Job:      job,
			Output:   req.Output,
			Rows:     res.Dataset.NumRows(table.Main),
			Warnings: res.Warnings,
			Outcomes: res.Outcomes,
		}, nil
	}()
	finish("transform", t0, err)
	if err != nil {
		log.Warnf("transform failed: %v", err)
		return httpError(err)
	}
	metrics.RowsWritten.Add(float64(resp.Rows))
	log.Infof("transform done in %v: %d rows", time.Since(t0), resp.Rows)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) PostMerge(c echo.Context) error {
	cat, err := h.current()
	if err != nil {
		return err
	}
	var req MergeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if len(req.Partitions) == 0 || req.Output == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "partitions and output are required")
	}

	job := uuid.New().String()
	log := h.log.WithPrefix("job " + job)
	t0 := time.Now()
	log.Infof("merge %v -> %s", req.Partitions, req.Output)

	resp, err := func() (*MergeResponse, error) {
		parts := make([]*table.Dataset, len(req.Partitions))
		for i, name := range req.Partitions {
			ds, err := cat.Get(name)
			if err != nil {
				return nil, err
			}
			parts[i] = ds
		}
		res, err := h.engine.Merge(c.Request().Context(), parts)
		if err != nil {
			return nil, err
		}
		if err := cat.Save(req.Output, res.Dataset); err != nil {
			return nil, err
		}
		return &MergeResponse{
			Job:        job,
			Output:     req.Output,
			Rows:       res.Dataset.NumRows(table.Main),
			SpwOffsets: res.SpwOffsets,
			DDIOffsets: res.DDIOffsets,
			Outcomes:   res.Outcomes,
		}, nil
	}()
	finish("merge", t0, err)
	if err != nil {
		log.Warnf("merge failed: %v", err)
		return httpError(err)
	}
	metrics.RowsWritten.Add(float64(resp.Rows))
	log.Infof("merge done in %v: %d rows", time.Since(t0), resp.Rows)
	return c.JSON(http.StatusOK, resp)
}

func finish(kind string, t0 time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.JobsTotal.WithLabelValues(kind, status).Inc()
	metrics.JobDuration.WithLabelValues(kind).Observe(time.Since(t0).Seconds())
}
