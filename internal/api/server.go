package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fitskit/internal/inspect"
	"github.com/samcharles93/fitskit/internal/logger"
	"github.com/samcharles93/fitskit/internal/reportstore"
	"github.com/samcharles93/fitskit/internal/version"
	"github.com/samcharles93/fitskit/pkg/fits"
)

// DefaultMaxBodyBytes bounds uploaded files.
const DefaultMaxBodyBytes = 256 << 20

const headerRequestID = "X-Request-Id"

type Config struct {
	Store        reportstore.Store
	Metrics      *Metrics
	Logger       logger.Logger
	MaxBodyBytes int64
}

type Server struct {
	store   reportstore.Store
	metrics *Metrics
	log     logger.Logger
	maxBody int64
	clock   func() time.Time
}

func NewServer(cfg Config) *Server {
	s := &Server{
		store:   cfg.Store,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
		maxBody: cfg.MaxBodyBytes,
		clock:   time.Now,
	}
	if s.store == nil {
		s.store = reportstore.NewMemory()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/version", s.handleVersion)
	e.GET("/metrics", s.handleMetrics)

	// FITS operations. Uploads are raw file bytes.
	e.POST("/v1/inspect", s.handleInspect)
	e.POST("/v1/verify", s.handleVerify)
	e.POST("/v1/stamp", s.handleStamp)

	e.POST("/v1/checksum/encode", s.handleChecksumEncode)
	e.POST("/v1/checksum/decode", s.handleChecksumDecode)
	e.POST("/v1/checksum/sum", s.handleChecksumSum)

	e.GET("/v1/reports", s.handleListReports)
	e.GET("/v1/reports/:id", s.handleGetReport)
	e.DELETE("/v1/reports/:id", s.handleDeleteReport)
}

// Wrap adds request IDs, a request-scoped logger and request metrics around
// next. It is applied outside the router so every request is counted.
func (s *Server) Wrap(next http.Handler) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		log := s.log.With("request_id", id)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), log)))
	})
	return s.metrics.Instrument(inner)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(c *echo.Context) error {
	return c.JSON(http.StatusOK, version.Resolve())
}

func (s *Server) handleMetrics(c *echo.Context) error {
	s.metrics.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

// decodeUpload reads the request body and decodes it as a FITS file.
func (s *Server) decodeUpload(c *echo.Context) (*fits.File, error) {
	data, err := readBody(c, s.maxBody)
	if err != nil {
		return nil, err
	}
	f, err := fits.Decode(data)
	if err != nil {
		return nil, newInvalidRequest("decode: %v", err)
	}
	return f, nil
}

func (s *Server) summarize(c *echo.Context, f *fits.File, verify bool) inspect.Report {
	name := c.QueryParam("name")
	if name == "" {
		name = "upload.fits"
	}
	r := inspect.Summarize(f, name, verify)
	r.CreatedAt = s.clock().UTC()
	s.metrics.RecordReport(r)
	return r
}

func (s *Server) saveReport(c *echo.Context, r *inspect.Report) error {
	_, err := s.store.Put(c.Request().Context(), r)
	s.metrics.RecordStoreOperation("put", err)
	return err
}

func (s *Server) handleInspect(c *echo.Context) error {
	f, err := s.decodeUpload(c)
	if err != nil {
		return writeBodyError(c, err)
	}
	r := s.summarize(c, f, queryBool(c, "verify", false))
	if queryBool(c, "store", false) {
		if err := s.saveReport(c, &r); err != nil {
			return writeServerError(c, err)
		}
	}
	logger.FromContext(c.Request().Context()).Info("inspected file",
		"name", r.Name, "units", len(r.Units), "issues", len(r.Issues))
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleVerify(c *echo.Context) error {
	f, err := s.decodeUpload(c)
	if err != nil {
		return writeBodyError(c, err)
	}
	r := s.summarize(c, f, true)
	if queryBool(c, "store", true) {
		if err := s.saveReport(c, &r); err != nil {
			return writeServerError(c, err)
		}
	}
	logger.FromContext(c.Request().Context()).Info("verified file",
		"name", r.Name, "valid", r.Valid(), "issues", len(r.Issues))
	return c.JSON(http.StatusOK, VerifyResponse{
		Object:   "verification",
		Valid:    r.Valid(),
		ReportID: r.ID,
		Units:    len(r.Units),
		Issues:   r.Issues,
	})
}

// handleStamp rewrites the upload with fresh CHECKSUM and DATASUM cards.
// Files that decoded with issues are refused: re-encoding them would not
// preserve their bytes.
func (s *Server) handleStamp(c *echo.Context) error {
	f, err := s.decodeUpload(c)
	if err != nil {
		return writeBodyError(c, err)
	}
	if len(f.Issues) > 0 {
		msg := fmt.Sprintf("file has %d decode issue(s): %v", len(f.Issues), f.Issues[0])
		return writeError(c, http.StatusUnprocessableEntity, "invalid_request_error", msg, "")
	}
	out, err := fits.Encode(f.Units, true)
	if err != nil {
		return writeServerError(c, err)
	}
	return writeFITS(c, out)
}

func (s *Server) handleChecksumEncode(c *echo.Context) error {
	req, err := decodeJSON[ChecksumEncodeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Sum == nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", "sum is required", "sum")
	}
	return c.JSON(http.StatusOK, ChecksumResponse{
		Object: "checksum",
		Sum:    *req.Sum,
		Text:   fits.EncodeChecksum(*req.Sum),
	})
}

func (s *Server) handleChecksumDecode(c *echo.Context) error {
	req, err := decodeJSON[ChecksumDecodeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	sum, err := fits.DecodeChecksum(req.Text)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "text")
	}
	return c.JSON(http.StatusOK, ChecksumResponse{
		Object: "checksum",
		Sum:    sum,
		Text:   req.Text,
	})
}

// handleChecksumSum returns the ones'-complement sum of the body, zero-padded
// to whole blocks.
func (s *Server) handleChecksumSum(c *echo.Context) error {
	data, err := readBody(c, s.maxBody)
	if err != nil {
		return writeBodyError(c, err)
	}
	sum := fits.Accumulate(fits.Pad(data, 0), 0)
	return c.JSON(http.StatusOK, ChecksumResponse{
		Object: "checksum",
		Sum:    sum,
		Text:   fits.EncodeChecksum(sum),
		Bytes:  len(data),
	})
}

func (s *Server) handleListReports(c *echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return writeError(c, http.StatusBadRequest, "invalid_request_error", "limit must be a non-negative integer", "limit")
		}
		limit = n
	}
	reports, err := s.store.List(c.Request().Context(), limit)
	s.metrics.RecordStoreOperation("list", err)
	if err != nil {
		return writeServerError(c, err)
	}
	if reports == nil {
		reports = []inspect.Report{}
	}
	return c.JSON(http.StatusOK, ReportList{Object: "list", Data: reports})
}

func (s *Server) handleGetReport(c *echo.Context) error {
	id := c.Param("id")
	r, err := s.store.Get(c.Request().Context(), id)
	s.metrics.RecordStoreOperation("get", err)
	if errors.Is(err, reportstore.ErrNotFound) {
		return writeNotFound(c, "report not found")
	}
	if err != nil {
		return writeServerError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleDeleteReport(c *echo.Context) error {
	id := c.Param("id")
	err := s.store.Delete(c.Request().Context(), id)
	s.metrics.RecordStoreOperation("delete", err)
	if errors.Is(err, reportstore.ErrNotFound) {
		return writeNotFound(c, "report not found")
	}
	if err != nil {
		return writeServerError(c, err)
	}
	return c.JSON(http.StatusOK, DeleteReportResp{
		ID:      id,
		Object:  "report",
		Deleted: true,
	})
}
