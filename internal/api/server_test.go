package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fitskit/internal/inspect"
	"github.com/samcharles93/fitskit/internal/reportstore"
	"github.com/samcharles93/fitskit/pkg/fits"
)

func newTestHandler(t *testing.T) (http.Handler, *Server) {
	t.Helper()
	server := NewServer(Config{Store: reportstore.NewMemory(), MaxBodyBytes: 64 * fits.BlockSize})
	e := echo.New()
	server.Register(e)
	return server.Wrap(e), server
}

func doRequest(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, mimeFITS)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func testFile(t *testing.T, checksum bool) []byte {
	t.Helper()
	pix, err := fits.EncodeField(fits.Int16s{1, 2, 3}, fits.NewTForm(3, fits.CodeInt16))
	if err != nil {
		t.Fatalf("encode pixels: %v", err)
	}
	b, err := fits.Encode([]*fits.Unit{fits.NewPrimary(16, []int{3}, pix)}, checksum)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func TestInspectEndpoint(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/v1/inspect?name=a.fits&verify=true", testFile(t, true))
	if rec.Code != http.StatusOK {
		t.Fatalf("inspect status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("missing request id header")
	}
	r := decodeBody[inspect.Report](t, rec)
	if r.Name != "a.fits" || len(r.Units) != 1 || r.Units[0].Kind != "PRIMARY" {
		t.Fatalf("report = %+v", r)
	}
	if !r.Valid() || r.ID != "" {
		t.Fatalf("unexpected issues or stored id: %+v", r)
	}
}

func TestInspectRejectsNonFITS(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/v1/inspect", []byte("plain text"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid_request_error") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodPost, "/v1/inspect", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/v1/inspect", make([]byte, 65*fits.BlockSize))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body: expected 413, got %d", rec.Code)
	}
}

func TestVerifyStoresReportLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	b := testFile(t, true)
	b[fits.BlockSize] ^= 0x10

	rec := doRequest(t, h, http.MethodPost, "/v1/verify?name=bad.fits", b)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status: got %d body=%s", rec.Code, rec.Body.String())
	}
	v := decodeBody[VerifyResponse](t, rec)
	if v.Valid || len(v.Issues) != 2 || v.ReportID == "" {
		t.Fatalf("verify = %+v", v)
	}

	getRec := doJSON(t, h, http.MethodGet, "/v1/reports/"+v.ReportID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}
	if r := decodeBody[inspect.Report](t, getRec); r.Name != "bad.fits" || r.ID != v.ReportID {
		t.Fatalf("stored report = %+v", r)
	}

	listRec := doJSON(t, h, http.MethodGet, "/v1/reports?limit=10", "")
	if list := decodeBody[ReportList](t, listRec); len(list.Data) != 1 {
		t.Fatalf("list = %+v", list)
	}

	delRec := doJSON(t, h, http.MethodDelete, "/v1/reports/"+v.ReportID, "")
	if delRec.Code != http.StatusOK || !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete: %d %s", delRec.Code, delRec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodGet, "/v1/reports/"+v.ReportID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/v1/reports?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", rec.Code)
	}
}

func TestStampEndpoint(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/v1/stamp", testFile(t, false))
	if rec.Code != http.StatusOK {
		t.Fatalf("stamp status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != mimeFITS {
		t.Fatalf("content type = %q", ct)
	}
	f, err := fits.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode stamped: %v", err)
	}
	if !f.Primary().Header.Has(fits.KeywordChecksum) {
		t.Fatalf("stamped file lacks CHECKSUM")
	}
	if issues := f.Verify(); len(issues) != 0 {
		t.Fatalf("stamped file has issues: %v", issues)
	}
}

func TestChecksumEndpoints(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/checksum/encode", `{"sum":868229149}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("encode status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[ChecksumResponse](t, rec); got.Text != "hcHjjc9ghcEghc9g" {
		t.Fatalf("encode = %+v", got)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/checksum/decode", `{"text":"hcHjjc9ghcEghc9g"}`)
	if got := decodeBody[ChecksumResponse](t, rec); rec.Code != http.StatusOK || got.Sum != 868229149 {
		t.Fatalf("decode: %d %+v", rec.Code, got)
	}

	if rec := doJSON(t, h, http.MethodPost, "/v1/checksum/encode", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing sum: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/v1/checksum/decode", `{"text":"short"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad text: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/v1/checksum/decode", `{"text":"x","extra":1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", rec.Code)
	}

	// A stamped unit sums to all ones.
	rec = doRequest(t, h, http.MethodPost, "/v1/checksum/sum", testFile(t, true))
	if got := decodeBody[ChecksumResponse](t, rec); got.Sum != fits.ChecksumValid {
		t.Fatalf("sum = %#x", got.Sum)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	doRequest(t, h, http.MethodPost, "/v1/inspect", testFile(t, false))
	doJSON(t, h, http.MethodGet, "/v1/reports/unknown", "")

	rec := doJSON(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`fitskit_units_decoded_total{kind="PRIMARY"} 1`,
		`fitskit_http_requests_total{endpoint="/v1/inspect",method="POST",status_code="200"} 1`,
		`fitskit_http_requests_total{endpoint="/v1/reports/:id",method="GET",status_code="404"} 1`,
		`fitskit_report_store_operations_total{operation="get",status="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestHealthAndVersion(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	if rec := doJSON(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	rec := doJSON(t, h, http.MethodGet, "/version", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"fitskit"`) {
		t.Fatalf("version: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouteLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/v1/inspect":        "/v1/inspect",
		"/v1/reports":        "/v1/reports",
		"/v1/reports/abc":    "/v1/reports/:id",
		"/favicon.ico":       "other",
		"/v1/checksum/sum":   "/v1/checksum/sum",
		"/v1/checksum/other": "other",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
