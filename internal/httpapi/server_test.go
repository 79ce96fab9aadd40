package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-parts/internal/export"
	"github.com/a3tai/mcp-pdf-parts/internal/ocr"
	"github.com/a3tai/mcp-pdf-parts/internal/parts"
	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf/pdftest"
)

type upload struct {
	name string
	data []byte
}

func newTestServer(t *testing.T, maxFileSize int64) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)

	pipeline, err := parts.NewPipeline(parts.DefaultOptions(),
		parts.WithOCREngine(ocr.NewEngine(ocr.Config{}, nil, nil, nil)),
		parts.WithLogger(entry))
	require.NoError(t, err)

	s, err := NewServer(pipeline, maxFileSize, entry)
	require.NoError(t, err)
	return s
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func drawing() upload {
	return upload{"drawing.pdf", pdftest.Build(pdftest.Lines("PART NO: ABC-123, L=20mm W=4mm"))}
}

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) export.Payload {
	t.Helper()
	var payload export.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, 1024, nil)
	assert.Error(t, err)

	s := newTestServer(t, 1024)
	_, err = NewServer(s.pipeline, 0, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 1<<20)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSearch_PartsListWithoutCriteria(t *testing.T) {
	s := newTestServer(t, 1<<20)

	rec := serve(s, multipartRequest(t, "/search", nil, drawing()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payload := decodePayload(t, rec)
	assert.Equal(t, parts.ModePartsList, payload.Mode)
	assert.Equal(t, []export.Record{{PartNumber: "ABC-123", FileName: "drawing.pdf"}}, payload.Results)
	assert.Empty(t, payload.Annotations)
	assert.NotEmpty(t, payload.RunID)
}

func TestSearch_LineSearch(t *testing.T) {
	s := newTestServer(t, 1<<20)

	rec := serve(s, multipartRequest(t, "/search", map[string]string{"l_value": "20", "w_value": "4"}, drawing()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payload := decodePayload(t, rec)
	assert.Equal(t, parts.ModeLineSearch, payload.Mode)
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "ABC-123", payload.Results[0].PartNumber)
	assert.Contains(t, payload.Results[0].MatchedLine, "L=20mm")

	rec = serve(s, multipartRequest(t, "/search", map[string]string{"l_value": "20", "w_value": "5"}, drawing()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodePayload(t, rec).Results)
}

func TestSearch_CSV(t *testing.T) {
	s := newTestServer(t, 1<<20)
	broken := upload{"broken.pdf", []byte("%PDF-1.4\nnot really a pdf")}

	rec := serve(s, multipartRequest(t, "/search",
		map[string]string{"l_value": "20", "return_csv": "true"}, drawing(), broken))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="search_results.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("X-Extraction-Warnings"), "broken.pdf")
	assert.Contains(t, rec.Body.String(), "part_number,matched_line,file_name\n")
	assert.Contains(t, rec.Body.String(), "ABC-123,")
}

func TestParts_CSV(t *testing.T) {
	s := newTestServer(t, 1<<20)

	rec := serve(s, multipartRequest(t, "/parts",
		map[string]string{"l_value": "99", "return_csv": "1"}, drawing()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="parts_list.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "part_number,file_name\nABC-123,drawing.pdf\n", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Extraction-Warnings"))
}

func TestExtractLinesCSV(t *testing.T) {
	s := newTestServer(t, 1<<20)
	doc := upload{"sheet.pdf", pdftest.Build(pdftest.Lines("TITLE", "ITEM XYZ-42"))}

	rec := serve(s, multipartRequest(t, "/extract_lines_csv", nil, doc))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="pdf_lines.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"\ufefffile_name,page,line_no,text\nsheet.pdf,1,1,TITLE\nsheet.pdf,1,2,ITEM XYZ-42\n",
		rec.Body.String())
}

func TestErrors(t *testing.T) {
	s := newTestServer(t, 1<<20)
	scan := upload{"scan.pdf", pdftest.Build(pdftest.Scan())}

	tests := []struct {
		name     string
		req      *http.Request
		status   int
		category string
		message  string
	}{
		{
			name:     "invalid criteria",
			req:      multipartRequest(t, "/search", map[string]string{"l_value": "abc"}, drawing()),
			status:   http.StatusBadRequest,
			category: "INVALID_CRITERIA",
			message:  "is not a number",
		},
		{
			name:     "no files",
			req:      multipartRequest(t, "/search", map[string]string{"l_value": "20"}),
			status:   http.StatusBadRequest,
			category: "BAD_REQUEST",
			message:  "no files uploaded",
		},
		{
			name:     "bad return_csv",
			req:      multipartRequest(t, "/parts", map[string]string{"return_csv": "maybe"}, drawing()),
			status:   http.StatusBadRequest,
			category: "BAD_REQUEST",
			message:  "return_csv",
		},
		{
			name:     "not multipart",
			req:      httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString("l_value=20")),
			status:   http.StatusBadRequest,
			category: "BAD_REQUEST",
			message:  "invalid multipart form",
		},
		{
			name:     "ocr unavailable",
			req:      multipartRequest(t, "/parts", nil, scan),
			status:   http.StatusServiceUnavailable,
			category: "OCR_UNAVAILABLE",
			message:  "scan.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.category, body.Category)
			assert.Contains(t, body.Error, tt.message)
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, 64)

	rec := serve(s, multipartRequest(t, "/parts", nil, drawing()))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, rec).Category)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, 1<<20)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		errType pdferrors.ErrorType
		want    int
	}{
		{pdferrors.ErrorTypeInvalidCriteria, http.StatusBadRequest},
		{pdferrors.ErrorTypeFileTooLarge, http.StatusRequestEntityTooLarge},
		{pdferrors.ErrorTypeOCRUnavailable, http.StatusServiceUnavailable},
		{pdferrors.ErrorTypeCanceled, http.StatusInternalServerError},
		{pdferrors.ErrorTypeUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.errType), tt.errType.String())
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, 1<<20)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
