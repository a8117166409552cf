package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"cropcare/internal/model"
)

// DefaultOrigin is the inference service the web client talks to unless configured otherwise.
const DefaultOrigin = "http://localhost:5000"

const (
	predictPath      = "/api/predict"
	formField        = "file"
	maxResponseBytes = 4 << 20
)

var (
	ErrNoImage           = errors.New("no image to upload")
	ErrUnexpectedStatus  = errors.New("unexpected predict status")
	ErrMalformedResponse = errors.New("malformed predict response")
)

// Progress reports how much of the multipart body has been handed to the transport.
type Progress struct {
	Sent  int64
	Total int64
}

func (p Progress) Done() bool {
	return p.Total > 0 && p.Sent >= p.Total
}

type ProgressFunc func(Progress)

// Client performs the single POST /api/predict round trip.
type Client struct {
	origin     string
	httpClient *http.Client
}

// NewClient builds a client for origin. A zero timeout means the request may wait forever.
func NewClient(origin string, timeout time.Duration) *Client {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Client{
		origin:     origin,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Origin() string {
	return c.origin
}

// ImageURL joins a server-relative image path onto the origin.
func (c *Client) ImageURL(path string) string {
	return JoinOrigin(c.origin, path)
}

func JoinOrigin(origin, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(origin, "/") + path
}

// Predict uploads img as multipart field "file" and decodes the JSON result.
// onProgress may be nil.
func (c *Client) Predict(ctx context.Context, img model.LeafImage, onProgress ProgressFunc) (result *model.AnalysisResult, err error) {
	start := time.Now()
	defer func() {
		observe(start, err)
	}()

	if len(img.Data) == 0 {
		return nil, ErrNoImage
	}

	body, contentType, err := encodeForm(img)
	if err != nil {
		return nil, err
	}
	total := int64(body.Len())

	var reader io.Reader = body
	if onProgress != nil {
		reader = &progressReader{r: body, total: total, fn: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.origin+predictPath, reader)
	if err != nil {
		return nil, fmt.Errorf("build predict request failed: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read predict response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(raw, 256))
	}

	var parsed model.AnalysisResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(parsed.PredictedClass) == "" {
		return nil, fmt.Errorf("%w: missing predicted_class", ErrMalformedResponse)
	}
	return &parsed, nil
}

func encodeForm(img model.LeafImage) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := img.Filename
	if strings.TrimSpace(filename) == "" {
		filename = "leaf.jpg"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file failed: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("write form file failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer failed: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(Progress{Sent: p.sent, Total: p.total})
	}
	return n, err
}
