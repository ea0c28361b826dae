// Package extract is the client side of the Extraction Service upload protocol.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smart-extractor/backend/internal/models"
)

// DefaultEndpoint is where the Extraction Service listens.
const DefaultEndpoint = "http://127.0.0.1:8000/api/extract"

// FormField is the multipart part name carrying the file.
const FormField = "file"

// StatusError is returned when the service answers with a non-2xx status.
// Message is the body's error field, or the generic failure notice.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Client uploads files to the Extraction Service.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the given endpoint. An empty endpoint
// falls back to DefaultEndpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		// No timeout: an upload runs until the service answers or the transport fails.
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL uploads are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Extract posts the file and returns the response body verbatim.
//
// The body is parsed as JSON whatever the status code. A parse failure or a
// transport failure is returned as is; a non-2xx status becomes a *StatusError.
func (c *Client) Extract(ctx context.Context, file *models.File) (json.RawMessage, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, contentType, err := encodeForm(file)
	if err != nil {
		c.logger.Error("extract.http.encode_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		c.logger.Error("extract.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Info("extract.http.request",
		"req_id", reqID,
		"url", c.endpoint,
		"file", file.Name,
		"bytes", file.Size(),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("extract.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("extract.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("extract.http.read_error", "req_id", reqID, "error", err)
		return nil, err
	}

	c.logger.Info("extract.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	var result json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: failureMessage(result)}
	}
	return result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeForm builds a multipart body holding a single "file" part.
func encodeForm(file *models.File) (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// failureMessage picks the message out of an error body. A missing or falsy
// error field yields the generic notice.
func failureMessage(body json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return models.UploadFailedNotice
	}

	field, ok := obj["error"]
	if !ok {
		return models.UploadFailedNotice
	}

	var s string
	if err := json.Unmarshal(field, &s); err == nil {
		if s == "" {
			return models.UploadFailedNotice
		}
		return s
	}

	var n float64
	if err := json.Unmarshal(field, &n); err == nil {
		if n == 0 {
			return models.UploadFailedNotice
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	switch strings.TrimSpace(string(field)) {
	case "null", "false":
		return models.UploadFailedNotice
	}
	return string(field)
}
