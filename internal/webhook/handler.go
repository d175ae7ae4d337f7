package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
)

// maxResponseBytes caps how much of a backend answer is read.
const maxResponseBytes = 8 << 20

// timestampLayout is RFC 3339 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// errorBodySnippet is how much of a failed response body is kept on HTTPError.
const errorBodySnippet = 512

// Handler processes webhook requests through a composable middleware pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler.
// The first middleware is outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewHTTPHandler creates the core handler that performs the HTTP POST.
// defaultURL receives requests that carry neither an Endpoint nor a TargetURL.
// A nil client uses http.DefaultClient, whose transport timeouts apply.
func NewHTTPHandler(client *http.Client, defaultURL string) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpHandler{client: client, defaultURL: defaultURL, now: time.Now}
}

type httpHandler struct {
	client     *http.Client
	defaultURL string
	now        func() time.Time
}

func (h *httpHandler) route(req *Request) string {
	switch {
	case req.Endpoint != "":
		return req.Endpoint
	case req.TargetURL != "":
		return req.TargetURL
	default:
		return h.defaultURL
	}
}

// Handle implements Handler by posting the encoded form to the routed URL.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	url := h.route(req)
	if url == "" {
		return nil, fmt.Errorf("webhook %s: %w", req.Action.Label(), whkerrors.ErrNoEndpoint)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = h.now()
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("webhook %s: %w", req.Action.Label(), ctxErr)
		}
		return nil, &whkerrors.NetworkError{Action: req.Action.Label(), URL: url, Cause: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, &whkerrors.NetworkError{Action: req.Action.Label(), URL: url, Cause: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		snippet := respBody
		if len(snippet) > errorBodySnippet {
			snippet = snippet[:errorBodySnippet]
		}
		return nil, &whkerrors.HTTPError{
			Action:     req.Action.Label(),
			StatusCode: httpResp.StatusCode,
			Status:     http.StatusText(httpResp.StatusCode),
			Body:       string(snippet),
		}
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: respBody, Latency: latency}, nil
}

// encodeForm writes the envelope fields first, then step fields, then files.
func encodeForm(req *Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	write := func(name, value string) error {
		return w.WriteField(name, value)
	}

	if req.Action != "" {
		if err := write("action", string(req.Action)); err != nil {
			return nil, "", err
		}
	}
	if !req.Timestamp.IsZero() {
		if err := write("timestamp", req.Timestamp.UTC().Format(timestampLayout)); err != nil {
			return nil, "", err
		}
	}
	for _, kv := range []Field{
		{Name: "targetUrl", Value: req.TargetURL},
		{Name: "executionId", Value: req.ExecutionID},
		{Name: "step", Value: req.Step},
	} {
		if kv.Value == "" {
			continue
		}
		if err := write(kv.Name, kv.Value); err != nil {
			return nil, "", err
		}
	}
	for _, f := range req.Fields {
		if err := write(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}

	for _, f := range req.Files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Ref.Name)))
		ct := f.Ref.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		hdr.Set("Content-Type", ct)
		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Ref.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
