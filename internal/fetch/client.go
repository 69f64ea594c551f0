// internal/fetch/client.go
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/ratelimit"
	"github.com/law-makers/crawlflow/internal/reqctx"
	"github.com/law-makers/crawlflow/internal/utils/headers"
)

// Format is the body encoding of a POST request.
type Format string

const (
	FormatJSON      Format = "json"
	FormatXML       Format = "xml"
	FormatForm      Format = "form"
	FormatText      Format = "text"
	FormatMultipart Format = "multipart"
)

// Request describes a direct HTTP call. GET sends Headers only; POST encodes
// Params according to Format.
type Request struct {
	Method  string
	Headers map[string]string
	Format  Format
	Params  map[string]any
}

// FilePart is a Params value sent as a file in multipart requests.
type FilePart struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return nil
}

// Client performs direct (non-proxied) HTTP requests with per-host rate
// limiting.
type Client struct {
	client  *http.Client
	limiter ratelimit.RateLimiter
}

// NewClient creates a direct client. limiter may be nil.
func NewClient(opts HTTPOptions, limiter ratelimit.RateLimiter) *Client {
	return &Client{
		client:  NewHTTPClient(opts, nil),
		limiter: limiter,
	}
}

// Do sends req to rawURL and reads the whole response.
func (c *Client) Do(ctx context.Context, rawURL string, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	switch method {
	case http.MethodGet:
	case http.MethodPost:
		if req.Params == nil {
			return nil, engine.NewEngineError(engine.ErrCodeValidation, "params cannot be nil", nil)
		}
		encoded, ct, err := encodeBody(req.Format, req.Params)
		if err != nil {
			return nil, err
		}
		body, contentType = bytes.NewReader(encoded), ct
	default:
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "unsupported method", nil).
			WithDetail("method", req.Method)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, classify(rawURL, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "invalid url", err).
			WithDetail("url", rawURL)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	headers.Apply(httpReq.Header, req.Headers)

	logger := reqctx.Logger(ctx)
	logger.Debug().
		Str("method", method).
		Str("url", rawURL).
		Str("format", string(req.Format)).
		Msg("Sending request")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	if err := checkStatus(rawURL, resp.StatusCode); err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

func encodeBody(format Format, params map[string]any) ([]byte, string, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.Marshal(params)
		if err != nil {
			return nil, "", engine.NewEngineError(engine.ErrCodeValidation, "params are not JSON encodable", err)
		}
		return data, "application/json", nil
	case FormatXML:
		data, err := encodeXML(params)
		if err != nil {
			return nil, "", engine.NewEngineError(engine.ErrCodeValidation, "params are not XML encodable", err)
		}
		return data, "application/xml", nil
	case FormatForm:
		form := url.Values{}
		for _, k := range sortedKeys(params) {
			form.Set(k, fmt.Sprint(params[k]))
		}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	case FormatText:
		var b strings.Builder
		for _, k := range sortedKeys(params) {
			fmt.Fprintf(&b, "%s=%v\n", k, params[k])
		}
		return []byte(b.String()), "text/plain; charset=utf-8", nil
	case FormatMultipart:
		return encodeMultipart(params)
	default:
		return nil, "", engine.NewEngineError(engine.ErrCodeValidation, "unsupported request format", nil).
			WithDetail("format", string(format))
	}
}

type xmlEntry struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlRequest struct {
	XMLName xml.Name   `xml:"request"`
	Entries []xmlEntry `xml:"entry"`
}

func encodeXML(params map[string]any) ([]byte, error) {
	doc := xmlRequest{}
	for _, k := range sortedKeys(params) {
		doc.Entries = append(doc.Entries, xmlEntry{Key: k, Value: fmt.Sprint(params[k])})
	}
	data, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

func encodeMultipart(params map[string]any) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range sortedKeys(params) {
		var err error
		switch v := params[k].(type) {
		case FilePart:
			err = writeFilePart(w, k, v)
		case *FilePart:
			err = writeFilePart(w, k, *v)
		default:
			err = w.WriteField(k, fmt.Sprint(v))
		}
		if err != nil {
			return nil, "", engine.NewEngineError(engine.ErrCodeValidation, "failed to build multipart body", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", engine.NewEngineError(engine.ErrCodeValidation, "failed to build multipart body", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f FilePart) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     field,
		"filename": f.Filename,
	}))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Content)
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
