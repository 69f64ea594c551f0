package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method      string
	contentType string
	header      http.Header
	body        string
}

func newEchoServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.contentType = r.Header.Get("Content-Type")
		got.header = r.Header.Clone()
		got.body = string(data)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestClient_GetSendsHeaders(t *testing.T) {
	srv, got := newEchoServer(t, http.StatusOK, `{"ok":true}`)
	c := NewClient(HTTPOptions{}, nil)

	resp, err := c.Do(context.Background(), srv.URL, Request{
		Method:  "get",
		Headers: map[string]string{"X-Api-Key": "k"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "k", got.header.Get("X-Api-Key"))
	assert.Empty(t, got.body)

	var out map[string]bool
	require.NoError(t, resp.DecodeJSON(&out))
	assert.True(t, out["ok"])
}

func TestClient_PostFormats(t *testing.T) {
	params := map[string]any{"b": 2, "a": "x y"}

	tests := []struct {
		format      Format
		contentType string
		check       func(t *testing.T, body string)
	}{
		{FormatJSON, "application/json", func(t *testing.T, body string) {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &m))
			assert.Equal(t, "x y", m["a"])
			assert.Equal(t, float64(2), m["b"])
		}},
		{FormatXML, "application/xml", func(t *testing.T, body string) {
			assert.Contains(t, body, `<request><entry key="a">x y</entry><entry key="b">2</entry></request>`)
		}},
		{FormatForm, "application/x-www-form-urlencoded", func(t *testing.T, body string) {
			assert.Equal(t, "a=x+y&b=2", body)
		}},
		{FormatText, "text/plain; charset=utf-8", func(t *testing.T, body string) {
			assert.Equal(t, "a=x y\nb=2\n", body)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			srv, got := newEchoServer(t, http.StatusOK, "done")
			c := NewClient(HTTPOptions{}, nil)

			resp, err := c.Do(context.Background(), srv.URL, Request{
				Method: http.MethodPost,
				Format: tt.format,
				Params: params,
			})

			require.NoError(t, err)
			assert.Equal(t, "done", resp.Text())
			assert.Equal(t, tt.contentType, got.contentType)
			tt.check(t, got.body)
		})
	}
}

func TestClient_PostMultipart(t *testing.T) {
	var (
		field    string
		filename string
		content  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		field = r.FormValue("name")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		filename, content = hdr.Filename, string(data)
	}))
	defer srv.Close()

	c := NewClient(HTTPOptions{}, nil)
	_, err := c.Do(context.Background(), srv.URL, Request{
		Method: http.MethodPost,
		Format: FormatMultipart,
		Params: map[string]any{
			"name": "report",
			"file": FilePart{Filename: "r.txt", ContentType: "text/plain", Content: []byte("hello")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "report", field)
	assert.Equal(t, "r.txt", filename)
	assert.Equal(t, "hello", content)
}

func TestClient_Validation(t *testing.T) {
	c := NewClient(HTTPOptions{}, nil)
	ctx := context.Background()

	_, err := c.Do(ctx, "http://example.invalid", Request{Method: http.MethodPost})
	assert.True(t, errors.Is(err, engine.ErrValidation), "nil params")

	_, err = c.Do(ctx, "http://example.invalid", Request{Method: http.MethodPost, Format: "yaml", Params: map[string]any{}})
	assert.True(t, errors.Is(err, engine.ErrValidation), "unknown format")

	_, err = c.Do(ctx, "http://example.invalid", Request{Method: http.MethodDelete})
	assert.True(t, errors.Is(err, engine.ErrValidation), "unsupported method")
}

func TestClient_StatusClassification(t *testing.T) {
	srv, _ := newEchoServer(t, http.StatusTooManyRequests, "slow down")
	c := NewClient(HTTPOptions{}, nil)

	_, err := c.Do(context.Background(), srv.URL, Request{})
	require.Error(t, err)
	assert.Equal(t, engine.ErrCodeRetry, engine.CodeOf(err))
	assert.True(t, strings.Contains(err.Error(), "Too Many Requests"))
}
