package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pithecene-io/xray/iox"
)

// drain reads every chunk from src until EOF.
func drain(t *testing.T, src ChunkSource) ([][]byte, error) {
	t.Helper()
	var chunks [][]byte
	for {
		c, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
}

func TestReaderSource_ChunkSize(t *testing.T) {
	src := NewReaderSource(strings.NewReader("abcdefg"), 3)
	chunks, err := drain(t, src)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	got := make([]string, len(chunks))
	for i, c := range chunks {
		got[i] = string(c)
	}
	if strings.Join(got, "|") != "abc|def|g" {
		t.Errorf("chunks = %q", got)
	}
}

func TestReaderSource_DefaultChunkSize(t *testing.T) {
	src := NewReaderSource(strings.NewReader(strings.Repeat("x", DefaultChunkSize+1)), 0)
	chunks, err := drain(t, src)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(chunks) != 2 || len(chunks[0]) != DefaultChunkSize {
		t.Errorf("got %d chunks, first %d bytes", len(chunks), len(chunks[0]))
	}
}

func TestReaderSource_DataWithEOF(t *testing.T) {
	// DataErrReader returns the final bytes together with io.EOF.
	src := NewReaderSource(iotest.DataErrReader(strings.NewReader("tail")), 16)
	c, err := src.Next(context.Background())
	if err != nil || string(c) != "tail" {
		t.Fatalf("Next() = (%q, %v), want (tail, nil)", c, err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("second Next() error = %v, want io.EOF", err)
	}
}

func TestReaderSource_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	src := NewReaderSource(iotest.ErrReader(boom), 16)
	if _, err := src.Next(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error should be sticky, got %v", err)
	}
}

func TestReaderSource_ChunksAreCopies(t *testing.T) {
	src := NewReaderSource(strings.NewReader("abcdef"), 3)
	first, _ := src.Next(context.Background())
	_, _ = src.Next(context.Background())
	if string(first) != "abc" {
		t.Errorf("first chunk overwritten by later read: %q", first)
	}
}

func TestReaderSource_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewReaderSource(strings.NewReader("abc"), 1)
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

type closeSpy struct {
	io.Reader
	closed bool
}

func (c *closeSpy) Close() error { c.closed = true; return nil }

func TestReaderSource_Close(t *testing.T) {
	spy := &closeSpy{Reader: strings.NewReader("")}
	if err := NewReaderSource(spy, 1).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !spy.closed {
		t.Error("underlying closer not closed")
	}
	if err := NewReaderSource(bytes.NewReader(nil), 1).Close(); err != nil {
		t.Errorf("Close on non-closer: %v", err)
	}
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]byte("a"), nil, []byte("bc"))
	chunks, err := drain(t, src)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(chunks) != 2 || string(chunks[0]) != "a" || string(chunks[1]) != "bc" {
		t.Errorf("chunks = %q", chunks)
	}

	failing := NewSliceSource([]byte("a"))
	failing.Err = io.ErrUnexpectedEOF
	if _, err := drain(t, failing); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestHTTPClient_StreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.EscapedPath(); got != "/api/company/Acme%20&%20Sons%2FLtd" {
			t.Errorf("path = %q", got)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("X-Api-Key = %q", got)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, `{"event":"start","tasks_count":1}`+"\n")
		flusher.Flush()
		_, _ = io.WriteString(w, `{"event":"end"}`+"\n")
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL, map[string]string{"X-Api-Key": "secret"}, time.Second)
	src, err := client.Open(context.Background(), "Acme & Sons/Ltd")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(iox.CloseFunc(src))

	chunks, err := drain(t, src)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	body := string(bytes.Join(chunks, nil))
	if body != `{"event":"start","tasks_count":1}`+"\n"+`{"event":"end"}`+"\n" {
		t.Errorf("body = %q", body)
	}
}

func TestHTTPClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "company not found", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPClient(srv.URL, nil, time.Second).Open(context.Background(), "nobody")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want 404", statusErr.Code)
	}
	if statusErr.Body != "company not found" {
		t.Errorf("Body = %q", statusErr.Body)
	}
}

func TestHTTPClient_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewHTTPClient(srv.URL, nil, time.Second).Open(context.Background(), "acme"); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("backend called %d times, want 1", n)
	}
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPClient(addr, nil, time.Second).Open(context.Background(), "acme")
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Errorf("connection failure should not be a StatusError: %v", err)
	}
}

func TestHTTPClient_URL(t *testing.T) {
	tests := []struct {
		base    string
		company string
		want    string
		wantErr bool
	}{
		{"http://localhost:8000", "acme", "http://localhost:8000/api/company/acme", false},
		{"http://localhost:8000/", "Tata Motors", "http://localhost:8000/api/company/Tata%20Motors", false},
		{"https://api.example.com/v1", "a/b", "https://api.example.com/v1/api/company/a%2Fb", false},
		{"localhost:8000", "acme", "", true},
		{"", "acme", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := (&HTTPClient{BaseURL: tt.base}).URL(tt.company)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}
