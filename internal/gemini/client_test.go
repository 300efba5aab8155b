package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateTextRequestShape(t *testing.T) {
	var gotPath, gotKey, gotCT string
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotCT = r.Header.Get("Content-Type")
		if r.Method != http.MethodPost {
			t.Errorf("method %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hi there!"}]}}]}`)
	}))
	defer ts.Close()

	c := New(ts.URL+"/", "gemini-1.5-flash-latest", "k123", ts.Client())
	text, err := c.GenerateText(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "Hi there!" {
		t.Fatalf("text %q", text)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash-latest:generateContent" {
		t.Fatalf("path %q", gotPath)
	}
	if gotKey != "k123" {
		t.Fatalf("key %q", gotKey)
	}
	if gotCT != "application/json" {
		t.Fatalf("content-type %q", gotCT)
	}
	contents := got["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents %v", contents)
	}
	parts := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 1 || parts[0].(map[string]any)["text"] != "Hello" {
		t.Fatalf("parts %v", parts)
	}
	cfg := got["generationConfig"].(map[string]any)
	if cfg["temperature"] != 0.7 || cfg["topK"] != float64(1) || cfg["topP"] != float64(1) || cfg["maxOutputTokens"] != float64(256) {
		t.Fatalf("generationConfig %v", cfg)
	}
}

func TestGenerateTextErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"status", http.StatusForbidden, `{"error":{"message":"API key not valid"}}`, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode == http.StatusForbidden && strings.Contains(se.Body, "API key not valid")
		}},
		{"no candidates", http.StatusOK, `{}`, func(err error) bool { return errors.Is(err, ErrNoCandidates) }},
		{"empty candidates", http.StatusOK, `{"candidates":[]}`, func(err error) bool { return errors.Is(err, ErrNoCandidates) }},
		{"no parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, func(err error) bool { return errors.Is(err, ErrNoCandidates) }},
		{"null part", http.StatusOK, `{"candidates":[{"content":{"parts":[null]}}]}`, func(err error) bool { return errors.Is(err, ErrNoCandidates) }},
		{"null candidate", http.StatusOK, `{"candidates":[null]}`, func(err error) bool { return errors.Is(err, ErrNoCandidates) }},
		{"not json", http.StatusOK, `<html>`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()
			_, err := New(ts.URL, "m", "k", ts.Client()).GenerateText(context.Background(), "p")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestTransportErrorRedactsKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	const key = "AIzaSyD-0123456789abcdef"
	_, err := New(url, "m", key, nil).GenerateText(context.Background(), "p")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if strings.Contains(err.Error(), key) {
		t.Fatalf("error leaks key: %v", err)
	}
}

func TestEndpointEscapesKey(t *testing.T) {
	c := New("https://example.test", "gemini-pro", "a b&c", nil)
	want := "https://example.test/v1beta/models/gemini-pro:generateContent?key=a+b%26c"
	if got := c.Endpoint(); got != want {
		t.Fatalf("Endpoint = %q; want %q", got, want)
	}
}
