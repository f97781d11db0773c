package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockHTTPDoer implements client.HTTPDoer for testing.
// It's programmable - you can queue responses and errors for specific requests.
type MockHTTPDoer struct {
	queue map[string][]mockReply
	calls []HTTPCall
	mu    sync.Mutex
}

type mockReply struct {
	err    error
	body   []byte
	status int
}

// HTTPCall records a single HTTP call.
type HTTPCall struct {
	Header http.Header
	Method string
	URL    string
	Body   []byte
}

// NewMockHTTPDoer creates a new MockHTTPDoer.
func NewMockHTTPDoer() *MockHTTPDoer {
	return &MockHTTPDoer{
		queue: make(map[string][]mockReply),
		calls: []HTTPCall{},
	}
}

// Do records the request and returns the next queued reply.
// The last reply for a key is repeated once the queue drains.
func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return &http.Response{
				StatusCode: http.StatusBadRequest,
				Body:       io.NopCloser(strings.NewReader(`{"error":"failed to read request body"}`)),
				Header:     make(http.Header),
			}, nil
		}
		req.Body = io.NopCloser(bytes.NewReader(body)) // Restore body
	}
	m.calls = append(m.calls, HTTPCall{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	key := m.makeKey(req.Method, req.URL.String())
	replies := m.queue[key]
	if len(replies) == 0 {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(strings.NewReader(`{"error":"not found"}`)),
			Header:     make(http.Header),
		}, nil
	}

	reply := replies[0]
	if len(replies) > 1 {
		m.queue[key] = replies[1:]
	}
	if reply.err != nil {
		return nil, reply.err
	}
	return &http.Response{
		StatusCode: reply.status,
		Status:     fmt.Sprintf("%d %s", reply.status, http.StatusText(reply.status)),
		Body:       io.NopCloser(bytes.NewReader(reply.body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

// AddResponse queues a JSON response for a method and URL.
func (m *MockHTTPDoer) AddResponse(method, url string, statusCode int, body any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			panic(fmt.Sprintf("failed to marshal response body: %v", err))
		}
	}

	key := m.makeKey(method, url)
	m.queue[key] = append(m.queue[key], mockReply{status: statusCode, body: bodyBytes})
}

// AddError queues a transport error for a method and URL.
func (m *MockHTTPDoer) AddError(method, url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.makeKey(method, url)
	m.queue[key] = append(m.queue[key], mockReply{err: err})
}

// Calls returns all recorded HTTP calls.
func (m *MockHTTPDoer) Calls() []HTTPCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]HTTPCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Reset clears all queued replies and recorded calls.
func (m *MockHTTPDoer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = make(map[string][]mockReply)
	m.calls = []HTTPCall{}
}

func (*MockHTTPDoer) makeKey(method, url string) string {
	return method + ":" + url
}
