package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// TokenPath is where FakeProvider issues OAuth tokens.
const TokenPath = "/oauth/token"

// Response is one canned answer.
type Response struct {
	Status int
	Body   string
}

// OK is a 200 with body.
func OK(body string) Response {
	return Response{Status: http.StatusOK, Body: body}
}

// ProviderError is a provider error document.
func ProviderError(status int, code, message string) Response {
	return Response{
		Status: status,
		Body:   fmt.Sprintf(`{"errorCode":%q,"generalMessage":%q,"errors":[]}`, code, message),
	}
}

// RecordedRequest is a request FakeProvider received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body.
func (r RecordedRequest) JSON() map[string]any {
	var out map[string]any
	_ = json.Unmarshal(r.Body, &out)
	return out
}

// FakeProvider is an in-process stand-in for the card provider's OAuth and
// REST endpoints. Routes answer from a queue; the last answer repeats.
type FakeProvider struct {
	*httptest.Server

	mu        sync.Mutex
	routes    map[string][]Response
	requests  []RecordedRequest
	exchanges map[string]int
}

// NewFakeProvider starts a FakeProvider closed at test cleanup.
func NewFakeProvider(t testing.TB) *FakeProvider {
	t.Helper()
	fp := &FakeProvider{
		routes:    make(map[string][]Response),
		exchanges: make(map[string]int),
	}
	fp.Server = httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(fp.Close)
	return fp
}

// TokenURL is the OAuth endpoint.
func (f *FakeProvider) TokenURL() string {
	return f.URL + TokenPath
}

// On queues answers for method and path.
func (f *FakeProvider) On(method, path string, responses ...Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = append([]Response(nil), responses...)
}

// Requests returns recorded requests for method and path, oldest first.
func (f *FakeProvider) Requests(method, path string) []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RecordedRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count is len(Requests(method, path)).
func (f *FakeProvider) Count(method, path string) int {
	return len(f.Requests(method, path))
}

// APICalls counts every request other than token exchanges.
func (f *FakeProvider) APICalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Path != TokenPath {
			n++
		}
	}
	return n
}

// Exchanges counts token exchanges made with the given client id.
func (f *FakeProvider) Exchanges(appID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges[appID]
}

func (f *FakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})

	if r.URL.Path == TokenPath && r.Method == http.MethodPost {
		appID, _, _ := r.BasicAuth()
		f.exchanges[appID]++
		n := f.exchanges[appID]
		f.mu.Unlock()

		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"access_token":"%s-token-%d","token_type":"bearer","expires_in":3600}`, appID, n))
		return
	}

	key := r.Method + " " + r.URL.Path
	queue := f.routes[key]
	var resp Response
	switch len(queue) {
	case 0:
		resp = ProviderError(http.StatusNotFound, "404", "no route for "+key)
	case 1:
		resp = queue[0]
	default:
		resp = queue[0]
		f.routes[key] = queue[1:]
	}
	f.mu.Unlock()

	writeJSON(w, resp.Status, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
