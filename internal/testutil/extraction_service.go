// extraction_service.go - In-process stand-in for the Extraction Service
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedUpload is one multipart part received by the fake service.
type RecordedUpload struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     []byte
}

// FakeExtractionService answers every POST with a canned status and body
// and records the file parts it receives.
type FakeExtractionService struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests int
	uploads  []RecordedUpload
	methods  []string
	release  chan struct{}
}

// NewFakeExtractionService starts a fake service. It is closed when the test ends.
func NewFakeExtractionService(t *testing.T, status int, body string) *FakeExtractionService {
	t.Helper()

	f := &FakeExtractionService{status: status, body: body}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

// Endpoint returns the extract URL of the fake service.
func (f *FakeExtractionService) Endpoint() string {
	return f.URL + "/api/extract"
}

// Respond changes the canned response for subsequent requests.
func (f *FakeExtractionService) Respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.body = body
}

// Hold makes requests block until the returned function is called.
func (f *FakeExtractionService) Hold() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.release = ch
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// RequestCount returns how many requests reached the service.
func (f *FakeExtractionService) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// Uploads returns every file part received so far.
func (f *FakeExtractionService) Uploads() []RecordedUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedUpload, len(f.uploads))
	copy(out, f.uploads)
	return out
}

// Methods returns the HTTP method of each request received.
func (f *FakeExtractionService) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func (f *FakeExtractionService) handle(w http.ResponseWriter, r *http.Request) {
	var uploads []RecordedUpload
	if mr, err := r.MultipartReader(); err == nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(part)
			uploads = append(uploads, RecordedUpload{
				FieldName:   part.FormName(),
				FileName:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Content:     data,
			})
		}
	}

	f.mu.Lock()
	f.requests++
	f.methods = append(f.methods, r.Method)
	f.uploads = append(f.uploads, uploads...)
	status, body, release := f.status, f.body, f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
