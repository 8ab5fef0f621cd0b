package virustotal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/config"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/virustotal"
)

func writeTempFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmit_ReturnsAnalysisHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-apikey") != "key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"data":{"id":"analysis-1"}}`))
	}))
	defer srv.Close()

	c := virustotal.New(config.Provider{BaseURL: srv.URL, APIKey: "key"})
	h, err := c.Submit(context.Background(), writeTempFile(t, "demo.apk", 128))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if h == nil {
		t.Fatal("Submit returned nil handle")
	}
}

func TestSubmit_SkipsOversizedFile(t *testing.T) {
	c := virustotal.New(config.Provider{BaseURL: "http://unused", APIKey: "key", MaxFileSize: 64})
	_, err := c.Submit(context.Background(), writeTempFile(t, "big.apk", 128))
	var skip *domain.SkipError
	if !errors.As(err, &skip) {
		t.Fatalf("Submit error = %v, want SkipError", err)
	}
}

func TestPoll_States(t *testing.T) {
	responses := map[string]string{
		"queued": `{"data":{"attributes":{"status":"queued"}}}`,
		"completed": `{"data":{"attributes":{"status":"completed",
			"stats":{"malicious":1},
			"results":{
				"EngineA":{"category":"malicious","result":"Trojan.Foo"},
				"EngineB":{"category":"undetected"}
			}}}}`,
	}
	var current string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(responses[current]))
	}))
	defer srv.Close()

	c := virustotal.New(config.Provider{BaseURL: srv.URL, APIKey: "key"})
	submitSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"analysis-1"}}`))
	}))
	defer submitSrv.Close()
	sc := virustotal.New(config.Provider{BaseURL: submitSrv.URL, APIKey: "key"})
	h, err := sc.Submit(context.Background(), writeTempFile(t, "demo.apk", 16))
	if err != nil {
		t.Fatal(err)
	}

	current = "queued"
	res, err := c.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("Poll queued: %v", err)
	}
	if res.State != providers.StatePending {
		t.Errorf("queued state = %v, want pending", res.State)
	}

	current = "completed"
	res, err = c.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("Poll completed: %v", err)
	}
	if res.State != providers.StateDone {
		t.Fatalf("completed state = %v, want done", res.State)
	}
	rep, ok := res.Payload.(*domain.AVReport)
	if !ok {
		t.Fatalf("payload type = %T, want *AVReport", res.Payload)
	}
	if rep.Malicious != 1 || rep.Total != 2 {
		t.Errorf("report = %d malicious of %d, want 1 of 2", rep.Malicious, rep.Total)
	}
	if rep.Engines["EngineA"].Result != "Trojan.Foo" {
		t.Errorf("EngineA verdict = %+v", rep.Engines["EngineA"])
	}
}

func TestPoll_MalformedBodyIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":`)) // truncated
	}))
	defer srv.Close()

	submitSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"analysis-1"}}`))
	}))
	defer submitSrv.Close()
	h, err := virustotal.New(config.Provider{BaseURL: submitSrv.URL, APIKey: "key"}).
		Submit(context.Background(), writeTempFile(t, "demo.apk", 16))
	if err != nil {
		t.Fatal(err)
	}

	c := virustotal.New(config.Provider{BaseURL: srv.URL, APIKey: "key"})
	if _, err := c.Poll(context.Background(), h); err == nil {
		t.Fatal("Poll should surface malformed bodies as errors for the driver to retry")
	}
}
