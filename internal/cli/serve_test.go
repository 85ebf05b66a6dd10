package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/previewforge/previewforge/pkg/pipeline"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	c := New(io.Discard, LogInfo)
	runner := pipeline.NewRunner(nil, nil, nil, nil, c.Logger)
	srv := httptest.NewServer(c.routes(runner))
	t.Cleanup(srv.Close)
	return srv
}

func TestServeHealthz(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServePlatforms(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/platforms")
	if err != nil {
		t.Fatalf("GET /platforms: %v", err)
	}
	defer resp.Body.Close()

	var profiles []struct {
		Name   string `json:"name"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(profiles) == 0 {
		t.Fatal("no platform profiles returned")
	}
	for _, p := range profiles {
		if p.Name == "" || p.Width <= 0 || p.Height <= 0 {
			t.Errorf("malformed profile %+v", p)
		}
	}
}

func TestServeRender(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(pipeline.Options{
		URL:    "https://example.com",
		Title:  "Example Title",
		Width:  400,
		Height: 210,
	})
	resp, err := http.Post(srv.URL+"/render", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if resp.Header.Get("X-Run-Id") == "" {
		t.Error("missing X-Run-Id header")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("response is not a PNG")
	}
}

func TestServeRenderManifest(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(pipeline.Options{Title: "Example Title"})
	resp, err := http.Post(srv.URL+"/render?manifest=1", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var m struct {
		RunID    string `json:"runId"`
		Template string `json:"template"`
		Width    int    `json:"width"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.RunID == "" || m.Template == "" || m.Width == 0 {
		t.Errorf("incomplete manifest %+v", m)
	}
}

func TestServeRenderBadRequest(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/render", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServeRenderMissingTitle(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(pipeline.Options{URL: "https://example.com"})
	resp, err := http.Post(srv.URL+"/render", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
