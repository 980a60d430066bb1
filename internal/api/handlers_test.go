package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"video-recipe-go/internal/audio"
	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/types"
)

type stubProcessor struct {
	got  processor.Options
	url  string
	resp *types.ProcessingResult
}

func (s *stubProcessor) Process(_ context.Context, videoURL string, opts processor.Options) *types.ProcessingResult {
	s.url, s.got = videoURL, opts
	if opts.OnProgress != nil {
		opts.OnProgress(processor.ProgressEvent{Stage: processor.StageURLValidation, Progress: 10, Message: "validating"})
		opts.OnProgress(processor.ProgressEvent{Stage: processor.StageTranscription, Progress: 60, Message: "transcribing"})
	}
	return s.resp
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&stubProcessor{}, processor.Options{}, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDetect(t *testing.T) {
	h := NewRouter(&stubProcessor{}, processor.Options{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(`{"url":"https://youtu.be/abc123"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var got struct {
		IsSupported bool   `json:"is_supported"`
		Platform    string `json:"platform"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsSupported || got.Platform != string(types.PlatformYouTube) {
		t.Fatalf("got %+v", got)
	}
}

func TestExtract(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		resp   *types.ProcessingResult
		status int
	}{
		{"success", `{"url":"https://youtu.be/abc123"}`, &types.ProcessingResult{Success: true}, http.StatusOK},
		{"unsupported", `{"url":"https://vimeo.com/1"}`, &types.ProcessingResult{ErrorCode: types.ErrUnsupportedPlatform}, http.StatusBadRequest},
		{"timeout", `{"url":"https://youtu.be/abc123"}`, &types.ProcessingResult{ErrorCode: types.ErrTimeout}, http.StatusGatewayTimeout},
		{"download", `{"url":"https://youtu.be/abc123"}`, &types.ProcessingResult{ErrorCode: types.ErrVideoDownloadFailed}, http.StatusBadGateway},
		{"missing url", `{}`, nil, http.StatusBadRequest},
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"bad quality", `{"url":"https://youtu.be/abc123","options":{"audio_quality":"ultra"}}`, nil, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRouter(&stubProcessor{resp: tc.resp}, processor.Options{}, nil)
			req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestExtractAppliesOverrides(t *testing.T) {
	stub := &stubProcessor{resp: &types.ProcessingResult{Success: true}}
	base := processor.Options{AudioQuality: audio.QualityLow, StructureModel: "llama3.2"}
	h := NewRouter(stub, base, nil)

	body := `{"url":"https://youtu.be/abc123","options":{"audio_quality":"HIGH","text_model":"qwen2.5","skip_metadata":true,"timeout_sec":90}}`
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(body))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if stub.url != "https://youtu.be/abc123" {
		t.Fatalf("url = %s", stub.url)
	}
	if stub.got.AudioQuality != audio.QualityHigh || stub.got.StructureModel != "qwen2.5" || !stub.got.SkipMetadata {
		t.Fatalf("options = %+v", stub.got)
	}
	if stub.got.Timeout.Seconds() != 90 {
		t.Fatalf("timeout = %s", stub.got.Timeout)
	}
}

func TestExtractStream(t *testing.T) {
	stub := &stubProcessor{resp: &types.ProcessingResult{Success: true, RunID: "run-1"}}
	srv := httptest.NewServer(NewRouter(stub, processor.Options{}, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/extract?stream=true", "application/json", strings.NewReader(`{"url":"https://youtu.be/abc123"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content type = %s", ct)
	}

	var events []streamEvent
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var ev streamEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Type != "progress" || events[0].Progress.Stage != processor.StageURLValidation {
		t.Errorf("first event = %+v", events[0])
	}
	last := events[2]
	if last.Type != "result" || last.Result == nil || last.Result.RunID != "run-1" {
		t.Errorf("last event = %+v", last)
	}
}
