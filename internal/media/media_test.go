package media

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubRunner struct {
	run   func(name string, args []string) ([]byte, []byte, error)
	calls [][]string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	return s.run(name, args)
}

func hasArgs(args []string, want ...string) bool {
	joined := " " + strings.Join(args, " ") + " "
	return strings.Contains(joined, " "+strings.Join(want, " ")+" ")
}

func TestFFprobeParsesAudioStream(t *testing.T) {
	r := &stubRunner{run: func(string, []string) ([]byte, []byte, error) {
		return []byte(`{"streams":[{"codec_type":"video","codec_name":"h264"},{"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"16000","channels":1}],"format":{"duration":"12.480000"}}`), nil, nil
	}}
	res, err := NewFFprobe("", r).Probe(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Duration != 12.48 || res.Codec != "pcm_s16le" || res.SampleRate != 16000 || res.Channels != 1 {
		t.Fatalf("unexpected probe: %+v", res)
	}
	if r.calls[0][0] != "ffprobe" || !hasArgs(r.calls[0], "-of", "json") {
		t.Fatalf("unexpected call %v", r.calls[0])
	}
}

func TestFFprobeMissingDuration(t *testing.T) {
	r := &stubRunner{run: func(string, []string) ([]byte, []byte, error) {
		return []byte(`{"streams":[],"format":{}}`), nil, nil
	}}
	if _, err := NewFFprobe("", r).Probe(context.Background(), "a.wav"); err == nil {
		t.Fatal("expected error")
	}
}

func TestYtDlpMetadata(t *testing.T) {
	r := &stubRunner{run: func(string, []string) ([]byte, []byte, error) {
		return []byte(`{"title":"Cake","description":"easy cake","duration":42.5,"uploader":"chef","thumbnail":"https://i/1.jpg","formats":[]}`), nil, nil
	}}
	md, err := NewYtDlp("", r).Metadata(context.Background(), "https://www.youtube.com/shorts/abc123")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if md.Title != "Cake" || md.Duration != 42.5 || md.Uploader != "chef" {
		t.Fatalf("unexpected metadata %+v", md)
	}
	if !hasArgs(r.calls[0], "--dump-json", "--skip-download") {
		t.Fatalf("unexpected args %v", r.calls[0])
	}
}

func TestYtDlpHasAudio(t *testing.T) {
	cases := map[string]struct {
		listing string
		want    bool
	}{
		"audio only stream": {"ID EXT RESOLUTION\n140 m4a audio only 129k\n137 mp4 1920x1080 video only", true},
		"video only":        {"ID EXT RESOLUTION\n137 mp4 1920x1080 video only", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := &stubRunner{run: func(string, []string) ([]byte, []byte, error) {
				return []byte(tc.listing), nil, nil
			}}
			got, err := NewYtDlp("", r).HasAudio(context.Background(), "u")
			if err != nil || got != tc.want {
				t.Fatalf("HasAudio = %v, %v; want %v", got, err, tc.want)
			}
		})
	}
}

func TestYtDlpDownloadAudioArgs(t *testing.T) {
	r := &stubRunner{run: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("ERROR: HTTP Error 403"), errors.New("exit status 1")
	}}
	stderr, err := NewYtDlp("/usr/bin/yt-dlp", r).DownloadAudio(context.Background(), DownloadRequest{
		URL:        "https://vm.tiktok.com/x/",
		OutputBase: "/tmp/s/audio-1",
		Format:     "wav",
		Selector:   "worstaudio/worst",
		MaxSeconds: 300,
	})
	if err == nil || !strings.Contains(stderr, "403") {
		t.Fatalf("expected stderr passthrough, got %q %v", stderr, err)
	}
	call := r.calls[0]
	if call[0] != "/usr/bin/yt-dlp" {
		t.Fatalf("binary = %s", call[0])
	}
	for _, want := range [][]string{
		{"-x", "--audio-format", "wav"},
		{"-o", "/tmp/s/audio-1.%(ext)s"},
		{"--download-sections", "*0-300"},
		{"-f", "worstaudio/worst"},
	} {
		if !hasArgs(call, want...) {
			t.Errorf("missing %v in %v", want, call)
		}
	}
	if call[len(call)-1] != "https://vm.tiktok.com/x/" {
		t.Errorf("url must be last: %v", call)
	}
}

func TestFFmpegExtractSegment(t *testing.T) {
	r := &stubRunner{run: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	if err := NewFFmpeg("", r).ExtractSegment(context.Background(), "in.wav", "out.wav", 30, 30); err != nil {
		t.Fatal(err)
	}
	if !hasArgs(r.calls[0], "-ss", "30.000", "-t", "30.000", "-i", "in.wav") {
		t.Fatalf("unexpected args %v", r.calls[0])
	}
}

func TestExitErrorTruncatesStderr(t *testing.T) {
	e := &ExitError{Tool: "yt-dlp", Err: errors.New("exit status 1"), Stderr: strings.Repeat("x", 2000)}
	if len(e.Error()) > 600 {
		t.Fatalf("error too long: %d", len(e.Error()))
	}
}
