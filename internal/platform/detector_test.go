package platform

import (
	"testing"

	"video-recipe-go/internal/types"
)

func TestDetectSupported(t *testing.T) {
	cases := []struct {
		url        string
		platform   types.Platform
		id         string
		normalized string
	}{
		{"https://www.instagram.com/reel/Cx1AbC2dEf/", types.PlatformInstagram, "Cx1AbC2dEf", "https://www.instagram.com/reel/Cx1AbC2dEf/"},
		{"https://instagram.com/reels/Cx1AbC2dEf?igsh=xyz", types.PlatformInstagram, "Cx1AbC2dEf", "https://www.instagram.com/reel/Cx1AbC2dEf/"},
		{"https://www.instagram.com/p/B_x9-Q/", types.PlatformInstagram, "B_x9-Q", "https://www.instagram.com/p/B_x9-Q/"},
		{"https://www.tiktok.com/@chef.anna/video/7301234567890123456", types.PlatformTikTok, "7301234567890123456", "https://www.tiktok.com/@chef.anna/video/7301234567890123456"},
		{"https://vm.tiktok.com/ZMabc123/", types.PlatformTikTok, "ZMabc123", "https://vm.tiktok.com/ZMabc123/"},
		{"https://www.tiktok.com/t/ZT8abc/", types.PlatformTikTok, "ZT8abc", "https://www.tiktok.com/t/ZT8abc/"},
		{"https://www.youtube.com/shorts/abc123", types.PlatformYouTube, "abc123", "https://www.youtube.com/shorts/abc123"},
		{"https://m.youtube.com/shorts/abc123?feature=share", types.PlatformYouTube, "abc123", "https://www.youtube.com/shorts/abc123"},
		{"https://youtu.be/abc123", types.PlatformYouTube, "abc123", "https://www.youtube.com/shorts/abc123"},
		{"https://www.youtube.com/watch?v=abc123&t=42s", types.PlatformYouTube, "abc123", "https://www.youtube.com/watch?v=abc123&t=42s"},
		{"https://www.youtube.com/watch?v=abc123#t=15", types.PlatformYouTube, "abc123", "https://www.youtube.com/watch?v=abc123&t=15"},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			res := Detect(tc.url)
			if !res.IsSupported || !res.IsVideoURL {
				t.Fatalf("expected supported, got %+v", res)
			}
			if res.Confidence != ConfidenceHigh {
				t.Errorf("confidence = %s", res.Confidence)
			}
			if res.Video.Platform != tc.platform || res.Video.VideoID != tc.id {
				t.Errorf("got %s/%s, want %s/%s", res.Video.Platform, res.Video.VideoID, tc.platform, tc.id)
			}
			if res.Video.NormalizedURL != tc.normalized {
				t.Errorf("normalized = %s, want %s", res.Video.NormalizedURL, tc.normalized)
			}
			if res.Video.OriginalURL != tc.url {
				t.Errorf("original = %s", res.Video.OriginalURL)
			}
		})
	}
}

func TestDetectRejects(t *testing.T) {
	cases := []struct {
		url        string
		code       types.ErrorCode
		isVideo    bool
		confidence Confidence
	}{
		{"https://www.youtube.com/watch?v=abc123", types.ErrUnsupportedPlatform, true, ConfidenceMedium},
		{"https://www.youtube.com/watch?v=abc123&list=PL1", types.ErrUnsupportedPlatform, true, ConfidenceMedium},
		{"https://vimeo.com/12345", types.ErrUnsupportedPlatform, false, ConfidenceLow},
		{"https://www.instagram.com/chef.anna/", types.ErrUnsupportedPlatform, false, ConfidenceLow},
		{"https://evil.com/instagram.com/reel/abc", types.ErrUnsupportedPlatform, false, ConfidenceLow},
		{"https://cdn.example.com/clips/cake.mp4", types.ErrUnsupportedPlatform, true, ConfidenceMedium},
		{"not a url", types.ErrInvalidURL, false, ConfidenceLow},
		{"ftp://youtube.com/shorts/abc", types.ErrInvalidURL, false, ConfidenceLow},
		{"", types.ErrInvalidURL, false, ConfidenceLow},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			res := Detect(tc.url)
			if res.IsSupported {
				t.Fatalf("expected unsupported, got %+v", res)
			}
			if res.Error == "" {
				t.Error("expected an error message")
			}
			if res.Code != tc.code {
				t.Errorf("code = %s, want %s", res.Code, tc.code)
			}
			if res.IsVideoURL != tc.isVideo || res.Confidence != tc.confidence {
				t.Errorf("isVideo=%v confidence=%s", res.IsVideoURL, res.Confidence)
			}
		})
	}
}

func TestValidateReturnsPermanentError(t *testing.T) {
	_, err := Validate("https://vimeo.com/1")
	if types.CodeOf(err) != types.ErrUnsupportedPlatform || !types.IsPermanent(err) {
		t.Fatalf("unexpected error: %v", err)
	}

	d, err := Validate("https://www.youtube.com/shorts/abc123")
	if err != nil || d.VideoID != "abc123" {
		t.Fatalf("Validate = %+v, %v", d, err)
	}
}
