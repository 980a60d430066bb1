package platform

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"video-recipe-go/internal/types"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type DetectionResult struct {
	IsVideoURL  bool                   `json:"is_video_url"`
	IsSupported bool                   `json:"is_supported"`
	Platform    types.Platform         `json:"platform,omitempty"`
	Confidence  Confidence             `json:"confidence"`
	Video       *types.VideoDescriptor `json:"video,omitempty"`
	Code        types.ErrorCode        `json:"code,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// pattern is matched against "host/path" with the host lowercased and any
// leading "www." or "m." kept.
type pattern struct {
	platform  types.Platform
	re        *regexp.Regexp
	normalize func(m []string, u *url.URL) (id, normalized string, ok bool)
}

var patterns = []pattern{
	{
		platform: types.PlatformInstagram,
		re:       regexp.MustCompile(`^(?:www\.)?instagram\.com/(reel|reels|p|tv)/([A-Za-z0-9_-]+)/?$`),
		normalize: func(m []string, _ *url.URL) (string, string, bool) {
			kind := m[1]
			if kind == "reels" {
				kind = "reel"
			}
			return m[2], "https://www.instagram.com/" + kind + "/" + m[2] + "/", true
		},
	},
	{
		platform: types.PlatformTikTok,
		re:       regexp.MustCompile(`^(?:www\.|m\.)?tiktok\.com/@([A-Za-z0-9_.-]+)/video/(\d+)/?$`),
		normalize: func(m []string, _ *url.URL) (string, string, bool) {
			return m[2], "https://www.tiktok.com/@" + m[1] + "/video/" + m[2], true
		},
	},
	{
		platform: types.PlatformTikTok,
		re:       regexp.MustCompile(`^(vm|vt)\.tiktok\.com/([A-Za-z0-9]+)/?$`),
		normalize: func(m []string, _ *url.URL) (string, string, bool) {
			return m[2], "https://" + m[1] + ".tiktok.com/" + m[2] + "/", true
		},
	},
	{
		platform: types.PlatformTikTok,
		re:       regexp.MustCompile(`^(?:www\.)?tiktok\.com/t/([A-Za-z0-9]+)/?$`),
		normalize: func(m []string, _ *url.URL) (string, string, bool) {
			return m[1], "https://www.tiktok.com/t/" + m[1] + "/", true
		},
	},
	{
		platform: types.PlatformYouTube,
		re:       regexp.MustCompile(`^(?:www\.|m\.)?youtube\.com/shorts/([A-Za-z0-9_-]+)/?$`),
		normalize: func(m []string, _ *url.URL) (string, string, bool) {
			return m[1], "https://www.youtube.com/shorts/" + m[1], true
		},
	},
	{
		platform: types.PlatformYouTube,
		re:       regexp.MustCompile(`^youtu\.be/([A-Za-z0-9_-]+)/?$`),
		normalize: func(m []string, _ *url.URL) (string, string, bool) {
			return m[1], "https://www.youtube.com/shorts/" + m[1], true
		},
	},
	{
		// Long-form watch links only count when they point at a clip offset.
		platform: types.PlatformYouTube,
		re:       regexp.MustCompile(`^(?:www\.|m\.)?youtube\.com/watch/?$`),
		normalize: func(_ []string, u *url.URL) (string, string, bool) {
			id := u.Query().Get("v")
			if !validYouTubeID.MatchString(id) {
				return "", "", false
			}
			t, ok := clipOffset(u)
			if !ok {
				return "", "", false
			}
			return id, "https://www.youtube.com/watch?v=" + id + "&t=" + t, true
		},
	},
}

var (
	validYouTubeID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	offsetValue    = regexp.MustCompile(`^\d+s?$`)
	videoFileExt   = map[string]bool{
		".mp4": true, ".mov": true, ".webm": true, ".m4v": true, ".avi": true, ".mkv": true,
	}
)

// clipOffset returns the t= value from the query or fragment.
func clipOffset(u *url.URL) (string, bool) {
	if t := u.Query().Get("t"); offsetValue.MatchString(t) {
		return t, true
	}
	if frag, err := url.ParseQuery(u.Fragment); err == nil {
		if t := frag.Get("t"); offsetValue.MatchString(t) {
			return t, true
		}
	}
	return "", false
}

// Detect classifies raw against the known short-form URL shapes.
// It never touches the network.
func Detect(raw string) DetectionResult {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return DetectionResult{
			Confidence: ConfidenceLow,
			Code:       types.ErrInvalidURL,
			Error:      "not a valid http(s) URL",
		}
	}

	host := strings.ToLower(u.Hostname())
	target := host + u.EscapedPath()

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(target)
		if m == nil {
			continue
		}
		id, normalized, ok := p.normalize(m, u)
		if !ok {
			if p.platform == types.PlatformYouTube {
				return DetectionResult{
					IsVideoURL: true,
					Platform:   p.platform,
					Confidence: ConfidenceMedium,
					Code:       types.ErrUnsupportedPlatform,
					Error:      "youtube link is not a short-form video; use a /shorts/ link",
				}
			}
			continue
		}
		return DetectionResult{
			IsVideoURL:  true,
			IsSupported: true,
			Platform:    p.platform,
			Confidence:  ConfidenceHigh,
			Video: &types.VideoDescriptor{
				Platform:      p.platform,
				VideoID:       id,
				OriginalURL:   raw,
				NormalizedURL: normalized,
			},
		}
	}

	if videoFileExt[strings.ToLower(path.Ext(u.Path))] {
		return DetectionResult{
			IsVideoURL: true,
			Confidence: ConfidenceMedium,
			Code:       types.ErrUnsupportedPlatform,
			Error:      "direct video file links are not supported",
		}
	}

	return DetectionResult{
		Confidence: ConfidenceLow,
		Code:       types.ErrUnsupportedPlatform,
		Error:      "unsupported platform: " + host,
	}
}

// Validate returns the descriptor for a supported URL or a *types.PipelineError.
func Validate(raw string) (types.VideoDescriptor, error) {
	res := Detect(raw)
	if !res.IsSupported {
		return types.VideoDescriptor{}, types.NewPermanentError(res.Code, "%s", res.Error)
	}
	return *res.Video, nil
}

// SupportedPlatforms lists the platforms Detect can return.
func SupportedPlatforms() []types.Platform {
	return []types.Platform{types.PlatformInstagram, types.PlatformTikTok, types.PlatformYouTube}
}
