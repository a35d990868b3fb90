package source

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    Platform
		wantErr error
	}{
		{
			name: "youtube watch url",
			url:  "https://www.youtube.com/watch?v=abc123",
			want: PlatformYouTube,
		},
		{
			name: "youtube short link",
			url:  "https://youtu.be/abc123",
			want: PlatformYouTube,
		},
		{
			name: "youtube mobile host",
			url:  "https://m.youtube.com/shorts/abc123",
			want: PlatformYouTube,
		},
		{
			name: "instagram reel",
			url:  "https://www.instagram.com/reel/Cxyz/",
			want: PlatformInstagram,
		},
		{
			name: "tiktok video",
			url:  "https://www.tiktok.com/@user/video/7300000000000000000",
			want: PlatformTikTok,
		},
		{
			name: "tiktok short link",
			url:  "http://vt.tiktok.com/ZSabc/",
			want: PlatformTikTok,
		},
		{
			name:    "empty url",
			url:     "   ",
			wantErr: ErrURLRequired,
		},
		{
			name:    "not a url",
			url:     "not-a-url",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "ftp scheme",
			url:     "ftp://youtube.com/video",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "unsupported host",
			url:     "https://vimeo.com/12345",
			wantErr: ErrUnsupportedPlatform,
		},
		{
			name:    "lookalike host",
			url:     "https://notyoutube.com/watch?v=abc",
			wantErr: ErrUnsupportedPlatform,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.url)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Detect(%q) error = %v, want %v", tt.url, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect(%q) unexpected error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestPlatform_Referer(t *testing.T) {
	if got := PlatformTikTok.Referer(); got != "https://www.tiktok.com/" {
		t.Errorf("TikTok referer = %q", got)
	}
	if got := PlatformYouTube.Referer(); got != "" {
		t.Errorf("YouTube referer = %q, want empty", got)
	}
}
