package upload

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/rlquery/pkg/config"
)

func TestResolvePrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		rel    string
		want   string
	}{
		{
			name:   "default prefix",
			prefix: "",
			rel:    "lr_sweep.txt",
			want:   "rlquery/easy_plot/lr_sweep.txt",
		},
		{
			name:   "custom prefix",
			prefix: "team/figures",
			rel:    "hopper/return.txt.json",
			want:   "team/figures/hopper/return.txt.json",
		},
		{
			name:   "trailing slash stripped",
			prefix: "my-prefix/",
			rel:    "fig.txt",
			want:   "my-prefix/fig.txt",
		},
		{
			name:   "prefix only",
			prefix: "my-prefix",
			rel:    "",
			want:   "my-prefix/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &s3Uploader{
				cfg: &config.S3Config{Prefix: tt.prefix},
			}
			got := u.resolvePrefix(tt.rel)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantPrefix string
	}{
		{
			name:       "figure data",
			path:       "easy_plot/lr_sweep.txt.json",
			wantPrefix: "application/json",
		},
		{
			name:       "no extension",
			path:       "easy_plot/lr_sweep",
			wantPrefix: "application/octet-stream",
		},
		{
			name:       "rendered chart",
			path:       "easy_plot/lr_sweep.txt",
			wantPrefix: "text/plain",
		},
		{
			name:       "png image",
			path:       "easy_plot/return.png",
			wantPrefix: "image/png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectContentType(tt.path)
			assert.Contains(t, got, tt.wantPrefix)
		})
	}
}

func TestNewS3Uploader_RequiresBucket(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	_, err := NewS3Uploader(log, &config.S3Config{})
	require.Error(t, err)

	u, err := NewS3Uploader(log, &config.S3Config{Bucket: "figures"})
	require.NoError(t, err)
	assert.NotNil(t, u)
}
