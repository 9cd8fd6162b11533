package email

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInliner(files map[string][]byte) *imageInliner {
	i := NewImageInliner("/srv/uploads", "/uploads/", "https://news.example.com/", slog.New(slog.NewTextHandler(io.Discard, nil))).(*imageInliner)
	i.readFile = func(name string) ([]byte, error) {
		if data, ok := files[name]; ok {
			return data, nil
		}
		return nil, os.ErrNotExist
	}
	return i
}

func TestImageInliner_Inline(t *testing.T) {
	files := map[string][]byte{
		filepath.Join("/srv/uploads", "a.png"):          []byte("png-bytes"),
		filepath.Join("/srv/uploads", "photos", "b.JPG"): []byte("jpg-bytes"),
		filepath.Join("/srv/uploads", "c.bmp"):          []byte("bmp-bytes"),
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "png becomes data uri",
			in:   `<p><img src="/uploads/a.png" alt="a"></p>`,
			want: `<p><img src="data:image/png;base64,cG5nLWJ5dGVz" alt="a"></p>`,
		},
		{
			name: "single quotes and uppercase extension",
			in:   `<IMG class="x" SRC='/uploads/photos/b.JPG'>`,
			want: `<IMG class="x" SRC='data:image/jpeg;base64,anBnLWJ5dGVz'>`,
		},
		{
			name: "query string ignored when reading",
			in:   `<img src="/uploads/a.png?v=2">`,
			want: `<img src="data:image/png;base64,cG5nLWJ5dGVz">`,
		},
		{
			name: "unknown extension defaults to jpeg",
			in:   `<img src="/uploads/c.bmp">`,
			want: `<img src="data:image/jpeg;base64,Ym1wLWJ5dGVz">`,
		},
		{
			name: "missing file falls back to absolute url",
			in:   `<img src="/uploads/missing.gif">`,
			want: `<img src="https://news.example.com/uploads/missing.gif">`,
		},
		{
			name: "traversal stays inside uploads dir",
			in:   `<img src="/uploads/../../etc/passwd">`,
			want: `<img src="https://news.example.com/uploads/../../etc/passwd">`,
		},
		{
			name: "external images untouched",
			in:   `<img src="https://cdn.example.com/x.png"><img src="/static/y.png">`,
			want: `<img src="https://cdn.example.com/x.png"><img src="/static/y.png">`,
		},
		{
			name: "data-src left alone, real src inlined",
			in:   `<img data-src="/uploads/a.png" src="/uploads/a.png">`,
			want: `<img data-src="/uploads/a.png" src="data:image/png;base64,cG5nLWJ5dGVz">`,
		},
		{
			name: "data-src without src untouched",
			in:   `<img data-src="/uploads/a.png">`,
			want: `<img data-src="/uploads/a.png">`,
		},
		{
			name: "non img tags untouched",
			in:   `<a href="/uploads/a.png">link</a>`,
			want: `<a href="/uploads/a.png">link</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := newTestInliner(files)
			assert.Equal(t, tt.want, i.Inline(tt.in))
		})
	}
}

func TestImageInliner_TraversalNeverReadsOutside(t *testing.T) {
	var read []string
	i := newTestInliner(nil)
	i.readFile = func(name string) ([]byte, error) {
		read = append(read, name)
		return nil, errors.New("nope")
	}

	i.Inline(`<img src="/uploads/../../etc/passwd">`)

	require.Len(t, read, 1)
	assert.Equal(t, filepath.Join("/srv/uploads", "etc", "passwd"), read[0])
}

func TestImageInliner_Idempotent(t *testing.T) {
	i := newTestInliner(map[string][]byte{
		filepath.Join("/srv/uploads", "a.png"): []byte("png-bytes"),
	})
	html := `<h1>Hi</h1><img src="/uploads/a.png"><img src="/uploads/gone.png">`

	once := i.Inline(html)
	twice := i.Inline(once)

	assert.Equal(t, once, twice)
	assert.NotContains(t, once, `src="/uploads/`)
}
