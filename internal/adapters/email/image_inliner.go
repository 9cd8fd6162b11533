package email

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"newsletterdispatch/internal/domain"
)

// imgSrcPattern captures the src attribute of an <img> tag: the prefix up to the
// opening quote, the quote, and the value. src must follow whitespace so that
// data-src and similar attributes are skipped.
var imgSrcPattern = regexp.MustCompile(`(?i)(<img\b[^>]*?\ssrc\s*=\s*)(["'])([^"']*)["']`)

// imageMIMETypes maps supported file extensions to MIME types. Anything else is
// served as JPEG.
var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

const defaultImageMIMEType = "image/jpeg"

type imageInliner struct {
	uploadsDir string
	urlPrefix  string
	baseURL    string
	readFile   func(name string) ([]byte, error)
	logger     *slog.Logger
}

// NewImageInliner returns an ImageInliner that embeds images whose src starts
// with urlPrefix (e.g. "/uploads/") by reading them from uploadsDir. Images that
// cannot be read are pointed at baseURL instead.
func NewImageInliner(uploadsDir, urlPrefix, baseURL string, logger *slog.Logger) domain.ImageInliner {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &imageInliner{
		uploadsDir: uploadsDir,
		urlPrefix:  urlPrefix,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		readFile:   os.ReadFile,
		logger:     logger,
	}
}

// Inline rewrites every upload-relative <img src>. Other tags are left as they are.
func (i *imageInliner) Inline(html string) string {
	return imgSrcPattern.ReplaceAllStringFunc(html, func(tag string) string {
		m := imgSrcPattern.FindStringSubmatch(tag)
		prefix, quote, src := m[1], m[2], m[3]
		if !strings.HasPrefix(src, i.urlPrefix) {
			return tag
		}
		return prefix + quote + i.rewrite(src) + quote
	})
}

func (i *imageInliner) rewrite(src string) string {
	fallback := i.baseURL + src

	rel := strings.TrimPrefix(src, i.urlPrefix)
	if cut := strings.IndexAny(rel, "?#"); cut >= 0 {
		rel = rel[:cut]
	}
	rel = path.Clean("/" + rel)
	if rel == "/" {
		return fallback
	}
	file := filepath.Join(i.uploadsDir, filepath.FromSlash(rel))

	data, err := i.readFile(file)
	if err != nil {
		i.logger.Warn("inline image unavailable, using absolute url", "src", src, "err", err)
		return fallback
	}
	return "data:" + imageMIMEType(rel) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func imageMIMEType(name string) string {
	if t, ok := imageMIMETypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return defaultImageMIMEType
}
