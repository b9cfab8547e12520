package photo

import (
	"net/url"
	"path"
	"strings"
)

// Resolver turns stored photo references into URLs the browser can load.
// References come in three shapes: a full URL, an absolute path on the
// photo host, or a bare filename under the upload prefix.
type Resolver struct {
	BaseURL      string
	UploadPrefix string
}

// NewResolver creates a Resolver. An empty uploadPrefix defaults to "/uploads".
func NewResolver(baseURL, uploadPrefix string) *Resolver {
	if uploadPrefix == "" {
		uploadPrefix = "/uploads"
	}
	return &Resolver{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		UploadPrefix: "/" + strings.Trim(uploadPrefix, "/"),
	}
}

// Resolve returns the locator for ref, or "" when ref is empty or unusable.
func (r *Resolver) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return ""
		}
		return ref
	}

	if strings.HasPrefix(ref, "/") {
		return r.BaseURL + path.Clean(ref)
	}

	name := path.Base(path.Clean("/" + ref))
	if name == "/" || name == "." {
		return ""
	}
	return r.BaseURL + r.UploadPrefix + "/" + url.PathEscape(name)
}
