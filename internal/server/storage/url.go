package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/duplofs/internal/server/config"
)

var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
}

// IsImage reports whether name ends in a known image extension, ignoring
// case. A name without a dot has no extension.
func IsImage(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(name[i+1:])]
	return ok
}

// urlBuilder produces public object URLs.
//
//	do-spaces: https://<bucket>.<region>.digitaloceanspaces.com/<key>
//	generic:   <endpoint>/<bucket>/<key>
//
// A configured public base URL replaces both.
type urlBuilder struct {
	base string
}

func newURLBuilder(opts Options) urlBuilder {
	switch {
	case opts.PublicBaseURL != "":
		return urlBuilder{base: strings.TrimRight(opts.PublicBaseURL, "/")}
	case opts.Provider == config.ProviderDOSpaces:
		return urlBuilder{base: fmt.Sprintf("https://%s.%s.digitaloceanspaces.com", opts.Bucket, opts.Region)}
	default:
		return urlBuilder{base: strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket}
	}
}

func (u urlBuilder) objectURL(key string) string {
	return u.base + "/" + EscapeKey(key)
}

// EscapeKey percent-encodes each path segment of an object key, keeping the
// slashes that separate them.
func EscapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
