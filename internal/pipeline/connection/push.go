package connection

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// AssetClass groups push candidates by their Cache-Control policy.
type AssetClass int

const (
	AssetOther AssetClass = iota
	AssetImmutable        // fonts, images
	AssetDaily            // CSS/JS
	AssetHourly           // everything else cacheable
)

// Candidate is one file the Connection Plugin considers pushing alongside
// the primary response.
type Candidate struct {
	Path  string
	Class AssetClass
}

// candidateSuffixes lists the companion asset suffixes conventionally served
// alongside a requested HTML path's extension-less basename. This is a static,
// configuration-free heuristic: real deployments would source it from a
// manifest, but the push decision logic is identical either way.
var candidateSuffixes = []struct {
	suffix string
	class  AssetClass
}{
	{".css", AssetDaily},
	{".js", AssetDaily},
	{".woff2", AssetImmutable},
	{".png", AssetImmutable},
	{".jpg", AssetImmutable},
	{".svg", AssetImmutable},
}

// Candidates computes the push candidate set for an HTML request: the same
// basename with companion extensions, plus a mobile variant when the
// Accept header contains "mobile".
func Candidates(requestPath string, accept string) []Candidate {
	if !strings.HasSuffix(requestPath, ".html") && requestPath != "/" {
		return nil
	}

	base := strings.TrimSuffix(requestPath, ".html")
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		base = "/index"
	}

	var candidates []Candidate
	for _, c := range candidateSuffixes {
		candidates = append(candidates, Candidate{Path: base + c.suffix, Class: c.class})
	}

	if strings.Contains(accept, "mobile") {
		candidates = append(candidates, Candidate{Path: base + ".mobile.css", Class: AssetDaily})
	}
	return candidates
}

// Pusher is satisfied by http.ResponseWriter values that support HTTP/2
// server push; see http.Pusher. The plugin no-ops silently when the
// response does not implement it (spec.md §4.2 open question).
type Pusher interface {
	Push(target string, opts *http.PushOptions) error
}

// ShouldPush reports whether candidate should be pushed given the request
// headers and a root filesystem directory to resolve it against.
func ShouldPush(root string, candidate Candidate, req *http.Request) (fullPath string, eligible bool) {
	if req.Header.Get("Save-Data") == "on" {
		if candidate.Class != AssetImmutable {
			return "", false
		}
	}
	if strings.Contains(req.Header.Get("Cache-Control"), "no-push") {
		return "", false
	}

	full := path.Join(root, candidate.Path)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}

	etag := ComputeETag(candidate.Path, info.ModTime(), info.Size())
	if inm := req.Header.Get("If-None-Match"); inm != "" && inm == etag {
		return "", false
	}
	if ims := req.Header.Get("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil && !info.ModTime().After(t) {
			return "", false
		}
	}

	return full, true
}

// ComputeETag hashes (path, mtime, size) into a quoted (strong) ETag.
func ComputeETag(p string, mtime time.Time, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", p, mtime.UnixNano(), size)))
	return `"` + hex.EncodeToString(sum[:])[:16] + `"`
}

// CacheControl returns the Cache-Control header value for an asset class.
func CacheControl(class AssetClass) string {
	switch class {
	case AssetImmutable:
		return "public, max-age=31536000, immutable"
	case AssetDaily:
		return "public, max-age=86400, must-revalidate"
	case AssetHourly:
		return "public, max-age=3600, must-revalidate"
	default:
		return "no-cache"
	}
}

// PushCandidates attempts to push every eligible candidate for req onto w,
// rooted at assetRoot. It is a silent no-op when w does not implement
// Pusher or the request did not negotiate HTTP/2.
func PushCandidates(w http.ResponseWriter, req *http.Request, assetRoot string, negotiatedHTTP2 bool) {
	if !negotiatedHTTP2 {
		return
	}
	pusher, ok := w.(Pusher)
	if !ok {
		return
	}

	for _, candidate := range Candidates(req.URL.Path, req.Header.Get("Accept")) {
		full, ok := ShouldPush(assetRoot, candidate, req)
		if !ok {
			continue
		}
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		opts := &http.PushOptions{
			Header: http.Header{
				"Cache-Control": []string{CacheControl(candidate.Class)},
				"ETag":          []string{ComputeETag(candidate.Path, info.ModTime(), info.Size())},
				"Last-Modified": []string{info.ModTime().UTC().Format(http.TimeFormat)},
			},
		}
		_ = pusher.Push(candidate.Path, opts)
	}
}
