package mdview

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ImageSource loads images referenced by markdown image nodes. Load is
// called synchronously during rendering; implementations that fetch in the
// background return ErrImagePending and deliver later.
type ImageSource interface {
	Load(dest string) (image.Image, error)
}

// ErrImagePending is returned by asynchronous sources while a fetch is
// still in flight; the renderer draws a pending placeholder.
var ErrImagePending = errors.New("mdview: image load pending")

type imageResolver func(dest string) (cacheKey string, loader func() (image.Image, error), err error)

// ImageLoader is the synchronous ImageSource: scheme-keyed resolvers for
// local paths and http(s) URLs, with a decode cache and a 15 second fetch
// timeout. Safe for concurrent use.
type ImageLoader struct {
	// BaseDir resolves relative local paths. Empty means as-given.
	BaseDir string

	mu        sync.Mutex
	cache     map[string]image.Image
	resolvers map[string]imageResolver
	client    *http.Client
}

// NewImageLoader builds a loader with the default resolver set.
func NewImageLoader(baseDir string) *ImageLoader {
	return &ImageLoader{BaseDir: baseDir}
}

func (l *ImageLoader) ensureResolvers() {
	if l.client == nil {
		l.client = &http.Client{Timeout: 15 * time.Second}
	}
	if l.resolvers != nil {
		return
	}
	l.resolvers = map[string]imageResolver{
		"":      l.resolveLocal,
		"file":  l.resolveLocal,
		"http":  l.resolveRemote,
		"https": l.resolveRemote,
	}
}

func (l *ImageLoader) Load(dest string) (image.Image, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return nil, errors.New("mdview: empty image destination")
	}
	l.mu.Lock()
	l.ensureResolvers()
	scheme := ""
	if idx := strings.Index(dest, "://"); idx != -1 {
		scheme = strings.ToLower(dest[:idx])
	}
	resolver, ok := l.resolvers[scheme]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("mdview: unsupported image scheme: %s", scheme)
	}
	cacheKey, loader, err := resolver(dest)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if cacheKey == "" {
		cacheKey = dest
	}
	if img, ok := l.cache[cacheKey]; ok {
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()

	if loader == nil {
		return nil, fmt.Errorf("mdview: resolver for %q returned nil loader", dest)
	}
	img, err := loader()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	if l.cache == nil {
		l.cache = make(map[string]image.Image)
	}
	l.cache[cacheKey] = img
	l.mu.Unlock()
	return img, nil
}

func (l *ImageLoader) resolveLocal(dest string) (string, func() (image.Image, error), error) {
	path := strings.TrimPrefix(dest, "file://")
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		if abs, err := filepath.Abs(cleaned); err == nil {
			cleaned = abs
		}
	}
	loader := func() (image.Image, error) {
		f, err := os.Open(cleaned)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
	return cleaned, loader, nil
}

func (l *ImageLoader) resolveRemote(dest string) (string, func() (image.Image, error), error) {
	client := l.client
	loader := func() (image.Image, error) {
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(dest)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("mdview: fetching image %s: %s", dest, resp.Status)
		}
		img, _, err := image.Decode(resp.Body)
		return img, err
	}
	return dest, loader, nil
}

type asyncState int

const (
	asyncPending asyncState = iota
	asyncLoaded
	asyncFailed
)

type asyncEntry struct {
	state asyncState
	img   image.Image
	err   error
}

// AsyncImageLoader wraps an ImageSource so rendering never blocks on the
// network: the first Load of a destination starts a background fetch and
// returns ErrImagePending; once the fetch settles, OnUpdate fires and the
// next render pass gets the image (or the terminal error).
type AsyncImageLoader struct {
	// OnUpdate is called from the fetch goroutine after an entry settles.
	// Hosts typically schedule a re-render here.
	OnUpdate func()

	source  ImageSource
	mu      sync.Mutex
	entries map[string]*asyncEntry
}

// NewAsyncImageLoader wraps source; source must not be nil.
func NewAsyncImageLoader(source ImageSource) *AsyncImageLoader {
	return &AsyncImageLoader{source: source, entries: make(map[string]*asyncEntry)}
}

func (a *AsyncImageLoader) Load(dest string) (image.Image, error) {
	a.mu.Lock()
	if e, ok := a.entries[dest]; ok {
		defer a.mu.Unlock()
		switch e.state {
		case asyncLoaded:
			return e.img, nil
		case asyncFailed:
			return nil, e.err
		default:
			return nil, ErrImagePending
		}
	}
	e := &asyncEntry{state: asyncPending}
	a.entries[dest] = e
	a.mu.Unlock()

	go func() {
		img, err := a.source.Load(dest)
		a.mu.Lock()
		if err != nil {
			e.state = asyncFailed
			e.err = err
		} else {
			e.state = asyncLoaded
			e.img = img
		}
		a.mu.Unlock()
		if a.OnUpdate != nil {
			a.OnUpdate()
		}
	}()
	return nil, ErrImagePending
}
