package imagefetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"pkt.systems/glimmer/core"
	"pkt.systems/glimmer/internal/version"
	"pkt.systems/pslog"
)

// DefaultMaxBytes caps the size of a fetched image.
const DefaultMaxBytes = 16 << 20

// Config configures a Loader.
type Config struct {
	// BaseURL resolves relative image urls and images sent without a url,
	// which are looked up as "<BaseURL>/<id>".
	BaseURL  string
	Timeout  time.Duration
	MaxBytes int64
	Client   *http.Client
	Logger   pslog.Logger
}

// Loader fetches images over HTTP or from file urls. Concurrent requests for
// the same url share one fetch.
type Loader struct {
	base   *url.URL
	client *http.Client
	max    int64
	log    pslog.Logger
	group  singleflight.Group
}

// New constructs a Loader.
func New(cfg Config) (*Loader, error) {
	var base *url.URL
	if strings.TrimSpace(cfg.BaseURL) != "" {
		parsed, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("images base url: %w", err)
		}
		if !strings.HasSuffix(parsed.Path, "/") {
			parsed.Path += "/"
		}
		base = parsed
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Loader{base: base, client: client, max: maxBytes, log: log}, nil
}

// Load resolves and decodes the image. It satisfies core.ImageLoader.
func (l *Loader) Load(ctx context.Context, id int, rawURL string) (core.Image, error) {
	target, err := l.resolve(id, rawURL)
	if err != nil {
		return core.Image{}, err
	}
	key := target.String()
	v, err, shared := l.group.Do(key, func() (any, error) {
		return l.fetch(ctx, target)
	})
	if err != nil {
		l.log.Debug("image load failed", "image", id, "url", key, "err", err)
		return core.Image{}, err
	}
	img := v.(core.Image)
	img.ID = id
	img.URL = rawURL
	l.log.Trace("image loaded", "image", id, "url", key, "shared", shared, "width", img.Width, "height", img.Height)
	return img, nil
}

func (l *Loader) resolve(id int, rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		if l.base == nil {
			return nil, fmt.Errorf("image %d has no url and no base url is configured", id)
		}
		return l.base.ResolveReference(&url.URL{Path: strconv.Itoa(id)}), nil
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("image %d url: %w", id, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	if l.base == nil {
		return nil, fmt.Errorf("image %d url %q is relative and no base url is configured", id, rawURL)
	}
	return l.base.ResolveReference(ref), nil
}

func (l *Loader) fetch(ctx context.Context, target *url.URL) (core.Image, error) {
	var data []byte
	var err error
	switch target.Scheme {
	case "http", "https":
		data, err = l.fetchHTTP(ctx, target)
	case "file":
		data, err = l.readFile(target.Path)
	default:
		return core.Image{}, fmt.Errorf("unsupported image url scheme %q", target.Scheme)
	}
	if err != nil {
		return core.Image{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return core.Image{}, fmt.Errorf("decode image %s: %w", target, err)
	}
	l.log.Trace("image decoded", "url", target.String(), "format", format)
	return core.Image{Width: cfg.Width, Height: cfg.Height, Data: data}, nil
}

func (l *Loader) fetchHTTP(ctx context.Context, target *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: %s", target, resp.Status)
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.max {
		return nil, errors.New("image exceeds size limit")
	}
	return data, nil
}
