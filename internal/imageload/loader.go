// Package imageload fetches portrait images over HTTP, decodes them and scales
// them for terminal display.
package imageload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/smileynet/multiverse/internal/catalog"
	"github.com/smileynet/multiverse/internal/imagecache"
	"github.com/smileynet/multiverse/internal/logging"
)

// Loader fetches and decodes images. It does not cache results; concurrent
// loads of the same key share a single request.
type Loader struct {
	http  *resty.Client
	maxW  int
	maxH  int
	group singleflight.Group
	log   logrus.FieldLogger
}

// Option configures a Loader.
type Option func(*Loader)

// WithBounds sets the pixel box images are scaled down to fit. Zero disables scaling.
func WithBounds(width, height int) Option {
	return func(l *Loader) {
		l.maxW = width
		l.maxH = height
	}
}

// WithTimeout bounds each image request.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.http.SetTimeout(d)
	}
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		http: resty.New().SetRetryCount(0),
		log:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.http.SetLogger(l.log)
	return l
}

// Load fetches the image at key and returns it decoded and scaled.
// Failures are reported as *catalog.FetchError.
func (l *Loader) Load(ctx context.Context, key string) (*imagecache.Image, error) {
	v, err, shared := l.group.Do(key, func() (any, error) {
		return l.fetch(ctx, key)
	})
	if shared {
		l.log.WithField("url", key).Debug("image load coalesced with in-flight request")
	}
	if err != nil {
		return nil, err
	}
	return v.(*imagecache.Image), nil
}

func (l *Loader) fetch(ctx context.Context, key string) (*imagecache.Image, error) {
	if key == "" {
		return nil, &catalog.FetchError{Kind: catalog.KindNetwork, Err: errors.New("empty image URL")}
	}

	resp, err := l.http.R().SetContext(ctx).Get(key)
	if err != nil {
		l.log.WithError(err).WithField("url", key).Warn("image request failed")
		return nil, &catalog.FetchError{Kind: catalog.KindNetwork, URL: key, Err: err}
	}
	if !resp.IsSuccess() {
		l.log.WithFields(logrus.Fields{"url": key, "status": resp.StatusCode()}).Warn("image request returned non-success status")
		return nil, &catalog.FetchError{Kind: catalog.KindHTTPStatus, URL: key, StatusCode: resp.StatusCode()}
	}

	src, format, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		l.log.WithError(err).WithField("url", key).Warn("image decode failed")
		return nil, &catalog.FetchError{Kind: catalog.KindDecode, URL: key, Err: fmt.Errorf("decoding image: %w", err)}
	}

	img := &imagecache.Image{
		Key:    key,
		Format: format,
		Bitmap: Fit(src, l.maxW, l.maxH),
		Source: src.Bounds().Size(),
	}
	l.log.WithFields(logrus.Fields{
		"url":     key,
		"format":  format,
		"source":  img.Source,
		"scaled":  img.Size(),
		"elapsed": resp.Time(),
	}).Debug("image loaded")
	return img, nil
}

// Fit scales src down to fit within maxW x maxH, preserving aspect ratio.
// Images already inside the box, or a zero box, are returned unchanged.
func Fit(src image.Image, maxW, maxH int) image.Image {
	size := src.Bounds().Size()
	if maxW <= 0 || maxH <= 0 || size.X <= 0 || size.Y <= 0 {
		return src
	}
	if size.X <= maxW && size.Y <= maxH {
		return src
	}

	w, h := maxW, size.Y*maxW/size.X
	if h > maxH {
		w, h = size.X*maxH/size.Y, maxH
	}
	w = max(w, 1)
	h = max(h, 1)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
