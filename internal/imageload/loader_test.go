package imageload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smileynet/multiverse/internal/catalog"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// imageServer serves fixed bodies under /img/{name} and counts hits.
type imageServer struct {
	srv    *httptest.Server
	bodies map[string][]byte
	hits   atomic.Int32
	gate   chan struct{} // when non-nil, handlers block until closed
}

func newImageServer(t *testing.T, bodies map[string][]byte) *imageServer {
	t.Helper()
	s := &imageServer{bodies: bodies}
	r := chi.NewRouter()
	r.Get("/img/{name}", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if s.gate != nil {
			<-s.gate
		}
		body, ok := s.bodies[chi.URLParam(r, "name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	})
	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *imageServer) url(name string) string {
	return s.srv.URL + "/img/" + name
}

func TestLoad_DecodesPNG(t *testing.T) {
	// Given: a server with a small PNG
	s := newImageServer(t, map[string][]byte{
		"rick.png": encodePNG(t, solidImage(10, 8, color.RGBA{R: 200, A: 255})),
	})
	l := New(WithBounds(64, 64))

	// When: the image is loaded
	img, err := l.Load(context.Background(), s.url("rick.png"))

	// Then: it is decoded at its own size with metadata filled in
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Format != "png" {
		t.Errorf("format = %q, want png", img.Format)
	}
	if img.Key != s.url("rick.png") {
		t.Errorf("key = %q, want %q", img.Key, s.url("rick.png"))
	}
	if img.Source != image.Pt(10, 8) {
		t.Errorf("source = %v, want (10,8)", img.Source)
	}
	if img.Size() != image.Pt(10, 8) {
		t.Errorf("size = %v, want unscaled (10,8)", img.Size())
	}
}

func TestLoad_ScalesJPEGToBounds(t *testing.T) {
	s := newImageServer(t, map[string][]byte{
		"morty.jpeg": encodeJPEG(t, solidImage(300, 300, color.RGBA{G: 200, A: 255})),
	})
	l := New(WithBounds(32, 16))

	img, err := l.Load(context.Background(), s.url("morty.jpeg"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Format != "jpeg" {
		t.Errorf("format = %q, want jpeg", img.Format)
	}
	if img.Source != image.Pt(300, 300) {
		t.Errorf("source = %v, want (300,300)", img.Source)
	}
	if img.Size() != image.Pt(16, 16) {
		t.Errorf("size = %v, want (16,16)", img.Size())
	}
}

func TestLoad_Failures(t *testing.T) {
	s := newImageServer(t, map[string][]byte{
		"garbage.png": []byte("definitely not an image"),
	})
	l := New()

	tests := []struct {
		name     string
		url      string
		sentinel error
	}{
		{"not found", s.url("missing.png"), catalog.ErrHTTPStatus},
		{"undecodable", s.url("garbage.png"), catalog.ErrDecode},
		{"empty key", "", catalog.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := l.Load(context.Background(), tt.url)
			if img != nil {
				t.Errorf("img = %+v, want nil", img)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestLoad_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/img/x.png"
	srv.Close()

	_, err := New(WithTimeout(2*time.Second)).Load(context.Background(), url)

	var fe *catalog.FetchError
	if !errors.As(err, &fe) || fe.Kind != catalog.KindNetwork {
		t.Errorf("error = %v, want network FetchError", err)
	}
}

func TestLoad_CoalescesConcurrentLoads(t *testing.T) {
	// Given: a slow image endpoint
	s := newImageServer(t, map[string][]byte{
		"slow.png": encodePNG(t, solidImage(4, 4, color.White)),
	})
	s.gate = make(chan struct{})
	l := New()

	// When: two loads of the same key overlap
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = l.Load(context.Background(), s.url("slow.png"))
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(s.gate)
	wg.Wait()

	// Then: one request served both
	for i, err := range results {
		if err != nil {
			t.Errorf("load %d error = %v", i, err)
		}
	}
	if got := s.hits.Load(); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestLoad_SequentialLoadsRefetch(t *testing.T) {
	s := newImageServer(t, map[string][]byte{
		"a.png": encodePNG(t, solidImage(2, 2, color.Black)),
	})
	l := New()

	for range 2 {
		if _, err := l.Load(context.Background(), s.url("a.png")); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	if got := s.hits.Load(); got != 2 {
		t.Errorf("hits = %d, want 2 (loader does not cache)", got)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		maxW, maxH int
		want       image.Point
	}{
		{"inside box", 10, 10, 32, 32, image.Pt(10, 10)},
		{"square into wide box", 300, 300, 32, 16, image.Pt(16, 16)},
		{"wide image", 400, 100, 40, 40, image.Pt(40, 10)},
		{"tall image", 100, 400, 40, 40, image.Pt(10, 40)},
		{"zero box", 300, 300, 0, 0, image.Pt(300, 300)},
		{"extreme ratio", 1000, 1, 10, 10, image.Pt(10, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)), tt.maxW, tt.maxH)
			if got.Bounds().Size() != tt.want {
				t.Errorf("Fit size = %v, want %v", got.Bounds().Size(), tt.want)
			}
		})
	}
}
