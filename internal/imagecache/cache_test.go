package imagecache

import (
	"fmt"
	"image"
	"sync"
	"testing"
)

func newImage(key string, w, h int) *Image {
	return &Image{
		Key:    key,
		Format: "png",
		Bitmap: image.NewRGBA(image.Rect(0, 0, w, h)),
		Source: image.Pt(w*2, h*2),
	}
}

func TestCache_GetEmpty(t *testing.T) {
	c := New()
	got, ok := c.Get("https://example.test/1.png")
	if ok {
		t.Fatal("expected cache miss on empty cache")
	}
	if got != nil {
		t.Fatal("expected nil on cache miss")
	}
}

func TestCache_PutAndGet(t *testing.T) {
	c := New()
	img := newImage("k1", 4, 4)

	if !c.Put("k1", img) {
		t.Fatal("Put on empty key should store")
	}

	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected cache hit after Put")
	}
	if got != img {
		t.Errorf("Get returned %p, want %p", got, img)
	}
}

func TestCache_FirstWriteWins(t *testing.T) {
	// Given: a key already populated
	c := New()
	v1 := newImage("k1", 4, 4)
	v2 := newImage("k1", 8, 8)
	c.Put("k1", v1)

	// When: a second value is put under the same key
	stored := c.Put("k1", v2)

	// Then: the put is a no-op and the first value remains
	if stored {
		t.Error("second Put should report not stored")
	}
	got, _ := c.Get("k1")
	if got != v1 {
		t.Errorf("Get after duplicate Put returned %p, want first value %p", got, v1)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCache_PutNilIgnored(t *testing.T) {
	c := New()
	if c.Put("k1", nil) {
		t.Error("Put(nil) should not store")
	}
	if _, ok := c.Get("k1"); ok {
		t.Error("nil image must not create an entry")
	}
}

func TestCache_ConcurrentPutSameKey(t *testing.T) {
	// Given: many goroutines racing to populate one key
	c := New()
	const n = 32
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored int
	)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Put("shared", newImage(fmt.Sprintf("v%d", i), 2, 2)) {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Then: exactly one write landed
	if stored != 1 {
		t.Errorf("stored = %d, want exactly 1", stored)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestImage_Size(t *testing.T) {
	img := newImage("k", 6, 3)
	if got := img.Size(); got != image.Pt(6, 3) {
		t.Errorf("Size() = %v, want (6,3)", got)
	}
	var nilImg *Image
	if got := nilImg.Size(); got != (image.Point{}) {
		t.Errorf("nil Size() = %v, want zero", got)
	}
}
