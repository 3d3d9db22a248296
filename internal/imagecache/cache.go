// Package imagecache memoizes decoded portraits by image URL for the lifetime
// of the process.
package imagecache

import (
	"image"
	"sync"
)

// Image is a decoded portrait ready for display.
type Image struct {
	Key    string      // Image URL the bitmap was fetched from.
	Format string      // Decoder name: png, jpeg, gif, webp.
	Bitmap image.Image // Scaled bitmap.
	Source image.Point // Decoded size before scaling.
}

// Size returns the dimensions of the scaled bitmap.
func (i *Image) Size() image.Point {
	if i == nil || i.Bitmap == nil {
		return image.Point{}
	}
	return i.Bitmap.Bounds().Size()
}

// Cache maps image keys to decoded images. Entries are never replaced or
// evicted, so the cache grows with the number of distinct keys; the catalog
// is small enough for that to be fine.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Image
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*Image)}
}

// Get returns the cached image for key, or nil and false on miss.
func (c *Cache) Get(key string) (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.entries[key]
	return img, ok
}

// Put stores img under key unless an entry already exists, in which case the
// existing entry wins. It reports whether img was stored. Nil images are ignored.
func (c *Cache) Put(key string, img *Image) bool {
	if img == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = img
	return true
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
