package twin

import (
	"crypto/md5"
	"image"
	"image/color"
)

// PortraitSize is the edge length of generated portraits in pixels.
const PortraitSize = 64

// portraitGrid is the number of cells per side of the symmetric pattern.
const portraitGrid = 8

// Portrait draws a deterministic square identicon for a character. The
// same name always yields the same pixels.
func Portrait(name string, size int) *image.RGBA {
	if size < portraitGrid {
		size = portraitGrid
	}
	sum := md5.Sum([]byte(name))
	fg := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	bg := color.RGBA{R: 255 - sum[0]/2, G: 255 - sum[1]/2, B: 255 - sum[2]/2, A: 255}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cell := size / portraitGrid
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	// Fill the left half from hash bits and mirror it.
	for gy := 0; gy < portraitGrid; gy++ {
		for gx := 0; gx < portraitGrid/2; gx++ {
			bit := gy*(portraitGrid/2) + gx
			if sum[3+bit/8]&(1<<(bit%8)) == 0 {
				continue
			}
			fillCell(img, gx*cell, gy*cell, cell, fg)
			fillCell(img, (portraitGrid-1-gx)*cell, gy*cell, cell, fg)
		}
	}
	return img
}

func fillCell(img *image.RGBA, x0, y0, n int, c color.RGBA) {
	for y := y0; y < y0+n; y++ {
		for x := x0; x < x0+n; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
