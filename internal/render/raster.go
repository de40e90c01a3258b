// Package render turns point sets into raster frames and writes them out
// as numbered PPM images, an animated GIF or an ffmpeg-encoded video.
package render

import (
	"image"
	"image/color"

	"github.com/san-kum/quadsim/internal/geom"
)

// minLevel keeps stationary points visible against the background.
const minLevel = 64

var grayscale = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

// Palette is the 256-level grayscale palette used by every frame.
func Palette() color.Palette {
	return grayscale
}

// Rasterize maps the domain onto a size×size frame. Row 0 holds the
// smallest Y. Brightness scales with speed relative to the fastest point
// in the set; overlapping points keep the brightest level.
func Rasterize(pts []geom.Point, domain geom.Bounds, size int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, size, size), grayscale)
	if domain.Empty() || size <= 0 {
		return img
	}

	var vmax float64
	for _, p := range pts {
		if s := p.Speed(); s > vmax {
			vmax = s
		}
	}

	sx := float64(size) / domain.W
	sy := float64(size) / domain.H
	for _, p := range pts {
		if !domain.Contains(p) {
			continue
		}
		col := int((p.X - domain.X) * sx)
		row := int((p.Y - domain.Y) * sy)
		if col >= size {
			col = size - 1
		}
		if row >= size {
			row = size - 1
		}

		level := uint8(255)
		if vmax > 0 {
			level = uint8(minLevel + (255-minLevel)*p.Speed()/vmax)
		}
		if level > img.ColorIndexAt(col, row) {
			img.SetColorIndex(col, row, level)
		}
	}
	return img
}
