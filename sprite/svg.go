package sprite

import (
	"image"
	"io"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// rasterize draws an SVG icon at ratio times its view box size. White pixels
// become transparent.
func rasterize(r io.Reader, ratio int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, err
	}

	w := int(icon.ViewBox.W) * ratio
	h := int(icon.ViewBox.H) * ratio
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	dasher.SetColor(nil)
	icon.Draw(dasher, 1)

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// RGBA() is in [0, 65535]; allow for premultiplication noise
			r, g, b, a := img.At(x, y).RGBA()
			if r > 65000 && g > 65000 && b > 65000 && a > 65000 {
				img.Set(x, y, image.Transparent)
			}
		}
	}
	return img, nil
}
