// Package sprite packs the icons symbol layers refer to into one sprite
// sheet and its index.
package sprite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/khankhulgun/khanstyle/models"
)

// Meta locates one icon on the sheet.
type Meta struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	Width      int `json:"width"`
	Height     int `json:"height"`
	PixelRatio int `json:"pixelRatio"`
}

type Sheet struct {
	PNG     []byte
	Index   map[string]Meta
	Missing []string
}

// IconNames lists the icon-image names used by symbol layers. Icon names
// given as expressions are skipped.
func IconNames(layers []models.LayerDescriptor) []string {
	seen := make(map[string]bool)
	var names []string
	for _, l := range layers {
		if l.Kind != models.KindSymbol {
			continue
		}
		name, ok := l.Layout["icon-image"].(string)
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build lays out the named icons left to right. An icon is read from
// <name>.svg, or <name>.png when there is no SVG; names with neither are
// listed in Missing.
func Build(dir string, names []string, ratio int) (Sheet, error) {
	if ratio < 1 {
		ratio = 1
	}
	sheet := Sheet{Index: make(map[string]Meta)}

	var images []image.Image
	var width, height int
	for _, name := range names {
		img, err := load(dir, name, ratio)
		if errors.Is(err, fs.ErrNotExist) {
			sheet.Missing = append(sheet.Missing, name)
			continue
		}
		if err != nil {
			return Sheet{}, fmt.Errorf("icon %s: %w", name, err)
		}

		b := img.Bounds()
		sheet.Index[name] = Meta{
			X:          width,
			Y:          0,
			Width:      b.Dx(),
			Height:     b.Dy(),
			PixelRatio: ratio,
		}
		images = append(images, img)
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}

	if len(images) == 0 {
		width, height = 1, 1
	}
	sheetImg := image.NewRGBA(image.Rect(0, 0, width, height))
	x := 0
	for _, img := range images {
		b := img.Bounds()
		draw.Draw(sheetImg, image.Rect(x, 0, x+b.Dx(), b.Dy()), img, b.Min, draw.Over)
		x += b.Dx()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sheetImg); err != nil {
		return Sheet{}, fmt.Errorf("encode sprite: %w", err)
	}
	sheet.PNG = buf.Bytes()
	return sheet, nil
}

func load(dir, name string, ratio int) (image.Image, error) {
	f, err := os.Open(filepath.Join(dir, name+".svg"))
	if err == nil {
		defer f.Close()
		return rasterize(f, ratio)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	f, err = os.Open(filepath.Join(dir, name+".png"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
