package proof

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
)

// PNGReport describes a verified screenshot.
type PNGReport struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int64  `json:"bytes"`
}

// VerifyPNG checks that the file exists, is non-empty, and fully decodes as
// PNG. A truncated or zero-byte file is an error, not a zero-valued report.
func VerifyPNG(path string) (*PNGReport, error) {
	img, size, err := decodePNG(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &PNGReport{
		Path:   path,
		Width:  b.Dx(),
		Height: b.Dy(),
		Bytes:  size,
	}, nil
}

// Distinct reports whether two PNGs differ in pixel content. Dimension
// mismatch counts as distinct without comparing pixels.
func Distinct(a, b string) (bool, error) {
	imgA, _, err := decodePNG(a)
	if err != nil {
		return false, err
	}
	imgB, _, err := decodePNG(b)
	if err != nil {
		return false, err
	}

	if !imgA.Bounds().Eq(imgB.Bounds()) {
		return true, nil
	}

	pixA := flatten(imgA)
	pixB := flatten(imgB)
	for i := range pixA {
		if pixA[i] != pixB[i] {
			return true, nil
		}
	}
	return false, nil
}

func decodePNG(path string) (image.Image, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("proof: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, 0, fmt.Errorf("proof: %s is empty", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("proof: open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("proof: decode %s: %w", path, err)
	}
	return img, info.Size(), nil
}

func flatten(img image.Image) []uint8 {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba.Pix
}
