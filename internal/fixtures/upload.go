package fixtures

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// UploadFile writes a small PNG into dir (the system temp dir when empty) and
// returns its absolute path with a func that removes it.
func UploadFile(dir string) (string, func(), error) {
	f, err := os.CreateTemp(dir, "e2e-upload-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("creating upload file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff})
		}
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing upload file: %w", err)
	}
	return f.Name(), cleanup, nil
}
