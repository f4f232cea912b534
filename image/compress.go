// Package image shrinks uploaded report and avatar images before they are
// stored or sent to the classifier.
package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxDimension = 1024 // longest side after compression, in pixels
	jpegQuality  = 85
)

var ErrInvalidImage = errors.New("invalid image")

// Orientation returns the EXIF orientation of JPEG data, 1 when unknown.
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// Orient returns img turned upright according to an EXIF orientation.
func Orient(img image.Image, orientation int) image.Image {
	if orientation < 2 || orientation > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var target func(x, y int) (int, int)
	switch orientation {
	case 2:
		target = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3:
		target = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4:
		target = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5:
		target = func(x, y int) (int, int) { return y, x }
	case 6:
		target = func(x, y int) (int, int) { return h - 1 - y, x }
	case 7:
		target = func(x, y int) (int, int) { return h - 1 - y, w - 1 - x }
	case 8:
		target = func(x, y int) (int, int) { return y, w - 1 - x }
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if orientation >= 5 {
		out = image.NewRGBA(image.Rect(0, 0, h, w))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			nx, ny := target(x, y)
			out.Set(nx, ny, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// Compress fixes the orientation of an image and scales it so that its
// longest side is at most MaxDimension, re-encoding it as JPEG. Images that
// are upright and small enough come back unchanged with changed == false.
func Compress(data []byte) (out []byte, changed bool, err error) {
	orientation := Orientation(data)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	img = Orient(img, orientation)

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= MaxDimension && height <= MaxDimension && orientation == 1 {
		return data, false, nil
	}

	scale := 1.0
	if longest := max(width, height); longest > MaxDimension {
		scale = float64(MaxDimension) / float64(longest)
	}
	newWidth := max(1, min(MaxDimension, int(float64(width)*scale)))
	newHeight := max(1, min(MaxDimension, int(float64(height)*scale)))

	scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, fmt.Errorf("failed to encode compressed image: %w", err)
	}

	log.Infof("Image compressed: %d bytes -> %d bytes (%dx%d -> %dx%d, orientation %d)",
		len(data), buf.Len(), width, height, newWidth, newHeight, orientation)
	return buf.Bytes(), true, nil
}

// DecodeDataURL splits a "data:<mime>;base64,<payload>" string.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data url", ErrInvalidImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: data url without payload", ErrInvalidImage)
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", fmt.Errorf("%w: data url is not base64", ErrInvalidImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, mimeType, nil
}

func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode accepts either a data URL or bare base64 image bytes.
func Decode(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		return DecodeDataURL(s)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(data) == 0 {
		return nil, "", fmt.Errorf("%w: not base64", ErrInvalidImage)
	}
	return data, "", nil
}

// CompressDataURL shrinks the image inside an image data URL. References
// that are not data URLs, such as plain http links, are returned untouched.
func CompressDataURL(ref string) (string, error) {
	if !strings.HasPrefix(ref, "data:image/") {
		return ref, nil
	}
	data, _, err := DecodeDataURL(ref)
	if err != nil {
		return "", err
	}
	out, changed, err := Compress(data)
	if err != nil {
		return "", err
	}
	if !changed {
		return ref, nil
	}
	return EncodeDataURL("image/jpeg", out), nil
}
