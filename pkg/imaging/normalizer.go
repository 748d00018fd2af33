package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	"github.com/noah-isme/course-media-api/pkg/config"
)

const webpContentType = "image/webp"

// Result is a normalised image payload.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Normalizer downscales still images and re-encodes them as WebP.
type Normalizer struct {
	quality   float32
	maxWidth  int
	maxHeight int
}

// NewNormalizer builds a normalizer from image settings.
func NewNormalizer(cfg config.ImageConfig) *Normalizer {
	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = 82
	}
	return &Normalizer{quality: quality, maxWidth: cfg.MaxWidth, maxHeight: cfg.MaxHeight}
}

// Supports reports whether the content type can be decoded.
func Supports(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", webpContentType:
		return true
	default:
		return false
	}
}

// Normalize decodes jpeg, png or webp data, bounds it to the configured size and encodes it as WebP.
func (n *Normalizer) Normalize(data []byte, filename string) (Result, error) {
	img, err := decode(data)
	if err != nil {
		return Result{}, err
	}
	img = downscale(img, n.maxWidth, n.maxHeight)

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: n.quality}); err != nil {
		return Result{}, fmt.Errorf("encode webp: %w", err)
	}
	return Result{
		Data:        buf.Bytes(),
		Filename:    strings.TrimSuffix(filename, filepath.Ext(filename)) + ".webp",
		ContentType: webpContentType,
	}, nil
}

func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	detected := mimetype.Detect(data)
	reader := bytes.NewReader(data)
	var (
		img image.Image
		err error
	)
	switch {
	case detected.Is("image/jpeg"):
		img, err = jpeg.Decode(reader)
	case detected.Is("image/png"):
		img, err = png.Decode(reader)
	case detected.Is(webpContentType):
		img, err = webp.Decode(reader)
	default:
		return nil, fmt.Errorf("unsupported image format %s", detected.String())
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", detected.String(), err)
	}
	return img, nil
}

// downscale keeps the aspect ratio and never enlarges.
func downscale(src image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 && maxH <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if (maxW <= 0 || w <= maxW) && (maxH <= 0 || h <= maxH) {
		return src
	}
	scale := 1.0
	if maxW > 0 {
		scale = math.Min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 {
		scale = math.Min(scale, float64(maxH)/float64(h))
	}
	nw := int(math.Max(1, math.Round(float64(w)*scale)))
	nh := int(math.Max(1, math.Round(float64(h)*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
