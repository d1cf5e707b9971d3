package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

// ErrNotAnImage is returned when the upload cannot be decoded.
var ErrNotAnImage = errors.New("unsupported or corrupt image")

// ImageProcessor normalizes court photos before they are stored.
type ImageProcessor struct {
	// MaxSide bounds the stored original; zero keeps it as uploaded.
	MaxSide   int
	ThumbSide int
	Quality   int
}

func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{MaxSide: 1920, ThumbSide: 320, Quality: 82}
}

// Processed holds the JPEG-encoded original and thumbnail.
type Processed struct {
	Original  []byte
	Thumbnail []byte
}

// Process decodes r, auto-orients it and produces the two renditions.
func (p *ImageProcessor) Process(r io.Reader) (*Processed, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	original := img
	if p.MaxSide > 0 {
		b := img.Bounds()
		if b.Dx() > p.MaxSide || b.Dy() > p.MaxSide {
			original = imaging.Fit(img, p.MaxSide, p.MaxSide, imaging.Lanczos)
		}
	}
	thumb := imaging.Fill(img, p.ThumbSide, p.ThumbSide, imaging.Center, imaging.Lanczos)

	out := &Processed{}
	if out.Original, err = p.encode(original); err != nil {
		return nil, err
	}
	if out.Thumbnail, err = p.encode(thumb); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *ImageProcessor) encode(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
