package data

import (
	"image"
	"image/color"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/born-ml/resnet/internal/tensor"
)

// ImageDataset decodes annotated image files, resizes them to a square and
// scales pixels to [0, 1], optionally followed by per-channel normalisation.
type ImageDataset struct {
	root     string
	items    []Annotation
	size     int
	channels int
	norm     *Stats
}

// NewImageDataset creates a dataset over items whose paths are relative to
// root. channels must be 1 (grayscale) or 3 (RGB).
func NewImageDataset(root string, items []Annotation, size, channels int) (*ImageDataset, error) {
	if size <= 0 {
		return nil, errors.Errorf("image size must be positive, got %d", size)
	}
	if channels != 1 && channels != 3 {
		return nil, errors.Errorf("channels must be 1 or 3, got %d", channels)
	}
	return &ImageDataset{root: root, items: items, size: size, channels: channels}, nil
}

// Normalize makes Item return (x - mean) / std per channel.
func (d *ImageDataset) Normalize(s *Stats) error {
	if s != nil && len(s.Mean) != d.channels {
		return errors.Errorf("statistics have %d channels, dataset has %d", len(s.Mean), d.channels)
	}
	d.norm = s
	return nil
}

// Len returns the number of images.
func (d *ImageDataset) Len() int { return len(d.items) }

// Shape returns [channels, size, size].
func (d *ImageDataset) Shape() tensor.Shape {
	return tensor.Shape{d.channels, d.size, d.size}
}

// Label returns the class id of image i.
func (d *ImageDataset) Label(i int) int32 { return d.items[i].ClassID }

// Item decodes image i into buf.
func (d *ImageDataset) Item(i int, buf []float32) (int32, error) {
	a := d.items[i]
	img, err := decodeFile(filepath.Join(d.root, a.Path))
	if err != nil {
		return 0, err
	}
	toCHW(resize(img, d.size), d.channels, buf)
	if d.norm != nil {
		d.norm.Apply(buf, d.size*d.size)
	}
	return a.ClassID, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening image")
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return img, nil
}

func resize(src image.Image, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// toCHW writes img as planar float channels scaled to [0, 1].
func toCHW(img *image.NRGBA, channels int, buf []float32) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			i := y*w + x
			if channels == 1 {
				g := color.GrayModel.Convert(c).(color.Gray)
				buf[i] = float32(g.Y) / 255
				continue
			}
			buf[i] = float32(c.R) / 255
			buf[plane+i] = float32(c.G) / 255
			buf[2*plane+i] = float32(c.B) / 255
		}
	}
}
