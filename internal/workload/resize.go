package workload

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// ImageNet normalization constants
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Resize scales a source image to a square model input and normalizes it
// into a CHW float tensor.
type Resize struct {
	src    image.Image
	dst    *image.RGBA
	tensor []float32
}

func NewResize(cfg Config) (*Resize, error) {
	def := DefaultConfig()
	if cfg.DstSize <= 0 {
		cfg.DstSize = def.DstSize
	}
	if cfg.SrcSize <= 0 {
		cfg.SrcSize = def.SrcSize
	}

	var src image.Image
	if cfg.ImagePath != "" {
		data, err := os.ReadFile(cfg.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		src, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	} else {
		src = gradient(cfg.SrcSize)
	}

	return &Resize{
		src:    src,
		dst:    image.NewRGBA(image.Rect(0, 0, cfg.DstSize, cfg.DstSize)),
		tensor: make([]float32, 3*cfg.DstSize*cfg.DstSize),
	}, nil
}

func (r *Resize) Name() string { return "resize" }

func (r *Resize) Run() error {
	draw.BiLinear.Scale(r.dst, r.dst.Bounds(), r.src, r.src.Bounds(), draw.Over, nil)

	size := r.dst.Bounds().Dx()
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := r.dst.RGBAAt(x, y)
			r.tensor[0*plane+y*size+x] = (float32(c.R)/255.0 - imagenetMean[0]) / imagenetStd[0]
			r.tensor[1*plane+y*size+x] = (float32(c.G)/255.0 - imagenetMean[1]) / imagenetStd[1]
			r.tensor[2*plane+y*size+x] = (float32(c.B)/255.0 - imagenetMean[2]) / imagenetStd[2]
		}
	}
	return nil
}

// Tensor returns the output of the last Run.
func (r *Resize) Tensor() []float32 { return r.tensor }

func (r *Resize) Close() error { return nil }

func gradient(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / size),
				G: uint8(y * 255 / size),
				B: uint8((x + y) * 127 / size),
				A: 0xff,
			})
		}
	}
	return img
}
