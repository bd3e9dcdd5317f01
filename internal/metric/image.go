package metric

import "fmt"

// Image is a grid of samples stored row-major with interleaved channels.
// Sample (x, y, c) lives at Pix[(y*Width+x)*Channels+c].
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []float64
}

// NewImage creates a zero-filled image
func NewImage(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float64, width*height*channels),
	}
}

// NewUniform creates a single-channel image with every sample set to v
func NewUniform(width, height int, v float64) *Image {
	img := NewImage(width, height, 1)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// Offset returns the index of sample (x, y, c) in Pix
func (img *Image) Offset(x, y, c int) int {
	return (y*img.Width+x)*img.Channels + c
}

// At returns sample (x, y, c)
func (img *Image) At(x, y, c int) float64 {
	return img.Pix[img.Offset(x, y, c)]
}

// Set writes sample (x, y, c)
func (img *Image) Set(x, y, c int, v float64) {
	img.Pix[img.Offset(x, y, c)] = v
}

// Len is the total number of samples across all channels
func (img *Image) Len() int {
	return img.Width * img.Height * img.Channels
}

// Dims formats the image dimensions for messages
func (img *Image) Dims() string {
	return fmt.Sprintf("%dx%dx%d", img.Width, img.Height, img.Channels)
}

// Validate checks that the declared dimensions match the sample buffer
func (img *Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 || img.Channels <= 0 {
		return fmt.Errorf("invalid image dimensions %s", img.Dims())
	}
	if len(img.Pix) != img.Len() {
		return fmt.Errorf("image %s expects %d samples, has %d", img.Dims(), img.Len(), len(img.Pix))
	}
	return nil
}

// Shift returns a copy of img with delta added to every sample
func (img *Image) Shift(delta float64) *Image {
	out := NewImage(img.Width, img.Height, img.Channels)
	for i, v := range img.Pix {
		out.Pix[i] = v + delta
	}
	return out
}
