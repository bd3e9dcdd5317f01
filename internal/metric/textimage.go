package metric

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadTextImage loads a sample-grid file: a "<width> <height>" header
// followed by height rows of width whitespace-separated decimal samples.
func ReadTextImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := ParseTextImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// maxSamples bounds width*height so a corrupt header cannot force a huge
// allocation
const maxSamples = 1 << 28

// ParseTextImage decodes a sample grid into a single-channel Image
func ParseTextImage(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	var dims [2]int
	for i := range dims {
		tok, ok := next()
		if !ok {
			return nil, fmt.Errorf("invalid file format: missing header")
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid file format: bad header value %q", tok)
		}
		dims[i] = v
	}

	width, height := dims[0], dims[1]
	if width <= 0 || height <= 0 || width > maxSamples/height {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	img := NewImage(width, height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tok, ok := next()
			if !ok {
				return nil, fmt.Errorf("invalid pixel data at row %d, col %d: unexpected end of data", y, x)
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid pixel data at row %d, col %d: %q", y, x, tok)
			}
			img.Pix[y*width+x] = v
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return img, nil
}

// WriteTextImage writes the first channel of img as a sample grid
func WriteTextImage(w io.Writer, img *Image) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if x > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(img.At(x, y, 0), 'f', 6, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
