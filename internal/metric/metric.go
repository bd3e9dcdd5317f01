package metric

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Kind names one of the three fidelity metrics
type Kind string

const (
	KindMSE  Kind = "MSE"
	KindPSNR Kind = "PSNR"
	KindSSIM Kind = "SSIM"
)

// Kinds lists the metrics in their canonical order
var Kinds = []Kind{KindMSE, KindPSNR, KindSSIM}

// ParseKind resolves a metric name case-insensitively
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q (want MSE, PSNR or SSIM)", s)
}

// Result holds the metrics of one reference/candidate comparison.
// PSNR is +Inf when MSE is exactly zero.
type Result struct {
	MSE  float64
	PSNR float64
	SSIM float64
}

// Value returns the field selected by k
func (r Result) Value(k Kind) float64 {
	switch k {
	case KindMSE:
		return r.MSE
	case KindPSNR:
		return r.PSNR
	case KindSSIM:
		return r.SSIM
	}
	return math.NaN()
}

func (r Result) String() string {
	return fmt.Sprintf("MSE=%g, PSNR=%g, SSIM=%g", r.MSE, r.PSNR, r.SSIM)
}

// SSIM stabilizing constants and window size
const (
	ssimK1     = 0.01
	ssimK2     = 0.03
	ssimWindow = 7
)

// Compare evaluates MSE, PSNR and SSIM for one pair. The dimension check runs
// once before any metric; PSNR is derived from the MSE computed here.
func Compare(ref, cand *Image, peak float64) (Result, error) {
	if err := checkPair(ref, cand); err != nil {
		return Result{}, err
	}
	if err := checkPeak(peak); err != nil {
		return Result{}, err
	}

	mse := meanSquaredError(ref, cand)
	return Result{
		MSE:  mse,
		PSNR: psnrFromMSE(mse, peak),
		SSIM: structuralSimilarity(ref, cand, peak),
	}, nil
}

// MSE computes the mean of squared per-sample differences over all channels
func MSE(ref, cand *Image) (float64, error) {
	if err := checkPair(ref, cand); err != nil {
		return 0, err
	}
	return meanSquaredError(ref, cand), nil
}

// PSNR computes 10*log10(peak^2/MSE) in dB; identical images give +Inf
func PSNR(ref, cand *Image, peak float64) (float64, error) {
	if err := checkPair(ref, cand); err != nil {
		return 0, err
	}
	if err := checkPeak(peak); err != nil {
		return 0, err
	}
	return psnrFromMSE(meanSquaredError(ref, cand), peak), nil
}

// SSIM computes the mean structural similarity over 7x7 windows per channel.
// peak sets the dynamic range used by the stabilizing constants.
func SSIM(ref, cand *Image, peak float64) (float64, error) {
	if err := checkPair(ref, cand); err != nil {
		return 0, err
	}
	if err := checkPeak(peak); err != nil {
		return 0, err
	}
	return structuralSimilarity(ref, cand, peak), nil
}

func checkPair(ref, cand *Image) error {
	if ref == nil || cand == nil {
		return fmt.Errorf("reference and candidate images are required")
	}
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := cand.Validate(); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	if ref.Width != cand.Width || ref.Height != cand.Height || ref.Channels != cand.Channels {
		return &DimensionError{Reference: ref.Dims(), Candidate: cand.Dims()}
	}
	return nil
}

func checkPeak(peak float64) error {
	if !(peak > 0) || math.IsInf(peak, 0) {
		return fmt.Errorf("peak must be a positive finite value, got %g", peak)
	}
	return nil
}

func meanSquaredError(ref, cand *Image) float64 {
	var sum float64
	for i, v := range ref.Pix {
		d := v - cand.Pix[i]
		sum += d * d
	}
	return sum / float64(len(ref.Pix))
}

func psnrFromMSE(mse, peak float64) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(peak*peak/mse)
}

// structuralSimilarity averages windowSSIM over every window position that
// fits inside the image. Images smaller than the window use one window
// covering the short side.
func structuralSimilarity(ref, cand *Image, peak float64) float64 {
	c1 := (ssimK1 * peak) * (ssimK1 * peak)
	c2 := (ssimK2 * peak) * (ssimK2 * peak)

	win := min(ssimWindow, ref.Width, ref.Height)
	x := make([]float64, win*win)
	y := make([]float64, win*win)

	var sum float64
	var count int
	for c := 0; c < ref.Channels; c++ {
		for oy := 0; oy+win <= ref.Height; oy++ {
			for ox := 0; ox+win <= ref.Width; ox++ {
				i := 0
				for wy := 0; wy < win; wy++ {
					for wx := 0; wx < win; wx++ {
						off := ref.Offset(ox+wx, oy+wy, c)
						x[i] = ref.Pix[off]
						y[i] = cand.Pix[off]
						i++
					}
				}
				sum += windowSSIM(x, y, c1, c2)
				count++
			}
		}
	}
	return sum / float64(count)
}

// windowSSIM combines the luminance, contrast and structure terms for one
// window using sample (n-1) statistics.
func windowSSIM(x, y []float64, c1, c2 float64) float64 {
	var muX, muY, varX, varY, cov float64
	if len(x) < 2 {
		muX, muY = x[0], y[0]
	} else {
		muX, varX = stat.MeanVariance(x, nil)
		muY, varY = stat.MeanVariance(y, nil)
		cov = stat.Covariance(x, y, nil)
	}

	num := (2*muX*muY + c1) * (2*cov + c2)
	den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
	return num / den
}
