package frameselect

import (
	"image"
	"testing"
)

func uniformFrame(width, height int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

func checkerboardFrame(width, height, cell int, phase bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			on := ((x/cell)+(y/cell))%2 == 0
			if phase {
				on = !on
			}
			if on {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}

func TestLaplacianVarianceUniformIsZero(t *testing.T) {
	if got := laplacianVariance(uniformFrame(32, 32, 128)); got != 0 {
		t.Fatalf("uniform frame variance = %f, want 0", got)
	}
}

func TestLaplacianVarianceEdgesScoreHigh(t *testing.T) {
	sharp := laplacianVariance(checkerboardFrame(32, 32, 4, false))
	if sharp <= 100 {
		t.Fatalf("checkerboard variance = %f, want > 100", sharp)
	}
}

func TestLaplacianVarianceTinyImage(t *testing.T) {
	if got := laplacianVariance(uniformFrame(2, 2, 0)); got != 0 {
		t.Fatalf("2x2 frame variance = %f, want 0", got)
	}
}

func TestSimilarityIdenticalIsOne(t *testing.T) {
	frame := checkerboardFrame(32, 32, 4, false)
	got := similarity(frame, frame)
	if got < 0.999 {
		t.Fatalf("self-similarity = %f, want ~1.0", got)
	}
}

func TestSimilarityInvertedIsLow(t *testing.T) {
	a := checkerboardFrame(32, 32, 4, false)
	b := checkerboardFrame(32, 32, 4, true)
	got := similarity(a, b)
	if got >= 0.5 {
		t.Fatalf("inverted checkerboard similarity = %f, want < 0.5", got)
	}
}

func TestSimilarityMismatchedSizes(t *testing.T) {
	a := uniformFrame(16, 16, 100)
	b := uniformFrame(32, 32, 100)
	if got := similarity(a, b); got != 0 {
		t.Fatalf("mismatched sizes similarity = %f, want 0", got)
	}
}

func TestDownscaleHalvesDimensions(t *testing.T) {
	small := downscale(uniformFrame(32, 24, 77), 2)
	bounds := small.Bounds()
	if bounds.Dx() != 16 || bounds.Dy() != 12 {
		t.Fatalf("downscaled bounds = %v, want 16x12", bounds)
	}
	if small.Pix[0] != 77 {
		t.Fatalf("downscaled pixel = %d, want 77", small.Pix[0])
	}
}
