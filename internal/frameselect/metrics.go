package frameselect

import "image"

// ssim stabilization constants for 8-bit dynamic range.
const (
	ssimC1 = 6.5025
	ssimC2 = 58.5225
)

// laplacianVariance measures sharpness as the variance of a 4-neighbour
// Laplacian response over the interior pixels. Uniform or heavily blurred
// frames score near zero.
func laplacianVariance(img *image.Gray) float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	count := (width - 2) * (height - 2)
	responses := make([]float64, 0, count)
	var sum float64
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(img.GrayAt(x, y).Y)
			response := 4*center -
				float64(img.GrayAt(x, y-1).Y) -
				float64(img.GrayAt(x, y+1).Y) -
				float64(img.GrayAt(x-1, y).Y) -
				float64(img.GrayAt(x+1, y).Y)
			responses = append(responses, response)
			sum += response
		}
	}

	mean := sum / float64(count)
	var variance float64
	for _, response := range responses {
		diff := response - mean
		variance += diff * diff
	}
	return variance / float64(count)
}

// similarity computes a global structural-similarity score between two
// grayscale images of equal size. Identical images score 1.0; images of
// mismatched dimensions score 0.
func similarity(a, b *image.Gray) float64 {
	ab := a.Bounds()
	bb := b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0
	}
	n := float64(ab.Dx() * ab.Dy())
	if n == 0 {
		return 0
	}

	var sumA, sumB float64
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			sumA += float64(a.GrayAt(ab.Min.X+x, ab.Min.Y+y).Y)
			sumB += float64(b.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y)
		}
	}
	muA := sumA / n
	muB := sumB / n

	var varA, varB, covAB float64
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			da := float64(a.GrayAt(ab.Min.X+x, ab.Min.Y+y).Y) - muA
			db := float64(b.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y) - muB
			varA += da * da
			varB += db * db
			covAB += da * db
		}
	}
	varA /= n
	varB /= n
	covAB /= n

	numerator := (2*muA*muB + ssimC1) * (2*covAB + ssimC2)
	denominator := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
	return numerator / denominator
}

// downscale box-averages img by the given factor for cheap comparison.
func downscale(img *image.Gray, factor int) *image.Gray {
	if factor <= 1 {
		return img
	}
	bounds := img.Bounds()
	width := bounds.Dx() / factor
	height := bounds.Dy() / factor
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum, count int
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					sx := bounds.Min.X + x*factor + dx
					sy := bounds.Min.Y + y*factor + dy
					if sx >= bounds.Max.X || sy >= bounds.Max.Y {
						continue
					}
					sum += int(img.GrayAt(sx, sy).Y)
					count++
				}
			}
			if count > 0 {
				out.Pix[y*out.Stride+x] = uint8(sum / count)
			}
		}
	}
	return out
}
