package detector

import (
	"image"
	"math"
	"math/bits"
	"math/rand/v2"
	"slices"

	"github.com/disintegration/imaging"
)

// Keypoint extraction parameters.
const (
	fastThreshold   = 20
	fastArc         = 9
	harrisK         = 0.04
	harrisBlockHalf = 3
	patchRadius     = 15
	// border keeps every rotated sampling point, the Harris window and the
	// orientation patch inside the image.
	border       = 24
	pyramidLevel = 3
	pyramidScale = 1.2
	blurSigma    = 2.0
	briefBits    = 256
)

// descriptor is a 256-bit rotated BRIEF descriptor.
type descriptor [briefBits / 64]uint64

// hamming returns the number of differing bits.
func hamming(a, b *descriptor) int {
	n := 0
	for i := range a {
		n += bits.OnesCount64(a[i] ^ b[i])
	}
	return n
}

// grayImage is an 8-bit luminance raster with its origin at (0, 0).
type grayImage struct {
	w, h int
	pix  []uint8
}

// newGrayImage copies the red channel of an NRGBA image produced by
// imaging.Grayscale (all channels are equal).
func newGrayImage(src *image.NRGBA) *grayImage {
	b := src.Bounds()
	g := &grayImage{w: b.Dx(), h: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	for y := range g.h {
		row := src.Pix[y*src.Stride:]
		for x := range g.w {
			g.pix[y*g.w+x] = row[x*4]
		}
	}
	return g
}

func (g *grayImage) at(x, y int) int {
	return int(g.pix[y*g.w+x])
}

// fastCircle is the Bresenham circle of radius 3 used by FAST.
var fastCircle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// patchExtent[dy] is the largest |dx| inside the circular orientation patch.
var patchExtent = func() [patchRadius + 1]int {
	var ext [patchRadius + 1]int
	for dy := range ext {
		ext[dy] = int(math.Sqrt(float64(patchRadius*patchRadius - dy*dy)))
	}
	return ext
}()

// briefPattern holds the sampling point pairs (x1, y1, x2, y2) relative to
// the keypoint. It is drawn once from an isotropic Gaussian with a fixed
// seed so descriptors are comparable across images and runs.
var briefPattern = func() [briefBits][4]float64 {
	var p [briefBits][4]float64
	r := rand.New(rand.NewPCG(0x9e3779b97f4a7c15, 0x2545f4914f6cdd1d)) //nolint:gosec // deterministic pattern, not security sensitive
	sigma := float64(2*patchRadius+1) / 5
	for i := range p {
		for j := range p[i] {
			v := math.Round(r.NormFloat64() * sigma)
			p[i][j] = math.Max(-patchRadius, math.Min(patchRadius, v))
		}
	}
	return p
}()

// keypoint is a corner position with its ranking score and orientation.
type keypoint struct {
	x, y  int
	score float64
	angle float64
}

// extractDescriptors finds up to n oriented FAST keypoints across a small
// scale pyramid and returns their rotated BRIEF descriptors.
func extractDescriptors(img image.Image, n int) []descriptor {
	base := imaging.Grayscale(img)
	w, h := base.Bounds().Dx(), base.Bounds().Dy()

	quotas := levelQuotas(n)
	out := make([]descriptor, 0, n)
	for level, quota := range quotas {
		scale := math.Pow(pyramidScale, float64(level))
		lw := int(math.Round(float64(w) / scale))
		lh := int(math.Round(float64(h) / scale))
		if lw <= 2*border || lh <= 2*border {
			break
		}

		levelImg := base
		if level > 0 {
			levelImg = imaging.Resize(base, lw, lh, imaging.Linear)
		}
		gray := newGrayImage(levelImg)
		smooth := newGrayImage(imaging.Blur(levelImg, blurSigma))

		for _, kp := range detectKeypoints(gray, quota) {
			out = append(out, describe(smooth, kp))
		}
	}
	return out
}

// levelQuotas splits n keypoints over the pyramid levels in proportion to
// each level's area.
func levelQuotas(n int) []int {
	factor := 1 / (pyramidScale * pyramidScale)
	first := float64(n) * (1 - factor) / (1 - math.Pow(factor, pyramidLevel))

	quotas := make([]int, pyramidLevel)
	assigned := 0
	for i := range pyramidLevel - 1 {
		quotas[i] = int(math.Round(first * math.Pow(factor, float64(i))))
		assigned += quotas[i]
	}
	quotas[pyramidLevel-1] = max(n-assigned, 0)
	return quotas
}

// detectKeypoints runs FAST-9, suppresses non-maxima by Harris response and
// returns the n strongest corners with their orientation.
func detectKeypoints(g *grayImage, n int) []keypoint {
	if n <= 0 {
		return nil
	}

	scores := make([]float64, len(g.pix))
	for i := range scores {
		scores[i] = math.Inf(-1)
	}
	var corners []keypoint
	for y := border; y < g.h-border; y++ {
		for x := border; x < g.w-border; x++ {
			if isFASTCorner(g, x, y) {
				s := harrisResponse(g, x, y)
				scores[y*g.w+x] = s
				corners = append(corners, keypoint{x: x, y: y, score: s})
			}
		}
	}

	kept := corners[:0]
	for _, c := range corners {
		if isLocalMax(scores, g.w, c) {
			kept = append(kept, c)
		}
	}

	slices.SortStableFunc(kept, func(a, b keypoint) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})
	if len(kept) > n {
		kept = kept[:n]
	}
	for i := range kept {
		kept[i].angle = orientation(g, kept[i].x, kept[i].y)
	}
	return kept
}

// isFASTCorner reports whether at least fastArc contiguous circle pixels
// are all brighter or all darker than the centre by fastThreshold.
func isFASTCorner(g *grayImage, x, y int) bool {
	center := g.at(x, y)
	var state [16]int8
	for i, off := range fastCircle {
		v := g.at(x+off[0], y+off[1])
		switch {
		case v > center+fastThreshold:
			state[i] = 1
		case v < center-fastThreshold:
			state[i] = -1
		}
	}

	run := 0
	var last int8
	for i := range 16 + fastArc - 1 {
		s := state[i%16]
		if s != 0 && s == last {
			run++
		} else if s != 0 {
			run = 1
		} else {
			run = 0
		}
		last = s
		if run >= fastArc {
			return true
		}
	}
	return false
}

// harrisResponse computes the Harris corner measure over a 7x7 window of
// Sobel gradients.
func harrisResponse(g *grayImage, x, y int) float64 {
	var a, b, c float64
	for dy := -harrisBlockHalf; dy <= harrisBlockHalf; dy++ {
		for dx := -harrisBlockHalf; dx <= harrisBlockHalf; dx++ {
			px, py := x+dx, y+dy
			ix := float64(g.at(px+1, py-1) + 2*g.at(px+1, py) + g.at(px+1, py+1) -
				g.at(px-1, py-1) - 2*g.at(px-1, py) - g.at(px-1, py+1))
			iy := float64(g.at(px-1, py+1) + 2*g.at(px, py+1) + g.at(px+1, py+1) -
				g.at(px-1, py-1) - 2*g.at(px, py-1) - g.at(px+1, py-1))
			a += ix * ix
			b += iy * iy
			c += ix * iy
		}
	}
	return a*b - c*c - harrisK*(a+b)*(a+b)
}

// isLocalMax reports whether no 8-neighbour corner has a higher score.
func isLocalMax(scores []float64, w int, c keypoint) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if scores[(c.y+dy)*w+c.x+dx] > c.score {
				return false
			}
		}
	}
	return true
}

// orientation returns the angle of the intensity centroid of the circular
// patch around (x, y).
func orientation(g *grayImage, x, y int) float64 {
	var m01, m10 int
	for dx := -patchRadius; dx <= patchRadius; dx++ {
		m10 += dx * g.at(x+dx, y)
	}
	for dy := 1; dy <= patchRadius; dy++ {
		ext := patchExtent[dy]
		for dx := -ext; dx <= ext; dx++ {
			up, down := g.at(x+dx, y-dy), g.at(x+dx, y+dy)
			m10 += dx * (up + down)
			m01 += dy * (down - up)
		}
	}
	return math.Atan2(float64(m01), float64(m10))
}

// describe computes the rotated BRIEF descriptor of kp on the smoothed image.
func describe(g *grayImage, kp keypoint) descriptor {
	sin, cos := math.Sincos(kp.angle)
	sample := func(px, py float64) int {
		rx := int(math.Round(px*cos - py*sin))
		ry := int(math.Round(px*sin + py*cos))
		return g.at(kp.x+rx, kp.y+ry)
	}

	var d descriptor
	for i, p := range briefPattern {
		if sample(p[0], p[1]) < sample(p[2], p[3]) {
			d[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return d
}
