package vision

import (
	"image"
	"math"
)

// DefaultThreshold rejects matches scoring below it. Increase if false
// positives appear.
const DefaultThreshold = 0.9

// DefaultScales lists template scales tried during matching, so templates
// captured at a different window size still resolve.
var DefaultScales = []float64{1.0, 0.95, 0.9, 0.85, 0.8, 0.75, 0.7, 0.65, 0.6, 0.55, 0.5, 1.05, 1.1}

// Match describes the best template position found on a captured screen.
type Match struct {
	X, Y          int
	Width, Height int
	Score         float64
	Scale         float64
}

// Center returns the match centre point, the coordinate a click targets.
func (m *Match) Center() (int, int) {
	return m.X + m.Width/2, m.Y + m.Height/2
}

// FindTemplate scans the screen for the template at every configured scale
// and returns the best normalized cross-correlation match, or nil when no
// position reaches the threshold.
func FindTemplate(screen, template image.Image, threshold float64, scales []float64) *Match {
	if len(scales) == 0 {
		scales = DefaultScales
	}
	src := newGray(screen)
	tpl := newGray(template)

	var best *Match
	for _, scale := range scales {
		scaled := tpl.resize(scale)
		if scaled.w < 2 || scaled.h < 2 || scaled.w > src.w || scaled.h > src.h {
			continue
		}
		score, x, y := src.correlate(scaled)
		if best == nil || score > best.Score {
			best = &Match{X: x, Y: y, Width: scaled.w, Height: scaled.h, Score: score, Scale: scale}
		}
	}
	if best == nil || best.Score < threshold {
		return nil
	}
	return best
}

// gray is a luminance plane used for matching.
type gray struct {
	w, h int
	pix  []float64
}

func newGray(img image.Image) *gray {
	bounds := img.Bounds()
	g := &gray{w: bounds.Dx(), h: bounds.Dy(), pix: make([]float64, bounds.Dx()*bounds.Dy())}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g2, b, _ := img.At(x, y).RGBA()
			g.pix[i] = 0.299*float64(r>>8) + 0.587*float64(g2>>8) + 0.114*float64(b>>8)
			i++
		}
	}
	return g
}

// resize produces a bilinear-interpolated copy at the given scale.
func (g *gray) resize(scale float64) *gray {
	if scale == 1.0 {
		return g
	}
	w := int(math.Round(float64(g.w) * scale))
	h := int(math.Round(float64(g.h) * scale))
	if w < 1 || h < 1 {
		return &gray{}
	}
	out := &gray{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		srcY := (float64(y) + 0.5) / scale
		y0 := int(srcY - 0.5)
		fy := srcY - 0.5 - float64(y0)
		y1 := y0 + 1
		y0 = clamp(y0, 0, g.h-1)
		y1 = clamp(y1, 0, g.h-1)
		for x := 0; x < w; x++ {
			srcX := (float64(x) + 0.5) / scale
			x0 := int(srcX - 0.5)
			fx := srcX - 0.5 - float64(x0)
			x1 := x0 + 1
			x0 = clamp(x0, 0, g.w-1)
			x1 = clamp(x1, 0, g.w-1)
			top := g.pix[y0*g.w+x0]*(1-fx) + g.pix[y0*g.w+x1]*fx
			bottom := g.pix[y1*g.w+x0]*(1-fx) + g.pix[y1*g.w+x1]*fx
			out.pix[y*w+x] = top*(1-fy) + bottom*fy
		}
	}
	return out
}

// correlate slides the template over the plane and returns the best
// zero-mean normalized cross-correlation score with its position.
func (g *gray) correlate(tpl *gray) (float64, int, int) {
	n := float64(tpl.w * tpl.h)
	var tplSum, tplSqSum float64
	for _, v := range tpl.pix {
		tplSum += v
		tplSqSum += v * v
	}
	tplMean := tplSum / n
	tplNorm := math.Sqrt(tplSqSum - tplSum*tplSum/n)

	bestScore := math.Inf(-1)
	bestX, bestY := 0, 0
	for y := 0; y+tpl.h <= g.h; y++ {
		for x := 0; x+tpl.w <= g.w; x++ {
			var sum, sqSum, cross float64
			for ty := 0; ty < tpl.h; ty++ {
				srcRow := (y+ty)*g.w + x
				tplRow := ty * tpl.w
				for tx := 0; tx < tpl.w; tx++ {
					sv := g.pix[srcRow+tx]
					sum += sv
					sqSum += sv * sv
					cross += sv * tpl.pix[tplRow+tx]
				}
			}
			srcNorm := math.Sqrt(sqSum - sum*sum/n)
			if srcNorm == 0 || tplNorm == 0 {
				continue
			}
			score := (cross - sum*tplMean) / (srcNorm * tplNorm)
			if score > bestScore {
				bestScore, bestX, bestY = score, x, y
			}
		}
	}
	return bestScore, bestX, bestY
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
