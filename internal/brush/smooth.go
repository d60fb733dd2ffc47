package brush

import (
	"github.com/simplercanvas/simplercanvas/internal/geom"
	sp "github.com/simplercanvas/simplercanvas/internal/svgpath"
)

// Smooth turns sampled pointer positions into a chain of quadratic curves.
// Every sample becomes the control point of a curve ending halfway to the
// next sample, so the chain passes near all samples without corners. The
// start and end are pushed outward by corr along the direction the stroke
// leaves and arrives in. The path is closed by repeating its first
// instruction. Fewer than two points produce nothing.
func Smooth(p []geom.Point, corr float64) []sp.Instruction {
	if len(p) < 2 {
		return nil
	}

	many := len(p) > 2
	p1, p2 := p[0], p[1]
	multX, multY := 1.0, 0.0

	if many {
		multX = sign(p[2].X - p2.X)
		multY = sign(p[2].Y - p2.Y)
	}

	out := make([]sp.Instruction, 0, len(p)+2)
	out = append(out, sp.I(sp.MoveTo, p1.X-multX*corr, p1.Y-multY*corr))

	i := 1
	for ; i < len(p); i++ {
		if !p1.Eq(p2) {
			mid := p1.Mid(p2)
			out = append(out, sp.I(sp.QuadTo, p1.X, p1.Y, mid.X, mid.Y))
		}

		p1 = p[i]
		if i+1 < len(p) {
			p2 = p[i+1]
		}
	}

	if many {
		multX = sign(p1.X - p[i-2].X)
		multY = sign(p1.Y - p[i-2].Y)
	}

	out = append(out, sp.I(sp.LineTo, p1.X+multX*corr, p1.Y+multY*corr))
	out = append(out, out[0].Clone())
	return out
}

func sign(v float64) float64 {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
