package texgen

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"terrastream/internal/texcache"
)

// generate builds the base texture for a request and its downscaled LOD
// variants. Runs on worker goroutines; touches no shared state.
func (p *Producer) generate(req request) []lodImage {
	base := p.renderBase(req)

	images := make([]lodImage, 0, p.texLODs)
	images = append(images, lodImage{lod: 0, img: base})
	for l := 1; l < p.texLODs; l++ {
		size := p.texSize >> l
		if size < 1 {
			size = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), base, base.Bounds(), xdraw.Src, nil)
		images = append(images, lodImage{lod: l, img: dst})
	}
	return images
}

func (p *Producer) renderBase(req request) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.texSize, p.texSize))
	k := req.owner

	// Seed separates regimes, faces and texture types into distinct noise
	// spaces so no two textures repeat.
	seed := p.seed + int64(req.typ)*104729 + int64(k.Regime)*31 + int64(k.Face)*7919

	inv := 1.0 / float64(p.texSize)
	for py := 0; py < p.texSize; py++ {
		for px := 0; px < p.texSize; px++ {
			u := float64(k.X) + float64(px)*inv
			v := float64(k.Y) + float64(py)*inv
			n := fractalNoise(u*4, v*4, seed)
			o := img.PixOffset(px, py)
			switch req.typ {
			case texcache.TextureHeight:
				g := uint8(n * 255)
				img.Pix[o+0] = g
				img.Pix[o+1] = g
				img.Pix[o+2] = g
			case texcache.TextureSurface:
				// rock below, grass ramp above
				img.Pix[o+0] = uint8(60 + n*80)
				img.Pix[o+1] = uint8(90 + n*140)
				img.Pix[o+2] = uint8(50 + n*40)
			default:
				// encode the noise gradient as a tangent-space normal
				dx := fractalNoise((u+inv)*4, v*4, seed) - n
				dy := fractalNoise(u*4, (v+inv)*4, seed) - n
				img.Pix[o+0] = uint8(128 + clampGrad(dx)*127)
				img.Pix[o+1] = uint8(128 + clampGrad(dy)*127)
				img.Pix[o+2] = 255
			}
			img.Pix[o+3] = 255
		}
	}
	return img
}

func clampGrad(g float64) float64 {
	g *= 8
	if g < -1 {
		return -1
	}
	if g > 1 {
		return 1
	}
	return g
}

// fractalNoise is a small 4-octave value noise in [0,1].
func fractalNoise(x, y float64, seed int64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := 0; i < 4; i++ {
		sum += valueNoise(x*frequency, y*frequency, seed+int64(i*131)) * amplitude
		norm += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	return sum / norm
}

func valueNoise(x, y float64, seed int64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := smooth(x - x0)
	fy := smooth(y - y0)
	ix := int64(x0)
	iy := int64(y0)

	v00 := lattice(ix, iy, seed)
	v10 := lattice(ix+1, iy, seed)
	v01 := lattice(ix, iy+1, seed)
	v11 := lattice(ix+1, iy+1, seed)

	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	return top + (bot-top)*fy
}

func smooth(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lattice(x, y, seed int64) float64 {
	v := uint64(x) + (uint64(y) << 1) + uint64(seed)*0x9E3779B97F4A7C15
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	v ^= v >> 31
	return float64(v&0xFFFFFFFF) / float64(0xFFFFFFFF)
}
