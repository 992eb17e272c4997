package terrainrgb

import (
	"fmt"
	"image"
	"math"

	"github.com/routegrade/routegrade/pkg/polyline"
)

// TileSize is the pixel width of an @2x tile.
const TileSize = 512

// TileKey addresses a slippy-map tile.
type TileKey struct {
	Z, X, Y int
}

func (k TileKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}

// Locate returns the Web Mercator tile covering c at zoom z and the
// position of c inside it as fractions of the tile width and height.
func Locate(c polyline.Coordinate, z int) (TileKey, float64, float64) {
	n := math.Exp2(float64(z))
	latRad := c.Lat * math.Pi / 180

	xf := (c.Lon + 180) / 360 * n
	yf := (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n

	x := clampTile(math.Floor(xf), n)
	y := clampTile(math.Floor(yf), n)

	fx := clamp01(xf - x)
	fy := clamp01(yf - y)
	return TileKey{Z: z, X: int(x), Y: int(y)}, fx, fy
}

func clampTile(v, n float64) float64 {
	return math.Max(0, math.Min(v, n-1))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

// DecodeRGB converts a Terrain-RGB pixel to meters.
func DecodeRGB(r, g, b uint8) float64 {
	return -10000 + float64(int(r)*65536+int(g)*256+int(b))*0.1
}

// raster is a decoded tile, row-major.
type raster struct {
	width, height int
	elev          []float64
}

func newRaster(img image.Image) *raster {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	r := &raster{width: w, height: h, elev: make([]float64, w*h)}

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < w; x++ {
				p := row[x*4:]
				r.elev[y*w+x] = DecodeRGB(p[0], p[1], p[2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < w; x++ {
				p := row[x*4:]
				r.elev[y*w+x] = DecodeRGB(p[0], p[1], p[2])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cr, cg, cb, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				r.elev[y*w+x] = DecodeRGB(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8))
			}
		}
	}
	return r
}

func (r *raster) at(x, y int) float64 {
	return r.elev[y*r.width+x]
}

// bilinear samples the raster at fractional tile position (fx, fy) over the
// surrounding 2x2 pixel neighbourhood. Positions are clamped to the raster.
func (r *raster) bilinear(fx, fy float64) float64 {
	px := math.Max(0, math.Min(fx*float64(r.width), float64(r.width-1)))
	py := math.Max(0, math.Min(fy*float64(r.height), float64(r.height-1)))

	x0, y0 := int(px), int(py)
	x1, y1 := min(x0+1, r.width-1), min(y0+1, r.height-1)
	dx, dy := px-float64(x0), py-float64(y0)

	top := r.at(x0, y0)*(1-dx) + r.at(x1, y0)*dx
	bottom := r.at(x0, y1)*(1-dx) + r.at(x1, y1)*dx
	return top*(1-dy) + bottom*dy
}
