package nav

import "math"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) Offset(dx, dy, dz int) Vec3i { return Vec3i{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz} }

// Vec3 is the continuous agent position. Voxel lookups always floor it.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) Floor() Vec3i {
	return Vec3i{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

func (v Vec3) Center() Vec3 {
	f := v.Floor()
	return Vec3{X: float64(f.X) + 0.5, Y: float64(f.Y), Z: float64(f.Z) + 0.5}
}

func CenterOf(p Vec3i) Vec3 {
	return Vec3{X: float64(p.X) + 0.5, Y: float64(p.Y), Z: float64(p.Z) + 0.5}
}

func Manhattan(a, b Vec3i) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y) + absInt(a.Z-b.Z)
}

func Chebyshev(a, b Vec3i) int {
	d := absInt(a.X - b.X)
	if dy := absInt(a.Y - b.Y); dy > d {
		d = dy
	}
	if dz := absInt(a.Z - b.Z); dz > d {
		d = dz
	}
	return d
}

func DistXZ(a, b Vec3) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dz*dz)
}

func Dist3(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// cardinals is the fixed neighbor order used everywhere a horizontal
// sweep happens. Fixed order keeps escape behavior deterministic.
var cardinals = []Vec3i{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}
