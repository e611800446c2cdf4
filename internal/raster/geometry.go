package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned box with inclusive bounds.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Box returns the box spanning origin to origin+size on every axis.
func Box(origin mgl32.Vec3, size float32) AABB {
	return AABB{Min: origin, Max: origin.Add(mgl32.Vec3{size, size, size})}
}

// TriangleBounds returns the smallest box holding a, b and c.
func TriangleBounds(a, b, c mgl32.Vec3) AABB {
	var box AABB
	for i := range 3 {
		box.Min[i] = min(a[i], b[i], c[i])
		box.Max[i] = max(a[i], b[i], c[i])
	}
	return box
}

// Overlaps2D reports whether b and o overlap on the horizontal x and z axes.
// Touching boxes overlap.
func (b AABB) Overlaps2D(o AABB) bool {
	return !(b.Min.X() > o.Max.X() || b.Max.X() < o.Min.X() ||
		b.Min.Z() > o.Max.Z() || b.Max.Z() < o.Min.Z())
}

// Overlaps reports whether b and o overlap on all three axes.
// Touching boxes overlap.
func (b AABB) Overlaps(o AABB) bool {
	return b.Overlaps2D(o) && !(b.Min.Y() > o.Max.Y() || b.Max.Y() < o.Min.Y())
}

// TriBoxOverlap reports whether triangle (v0, v1, v2) intersects the box with
// the given center and half extents, using the separating axis theorem: the
// nine edge/axis cross products, the three box axes and the triangle plane.
func TriBoxOverlap(center, half, v0, v1, v2 mgl32.Vec3) bool {
	a := v0.Sub(center)
	b := v1.Sub(center)
	c := v2.Sub(center)

	edges := [3]mgl32.Vec3{b.Sub(a), c.Sub(b), a.Sub(c)}
	axes := [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for _, e := range edges {
		for _, u := range axes {
			axis := u.Cross(e)
			p0, p1, p2 := axis.Dot(a), axis.Dot(b), axis.Dot(c)
			rad := half.X()*abs32(axis.X()) + half.Y()*abs32(axis.Y()) + half.Z()*abs32(axis.Z())
			if min(p0, p1, p2) > rad || max(p0, p1, p2) < -rad {
				return false
			}
		}
	}

	for i := range 3 {
		if min(a[i], b[i], c[i]) > half[i] || max(a[i], b[i], c[i]) < -half[i] {
			return false
		}
	}

	return planeBoxOverlap(edges[0].Cross(edges[1]), a, half)
}

// planeBoxOverlap tests the plane through vert with the given normal against a
// box centered at the origin.
func planeBoxOverlap(normal, vert, half mgl32.Vec3) bool {
	var vmin, vmax mgl32.Vec3
	for i := range 3 {
		if normal[i] > 0 {
			vmin[i] = -half[i] - vert[i]
			vmax[i] = half[i] - vert[i]
		} else {
			vmin[i] = half[i] - vert[i]
			vmax[i] = -half[i] - vert[i]
		}
	}
	if normal.Dot(vmin) > 0 {
		return false
	}
	return normal.Dot(vmax) >= 0
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

// Barycentric returns the weights of p relative to triangle (a, b, c), where
// u weighs a, v weighs b and w weighs c. p is projected onto the triangle's
// plane. The triangle must have non-zero area.
func Barycentric(p, a, b, c mgl64.Vec3) (u, v, w float64) {
	s := b.Sub(a)
	t := c.Sub(a)
	n := s.Cross(t)
	delta := p.Sub(a)

	invDet := 1 / n.Dot(n)
	w = s.Cross(delta).Dot(n) * invDet
	v = delta.Cross(t).Dot(n) * invDet
	u = 1 - w - v
	return u, v, w
}

func vec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
