package parallel

// Grid is a 3-D extent of thread groups (or of lanes) for one launch.
//
// Lanes are numbered in row-major order with X varying fastest:
// lane = x + y*X + z*X*Y.
type Grid struct {
	X, Y, Z int
}

// DivCeil returns ceil(extent / tile) for positive tile sizes.
func DivCeil(extent, tile int) int {
	if extent <= 0 {
		return 0
	}
	return (extent + tile - 1) / tile
}

// GroupsFor returns the group grid that covers a width x height x depth
// resource with tiles of the given size.
func GroupsFor(width, height, depth, tileX, tileY, tileZ int) Grid {
	return Grid{
		X: DivCeil(width, tileX),
		Y: DivCeil(height, tileY),
		Z: DivCeil(depth, tileZ),
	}
}

// Lanes returns X*Y*Z.
func (g Grid) Lanes() int {
	return g.X * g.Y * g.Z
}

// Coord decomposes a linear lane index into grid coordinates.
func (g Grid) Coord(lane int) (i0, i1, i2 int) {
	return lane % g.X, (lane / g.X) % g.Y, lane / (g.X * g.Y)
}

// Index is the inverse of Coord.
func (g Grid) Index(i0, i1, i2 int) int {
	return i0 + i1*g.X + i2*g.X*g.Y
}
