package shadercompat

import (
	"math"

	"github.com/gogpu/shadercompat/vecmath"
)

// FilledImage returns a width x height image with every pixel set to v.
func FilledImage(width, height int, v float32) []float32 {
	img := make([]float32, width*height)
	for i := range img {
		img[i] = v
	}
	return img
}

// CrossImage returns a width x height mask holding a plus sign centered at
// (width/2, height/2). Each arm is armWidth pixels wide and reaches
// armLength pixels from the center in both directions. Cross pixels are 1,
// the rest 0.
func CrossImage(width, height, armWidth, armLength int) []float32 {
	img := make([]float32, width*height)
	cx, cy := width/2, height/2
	half := armWidth / 2
	band := func(d int) bool { return d >= -half && d < armWidth-half }
	arm := func(d int) bool { return d >= -armLength && d <= armLength }
	for y := range height {
		for x := range width {
			dx, dy := x-cx, y-cy
			if (band(dx) && arm(dy)) || (band(dy) && arm(dx)) {
				img[y*width+x] = 1
			}
		}
	}
	return img
}

// BruteForceDistance returns the exact signed distance of pixel (x, y) in
// img: the Euclidean distance to the nearest pixel of the opposite class,
// negative inside the foreground (values >= threshold). It is unclamped;
// when no pixel of the opposite class exists the result is +Inf or -Inf.
//
// The search is O(width*height) per pixel and meant for spot checks.
func BruteForceDistance(img []float32, width, height int, threshold float32, x, y int) float32 {
	inside := img[y*width+x] >= threshold
	best := int64(-1)
	var nearest vecmath.Int2
	for sy := range height {
		for sx := range width {
			if (img[sy*width+sx] >= threshold) == inside {
				continue
			}
			dx, dy := int64(sx-x), int64(sy-y)
			if d := dx*dx + dy*dy; best < 0 || d < best {
				best = d
				nearest = vecmath.V2(int32(sx), int32(sy))
			}
		}
	}

	sign := float32(1)
	if inside {
		sign = -1
	}
	if best < 0 {
		return sign * float32(math.Inf(1))
	}
	diff := vecmath.Sub2(vecmath.V2(int32(x), int32(y)), nearest)
	return sign * vecmath.Length2(vecmath.ToFloat2(diff))
}
