package volume

import (
	"fmt"
	"math/rand"
)

// Augment crops a crop x crop window starting at (dx, dy) and optionally
// mirrors it left-to-right. Negative offsets pick a random valid offset from
// rng. The result is a fresh Volume whose gradient buffer matches its size.
//
// When crop equals the width, offsets are zero and flip is false, the input
// Volume is returned as-is.
func (v *Volume) Augment(crop, dx, dy int, flip bool, rng *rand.Rand) *Volume {
	if crop <= 0 || crop > v.width || crop > v.height {
		panic(fmt.Sprintf("Volume.Augment: crop %d does not fit %dx%d", crop, v.width, v.height))
	}
	if dx < 0 {
		dx = rng.Intn(v.width - crop + 1)
	}
	if dy < 0 {
		dy = rng.Intn(v.height - crop + 1)
	}
	if dx+crop > v.width || dy+crop > v.height {
		panic(fmt.Sprintf("Volume.Augment: offset (%d,%d) out of range", dx, dy))
	}

	w := v
	if crop != v.width || dx != 0 || dy != 0 {
		w = New(crop, crop, v.depth)
		for x := 0; x < crop; x++ {
			for y := 0; y < crop; y++ {
				for d := 0; d < v.depth; d++ {
					w.Set(x, y, d, v.Get(x+dx, y+dy, d))
				}
			}
		}
	}

	if flip {
		w2 := w.CloneAndZero()
		for x := 0; x < w.width; x++ {
			for y := 0; y < w.height; y++ {
				for d := 0; d < w.depth; d++ {
					w2.Set(x, y, d, w.Get(w.width-x-1, y, d))
				}
			}
		}
		w = w2
	}
	return w
}
