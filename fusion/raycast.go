package fusion

import (
	"sort"
	"sync"
)

// Raycast enumerates every block id the open segment [a,b] crosses, where
// a and b are already in block-id space (spec §4.4): a 3-D driver-line
// Bresenham variant, driver axis = axis of greatest |delta|. Both
// endpoints are included.
func Raycast(a, b BlockId) []BlockId {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	adx, ady, adz := abs32(dx), abs32(dy), abs32(dz)

	out := []BlockId{a}
	if a == b {
		return out
	}

	sx, sy, sz := sign32(dx), sign32(dy), sign32(dz)

	switch {
	case adx >= ady && adx >= adz:
		out = bresenhamDriver(a, adx, ady, adz, sx, sy, sz, driverX)
	case ady >= adx && ady >= adz:
		out = bresenhamDriver(a, ady, adx, adz, sy, sx, sz, driverY)
	default:
		out = bresenhamDriver(a, adz, adx, ady, sz, sx, sy, driverZ)
	}
	return out
}

type driverAxis int

const (
	driverX driverAxis = iota
	driverY
	driverZ
)

// bresenhamDriver walks the driver axis one unit at a time, accumulating
// two error terms against the two secondary axes (spec §4.4). d0 is the
// driver-axis delta magnitude, d1/d2 the two secondary deltas; s0/s1/s2
// their signs. axis selects which physical axis is the driver so the
// accumulated (p0,p1,p2) triple can be re-mapped to (x,y,z).
func bresenhamDriver(start BlockId, d0, d1, d2 int32, s0, s1, s2 int32, axis driverAxis) []BlockId {
	out := make([]BlockId, 0, int(d0)+1)

	p0, p1, p2 := coordsFor(start, axis)

	err1, err2 := int32(0), int32(0)
	for i := int32(0); i <= d0; i++ {
		out = append(out, fromCoords(p0, p1, p2, axis))

		err1 += d1
		if 2*err1 >= d0 {
			p1 += s1
			err1 -= d0
		}
		err2 += d2
		if 2*err2 >= d0 {
			p2 += s2
			err2 -= d0
		}
		p0 += s0
	}
	return out
}

func coordsFor(id BlockId, axis driverAxis) (p0, p1, p2 int32) {
	switch axis {
	case driverX:
		return id.X, id.Y, id.Z
	case driverY:
		return id.Y, id.X, id.Z
	default:
		return id.Z, id.X, id.Y
	}
}

func fromCoords(p0, p1, p2 int32, axis driverAxis) BlockId {
	switch axis {
	case driverX:
		return BlockId{p0, p1, p2}
	case driverY:
		return BlockId{p1, p0, p2}
	default:
		return BlockId{p1, p2, p0}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign32(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// RaycastAllocator dispatches Raycast over many ray segments in parallel,
// collecting each segment's ids into a local set that is merged into the
// shared set under one mutex (spec §4.4), grounded on photons4d's
// shard-locked worker pool (cast_rays.go / shard_locks.go). The result is
// returned in Index3.Less order, so allocation order does not depend on
// map iteration.
func RaycastAllocator(segments [][2]BlockId) []BlockId {
	if len(segments) == 0 {
		return nil
	}

	var mu sync.Mutex
	merged := make(map[BlockId]struct{})

	parallelFor(len(segments), func(i int) {
		seg := segments[i]
		local := make(map[BlockId]struct{})
		for _, id := range Raycast(seg[0], seg[1]) {
			local[id] = struct{}{}
		}
		mu.Lock()
		for id := range local {
			merged[id] = struct{}{}
		}
		mu.Unlock()
	})

	out := make([]BlockId, 0, len(merged))
	for id := range merged {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return Index3(out[i]).Less(Index3(out[j])) })
	return out
}
