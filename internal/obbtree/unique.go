package obbtree

// uniqueSet collects distinct vertex indices in first-seen order.
//
// Membership is a generation stamp per vertex, so resetting between nodes is
// O(1) regardless of how large an earlier node was.
type uniqueSet struct {
	stamp []uint32
	pos   []int32 // position of the vertex in items, valid for the current generation
	gen   uint32
	items []int32
}

func newUniqueSet(numVertices int) *uniqueSet {
	return &uniqueSet{
		stamp: make([]uint32, numVertices),
		pos:   make([]int32, numVertices),
	}
}

func (u *uniqueSet) reset() {
	u.gen++
	if u.gen == 0 {
		clear(u.stamp)
		u.gen = 1
	}
	u.items = u.items[:0]
}

func (u *uniqueSet) add(v int32) {
	if u.stamp[v] == u.gen {
		return
	}
	u.stamp[v] = u.gen
	u.pos[v] = int32(len(u.items))
	u.items = append(u.items, v)
}

// index returns the first-seen position of v. v must be in the set.
func (u *uniqueSet) index(v int32) int32 {
	return u.pos[v]
}

// collect resets the set and adds every vertex of the given face indices.
func (u *uniqueSet) collect(indices []int32) []int32 {
	u.reset()
	for _, v := range indices {
		u.add(v)
	}
	return u.items
}
