package detector

// unionFind is a disjoint-set forest over the indices 0..n-1.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
		u.size[i] = 1
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}

// components returns the sets whose members are not excluded by skip.
// Sets are ordered by their smallest member and members are ascending.
func (u *unionFind) components(skip []bool) [][]int {
	index := make(map[int]int)
	var out [][]int
	for i := range u.parent {
		if skip != nil && skip[i] {
			continue
		}
		root := u.find(i)
		pos, ok := index[root]
		if !ok {
			pos = len(out)
			index[root] = pos
			out = append(out, nil)
		}
		out[pos] = append(out[pos], i)
	}
	return out
}
