package graph

import (
	"golang.org/x/exp/slices"

	"github.com/dbsteward/pglifecycle/lib/ir"
	"github.com/dbsteward/pglifecycle/lib/util"
)

// Namer resolves ids back to the objects they stand for
type Namer interface {
	ReverseLookup(id int) (ir.Triple, error)
}

// Sequence flattens edges into a creation order in which every id comes
// after everything it depends on. Ids that are ready at the same time are
// emitted in ascending order, so the same graph always produces the same
// sequence.
func Sequence(edges Edges, names Namer) ([]int, error) {
	// forward: id => ids it still waits on
	// reverse: id => ids waiting on it
	forward := util.NewOrderedMap[int, *[]int]()
	reverse := map[int][]int{}
	init := func() *[]int {
		return &[]int{}
	}

	nodes := make([]int, 0, len(edges))
	for id := range edges {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)

	for _, id := range nodes {
		waits := forward.GetOrInit(id, init)
		for _, dep := range edges.Of(id) {
			// an id that only ever shows up as a dependency is still a node
			forward.GetOrInit(dep, init)
			*waits = append(*waits, dep)
			reverse[dep] = append(reverse[dep], id)
		}
	}

	out := make([]int, 0, forward.Len())
	for forward.Len() > 0 {
		ready := []int{}
		for _, entry := range forward.Entries() {
			if len(*entry.Value) == 0 {
				ready = append(ready, entry.Key)
			}
		}
		if len(ready) == 0 {
			return nil, cycleError(forward.Keys(), names)
		}
		slices.Sort(ready)
		out = append(out, ready...)
		for _, id := range ready {
			forward.Delete(id)
			for _, dependent := range reverse[id] {
				if forward.Has(dependent) {
					waits := forward.Get(dependent)
					*waits = util.Remove(*waits, id)
				}
			}
		}
	}
	return out, nil
}

func cycleError(ids []int, names Namer) error {
	slices.Sort(ids)
	err := &CyclicDependencyError{IDs: ids}
	for _, id := range ids {
		triple, lerr := names.ReverseLookup(id)
		if lerr != nil {
			triple = ir.Triple{Name: "?"}
		}
		err.Members = append(err.Members, triple)
	}
	return err
}
