package graph

import (
	"fmt"
	"strings"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

// DependencyResolutionError names both the object that declared a
// dependency and the dependency that could not be found
type DependencyResolutionError struct {
	Dependent ir.Triple
	Target    ir.Triple
}

func (e *DependencyResolutionError) Error() string {
	return fmt.Sprintf("%s depends on %s, which does not exist", e.Dependent, e.Target)
}

// CyclicDependencyError lists every object left unsequenced when no
// further progress could be made
type CyclicDependencyError struct {
	IDs     []int
	Members []ir.Triple
}

func (e *CyclicDependencyError) Error() string {
	names := make([]string, len(e.Members))
	for i, m := range e.Members {
		names[i] = m.String()
	}
	return fmt.Sprintf("cyclic dependency among %d objects: %s", len(e.Members), strings.Join(names, "; "))
}
