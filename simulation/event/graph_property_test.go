package event_test

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/are-sim/aresim/simulation/event"
)

func TestTopoOrderRespectsDependenciesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("topological order never places an event before its dependency", prop.ForAll(
		func(n int) bool {
			g := event.NewGraph()
			events := make([]*event.Event, n)
			for i := 0; i < n; i++ {
				events[i] = event.New(event.TypeAgent, nil).WithID(fmt.Sprintf("e%d", i))
				if i > 0 {
					events[i].DependsOn(events[i-1])
				}
			}
			// Add in reverse so insertion order never coincides with dependency order.
			for i := n - 1; i >= 0; i-- {
				g.Add(events[i])
			}

			order, err := g.TopoOrder()
			if err != nil || len(order) != n {
				return false
			}
			pos := make(map[string]int, n)
			for i, e := range order {
				pos[e.EventID] = i
			}
			for i := 1; i < n; i++ {
				if pos[fmt.Sprintf("e%d", i-1)] >= pos[fmt.Sprintf("e%d", i)] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}
