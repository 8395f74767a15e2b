package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/event"
)

func TestTopoOrderRespectsDependencies(t *testing.T) {
	g := event.NewGraph()
	a := event.New(event.TypeEnv, nil).WithID("a")
	b := event.New(event.TypeAgent, nil).WithID("b")
	c := event.New(event.TypeAgent, nil).WithID("c")
	b.DependsOn(a)
	c.DependsOn(b)
	g.Add(c)
	g.Add(a)
	g.Add(b)

	order, err := g.TopoOrder()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := map[string]int{}
	for i, e := range order {
		pos[e.EventID] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestTopoOrderDetectsCycle(t *testing.T) {
	g := event.NewGraph()
	a := event.New(event.TypeEnv, nil).WithID("a")
	b := event.New(event.TypeAgent, nil).WithID("b")
	a.DependsOn(b)
	b.DependsOn(a)
	g.Add(a)
	g.Add(b)

	_, err := g.TopoOrder()
	assert.Error(t, err)
}

func TestRehydrateResolvesStubPointers(t *testing.T) {
	a := event.New(event.TypeEnv, nil).WithID("a").AtAbsoluteTime(1)
	b := event.New(event.TypeAgent, nil).WithID("b")
	b.DependsOn(a)

	data, err := b.MarshalJSON()
	require.NoError(t, err)

	var restored event.Event
	require.NoError(t, restored.UnmarshalJSON(data))
	require.Len(t, restored.Dependencies, 1)
	assert.Nil(t, restored.Dependencies[0].EventTime)

	g := event.NewGraph()
	g.Add(a)
	g.Add(&restored)
	require.NoError(t, g.Rehydrate())

	require.NotNil(t, restored.Dependencies[0].EventTime)
	assert.Equal(t, 1.0, *restored.Dependencies[0].EventTime)
}
