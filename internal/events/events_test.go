package events

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tribesim/internal/tribes"
	"github.com/talgya/tribesim/internal/world"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGenerator(seed int64) (*Generator, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	g := NewGenerator(rand.New(rand.NewSource(seed)))
	g.Now = clock.Now
	return g, clock
}

func newTribe(id, pop, food int) *tribes.Tribe {
	t := tribes.New(tribes.Identity{ID: id, Name: "Tribe" + string(rune('A'+id))}, world.Pos{}, rand.New(rand.NewSource(1)))
	t.Population = pop
	t.Resources[world.ResourceFood] = food
	t.State = tribes.StateSettling
	return t
}

func lookupOf(ts ...*tribes.Tribe) Lookup {
	m := make(map[int]*tribes.Tribe, len(ts))
	for _, t := range ts {
		m[t.ID] = t
	}
	return func(id int) *tribes.Tribe { return m[id] }
}

func intp(i int) *int { return &i }

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range Weights {
		sum += w.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPick(t *testing.T) {
	tests := []struct {
		roll float64
		want Kind
	}{
		{0.0, KindHarvest},
		{0.19, KindHarvest},
		{0.2, KindDisease},
		{0.36, KindDiscovery},
		{0.51, KindBirthBoom},
		{0.66, KindDrought},
		{0.81, KindRaid},
		{0.91, KindAlliance},
		{0.96, KindWar},
		{1.5, KindHarvest}, // unmatched falls back
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Pick(tt.roll), "roll %v", tt.roll)
	}
}

func TestEligibilityBoundaries(t *testing.T) {
	assert.True(t, RaidEligible(-50))
	assert.False(t, RaidEligible(-49))
	assert.True(t, AllianceEligible(20))
	assert.False(t, AllianceEligible(19))
	assert.True(t, WarEligible(-70))
	assert.False(t, WarEligible(-69))
}

func TestDiplomaticArchetypesRespectRelationGates(t *testing.T) {
	tests := []struct {
		kind     Kind
		relation int
		want     bool
	}{
		{KindRaid, -50, true},
		{KindRaid, -49, false},
		{KindRaid, -100, true},
		{KindAlliance, 20, true},
		{KindAlliance, 19, false},
		{KindAlliance, 100, true},
		{KindWar, -70, true},
		{KindWar, -69, false},
	}
	for _, tt := range tests {
		g, _ := newTestGenerator(1)
		a := newTribe(1, 100, 100)
		b := newTribe(2, 100, 100)
		a.Relations[b.ID] = tt.relation

		ev := g.create(tt.kind, a, []*tribes.Tribe{a, b})
		if tt.want {
			require.NotNil(t, ev, "%s at %d", tt.kind, tt.relation)
			assert.Equal(t, b.ID, ev.OtherID)
			assert.Equal(t, a.ID, ev.TribeID)
		} else {
			assert.Nil(t, ev, "%s at %d", tt.kind, tt.relation)
		}
	}
}

func TestDiplomaticArchetypesNeedAnotherLivingTribe(t *testing.T) {
	g, _ := newTestGenerator(1)
	a := newTribe(1, 100, 100)
	dead := newTribe(2, 0, 0)
	a.Relations[2] = -100
	for _, k := range []Kind{KindRaid, KindWar} {
		assert.Nil(t, g.create(k, a, []*tribes.Tribe{a, dead}))
	}
}

func TestSoloArchetypesAlwaysProduce(t *testing.T) {
	g, _ := newTestGenerator(1)
	a := newTribe(1, 100, 200)

	harvest := g.create(KindHarvest, a, nil)
	require.NotNil(t, harvest)
	assert.Equal(t, PriorityNeutral, harvest.Priority)
	assert.Equal(t, 200, harvest.Choices[0].Effects[0].Amount)

	disease := g.create(KindDisease, a, nil)
	assert.Equal(t, PriorityHarmful, disease.Priority)
	assert.Equal(t, -11, disease.Choices[0].Effects[0].Amount)

	boom := g.create(KindBirthBoom, a, nil)
	assert.Equal(t, 17, boom.Choices[0].Effects[0].Amount)

	drought := g.create(KindDrought, a, nil)
	assert.Equal(t, PriorityHarmful, drought.Priority)
	assert.Equal(t, -60, drought.Choices[0].Effects[0].Amount)

	discovery := g.create(KindDiscovery, a, nil)
	assert.Empty(t, discovery.Choices)

	for _, e := range []*Event{harvest, disease, boom, drought, discovery} {
		assert.False(t, e.Resolved)
		assert.Equal(t, a.ID, e.TribeID)
		assert.NotEmpty(t, e.Title)
		assert.NotEmpty(t, e.Description)
	}
}

func TestEventIDsAreUniqueAndMonotonic(t *testing.T) {
	g, _ := newTestGenerator(1)
	a := newTribe(1, 100, 200)
	assert.Equal(t, "event_1", g.create(KindHarvest, a, nil).ID)
	assert.Equal(t, "event_2", g.create(KindDisease, a, nil).ID)
}

func TestGenerateTickRate(t *testing.T) {
	g, _ := newTestGenerator(7)
	var live []*tribes.Tribe
	for i := 1; i <= 200; i++ {
		live = append(live, newTribe(i, 100, 100))
	}
	total := 0
	for i := 0; i < 50; i++ {
		total += len(g.GenerateTick(live))
	}
	// Relations are all 0, so raids and wars decline; roughly 10% * 80% of 10000 rolls.
	assert.InDelta(t, 800, total, 150)
	for _, e := range g.Pending() {
		assert.NotEqual(t, KindRaid, e.Type)
		assert.NotEqual(t, KindWar, e.Type)
		assert.NotEqual(t, KindAlliance, e.Type)
	}
}

func TestGenerateTickSkipsExtinctTribes(t *testing.T) {
	g, _ := newTestGenerator(7)
	dead := newTribe(1, 0, 0)
	for i := 0; i < 200; i++ {
		assert.Empty(t, g.GenerateTick([]*tribes.Tribe{dead}))
	}
}

func TestPendingExpires(t *testing.T) {
	g, clock := newTestGenerator(1)
	a := newTribe(1, 100, 100)
	ev := g.create(KindHarvest, a, nil)
	g.pending = append(g.pending, ev)

	clock.Advance(299 * time.Second)
	g.GenerateTick(nil)
	assert.Len(t, g.Pending(), 1)

	clock.Advance(time.Second)
	g.GenerateTick(nil)
	assert.Empty(t, g.Pending())
	assert.Nil(t, g.Get(ev.ID))
}

func TestResolve(t *testing.T) {
	g, _ := newTestGenerator(1)
	a := newTribe(1, 100, 100)
	ev := g.create(KindHarvest, a, nil)
	g.pending = append(g.pending, ev)

	_, ok := g.Resolve("event_999", intp(0))
	assert.False(t, ok)

	effects, ok := g.Resolve(ev.ID, intp(0))
	require.True(t, ok)
	require.Len(t, effects, 1)
	assert.True(t, ev.Resolved)
	assert.Empty(t, g.Pending())

	_, ok = g.Resolve(ev.ID, intp(0))
	assert.False(t, ok, "already resolved")

	// Resolved events are collected on the next tick.
	g.GenerateTick(nil)
	assert.Nil(t, g.Get(ev.ID))
}

func TestResolveWithoutChoice(t *testing.T) {
	g, _ := newTestGenerator(1)
	a := newTribe(1, 100, 100)
	ev := g.create(KindDisease, a, nil)
	g.pending = append(g.pending, ev)

	effects, ok := g.Resolve(ev.ID, nil)
	assert.True(t, ok)
	assert.Empty(t, effects)
	assert.True(t, ev.Resolved)

	ev2 := g.create(KindDisease, a, nil)
	g.pending = append(g.pending, ev2)
	effects, ok = g.Resolve(ev2.ID, intp(5))
	assert.True(t, ok)
	assert.Empty(t, effects)
}

func TestRaidChoices(t *testing.T) {
	t.Run("defend and lose", func(t *testing.T) {
		g, _ := newTestGenerator(1)
		defender := newTribe(1, 50, 80)
		attacker := newTribe(2, 200, 0)
		defender.Relations[2] = -60
		ev := g.create(KindRaid, defender, []*tribes.Tribe{defender, attacker})
		require.NotNil(t, ev)

		Apply(ev.Choices[0].Effects, lookupOf(defender, attacker))
		assert.Equal(t, 30, defender.Resources[world.ResourceFood])
		assert.Equal(t, 50, attacker.Resources[world.ResourceFood])
	})

	t.Run("defend and hold", func(t *testing.T) {
		g, _ := newTestGenerator(1)
		defender := newTribe(1, 100, 80)
		attacker := newTribe(2, 100, 0)
		defender.Relations[2] = -60
		ev := g.create(KindRaid, defender, []*tribes.Tribe{defender, attacker})

		Apply(ev.Choices[0].Effects, lookupOf(defender, attacker))
		assert.Equal(t, 80, defender.Resources[world.ResourceFood])
		assert.Equal(t, 0, attacker.Resources[world.ResourceFood])
	})

	t.Run("tribute", func(t *testing.T) {
		g, _ := newTestGenerator(1)
		defender := newTribe(1, 100, 20)
		attacker := newTribe(2, 100, 0)
		defender.Relations[2] = -60
		ev := g.create(KindRaid, defender, []*tribes.Tribe{defender, attacker})

		Apply(ev.Choices[1].Effects, lookupOf(defender, attacker))
		assert.Equal(t, 0, defender.Resources[world.ResourceFood])
		assert.Equal(t, 20, attacker.Resources[world.ResourceFood])
		assert.Equal(t, -50, defender.Relation(2))
	})
}

func TestAllianceChoices(t *testing.T) {
	g, _ := newTestGenerator(1)
	a := newTribe(1, 100, 0)
	b := newTribe(2, 100, 0)
	a.Relations[2] = 25
	ev := g.create(KindAlliance, a, []*tribes.Tribe{a, b})
	require.NotNil(t, ev)

	Apply(ev.Choices[0].Effects, lookupOf(a, b))
	assert.Equal(t, 55, a.Relation(2))
	assert.Equal(t, 30, b.Relation(1))
	assert.Equal(t, tribes.StateAlliance, a.State)
	assert.Equal(t, tribes.StateAlliance, b.State)

	Apply(ev.Choices[1].Effects, lookupOf(a, b))
	assert.Equal(t, 45, a.Relation(2))
	assert.Equal(t, 30, b.Relation(1), "decline is one-sided")
}

func TestWarIsNotificationOnly(t *testing.T) {
	g, _ := newTestGenerator(1)
	a := newTribe(1, 100, 40)
	b := newTribe(2, 100, 40)
	a.Relations[2] = -90
	ev := g.create(KindWar, a, []*tribes.Tribe{a, b})
	require.NotNil(t, ev)
	assert.Equal(t, PriorityWar, ev.Priority)
	assert.Empty(t, ev.Choices)

	Apply(ev.Immediate, lookupOf(a, b))
	assert.Equal(t, tribes.StateAtWar, a.State)
	assert.Equal(t, tribes.StateAtWar, b.State)
	assert.Equal(t, 100, a.Population)
	assert.Equal(t, 40, b.Resources[world.ResourceFood])
}

func TestApplySkipsMissingTribes(t *testing.T) {
	a := newTribe(1, 100, 100)
	effects := []Effect{
		{Op: OpFood, TribeID: 9, Amount: 50},
		{Op: OpTransfer, TribeID: 1, OtherID: 9, Amount: 30},
		{Op: OpPopulation, TribeID: 1, Amount: -500},
	}
	assert.Equal(t, 1, Apply(effects, lookupOf(a)))
	assert.Equal(t, 100, a.Resources[world.ResourceFood])
	assert.Equal(t, 0, a.Population)
}

func TestRestoreContinuesNumbering(t *testing.T) {
	g, _ := newTestGenerator(1)
	g.Restore([]*Event{{ID: "event_41"}, {ID: "event_7"}})
	assert.Len(t, g.Pending(), 2)
	a := newTribe(1, 100, 100)
	assert.Equal(t, "event_42", g.create(KindHarvest, a, nil).ID)
}
