package tribes

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tribesim/internal/world"
)

func flatWorld(w, h int, tt world.TileType) *world.World {
	m := world.NewWorld(w, h)
	for y := range m.Tiles {
		for x := range m.Tiles[y] {
			m.Tiles[y][x].Type = tt
		}
	}
	return m
}

func newTestTribe(id, pop, food int, player bool) *Tribe {
	t := blank(Identity{ID: id, Name: "Testfolk", IsPlayer: player}, world.Pos{X: 2, Y: 2})
	t.Population = pop
	t.Resources[world.ResourceFood] = food
	return t
}

func rng() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func TestNewTribe(t *testing.T) {
	r := rng()
	for i := 0; i < 100; i++ {
		tr := New(Identity{ID: i + 1, Name: NewName(r)}, world.Pos{}, r)
		assert.GreaterOrEqual(t, tr.Population, MinStartPopulation)
		assert.Less(t, tr.Population, MaxStartPopulation)
		assert.Equal(t, StartFood, tr.Resources[world.ResourceFood])
		assert.Equal(t, StateNomadic, tr.State)
		assert.NotEmpty(t, tr.Name)
	}
}

func TestTickStarvingSmallTribeHoldsSteady(t *testing.T) {
	w := flatWorld(5, 5, world.TileSand)
	tr := newTestTribe(1, 40, 0, true)

	tr.Tick(w, rng())

	assert.Equal(t, 40, tr.Population)
	assert.Equal(t, 0, tr.Resources[world.ResourceFood])
}

func TestTickShortfallEmptiesStoreAndBlocksBirths(t *testing.T) {
	w := flatWorld(5, 5, world.TileSand)
	tr := newTestTribe(1, 100, 60, true)

	tr.Tick(w, rng())

	assert.Equal(t, 100, tr.Population)
	assert.Equal(t, 0, tr.Resources[world.ResourceFood])
}

func TestTickStarvationLoss(t *testing.T) {
	w := flatWorld(5, 5, world.TileSand)
	tr := newTestTribe(1, 1000, 10, true)

	tr.Tick(w, rng())

	// 5 starve, then floor(995*0.001) = 0 die.
	assert.Equal(t, 995, tr.Population)
	assert.Equal(t, 0, tr.Resources[world.ResourceFood])
}

func TestTickWellFedTribeGrows(t *testing.T) {
	w := flatWorld(5, 5, world.TileSand)
	tr := newTestTribe(1, 1000, 2000, true)

	tr.Tick(w, rng())

	// Eats 1000, 1000 left > 50 so 2 are born, then floor(1002*0.001) = 1 dies.
	assert.Equal(t, 1001, tr.Population)
	assert.Equal(t, 1000, tr.Resources[world.ResourceFood])
}

func TestTickCooldownDecrements(t *testing.T) {
	w := flatWorld(5, 5, world.TileSand)
	tr := newTestTribe(1, 20, 500, false)
	tr.ActionCooldown = 3

	tr.Tick(w, rng())
	assert.Equal(t, 2, tr.ActionCooldown)
	assert.Equal(t, world.Pos{X: 2, Y: 2}, tr.Position, "AI waits out its cooldown")
}

func TestTickExtinctTribeDoesNothing(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)
	w.Tiles[2][2].Resources = []world.Deposit{{Type: world.ResourceFood, Amount: 40}}
	tr := newTestTribe(1, 0, 0, false)

	tr.Tick(w, rng())

	assert.Equal(t, 0, tr.Population)
	assert.False(t, tr.Alive())
	assert.Equal(t, 40, w.Tiles[2][2].Resources[0].Amount)
	assert.Equal(t, ActionNone, tr.LastAction)
}

func TestPopulationNeverNegative(t *testing.T) {
	w := flatWorld(8, 8, world.TileGrass)
	r := rng()
	for i := 0; i < 50; i++ {
		tr := newTestTribe(i+1, r.Intn(50), r.Intn(30), i%2 == 0)
		for step := 0; step < 200; step++ {
			tr.Tick(w, r)
			require.GreaterOrEqual(t, tr.Population, 0)
			require.GreaterOrEqual(t, tr.Resources[world.ResourceFood], 0)
		}
	}
}

func TestAIGathersFirstNonEmptyDeposit(t *testing.T) {
	w := flatWorld(5, 5, world.TileForest)
	w.Tiles[2][2].Resources = []world.Deposit{
		{Type: world.ResourceWood, Amount: 0},
		{Type: world.ResourceFood, Amount: 40},
	}
	tr := newTestTribe(1, 20, 500, false)

	tr.Tick(w, rng())

	assert.Equal(t, ActionGather, tr.LastAction)
	assert.Equal(t, GatherCooldown, tr.ActionCooldown)
	assert.Equal(t, 30, w.Tiles[2][2].Resources[1].Amount)
	assert.Equal(t, world.Pos{X: 2, Y: 2}, tr.Position)
}

func TestAIExploresWhenTileIsBare(t *testing.T) {
	w := flatWorld(5, 5, world.TileWater)
	w.Tiles[2][2].Type = world.TileGrass
	w.Tiles[2][3].Type = world.TileGrass // the only way out: east
	tr := newTestTribe(1, 20, 500, false)

	tr.Tick(w, rng())

	assert.Equal(t, world.Pos{X: 3, Y: 2}, tr.Position)
	assert.Equal(t, ActionExplore, tr.LastAction)
	assert.Equal(t, ExploreCooldown, tr.ActionCooldown)
}

func TestAIStuckOnIslandStaysPut(t *testing.T) {
	w := flatWorld(5, 5, world.TileWater)
	w.Tiles[2][2].Type = world.TileGrass
	tr := newTestTribe(1, 20, 500, false)

	tr.Tick(w, rng())

	assert.Equal(t, world.Pos{X: 2, Y: 2}, tr.Position)
	assert.Equal(t, 0, tr.ActionCooldown)
}

func TestPlayerTribeHasNoAI(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)
	w.Tiles[2][2].Resources = []world.Deposit{{Type: world.ResourceFood, Amount: 40}}
	tr := newTestTribe(1, 20, 500, true)

	tr.Tick(w, rng())

	assert.Equal(t, 40, w.Tiles[2][2].Resources[0].Amount)
	assert.Equal(t, ActionNone, tr.LastAction)
}

func TestGather(t *testing.T) {
	tests := []struct {
		name        string
		pop, amount int
		wantTaken   int
	}{
		{"deposit limits", 100, 30, 30},
		{"population limits", 100, 80, 50},
		{"odd population floors", 31, 80, 15},
		{"empty deposit", 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := flatWorld(5, 5, world.TileGrass)
			w.Tiles[2][2].Resources = []world.Deposit{{Type: world.ResourceFood, Amount: tt.amount}}
			tr := newTestTribe(1, tt.pop, 0, true)

			got := tr.Gather(w, world.ResourceFood)

			assert.Equal(t, tt.wantTaken, got)
			assert.Equal(t, tt.wantTaken, tr.Resources[world.ResourceFood])
			assert.Equal(t, tt.amount-tt.wantTaken, w.Tiles[2][2].Resources[0].Amount)
			assert.GreaterOrEqual(t, w.Tiles[2][2].Resources[0].Amount, 0)
			if tt.wantTaken > 0 {
				assert.Equal(t, GatherCooldown, tr.ActionCooldown)
			} else {
				assert.Equal(t, 0, tr.ActionCooldown)
			}
		})
	}
}

func TestGatherMissingDepositIsNoop(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)
	tr := newTestTribe(1, 100, 0, true)
	assert.Equal(t, 0, tr.Gather(w, world.ResourceMetal))
	assert.Equal(t, ActionNone, tr.LastAction)
}

func TestMove(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)
	w.Tiles[2][1].Type = world.TileWater
	tr := newTestTribe(1, 50, 0, true)

	ok, enc := tr.Move(w, world.West, rng())
	assert.False(t, ok)
	assert.Nil(t, enc)
	assert.Equal(t, world.Pos{X: 2, Y: 2}, tr.Position)

	ok, _ = tr.Move(w, world.East, rng())
	require.True(t, ok)
	assert.Equal(t, world.Pos{X: 3, Y: 2}, tr.Position)
	assert.Equal(t, MoveCooldown, tr.ActionCooldown)
	assert.Equal(t, ActionMove, tr.LastAction)

	ok, _ = tr.Move(w, world.East, rng())
	require.True(t, ok)
	ok, _ = tr.Move(w, world.East, rng())
	assert.False(t, ok, "edge of the map")
	assert.Equal(t, world.Pos{X: 4, Y: 2}, tr.Position)
}

func TestMoveOntoOwnTileIsAllowed(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)
	w.Tiles[1][2].SetOwner(1)
	tr := newTestTribe(1, 50, 0, true)
	ok, enc := tr.Move(w, world.North, rng())
	assert.True(t, ok)
	assert.Nil(t, enc)
}

func TestMoveIntoOccupiedTileTriggersEncounter(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)
	w.Tiles[1][2].SetOwner(7)
	tr := newTestTribe(1, 50, 0, true)

	for i := 0; i < 30; i++ {
		ok, enc := tr.Move(w, world.North, rng())
		require.False(t, ok)
		require.NotNil(t, enc)
		assert.Equal(t, 7, enc.OtherID)
	}
	assert.Equal(t, world.Pos{X: 2, Y: 2}, tr.Position)
	assert.GreaterOrEqual(t, tr.Relation(7), MinRelation)
	assert.LessOrEqual(t, tr.Relation(7), MaxRelation)
}

func TestEncounterRolls(t *testing.T) {
	tests := []struct {
		roll float64
		want int
	}{
		{0.0, 5},
		{0.29, 5},
		{0.3, -10},
		{0.49, -10},
		{0.5, 0},
		{0.99, 0},
	}
	for _, tt := range tests {
		tr := newTestTribe(1, 50, 0, true)
		enc := tr.encounter(2, tt.roll)
		assert.Equal(t, tt.want, enc.Delta, "roll %v", tt.roll)
		assert.Equal(t, tt.want, tr.Relation(2))
	}
}

func TestSettle(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)

	small := newTestTribe(1, 25, 0, true)
	assert.False(t, small.Settle(w))
	assert.Equal(t, StateNomadic, small.State)
	assert.Nil(t, small.HomeTile)

	big := newTestTribe(2, 30, 0, true)
	require.True(t, big.Settle(w))
	assert.Equal(t, StateSettling, big.State)
	require.NotNil(t, big.HomeTile)
	assert.Equal(t, world.Pos{X: 2, Y: 2}, *big.HomeTile)
	require.NotNil(t, w.Tiles[2][2].TribeID)
	assert.Equal(t, 2, *w.Tiles[2][2].TribeID)

	assert.False(t, big.Settle(w), "already settled")

	big.Position = world.Pos{X: 3, Y: 3}
	assert.Equal(t, world.Pos{X: 2, Y: 2}, *big.HomeTile, "home tile does not follow the tribe")
}

func TestSettleOnWaterFails(t *testing.T) {
	w := flatWorld(5, 5, world.TileWater)
	tr := newTestTribe(1, 100, 0, true)
	assert.False(t, tr.Settle(w))
}

func TestExpandingTransition(t *testing.T) {
	w := flatWorld(5, 5, world.TileGrass)
	tr := newTestTribe(1, ExpandPopulation, 100000, true)
	tr.Tick(w, rng())
	assert.Equal(t, StateNomadic, tr.State, "nomads do not expand")

	require.True(t, tr.Settle(w))
	tr.Tick(w, rng())
	assert.Equal(t, StateExpanding, tr.State)
}

func TestSetState(t *testing.T) {
	tr := newTestTribe(1, 50, 0, true)
	assert.False(t, tr.SetState(StateAtWar), "nomads have no diplomatic state")

	tr.State = StateSettling
	assert.True(t, tr.SetState(StateAlliance))
	assert.False(t, tr.SetState(StateAlliance))
	assert.True(t, tr.SetState(StateAtWar))
	assert.False(t, tr.SetState(State("bogus")))
	assert.Equal(t, StateAtWar, tr.State)
}

func TestAddRelationClamps(t *testing.T) {
	r := rng()
	tr := newTestTribe(1, 50, 0, true)
	assert.Equal(t, 0, tr.Relation(9))

	for i := 0; i < 1000; i++ {
		tr.AddRelation(9, r.Intn(81)-40)
		v := tr.Relation(9)
		require.GreaterOrEqual(t, v, MinRelation)
		require.LessOrEqual(t, v, MaxRelation)
	}

	tr.AddRelation(3, 250)
	assert.Equal(t, 100, tr.Relation(3))
	tr.AddRelation(3, -500)
	assert.Equal(t, -100, tr.Relation(3))
}

func TestTechs(t *testing.T) {
	tr := newTestTribe(1, 50, 0, true)
	assert.False(t, tr.HasTech("fire"))
	tr.DiscoverTech("fire")
	tr.DiscoverTech("fire")
	assert.True(t, tr.HasTech("fire"))
	assert.Len(t, tr.Techs, 1)
}

func TestAddResourceFloorsAtZero(t *testing.T) {
	tr := newTestTribe(1, 50, 10, true)
	tr.AddResource(world.ResourceFood, -30)
	assert.Equal(t, 0, tr.Resources[world.ResourceFood])
	tr.AddPopulation(-80)
	assert.Equal(t, 0, tr.Population)
}

func TestExportImportRoundTrip(t *testing.T) {
	tr := newTestTribe(4, 123, 77, false)
	tr.Color = "#009688"
	tr.Resources[world.ResourceStone] = 12
	tr.State = StateSettling
	tr.AddRelation(2, -40)
	tr.AddRelation(9, 15)
	tr.DiscoverTech("fire")
	tr.DiscoverTech("basic_tools")
	tr.ActionCooldown = 3
	tr.LastAction = ActionGather
	home := world.Pos{X: 1, Y: 1}
	tr.HomeTile = &home

	data, err := json.Marshal(tr.Export())
	require.NoError(t, err)

	var e Export
	require.NoError(t, json.Unmarshal(data, &e))
	got, err := Import(e)
	require.NoError(t, err)

	assert.Equal(t, tr.Identity, got.Identity)
	assert.Equal(t, tr.Population, got.Population)
	assert.Equal(t, tr.Position, got.Position)
	assert.Equal(t, tr.Resources, got.Resources)
	assert.Equal(t, tr.State, got.State)
	assert.Equal(t, tr.Relations, got.Relations)
	assert.Equal(t, tr.Techs, got.Techs)
	assert.Equal(t, tr.ActionCooldown, got.ActionCooldown)
	assert.Equal(t, tr.LastAction, got.LastAction)
	assert.Equal(t, tr.HomeTile, got.HomeTile)
	assert.NotSame(t, tr.HomeTile, got.HomeTile)
}

func TestExportIsSorted(t *testing.T) {
	tr := newTestTribe(1, 50, 0, true)
	tr.AddRelation(5, 1)
	tr.AddRelation(2, 1)
	tr.DiscoverTech("spear")
	tr.DiscoverTech("basic_tools")

	e := tr.Export()
	assert.Equal(t, [][2]int{{2, 1}, {5, 1}}, e.Relations)
	assert.Equal(t, []string{"basic_tools", "spear"}, e.DiscoveredTechs)
}

func TestImportRejectsBrokenExports(t *testing.T) {
	valid := newTestTribe(1, 50, 0, true).Export()

	breakers := map[string]func(e *Export){
		"no id":             func(e *Export) { e.Config.ID = 0 },
		"no name":           func(e *Export) { e.Config.Name = "" },
		"negative pop":      func(e *Export) { e.Population = -1 },
		"unknown state":     func(e *Export) { e.State = "" },
		"missing resources": func(e *Export) { e.Resources = nil },
		"negative stock":    func(e *Export) { e.Resources[world.ResourceWood] = -5 },
		"relation overflow": func(e *Export) { e.Relations = [][2]int{{2, 101}} },
	}
	for name, breakIt := range breakers {
		t.Run(name, func(t *testing.T) {
			e := newTestTribe(1, 50, 0, true).Export()
			breakIt(&e)
			_, err := Import(e)
			assert.ErrorIs(t, err, ErrInvalidExport)
		})
	}

	_, err := Import(valid)
	assert.NoError(t, err)
}
