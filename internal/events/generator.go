package events

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/tribesim/internal/tribes"
	"github.com/talgya/tribesim/internal/world"
)

// EventChance is the per-tribe, per-tick probability of an event.
const EventChance = 0.1

// DefaultTTL is how long an unresolved event stays pending.
const DefaultTTL = 300 * time.Second

// Relation gates for the diplomatic archetypes.
const (
	RaidMaxRelation     = -50
	AllianceMinRelation = 20
	WarMaxRelation      = -70
)

// Weights is the archetype distribution used for each event roll.
var Weights = []struct {
	Kind   Kind
	Weight float64
}{
	{KindHarvest, 0.20},
	{KindDisease, 0.15},
	{KindDiscovery, 0.15},
	{KindBirthBoom, 0.15},
	{KindDrought, 0.15},
	{KindRaid, 0.10},
	{KindAlliance, 0.05},
	{KindWar, 0.05},
}

// Pick maps a uniform roll in [0, 1) to an archetype by cumulative weight, falling
// back to the first archetype if rounding leaves the roll unmatched.
func Pick(roll float64) Kind {
	cumulative := 0.0
	for _, w := range Weights {
		cumulative += w.Weight
		if roll < cumulative {
			return w.Kind
		}
	}
	return Weights[0].Kind
}

// Generator rolls events and keeps the pending queue.
type Generator struct {
	rng     *rand.Rand
	counter int
	pending []*Event

	// Now stamps new events and ages pending ones.
	Now func() time.Time
	// TTL bounds how long unresolved events stay pending.
	TTL time.Duration
}

// NewGenerator creates a generator drawing from rng.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{
		rng: rng,
		Now: time.Now,
		TTL: DefaultTTL,
	}
}

// Reseed replaces the stream the generator draws from.
func (g *Generator) Reseed(rng *rand.Rand) {
	g.rng = rng
}

// GenerateTick rolls once per living tribe, queues what it produces, drops resolved
// and expired events, and returns the new events. live should be in a stable order
// for reproducible runs.
func (g *Generator) GenerateTick(live []*tribes.Tribe) []*Event {
	var created []*Event

	for _, t := range live {
		if !t.Alive() {
			continue
		}
		if g.rng.Float64() >= EventChance {
			continue
		}
		kind := Pick(g.rng.Float64())
		if ev := g.create(kind, t, live); ev != nil {
			created = append(created, ev)
			g.pending = append(g.pending, ev)
			slog.Debug("event generated", "id", ev.ID, "type", ev.Type, "tribe", t.ID)
		}
	}

	g.collect()
	return created
}

// collect drops resolved and expired events.
func (g *Generator) collect() {
	now := g.Now()
	n := 0
	for _, e := range g.pending {
		if e.Resolved || e.Expired(now, g.TTL) {
			continue
		}
		g.pending[n] = e
		n++
	}
	for i := n; i < len(g.pending); i++ {
		g.pending[i] = nil
	}
	g.pending = g.pending[:n]
}

// Pending returns the unresolved events in creation order.
func (g *Generator) Pending() []*Event {
	out := make([]*Event, 0, len(g.pending))
	for _, e := range g.pending {
		if !e.Resolved {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the pending event with the given id.
func (g *Generator) Get(id string) *Event {
	for _, e := range g.pending {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Resolve marks the event resolved and returns the effects of the chosen option.
// A nil choice, or one out of range, resolves the event with no effects. ok is
// false when the event is unknown or already resolved.
func (g *Generator) Resolve(id string, choice *int) (effects []Effect, ok bool) {
	e := g.Get(id)
	if e == nil || e.Resolved {
		return nil, false
	}
	if choice != nil && *choice >= 0 && *choice < len(e.Choices) {
		effects = e.Choices[*choice].Effects
	}
	e.Resolved = true
	return effects, true
}

// Restore replaces the pending queue, continuing id numbering after the highest
// restored id.
func (g *Generator) Restore(pending []*Event) {
	g.pending = append([]*Event(nil), pending...)
	for _, e := range pending {
		if n, ok := parseID(e.ID); ok && n > g.counter {
			g.counter = n
		}
	}
}

func (g *Generator) nextID() string {
	g.counter++
	return "event_" + strconv.Itoa(g.counter)
}

func parseID(id string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "event_"))
	return n, err == nil
}

// create builds an event of the given kind for t, or nil when the archetype
// declines (no counterpart, or relations outside its gate).
func (g *Generator) create(kind Kind, t *tribes.Tribe, live []*tribes.Tribe) *Event {
	switch kind {
	case KindHarvest:
		return g.harvest(t)
	case KindDisease:
		return g.disease(t)
	case KindDiscovery:
		return g.discovery(t)
	case KindBirthBoom:
		return g.birthBoom(t)
	case KindDrought:
		return g.drought(t)
	case KindRaid:
		return g.raid(t, live)
	case KindAlliance:
		return g.alliance(t, live)
	case KindWar:
		return g.war(t, live)
	}
	return nil
}

func (g *Generator) base(kind Kind, t *tribes.Tribe, priority int, title, desc string) *Event {
	return &Event{
		ID:          g.nextID(),
		Type:        kind,
		Title:       title,
		Description: desc,
		TribeID:     t.ID,
		Timestamp:   g.Now(),
		Priority:    priority,
	}
}

func (g *Generator) harvest(t *tribes.Tribe) *Event {
	bonus := floorMul(t.Population, 2)
	e := g.base(KindHarvest, t, PriorityNeutral, "Bountiful harvest",
		fmt.Sprintf("The %s gathered a fine harvest! +%d food.", t.Name, bonus))
	e.Choices = []Choice{{
		Label:   "Gather the harvest",
		Effects: []Effect{{Op: OpFood, TribeID: t.ID, Amount: bonus}},
	}}
	return e
}

func (g *Generator) disease(t *tribes.Tribe) *Event {
	loss := floorMul(t.Population, 0.1) + 1
	e := g.base(KindDisease, t, PriorityHarmful, "Disease",
		fmt.Sprintf("Sickness spreads among the %s! %d have died.", t.Name, loss))
	e.Choices = []Choice{{
		Label:   "Mourn the dead",
		Effects: []Effect{{Op: OpPopulation, TribeID: t.ID, Amount: -loss}},
	}}
	return e
}

func (g *Generator) discovery(t *tribes.Tribe) *Event {
	return g.base(KindDiscovery, t, PriorityNotable, "Discovery",
		fmt.Sprintf("The %s have found new lands!", t.Name))
}

func (g *Generator) birthBoom(t *tribes.Tribe) *Event {
	gain := floorMul(t.Population, 0.15) + 2
	e := g.base(KindBirthBoom, t, PriorityNeutral, "Population boom",
		fmt.Sprintf("A birth boom among the %s! +%d people.", t.Name, gain))
	e.Choices = []Choice{{
		Label:   "Welcome the newborns",
		Effects: []Effect{{Op: OpPopulation, TribeID: t.ID, Amount: gain}},
	}}
	return e
}

func (g *Generator) drought(t *tribes.Tribe) *Event {
	loss := floorMul(t.Resources[world.ResourceFood], 0.3)
	e := g.base(KindDrought, t, PriorityHarmful, "Drought",
		fmt.Sprintf("Drought strikes the %s! %d food lost.", t.Name, loss))
	e.Choices = []Choice{{
		Label:   "Endure",
		Effects: []Effect{{Op: OpFood, TribeID: t.ID, Amount: -loss}},
	}}
	return e
}

func (g *Generator) raid(t *tribes.Tribe, live []*tribes.Tribe) *Event {
	attacker := g.pickOther(t, live)
	if attacker == nil || !RaidEligible(t.Relation(attacker.ID)) {
		return nil
	}
	e := g.base(KindRaid, t, PriorityRaid, "Raid!",
		fmt.Sprintf("The %s are raiding the %s!", attacker.Name, t.Name))
	e.OtherID = attacker.ID
	e.Choices = []Choice{
		{
			Label:   "Defend",
			Effects: []Effect{{Op: OpRaidDefend, TribeID: t.ID, OtherID: attacker.ID, Amount: 50}},
		},
		{
			Label: "Pay tribute",
			Effects: []Effect{
				{Op: OpTransfer, TribeID: t.ID, OtherID: attacker.ID, Amount: 30},
				{Op: OpRelation, TribeID: t.ID, OtherID: attacker.ID, Amount: 10},
			},
		},
	}
	return e
}

func (g *Generator) alliance(t *tribes.Tribe, live []*tribes.Tribe) *Event {
	ally := g.pickOther(t, live)
	if ally == nil || !AllianceEligible(t.Relation(ally.ID)) {
		return nil
	}
	e := g.base(KindAlliance, t, PriorityNotable, "Alliance offered",
		fmt.Sprintf("The %s propose an alliance to the %s!", ally.Name, t.Name))
	e.OtherID = ally.ID
	e.Choices = []Choice{
		{
			Label: "Accept",
			Effects: []Effect{
				{Op: OpRelation, TribeID: t.ID, OtherID: ally.ID, Amount: 30},
				{Op: OpRelation, TribeID: ally.ID, OtherID: t.ID, Amount: 30},
				{Op: OpSetState, TribeID: t.ID, State: tribes.StateAlliance},
				{Op: OpSetState, TribeID: ally.ID, State: tribes.StateAlliance},
			},
		},
		{
			Label:   "Decline",
			Effects: []Effect{{Op: OpRelation, TribeID: t.ID, OtherID: ally.ID, Amount: -10}},
		},
	}
	return e
}

// war is a notification: there is no combat, only the state change on both sides.
func (g *Generator) war(t *tribes.Tribe, live []*tribes.Tribe) *Event {
	enemy := g.pickOther(t, live)
	if enemy == nil || !WarEligible(t.Relation(enemy.ID)) {
		return nil
	}
	e := g.base(KindWar, t, PriorityWar, "War declared!",
		fmt.Sprintf("The %s have declared war on the %s!", enemy.Name, t.Name))
	e.OtherID = enemy.ID
	e.Immediate = []Effect{
		{Op: OpSetState, TribeID: t.ID, State: tribes.StateAtWar},
		{Op: OpSetState, TribeID: enemy.ID, State: tribes.StateAtWar},
	}
	return e
}

// pickOther draws one living tribe other than t.
func (g *Generator) pickOther(t *tribes.Tribe, live []*tribes.Tribe) *tribes.Tribe {
	var others []*tribes.Tribe
	for _, o := range live {
		if o.ID != t.ID && o.Alive() {
			others = append(others, o)
		}
	}
	if len(others) == 0 {
		return nil
	}
	return others[g.rng.Intn(len(others))]
}

// RaidEligible reports whether relations are hostile enough for a raid.
func RaidEligible(relation int) bool { return relation <= RaidMaxRelation }

// AllianceEligible reports whether relations are warm enough for an alliance offer.
func AllianceEligible(relation int) bool { return relation >= AllianceMinRelation }

// WarEligible reports whether relations are hostile enough for war.
func WarEligible(relation int) bool { return relation <= WarMaxRelation }

func floorMul(n int, rate float64) int {
	return int(math.Floor(float64(n) * rate))
}
