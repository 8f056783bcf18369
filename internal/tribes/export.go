package tribes

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/tribesim/internal/world"
)

// ErrInvalidExport is wrapped by every Import validation failure.
var ErrInvalidExport = errors.New("invalid tribe export")

// Export is the flat, serializable form of a tribe. Relations and techs are
// flattened to sorted lists so the encoding is stable.
type Export struct {
	Config          Identity                   `json:"config"`
	Population      int                        `json:"population"`
	Position        world.Pos                  `json:"position"`
	Resources       map[world.ResourceType]int `json:"resources"`
	State           State                      `json:"state"`
	Relations       [][2]int                   `json:"relations"`
	DiscoveredTechs []string                   `json:"discovered_techs"`
	ActionCooldown  int                        `json:"action_cooldown"`
	LastAction      Action                     `json:"last_action,omitempty"`
	HomeTile        *world.Pos                 `json:"home_tile,omitempty"`
}

// Export flattens the tribe.
func (t *Tribe) Export() Export {
	e := Export{
		Config:          t.Identity,
		Population:      t.Population,
		Position:        t.Position,
		Resources:       make(map[world.ResourceType]int, len(t.Resources)),
		State:           t.State,
		Relations:       make([][2]int, 0, len(t.Relations)),
		DiscoveredTechs: make([]string, 0, len(t.Techs)),
		ActionCooldown:  t.ActionCooldown,
		LastAction:      t.LastAction,
	}
	for r, n := range t.Resources {
		e.Resources[r] = n
	}
	for id, v := range t.Relations {
		e.Relations = append(e.Relations, [2]int{id, v})
	}
	sort.Slice(e.Relations, func(i, j int) bool { return e.Relations[i][0] < e.Relations[j][0] })
	for id := range t.Techs {
		e.DiscoveredTechs = append(e.DiscoveredTechs, id)
	}
	sort.Strings(e.DiscoveredTechs)
	if t.HomeTile != nil {
		home := *t.HomeTile
		e.HomeTile = &home
	}
	return e
}

// Import rebuilds a tribe from its export, rejecting structurally broken input.
func Import(e Export) (*Tribe, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	t := blank(e.Config, e.Position)
	t.Population = e.Population
	t.State = e.State
	t.ActionCooldown = e.ActionCooldown
	t.LastAction = e.LastAction
	for r, n := range e.Resources {
		t.Resources[r] = n
	}
	for _, pair := range e.Relations {
		t.Relations[pair[0]] = pair[1]
	}
	for _, id := range e.DiscoveredTechs {
		t.Techs[id] = true
	}
	if e.HomeTile != nil {
		home := *e.HomeTile
		t.HomeTile = &home
	}
	return t, nil
}

// Validate checks the fields Import relies on.
func (e Export) Validate() error {
	switch {
	case e.Config.ID <= 0:
		return fmt.Errorf("%w: id %d", ErrInvalidExport, e.Config.ID)
	case e.Config.Name == "":
		return fmt.Errorf("%w: tribe %d has no name", ErrInvalidExport, e.Config.ID)
	case e.Population < 0:
		return fmt.Errorf("%w: tribe %d has population %d", ErrInvalidExport, e.Config.ID, e.Population)
	case !e.State.Valid():
		return fmt.Errorf("%w: tribe %d has state %q", ErrInvalidExport, e.Config.ID, e.State)
	case e.Resources == nil:
		return fmt.Errorf("%w: tribe %d has no resources", ErrInvalidExport, e.Config.ID)
	}
	for r, n := range e.Resources {
		if n < 0 {
			return fmt.Errorf("%w: tribe %d has negative %s", ErrInvalidExport, e.Config.ID, r)
		}
	}
	for _, pair := range e.Relations {
		if pair[1] < MinRelation || pair[1] > MaxRelation {
			return fmt.Errorf("%w: tribe %d relation to %d is %d", ErrInvalidExport, e.Config.ID, pair[0], pair[1])
		}
	}
	return nil
}
