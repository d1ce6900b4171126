// Package roster supplies battle parties and item definitions from a
// bundled sample catalog.
package roster

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"

	"coffeemon-arena/server/internal/battle"
)

//go:embed catalog.json
var bundled []byte

// DefaultPartySize is used when no size is configured.
const DefaultPartySize = 3

// Party is what a player brings into a battle.
type Party struct {
	Units     []battle.CombatUnit
	Inventory map[string]int
}

// Source resolves parties and item definitions.
type Source interface {
	Party(ctx context.Context, playerID string) (Party, error)
	Items() []battle.Item
}

type species struct {
	ID        int               `json:"id"`
	Name      string            `json:"name"`
	Level     int               `json:"level"`
	HP        int               `json:"hp"`
	Attack    int               `json:"attack"`
	Defense   int               `json:"defense"`
	Speed     int               `json:"speed"`
	Moves     []int             `json:"moves"`
	Modifiers *battle.Modifiers `json:"modifiers,omitempty"`
}

type catalogFile struct {
	Moves     []battle.Move  `json:"moves"`
	Species   []species      `json:"species"`
	Items     []battle.Item  `json:"items"`
	Inventory map[string]int `json:"inventory"`
}

// Catalog is a Source backed by static data.
type Catalog struct {
	moves     map[int]battle.Move
	species   []species
	items     []battle.Item
	inventory map[string]int
	size      int
}

// Default loads the bundled catalog.
func Default(partySize int) (*Catalog, error) {
	return Load(bundled, partySize)
}

// Load parses a catalog document.
func Load(data []byte, partySize int) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode roster catalog: %w", err)
	}
	if len(file.Species) == 0 {
		return nil, errors.New("roster catalog has no species")
	}
	if partySize <= 0 {
		partySize = DefaultPartySize
	}
	if partySize > len(file.Species) {
		partySize = len(file.Species)
	}

	c := &Catalog{
		moves:     make(map[int]battle.Move, len(file.Moves)),
		species:   file.Species,
		items:     file.Items,
		inventory: file.Inventory,
		size:      partySize,
	}
	for _, m := range file.Moves {
		c.moves[m.ID] = m
	}
	for _, s := range file.Species {
		if s.HP <= 0 {
			return nil, fmt.Errorf("species %s: hp must be positive", s.Name)
		}
		for _, id := range s.Moves {
			if _, ok := c.moves[id]; !ok {
				return nil, fmt.Errorf("species %s: unknown move %d", s.Name, id)
			}
		}
	}
	itemIDs := make(map[string]bool, len(file.Items))
	for _, item := range file.Items {
		itemIDs[item.ID] = true
	}
	for id := range file.Inventory {
		if !itemIDs[id] {
			return nil, fmt.Errorf("inventory references unknown item %q", id)
		}
	}
	return c, nil
}

// Party picks partySize consecutive species starting at an offset derived
// from playerID, so a player always gets the same team.
func (c *Catalog) Party(ctx context.Context, playerID string) (Party, error) {
	if err := ctx.Err(); err != nil {
		return Party{}, err
	}
	h := fnv.New32a()
	h.Write([]byte(playerID))
	offset := int(h.Sum32() % uint32(len(c.species)))

	units := make([]battle.CombatUnit, 0, c.size)
	for i := 0; i < c.size; i++ {
		units = append(units, c.unit(c.species[(offset+i)%len(c.species)]))
	}
	inventory := make(map[string]int, len(c.inventory))
	for k, v := range c.inventory {
		inventory[k] = v
	}
	return Party{Units: units, Inventory: inventory}, nil
}

// Items returns the item definitions.
func (c *Catalog) Items() []battle.Item {
	out := make([]battle.Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) unit(s species) battle.CombatUnit {
	moves := make([]battle.Move, 0, len(s.Moves))
	for _, id := range s.Moves {
		m := c.moves[id]
		m.Effects = append([]battle.EffectSpec(nil), m.Effects...)
		moves = append(moves, m)
	}
	return battle.CombatUnit{
		ID:        s.ID,
		Name:      s.Name,
		Level:     s.Level,
		CurrentHP: s.HP,
		MaxHP:     s.HP,
		CanAct:    true,
		Attack:    s.Attack,
		Defense:   s.Defense,
		Speed:     s.Speed,
		Moves:     moves,
		Modifiers: withDefaults(s.Modifiers),
	}
}

// withDefaults fills zero modifier fields with the defaults.
func withDefaults(m *battle.Modifiers) battle.Modifiers {
	out := battle.DefaultModifiers()
	if m == nil {
		return out
	}
	if m.AttackModifier != 0 {
		out.AttackModifier = m.AttackModifier
	}
	if m.DefenseModifier != 0 {
		out.DefenseModifier = m.DefenseModifier
	}
	if m.HitChance != 0 {
		out.HitChance = m.HitChance
	}
	if m.CritChance != 0 {
		out.CritChance = m.CritChance
	}
	out.DodgeChance = m.DodgeChance
	out.BlockChance = m.BlockChance
	return out
}
