package server

import "sort"

// DiagnosticsBattle summarizes one live battle.
type DiagnosticsBattle struct {
	ID        string   `json:"id"`
	Players   []string `json:"players"`
	IsBot     bool     `json:"isBot"`
	StartedAt int64    `json:"startedAt"`
}

// DiagnosticsPlayer is one connected player.
type DiagnosticsPlayer struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	BattleID string `json:"battleId,omitempty"`
	Grace    bool   `json:"inGracePeriod,omitempty"`
}

// Diagnostics is the hub section of the diagnostics endpoint.
type Diagnostics struct {
	QueueLength int                 `json:"queueLength"`
	Battles     []DiagnosticsBattle `json:"battles"`
	Players     []DiagnosticsPlayer `json:"players"`
	Telemetry   telemetrySnapshot   `json:"telemetry"`
}

// DiagnosticsSnapshot exposes queue, battle and connection state.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	out := Diagnostics{QueueLength: h.queue.Len(), Telemetry: h.counters.Snapshot()}

	h.mu.Lock()
	for _, live := range h.battles {
		out.Battles = append(out.Battles, DiagnosticsBattle{
			ID:        live.id,
			Players:   []string{live.players[0], live.players[1]},
			IsBot:     live.bot != nil,
			StartedAt: live.startedAt.UnixMilli(),
		})
	}
	for id, sub := range h.subscribers {
		out.Players = append(out.Players, DiagnosticsPlayer{ID: id, Language: sub.lang.String(), BattleID: h.playerBattle[id]})
	}
	for id, entry := range h.grace {
		out.Players = append(out.Players, DiagnosticsPlayer{ID: id, BattleID: entry.battleID, Grace: true})
	}
	h.mu.Unlock()

	sort.Slice(out.Battles, func(i, j int) bool { return out.Battles[i].ID < out.Battles[j].ID })
	sort.Slice(out.Players, func(i, j int) bool { return out.Players[i].ID < out.Players[j].ID })
	return out
}

// LiveBattles reports how many battles are running.
func (h *Hub) LiveBattles() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.battles)
}
