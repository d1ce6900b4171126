// Package session runs one battle: a synchronous state machine plus the
// goroutine that serializes every request against it.
package session

import (
	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/events"
	"coffeemon-arena/server/internal/resolver"
)

// TimeoutPolicy decides what happens when a player lets the submission
// window lapse.
type TimeoutPolicy string

const (
	// PolicySkip resolves the turn without the missing player's action.
	PolicySkip TimeoutPolicy = "skip"
	// PolicyForfeit ends the battle in the opponent's favour.
	PolicyForfeit TimeoutPolicy = "forfeit"
)

// Outcome tells the caller what a machine operation changed.
type Outcome struct {
	Changed   bool
	Resolved  bool
	Finished  bool
	Cancelled bool
	Reason    string
}

// Machine is the battle state machine. It is not safe for concurrent use;
// Session owns one and serializes access.
type Machine struct {
	state     *battle.BattleState
	resolver  *resolver.Resolver
	rng       battle.Random
	notifier  *events.Notifier
	policy    TimeoutPolicy
	forced    []string
	cancelled bool
}

// NewMachine wraps state, which must be in SELECTION.
func NewMachine(state *battle.BattleState, res *resolver.Resolver, rng battle.Random, formatter *events.Formatter, policy TimeoutPolicy) *Machine {
	if res == nil {
		res = resolver.New(nil, nil)
	}
	if policy != PolicyForfeit {
		policy = PolicySkip
	}
	if state.PendingActions == nil {
		state.PendingActions = make(map[string]battle.PendingAction, 2)
	}
	return &Machine{
		state:    state,
		resolver: res,
		rng:      rng,
		notifier: events.NewNotifier(formatter),
		policy:   policy,
	}
}

// State returns the live state. Callers outside the owning goroutine must
// use a Clone.
func (m *Machine) State() *battle.BattleState {
	return m.state
}

// Cancelled reports whether the battle was torn down without a winner.
func (m *Machine) Cancelled() bool {
	return m.cancelled
}

// ClearEvents drops the events of the last step once they were delivered.
func (m *Machine) ClearEvents() {
	m.state.Events = nil
}

func (m *Machine) closedErr() error {
	if m.state.Finished() || m.cancelled {
		return battle.ErrBattleFinished
	}
	return nil
}

// SelectInitialUnit records a player's first active unit. Players may
// change their pick until both have chosen.
func (m *Machine) SelectInitialUnit(playerID string, index int) (Outcome, error) {
	if err := m.closedErr(); err != nil {
		return Outcome{}, err
	}
	player := m.state.Player(playerID)
	if player == nil {
		return Outcome{}, battle.ErrNotParticipant
	}
	if m.state.Phase != battle.PhaseSelection {
		return Outcome{}, battle.ErrWrongPhase
	}
	if index < 0 || index >= len(player.Units) {
		return Outcome{}, battle.Reject(playerID, events.SwitchFailedInvalidIndex{PlayerID: playerID, Index: index})
	}
	if player.Units[index].IsFainted {
		return Outcome{}, battle.Reject(playerID, events.SwitchFailedFaintedUnit{PlayerID: playerID, UnitName: player.Units[index].Name})
	}
	player.SetActive(index)
	player.HasSelectedUnit = true
	if m.state.Player1.HasSelectedUnit && m.state.Player2.HasSelectedUnit {
		m.beginSubmission()
	}
	return Outcome{Changed: true}, nil
}

// Submit records a player's action for the current turn, or resolves a
// forced replacement switch immediately. Once both actions are queued
// Ready reports true and the caller runs Resolve.
func (m *Machine) Submit(action battle.PendingAction) (Outcome, error) {
	if err := m.closedErr(); err != nil {
		return Outcome{}, err
	}
	playerID := action.PlayerID
	player := m.state.Player(playerID)
	if player == nil {
		return Outcome{}, battle.ErrNotParticipant
	}
	if m.state.Phase != battle.PhaseSubmission {
		return Outcome{}, battle.ErrWrongPhase
	}
	if !action.Type.ClientSubmittable() {
		return Outcome{}, battle.Reject(playerID, events.ActionError{PlayerID: playerID, Reason: events.ReasonUnknownAction})
	}

	if m.state.CurrentPlayerID != "" {
		if playerID != m.state.CurrentPlayerID {
			return Outcome{}, battle.Reject(playerID, events.ActionError{PlayerID: playerID, Reason: events.ReasonNotYourTurn})
		}
		if action.Type != battle.ActionSwitch {
			active := player.Active()
			return Outcome{}, battle.Reject(playerID, events.KnockoutBlock{PlayerID: playerID, UnitName: active.Name})
		}
		if err := m.resolver.Validate(m.state, action); err != nil {
			return Outcome{}, err
		}
		return m.replace(action), nil
	}

	if existing, ok := m.state.PendingActions[playerID]; ok {
		if existing.Type == battle.ActionBlocked {
			return Outcome{}, battle.Reject(playerID, m.blockNotice(playerID))
		}
		return Outcome{}, battle.ErrDuplicateSubmission
	}
	if err := m.resolver.Validate(m.state, action); err != nil {
		return Outcome{}, err
	}
	m.state.PendingActions[playerID] = action
	if m.Ready() {
		// The caller resolves next; one broadcast covers both.
		return Outcome{}, nil
	}
	return Outcome{Changed: true}, nil
}

func (m *Machine) blockNotice(playerID string) events.Payload {
	notice := events.StatusBlock{PlayerID: playerID}
	if active := m.state.Player(playerID).Active(); active != nil {
		notice.UnitName = active.Name
		if effect, ok := m.resolver.Effects().Blocking(active); ok {
			notice.Effect = string(effect)
		}
	}
	return notice
}

// Ready reports whether a resolution step can run now.
func (m *Machine) Ready() bool {
	if m.state.Phase != battle.PhaseSubmission || m.state.CurrentPlayerID != "" {
		return false
	}
	_, ok1 := m.state.PendingActions[m.state.Player1ID]
	_, ok2 := m.state.PendingActions[m.state.Player2ID]
	return ok1 && ok2
}

// Resolve runs one resolution step: pending actions in fixed player order,
// end-of-turn effect ticks, then the terminal check.
func (m *Machine) Resolve() Outcome {
	state := m.state
	state.Phase = battle.PhaseResolution
	m.notifier.Reset()

	loser := ""
	for _, id := range state.PlayerIDs() {
		action, ok := state.PendingActions[id]
		if !ok {
			action = battle.PendingAction{Type: battle.ActionSkip, PlayerID: id}
		}
		res := m.resolver.Resolve(state, action, m.rng)
		m.notifier.Add(res.Notifications...)
		if loser = m.defeated(); loser != "" {
			break
		}
	}

	if loser == "" {
		engine := m.resolver.Effects()
	ticks:
		for _, id := range state.PlayerIDs() {
			player := state.Player(id)
			for i := range player.Units {
				if player.Units[i].IsFainted {
					continue
				}
				m.notifier.Add(engine.EndOfTurn(id, &player.Units[i])...)
				if loser = m.defeated(); loser != "" {
					break ticks
				}
			}
		}
	}

	m.notifier.Add(events.TurnEnd{Turn: state.Turn})
	state.PendingActions = make(map[string]battle.PendingAction, 2)

	out := Outcome{Changed: true, Resolved: true}
	if loser != "" {
		m.finish(state.Opponent(loser), battle.ReasonKnockout)
		out.Finished = true
		out.Reason = battle.ReasonKnockout
	} else {
		state.Turn++
		m.forced = m.forced[:0]
		for _, id := range state.PlayerIDs() {
			if active := state.Player(id).Active(); active != nil && active.IsFainted {
				m.forced = append(m.forced, id)
			}
		}
		if len(m.forced) > 0 {
			state.Phase = battle.PhaseSubmission
			state.CurrentPlayerID = m.forced[0]
		} else {
			m.beginSubmission()
		}
	}
	state.Events = m.notifier.Events()
	return out
}

// defeated returns the id of a player with no usable units, player1 first.
func (m *Machine) defeated() string {
	for _, id := range m.state.PlayerIDs() {
		if m.state.Player(id).Defeated() {
			return id
		}
	}
	return ""
}

// replace resolves a forced replacement switch as its own step.
func (m *Machine) replace(action battle.PendingAction) Outcome {
	m.notifier.Reset()
	res := m.resolver.Resolve(m.state, action, m.rng)
	m.notifier.Add(res.Notifications...)
	if len(m.forced) > 0 {
		m.forced = m.forced[1:]
	}
	if len(m.forced) > 0 {
		m.state.CurrentPlayerID = m.forced[0]
	} else {
		m.beginSubmission()
	}
	m.state.Events = m.notifier.Events()
	return Outcome{Changed: true, Resolved: true}
}

// beginSubmission opens a fresh SUBMISSION window. Players whose active
// unit is blocked get a placeholder action.
func (m *Machine) beginSubmission() {
	state := m.state
	state.Phase = battle.PhaseSubmission
	state.CurrentPlayerID = ""
	m.forced = m.forced[:0]
	state.PendingActions = make(map[string]battle.PendingAction, 2)
	for _, id := range state.PlayerIDs() {
		if _, blocked := m.resolver.Effects().Blocking(state.Player(id).Active()); blocked {
			state.PendingActions[id] = battle.PendingAction{Type: battle.ActionBlocked, PlayerID: id}
		}
	}
}

// Timeout applies the bounded-wait policy for the current phase. When it
// fills in placeholders the caller resolves through Ready and Resolve.
func (m *Machine) Timeout() Outcome {
	if m.closedErr() != nil {
		return Outcome{}
	}
	state := m.state
	switch state.Phase {
	case battle.PhaseSelection:
		for _, id := range state.PlayerIDs() {
			player := state.Player(id)
			if player.HasSelectedUnit {
				continue
			}
			if idx := player.FirstAvailable(); idx >= 0 {
				player.SetActive(idx)
				player.HasSelectedUnit = true
			}
		}
		if !state.Player1.HasSelectedUnit || !state.Player2.HasSelectedUnit {
			return m.Cancel(battle.ReasonFatal)
		}
		m.beginSubmission()
		return Outcome{Changed: true}
	case battle.PhaseSubmission:
		if id := state.CurrentPlayerID; id != "" {
			idx := state.Player(id).FirstAvailable()
			return m.replace(battle.PendingAction{Type: battle.ActionSwitch, PlayerID: id, NewIndex: idx})
		}
		var missing []string
		for _, id := range state.PlayerIDs() {
			if _, ok := state.PendingActions[id]; !ok {
				missing = append(missing, id)
			}
		}
		switch {
		case len(missing) == 0:
			return Outcome{}
		case len(missing) == 2:
			return m.Cancel(battle.ReasonInactivity)
		case m.policy == PolicyForfeit:
			return m.Forfeit(missing[0], battle.ReasonTimeout)
		default:
			state.PendingActions[missing[0]] = battle.PendingAction{Type: battle.ActionSkip, PlayerID: missing[0]}
			return Outcome{}
		}
	default:
		return Outcome{}
	}
}

// Forfeit ends the battle with playerID's opponent as the winner.
func (m *Machine) Forfeit(playerID, reason string) Outcome {
	if m.closedErr() != nil || !m.state.Participant(playerID) {
		return Outcome{}
	}
	m.notifier.Reset()
	m.finish(m.state.Opponent(playerID), reason)
	m.state.Events = m.notifier.Events()
	return Outcome{Changed: true, Finished: true, Reason: reason}
}

// Cancel tears the battle down without a winner.
func (m *Machine) Cancel(reason string) Outcome {
	if m.closedErr() != nil {
		return Outcome{}
	}
	m.cancelled = true
	m.state.EndReason = reason
	m.state.CurrentPlayerID = ""
	m.state.PendingActions = make(map[string]battle.PendingAction)
	m.state.Events = nil
	return Outcome{Changed: true, Cancelled: true, Reason: reason}
}

func (m *Machine) finish(winnerID, reason string) {
	state := m.state
	state.Phase = battle.PhaseFinished
	state.WinnerID = winnerID
	state.EndReason = reason
	state.CurrentPlayerID = ""
	state.PendingActions = make(map[string]battle.PendingAction)
	m.forced = m.forced[:0]
	m.notifier.Add(events.BattleFinished{WinnerID: winnerID, Reason: reason})
}
