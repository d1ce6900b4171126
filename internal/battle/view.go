package battle

import "coffeemon-arena/server/internal/events"

// PlayerView is the projection of a battle one player is allowed to see.
type PlayerView struct {
	BattleID            string            `json:"battleId"`
	ViewerID            string            `json:"viewerId"`
	Turn                int               `json:"turn"`
	Phase               TurnPhase         `json:"turnPhase"`
	Player1ID           string            `json:"player1Id"`
	Player2ID           string            `json:"player2Id"`
	Player1             PlayerBattleState `json:"player1"`
	Player2             PlayerBattleState `json:"player2"`
	CurrentPlayerID     string            `json:"currentPlayerId,omitempty"`
	PendingActionStatus map[string]bool   `json:"pendingActionStatus"`
	Events              []events.Event    `json:"events"`
	WinnerID            string            `json:"winnerId,omitempty"`
	EndReason           string            `json:"endReason,omitempty"`
	IsBotBattle         bool              `json:"isBotBattle,omitempty"`
}

// ViewFor projects the state for viewerID: pending action contents are
// replaced by flags, private events of the other player are dropped, and
// the opponent's first pick stays hidden until SELECTION ends.
func (s *BattleState) ViewFor(viewerID string) PlayerView {
	view := PlayerView{
		BattleID:        s.ID,
		ViewerID:        viewerID,
		Turn:            s.Turn,
		Phase:           s.Phase,
		Player1ID:       s.Player1ID,
		Player2ID:       s.Player2ID,
		Player1:         s.Player1.Clone(),
		Player2:         s.Player2.Clone(),
		CurrentPlayerID: s.CurrentPlayerID,
		WinnerID:        s.WinnerID,
		EndReason:       s.EndReason,
		IsBotBattle:     s.IsBotBattle,
		PendingActionStatus: map[string]bool{
			s.Player1ID: false,
			s.Player2ID: false,
		},
		Events: make([]events.Event, 0, len(s.Events)),
	}
	for id := range s.PendingActions {
		view.PendingActionStatus[id] = true
	}
	for _, evt := range s.Events {
		if evt.VisibleTo(viewerID) {
			view.Events = append(view.Events, evt)
		}
	}
	if s.Phase == PhaseSelection {
		switch viewerID {
		case s.Player1ID:
			view.Player2.ActiveUnitIndex = nil
		case s.Player2ID:
			view.Player1.ActiveUnitIndex = nil
		default:
			view.Player1.ActiveUnitIndex = nil
			view.Player2.ActiveUnitIndex = nil
		}
	}
	return view
}
