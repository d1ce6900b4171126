package battle

import (
	"errors"
	"fmt"

	"coffeemon-arena/server/internal/events"
)

// Phase errors: the request is rejected and nothing changes.
var (
	ErrWrongPhase          = errors.New("battle is not accepting that request in the current phase")
	ErrDuplicateSubmission = errors.New("action already submitted this turn")
	ErrBattleFinished      = errors.New("battle is finished")
	ErrNotParticipant      = errors.New("player is not part of this battle")
)

// ValidationError rejects an action whose content is invalid. Notice is
// the event delivered to the submitting player.
type ValidationError struct {
	PlayerID string
	Notice   events.Payload
}

func (e *ValidationError) Error() string {
	if e.Notice == nil {
		return fmt.Sprintf("invalid action from %s", e.PlayerID)
	}
	return fmt.Sprintf("invalid action from %s: %s", e.PlayerID, e.Notice.Kind())
}

// Reject wraps notice in a ValidationError.
func Reject(playerID string, notice events.Payload) error {
	return &ValidationError{PlayerID: playerID, Notice: notice}
}

// IsPhaseError reports whether err belongs to the phase error family.
func IsPhaseError(err error) bool {
	return errors.Is(err, ErrWrongPhase) ||
		errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrBattleFinished) ||
		errors.Is(err, ErrNotParticipant)
}
