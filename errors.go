package server

import (
	"errors"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/events"
	"coffeemon-arena/server/internal/matchmaking"
	"coffeemon-arena/server/internal/net/proto"
	"coffeemon-arena/server/internal/session"
)

// ErrorCode maps a hub or session error onto its stable wire code.
func ErrorCode(err error) string {
	var validation *battle.ValidationError
	switch {
	case errors.As(err, &validation):
		return proto.CodeInvalidAction
	case errors.Is(err, battle.ErrWrongPhase):
		return proto.CodeWrongPhase
	case errors.Is(err, battle.ErrDuplicateSubmission):
		return proto.CodeDuplicateSubmission
	case errors.Is(err, battle.ErrBattleFinished):
		return proto.CodeBattleFinished
	case errors.Is(err, battle.ErrNotParticipant):
		return proto.CodeNotParticipant
	case errors.Is(err, ErrUnknownBattle):
		return proto.CodeUnknownBattle
	case errors.Is(err, matchmaking.ErrAlreadyQueued):
		return proto.CodeAlreadyQueued
	case errors.Is(err, matchmaking.ErrInBattle):
		return proto.CodeInBattle
	case errors.Is(err, session.ErrSessionClosed), errors.Is(err, session.ErrSessionFatal), errors.Is(err, ErrHubClosed):
		return proto.CodeSessionClosed
	case errors.Is(err, ErrBotDisabled):
		return proto.CodeBotDisabled
	case errors.Is(err, proto.ErrUnsupportedVersion):
		return proto.CodeUnsupportedVersion
	case errors.Is(err, proto.ErrMissingType), errors.Is(err, proto.ErrMalformed):
		return proto.CodeMalformedMessage
	case errors.Is(err, proto.ErrUnknownType):
		return proto.CodeUnknownMessage
	default:
		return proto.CodeInternal
	}
}

// errorMessage builds the battleError for err. Validation failures carry
// their notice rendered in the player's language.
func (h *Hub) errorMessage(playerID, battleID string, err error) proto.BattleError {
	msg := proto.NewBattleError(battleID, ErrorCode(err), err.Error(), nil)
	var validation *battle.ValidationError
	if errors.As(err, &validation) && validation.Notice != nil {
		lang, ok := h.language(playerID)
		if !ok {
			lang = h.cfg.Language
		}
		evt := events.NewNotifier(events.NewFormatter(lang)).Render(validation.Notice)
		msg.Event = &evt
		msg.Message = evt.Message
	}
	return msg
}
