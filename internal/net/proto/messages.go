// Package proto defines the websocket wire protocol. Every frame is a JSON
// object carrying a protocol version and a type discriminator.
package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/events"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeFindMatch     = "findMatch"
	TypeFindBotMatch  = "findBotMatch"
	TypeLeaveQueue    = "leaveQueue"
	TypeJoinBattle    = "joinBattle"
	TypeSelectInitial = "selectInitialCoffeemon"
	TypeBattleAction  = "battleAction"
	TypeLeaveBattle   = "leaveBattle"
)

// Server message type identifiers.
const (
	TypeQueueJoined          = "queueJoined"
	TypeQueueLeft            = "queueLeft"
	TypeMatchFound           = "matchFound"
	TypeBattleUpdate         = "battleUpdate"
	TypeBattleEnd            = "battleEnd"
	TypeBattleError          = "battleError"
	TypeOpponentDisconnected = "opponentDisconnected"
	TypePlayerReconnected    = "playerReconnected"
	TypeBattleCancelled      = "battleCancelled"
)

// Error codes carried by battleError.
const (
	CodeInvalidAction       = "invalid_action"
	CodeWrongPhase          = "wrong_phase"
	CodeDuplicateSubmission = "duplicate_submission"
	CodeBattleFinished      = "battle_finished"
	CodeNotParticipant      = "not_participant"
	CodeUnknownBattle       = "unknown_battle"
	CodeAlreadyQueued       = "already_queued"
	CodeInBattle            = "in_battle"
	CodeSessionClosed       = "session_closed"
	CodeBotDisabled         = "bot_disabled"
	CodeMalformedMessage    = "malformed_message"
	CodeUnknownMessage      = "unknown_message"
	CodeUnsupportedVersion  = "unsupported_version"
	CodeInternal            = "internal"
)

var (
	ErrMalformed          = errors.New("malformed message")
	ErrMissingType        = errors.New("message type is required")
	ErrUnknownType        = errors.New("unknown message type")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// ActionPayload carries the action-specific fields of battleAction.
type ActionPayload struct {
	MoveID      int    `json:"moveId,omitempty"`
	NewIndex    int    `json:"newIndex,omitempty"`
	ItemID      string `json:"itemId,omitempty"`
	TargetIndex int    `json:"targetIndex,omitempty"`
}

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver        int           `json:"ver,omitempty"`
	Type       string        `json:"type"`
	BattleID   string        `json:"battleId,omitempty"`
	UnitIndex  int           `json:"coffeemonIndex,omitempty"`
	ActionType string        `json:"actionType,omitempty"`
	Payload    ActionPayload `json:"payload,omitempty"`
}

// DecodeClientMessage parses one inbound frame. A missing ver is accepted
// as the current version.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg.Type = strings.TrimSpace(msg.Type)
	if msg.Type == "" {
		return ClientMessage{}, ErrMissingType
	}
	if msg.Ver != 0 && msg.Ver != Version {
		return msg, fmt.Errorf("%w: %d", ErrUnsupportedVersion, msg.Ver)
	}
	return msg, nil
}

// Action converts a battleAction message into the action submitted on
// behalf of playerID.
func (m ClientMessage) Action(playerID string) battle.PendingAction {
	return battle.PendingAction{
		Type:        battle.ActionType(m.ActionType),
		PlayerID:    playerID,
		MoveID:      m.Payload.MoveID,
		NewIndex:    m.Payload.NewIndex,
		ItemID:      m.Payload.ItemID,
		TargetIndex: m.Payload.TargetIndex,
	}
}

// QueueStatus acknowledges queueJoined and queueLeft.
type QueueStatus struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	Position int    `json:"position,omitempty"`
}

type MatchFound struct {
	Ver         int    `json:"ver"`
	Type        string `json:"type"`
	BattleID    string `json:"battleId"`
	OpponentID  string `json:"opponentId"`
	IsBotBattle bool   `json:"isBotBattle,omitempty"`
}

// BattleUpdate delivers the viewer's projection of the battle.
type BattleUpdate struct {
	Ver         int               `json:"ver"`
	Type        string            `json:"type"`
	BattleState battle.PlayerView `json:"battleState"`
}

type BattleEnd struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	BattleID string `json:"battleId"`
	WinnerID string `json:"winnerId"`
	Reason   string `json:"reason"`
}

// BattleError reports a rejected request. Event is set when the rejection
// has a player-facing notice.
type BattleError struct {
	Ver      int           `json:"ver"`
	Type     string        `json:"type"`
	BattleID string        `json:"battleId,omitempty"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Event    *events.Event `json:"event,omitempty"`
}

// PlayerStatus is sent as opponentDisconnected and playerReconnected.
type PlayerStatus struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	BattleID string `json:"battleId"`
	PlayerID string `json:"playerId"`
}

type BattleCancelled struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	BattleID string `json:"battleId"`
	Reason   string `json:"reason"`
}

func NewQueueStatus(msgType string, position int) QueueStatus {
	return QueueStatus{Ver: Version, Type: msgType, Position: position}
}

func NewMatchFound(battleID, opponentID string, bot bool) MatchFound {
	return MatchFound{Ver: Version, Type: TypeMatchFound, BattleID: battleID, OpponentID: opponentID, IsBotBattle: bot}
}

func NewBattleUpdate(view battle.PlayerView) BattleUpdate {
	return BattleUpdate{Ver: Version, Type: TypeBattleUpdate, BattleState: view}
}

func NewBattleEnd(battleID, winnerID, reason string) BattleEnd {
	return BattleEnd{Ver: Version, Type: TypeBattleEnd, BattleID: battleID, WinnerID: winnerID, Reason: reason}
}

func NewBattleError(battleID, code, message string, evt *events.Event) BattleError {
	return BattleError{Ver: Version, Type: TypeBattleError, BattleID: battleID, Code: code, Message: message, Event: evt}
}

func NewPlayerStatus(msgType, battleID, playerID string) PlayerStatus {
	return PlayerStatus{Ver: Version, Type: msgType, BattleID: battleID, PlayerID: playerID}
}

func NewBattleCancelled(battleID, reason string) BattleCancelled {
	return BattleCancelled{Ver: Version, Type: TypeBattleCancelled, BattleID: battleID, Reason: reason}
}
