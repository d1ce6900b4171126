package events

import (
	"encoding/json"
	"fmt"
)

// Event is one rendered notification inside a battle snapshot.
type Event struct {
	Type           Kind    `json:"type"`
	Payload        Payload `json:"payload"`
	Message        string  `json:"message"`
	TargetPlayerID string  `json:"targetPlayerId,omitempty"`
}

// VisibleTo reports whether the viewer should receive the event.
func (e Event) VisibleTo(playerID string) bool {
	return e.TargetPlayerID == "" || e.TargetPlayerID == playerID
}

// TargetOf returns the player a private payload is addressed to, or "".
func TargetOf(p Payload) string {
	if t, ok := p.(targeted); ok {
		return t.target()
	}
	return ""
}

type payloadDecoder func(json.RawMessage) (Payload, error)

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

var decoders = map[Kind]payloadDecoder{
	KindActionError:              decodeAs[ActionError],
	KindStatusBlock:              decodeAs[StatusBlock],
	KindKnockoutBlock:            decodeAs[KnockoutBlock],
	KindTurnSkipped:              decodeAs[TurnSkipped],
	KindSwitchSuccess:            decodeAs[SwitchSuccess],
	KindSwitchFailedSameUnit:     decodeAs[SwitchFailedSameUnit],
	KindSwitchFailedFaintedUnit:  decodeAs[SwitchFailedFaintedUnit],
	KindSwitchFailedInvalidIndex: decodeAs[SwitchFailedInvalidIndex],
	KindAttackHit:                decodeAs[AttackHit],
	KindAttackCrit:               decodeAs[AttackCrit],
	KindAttackMiss:               decodeAs[AttackMiss],
	KindAttackBlocked:            decodeAs[AttackBlocked],
	KindCoffeemonFainted:         decodeAs[CoffeemonFainted],
	KindStatusApplied:            decodeAs[StatusApplied],
	KindStatusDamage:             decodeAs[StatusDamage],
	KindStatusHeal:               decodeAs[StatusHeal],
	KindStatusRemoved:            decodeAs[StatusRemoved],
	KindItemUsed:                 decodeAs[ItemUsed],
	KindSupportUsed:              decodeAs[SupportUsed],
	KindTurnEnd:                  decodeAs[TurnEnd],
	KindBattleFinished:           decodeAs[BattleFinished],
}

// Kinds lists every known event kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(decoders))
	for kind := range decoders {
		out = append(out, kind)
	}
	return out
}

// UnmarshalJSON restores the concrete payload type from the kind tag.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type           Kind            `json:"type"`
		Payload        json.RawMessage `json:"payload"`
		Message        string          `json:"message"`
		TargetPlayerID string          `json:"targetPlayerId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decode, ok := decoders[raw.Type]
	if !ok {
		return fmt.Errorf("unknown event kind %q", raw.Type)
	}
	payload, err := decode(raw.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	e.Type = raw.Type
	e.Payload = payload
	e.Message = raw.Message
	e.TargetPlayerID = raw.TargetPlayerID
	return nil
}
