package proto

import (
	"github.com/invopop/jsonschema"
)

// Schemas reflects a JSON schema for every message, keyed by message type.
func Schemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	client := reflector.Reflect(new(ClientMessage))
	client.Title = "Coffeemon client message"
	client.Description = "Every client frame; which fields apply depends on type."

	out := map[string]*jsonschema.Schema{}
	for _, msgType := range []string{
		TypeFindMatch, TypeFindBotMatch, TypeLeaveQueue, TypeJoinBattle,
		TypeSelectInitial, TypeBattleAction, TypeLeaveBattle,
	} {
		out[msgType] = client
	}

	server := []struct {
		msgType string
		value   any
	}{
		{TypeQueueJoined, new(QueueStatus)},
		{TypeQueueLeft, new(QueueStatus)},
		{TypeMatchFound, new(MatchFound)},
		{TypeBattleUpdate, new(BattleUpdate)},
		{TypeBattleEnd, new(BattleEnd)},
		{TypeBattleError, new(BattleError)},
		{TypeOpponentDisconnected, new(PlayerStatus)},
		{TypePlayerReconnected, new(PlayerStatus)},
		{TypeBattleCancelled, new(BattleCancelled)},
	}
	for _, entry := range server {
		schema := reflector.Reflect(entry.value)
		schema.Title = "Coffeemon " + entry.msgType + " message"
		out[entry.msgType] = schema
	}
	return out
}
