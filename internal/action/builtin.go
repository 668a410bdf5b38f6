package action

import (
	"fmt"

	"github.com/mselway/courtier/internal/game"
)

// builtinActions returns the compiled-in action set. User definition
// files may extend but not override these signatures (later registry
// writes win within loadDir only).
func builtinActions() []Action {
	return []Action{
		emotion("emotionHappy", "Express happiness or joy", "happy"),
		emotion("emotionSad", "Express sadness or grief", "sad"),
		emotion("emotionWorry", "Express worry or anxiety", "worry"),
		emotion("emotionPain", "Express physical or emotional pain", "pain"),
		{
			Signature:   "improveOpinionOfPlayer",
			Description: "Improve this character's opinion of the player",
			Args:        []ArgSpec{{Name: "amount", Type: ArgInt}},
			Check:       notSelf,
			Execute: func(s State, args []any, sink game.EffectSink) error {
				amount := args[0].(int)
				if err := sink.Append(fmt.Sprintf("change_opinion %d %d %d", s.Actor.ID, s.Initiator.ID, amount)); err != nil {
					return err
				}
				s.Actor.OpinionOfPlayer += amount
				s.Data.Roster.Update(s.Actor)
				return nil
			},
		},
		{
			Signature:   "lowerOpinionOfPlayer",
			Description: "Lower this character's opinion of the player",
			Args:        []ArgSpec{{Name: "amount", Type: ArgInt}},
			Check:       notSelf,
			Execute: func(s State, args []any, sink game.EffectSink) error {
				amount := args[0].(int)
				if err := sink.Append(fmt.Sprintf("change_opinion %d %d %d", s.Actor.ID, s.Initiator.ID, -amount)); err != nil {
					return err
				}
				s.Actor.OpinionOfPlayer -= amount
				s.Data.Roster.Update(s.Actor)
				return nil
			},
		},
		relationship("becomeLovers", "Become lovers with the player", "set_lover"),
		relationship("becomeCloseFriends", "Become close friends with the player", "set_friend"),
		relationship("becomeRivals", "Become rivals with the player", "set_rival"),
		{
			Signature:   "aiPaysGoldToPlayer",
			Description: "Pay gold to the player",
			Args:        []ArgSpec{{Name: "amount", Type: ArgInt}},
			Check: func(s State) bool {
				return notSelf(s) && s.Actor.Gold > 0
			},
			Execute: func(s State, args []any, sink game.EffectSink) error {
				amount := args[0].(int)
				if amount > s.Actor.Gold {
					return fmt.Errorf("actor %d has %d gold, cannot pay %d", s.Actor.ID, s.Actor.Gold, amount)
				}
				if err := sink.Append(fmt.Sprintf("transfer_gold %d %d %d", s.Actor.ID, s.Initiator.ID, amount)); err != nil {
					return err
				}
				s.Actor.Gold -= amount
				s.Data.Roster.Update(s.Actor)
				return nil
			},
		},
		{
			Signature:   "playerPaysGoldToAi",
			Description: "Receive gold from the player",
			Args:        []ArgSpec{{Name: "amount", Type: ArgInt}},
			Check:       notSelf,
			Execute: func(s State, args []any, sink game.EffectSink) error {
				amount := args[0].(int)
				if err := sink.Append(fmt.Sprintf("transfer_gold %d %d %d", s.Initiator.ID, s.Actor.ID, amount)); err != nil {
					return err
				}
				s.Actor.Gold += amount
				s.Data.Roster.Update(s.Actor)
				return nil
			},
		},
		{
			Signature:   "aiAgreedToTruce",
			Description: "Agree to a truce with the player (only while at war)",
			Check: func(s State) bool {
				for _, id := range s.Actor.IsAtWarWith {
					if id == s.Initiator.ID {
						return true
					}
				}
				return false
			},
			Execute: func(s State, args []any, sink game.EffectSink) error {
				return sink.Append(fmt.Sprintf("make_truce %d %d", s.Actor.ID, s.Initiator.ID))
			},
		},
	}
}

func emotion(signature, description, id string) Action {
	return Action{
		Signature:   signature,
		Description: description,
		Check:       func(State) bool { return true },
		Execute: func(s State, _ []any, sink game.EffectSink) error {
			return sink.Append(fmt.Sprintf("play_emotion %d %s", s.Actor.ID, id))
		},
	}
}

func relationship(signature, description, effect string) Action {
	return Action{
		Signature:   signature,
		Description: description,
		Check:       notSelf,
		Execute: func(s State, _ []any, sink game.EffectSink) error {
			return sink.Append(fmt.Sprintf("%s %d %d", effect, s.Actor.ID, s.Initiator.ID))
		},
	}
}

// notSelf excludes actions that make no sense in self-talk sessions.
func notSelf(s State) bool {
	return s.Actor.ID != s.Initiator.ID
}
