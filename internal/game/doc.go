// Package game implements the state of a poker room and the Texas Hold'em
// rules that drive it.
//
// A Session is the aggregate for one room: its seated Participants, the pot,
// the RoundState of the hand in progress and the Deck that hand is dealt
// from. Sessions are plain data and serialise to JSON so the orchestrator can
// keep the authoritative copy in a cache between actions.
//
// The Engine applies the rules to a Session:
//
//	eng := game.NewEngine(quartz.NewReal(), randutil.New(seed))
//	s := game.NewSession(id, "Room by alice", "alice", game.DefaultOptions(), now)
//	_ = s.AddPlayer(game.NewParticipant("alice", 1000, now), now)
//	_ = s.AddPlayer(game.NewParticipant("bob", 1000, now), now)
//	_ = eng.StartHand(s)
//	out, err := eng.Apply(s, game.Action{Kind: game.ActionCall, Username: s.Round.CurrentTurn})
//
// Engine methods mutate the Session they are given and are not safe for
// concurrent use on the same Session; callers serialise per room. When an
// Engine method returns an error the Session may be partially modified and
// should be discarded in favour of the last persisted copy.
//
// Every error produced here carries a Kind (see KindOf) so transports can
// map domain rejections without string matching.
package game
