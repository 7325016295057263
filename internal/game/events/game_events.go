package events

import (
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// Event type constants
const (
	TypeGameStarted     = "game.started"
	TypeGameEnded       = "game.ended"
	TypeGameRestored    = "game.restored"
	TypeDiceRolled      = "dice.rolled"
	TypeTurnSkipped     = "turn.skipped"
	TypeTurnCancelled   = "turn.cancelled"
	TypeChoiceRejected  = "choice.rejected"
	TypeSequenceApplied = "sequence.applied"
	TypeMoveUndone      = "move.undone"
	TypeStateTransition = "state.transition"
)

// GameStartedEvent is published when a new game begins
type GameStartedEvent struct {
	BaseEvent
	Players [2]string    `json:"players"`
	Variant core.Variant `json:"variant"`
}

// NewGameStartedEvent creates a new GameStartedEvent
func NewGameStartedEvent(gameID string, players [2]string, variant core.Variant) *GameStartedEvent {
	return &GameStartedEvent{
		BaseEvent: newBase(TypeGameStarted, gameID),
		Players:   players,
		Variant:   variant,
	}
}

// GameEndedEvent is published when a player has borne off every checker
type GameEndedEvent struct {
	BaseEvent
	Winner    core.Player   `json:"winner"`
	Kind      string        `json:"kind"`
	Points    int           `json:"points"`
	Duration  time.Duration `json:"duration"`
	FinalTurn int           `json:"final_turn"`
}

// NewGameEndedEvent creates a new GameEndedEvent
func NewGameEndedEvent(gameID string, winner core.Player, kind string, points int, duration time.Duration, finalTurn int) *GameEndedEvent {
	return &GameEndedEvent{
		BaseEvent: newBase(TypeGameEnded, gameID),
		Winner:    winner,
		Kind:      kind,
		Points:    points,
		Duration:  duration,
		FinalTurn: finalTurn,
	}
}

// GameRestoredEvent is published after a game is rebuilt from a snapshot
type GameRestoredEvent struct {
	BaseEvent
	TurnNumber int `json:"turn_number"`
	HistoryLen int `json:"history_len"`
}

// NewGameRestoredEvent creates a new GameRestoredEvent
func NewGameRestoredEvent(gameID string, turnNumber, historyLen int) *GameRestoredEvent {
	return &GameRestoredEvent{
		BaseEvent:  newBase(TypeGameRestored, gameID),
		TurnNumber: turnNumber,
		HistoryLen: historyLen,
	}
}

// DiceRolledEvent is published after the active player rolls
type DiceRolledEvent struct {
	BaseEvent
	Player     core.Player `json:"player"`
	Dice       []int       `json:"dice"`
	LegalCount int         `json:"legal_count"`
	TurnNumber int         `json:"turn_number"`
}

// NewDiceRolledEvent creates a new DiceRolledEvent
func NewDiceRolledEvent(gameID string, player core.Player, dice []int, legalCount, turnNumber int) *DiceRolledEvent {
	return &DiceRolledEvent{
		BaseEvent:  newBase(TypeDiceRolled, gameID),
		Player:     player,
		Dice:       append([]int(nil), dice...),
		LegalCount: legalCount,
		TurnNumber: turnNumber,
	}
}

// TurnSkippedEvent is published when the roll leaves the player no legal move
type TurnSkippedEvent struct {
	BaseEvent
	Player core.Player `json:"player"`
	Dice   []int       `json:"dice"`
}

// NewTurnSkippedEvent creates a new TurnSkippedEvent
func NewTurnSkippedEvent(gameID string, player core.Player, dice []int) *TurnSkippedEvent {
	return &TurnSkippedEvent{
		BaseEvent: newBase(TypeTurnSkipped, gameID),
		Player:    player,
		Dice:      append([]int(nil), dice...),
	}
}

// TurnCancelledEvent is published when a pending turn is abandoned
type TurnCancelledEvent struct {
	BaseEvent
	Player core.Player `json:"player"`
	Reason string      `json:"reason"`
}

// NewTurnCancelledEvent creates a new TurnCancelledEvent
func NewTurnCancelledEvent(gameID string, player core.Player, reason string) *TurnCancelledEvent {
	return &TurnCancelledEvent{
		BaseEvent: newBase(TypeTurnCancelled, gameID),
		Player:    player,
		Reason:    reason,
	}
}

// ChoiceRejectedEvent is published when a submitted sequence is not in the legal set
type ChoiceRejectedEvent struct {
	BaseEvent
	Player   core.Player   `json:"player"`
	Sequence core.Sequence `json:"sequence"`
	Attempt  int           `json:"attempt"`
}

// NewChoiceRejectedEvent creates a new ChoiceRejectedEvent
func NewChoiceRejectedEvent(gameID string, player core.Player, seq core.Sequence, attempt int) *ChoiceRejectedEvent {
	return &ChoiceRejectedEvent{
		BaseEvent: newBase(TypeChoiceRejected, gameID),
		Player:    player,
		Sequence:  append(core.Sequence(nil), seq...),
		Attempt:   attempt,
	}
}

// SequenceAppliedEvent is published after a sequence is committed
type SequenceAppliedEvent struct {
	BaseEvent
	Player     core.Player   `json:"player"`
	Sequence   core.Sequence `json:"sequence"`
	Notation   string        `json:"notation"`
	TurnNumber int           `json:"turn_number"`
	HistoryLen int           `json:"history_len"`
}

// NewSequenceAppliedEvent creates a new SequenceAppliedEvent
func NewSequenceAppliedEvent(gameID string, player core.Player, seq core.Sequence, notation string, turnNumber, historyLen int) *SequenceAppliedEvent {
	return &SequenceAppliedEvent{
		BaseEvent:  newBase(TypeSequenceApplied, gameID),
		Player:     player,
		Sequence:   append(core.Sequence(nil), seq...),
		Notation:   notation,
		TurnNumber: turnNumber,
		HistoryLen: historyLen,
	}
}

// MoveUndoneEvent is published after the last committed sequence is taken back
type MoveUndoneEvent struct {
	BaseEvent
	Player     core.Player   `json:"player"`
	Sequence   core.Sequence `json:"sequence"`
	HistoryLen int           `json:"history_len"`
}

// NewMoveUndoneEvent creates a new MoveUndoneEvent
func NewMoveUndoneEvent(gameID string, player core.Player, seq core.Sequence, historyLen int) *MoveUndoneEvent {
	return &MoveUndoneEvent{
		BaseEvent:  newBase(TypeMoveUndone, gameID),
		Player:     player,
		Sequence:   append(core.Sequence(nil), seq...),
		HistoryLen: historyLen,
	}
}

// StateTransitionEvent is published when the game state machine transitions between phases
type StateTransitionEvent struct {
	BaseEvent
	FromPhase string `json:"from_phase"`
	ToPhase   string `json:"to_phase"`
	Reason    string `json:"reason"`
}

// NewStateTransitionEvent creates a new StateTransitionEvent
func NewStateTransitionEvent(gameID, fromPhase, toPhase, reason string) *StateTransitionEvent {
	return &StateTransitionEvent{
		BaseEvent: newBase(TypeStateTransition, gameID),
		FromPhase: fromPhase,
		ToPhase:   toPhase,
		Reason:    reason,
	}
}
