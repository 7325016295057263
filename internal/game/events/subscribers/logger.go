package subscribers

import (
	"encoding/json"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/events"
	"github.com/rs/zerolog"
)

// LoggerSubscriber logs events to structured logs
type LoggerSubscriber struct {
	id              string
	logger          zerolog.Logger
	logLevel        zerolog.Level
	eventTypeFilter map[string]bool // If non-nil, only log these event types
	devMode         bool            // If true, log full event details
}

// NewLoggerSubscriber creates a new logger subscriber
func NewLoggerSubscriber(id string, logger zerolog.Logger, logLevel zerolog.Level) *LoggerSubscriber {
	return &LoggerSubscriber{
		id:       id,
		logger:   logger.With().Str("subscriber", "event_logger").Logger(),
		logLevel: logLevel,
	}
}

// ID returns the subscriber's unique identifier
func (ls *LoggerSubscriber) ID() string {
	return ls.id
}

// SetEventFilter sets which event types to log (nil means log all)
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.eventTypeFilter = nil
		return
	}

	ls.eventTypeFilter = make(map[string]bool)
	for _, eventType := range eventTypes {
		ls.eventTypeFilter[eventType] = true
	}
}

// SetDevMode enables or disables development mode logging
func (ls *LoggerSubscriber) SetDevMode(enabled bool) {
	ls.devMode = enabled
}

// InterestedIn returns true if the subscriber wants to receive this event type
func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	// If no filter is set, interested in all events
	if ls.eventTypeFilter == nil {
		return true
	}
	return ls.eventTypeFilter[eventType]
}

// HandleEvent processes an event by logging it
func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	eventLogger := ls.logger.With().
		Str("event_type", event.Type()).
		Str("game_id", event.GameID()).
		Time("timestamp", event.Timestamp()).
		Logger()

	// Create the base event log
	var logEvent *zerolog.Event
	switch ls.logLevel {
	case zerolog.DebugLevel:
		logEvent = eventLogger.Debug()
	case zerolog.InfoLevel:
		logEvent = eventLogger.Info()
	case zerolog.WarnLevel:
		logEvent = eventLogger.Warn()
	case zerolog.ErrorLevel:
		logEvent = eventLogger.Error()
	default:
		logEvent = eventLogger.Info()
	}

	// Add event-specific fields based on type
	switch e := event.(type) {
	case *events.GameStartedEvent:
		logEvent.
			Str("white", e.Players[core.White]).
			Str("black", e.Players[core.Black]).
			Int("points", e.Variant.Points).
			Int("checkers", e.Variant.Checkers)

	case *events.GameEndedEvent:
		logEvent.
			Str("winner", e.Winner.String()).
			Str("kind", e.Kind).
			Int("points", e.Points).
			Dur("duration", e.Duration).
			Int("final_turn", e.FinalTurn)

	case *events.GameRestoredEvent:
		logEvent.
			Int("turn", e.TurnNumber).
			Int("history_len", e.HistoryLen)

	case *events.DiceRolledEvent:
		logEvent.
			Str("player", e.Player.String()).
			Ints("dice", e.Dice).
			Int("legal_count", e.LegalCount).
			Int("turn", e.TurnNumber)

	case *events.TurnSkippedEvent:
		logEvent.
			Str("player", e.Player.String()).
			Ints("dice", e.Dice)

	case *events.TurnCancelledEvent:
		logEvent.
			Str("player", e.Player.String()).
			Str("reason", e.Reason)

	case *events.ChoiceRejectedEvent:
		logEvent.
			Str("player", e.Player.String()).
			Str("sequence", e.Sequence.String()).
			Int("attempt", e.Attempt)

	case *events.SequenceAppliedEvent:
		logEvent.
			Str("player", e.Player.String()).
			Str("notation", e.Notation).
			Int("moves", len(e.Sequence)).
			Int("turn", e.TurnNumber).
			Int("history_len", e.HistoryLen)

	case *events.MoveUndoneEvent:
		logEvent.
			Str("player", e.Player.String()).
			Str("sequence", e.Sequence.String()).
			Int("history_len", e.HistoryLen)

	case *events.StateTransitionEvent:
		logEvent.
			Str("from", e.FromPhase).
			Str("to", e.ToPhase).
			Str("reason", e.Reason)
	}

	// In dev mode, also log the full event as JSON
	if ls.devMode {
		if jsonData, err := json.Marshal(event); err == nil {
			logEvent.RawJSON("event_data", jsonData)
		}
	}

	// Send the log
	logEvent.Msg("Game event")
}
