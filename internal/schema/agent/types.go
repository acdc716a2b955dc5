// Package agent implements the trigger/workflow strategy spec family:
// an event-driven strategy described as triggers that fire workflows of
// declarative steps, with an expression language for conditions and
// arguments.
package agent

// SupportedVersion is the one pinned schema version.
const SupportedVersion = "1.0"

// Modes select how much of the strategy is declarative.
var Modes = []string{"spec", "hybrid"}

// TriggerType discriminates the trigger variants.
type TriggerType string

const (
	TriggerPrice     TriggerType = "price"
	TriggerTechnical TriggerType = "technical"
	TriggerScheduled TriggerType = "scheduled"
	TriggerEvent     TriggerType = "event"
)

// TriggerTypes lists every known trigger discriminant.
var TriggerTypes = []string{
	string(TriggerPrice),
	string(TriggerTechnical),
	string(TriggerScheduled),
	string(TriggerEvent),
}

// EventTypes an event trigger may subscribe to.
var EventTypes = []string{"liquidation", "largeTrade", "userFill", "l2Book"}

// TechnicalIndicators accepted by technical triggers.
var TechnicalIndicators = []string{
	"RSI", "EMA", "SMA", "WMA", "MACD", "BollingerBands",
	"EMA_CROSSOVER", "SMA_CROSSOVER",
	"ATR", "Stochastic", "StochasticRSI", "WilliamsR",
	"ADX", "CCI", "ROC", "OBV", "TRIX", "MFI", "VWAP",
	"PSAR", "KeltnerChannels",
}

// StepAction discriminates workflow step variants.
type StepAction string

const (
	ActionSet           StepAction = "set"
	ActionIf            StepAction = "if"
	ActionForEach       StepAction = "for_each"
	ActionCall          StepAction = "call"
	ActionLog           StepAction = "log"
	ActionUpdateState   StepAction = "update_state"
	ActionSyncPositions StepAction = "sync_positions"
	ActionPauseMs       StepAction = "pause_ms"
	ActionReturn        StepAction = "return"
	ActionAssert        StepAction = "assert"
)

// StepActions lists every known step discriminant.
var StepActions = []string{
	string(ActionSet),
	string(ActionIf),
	string(ActionForEach),
	string(ActionCall),
	string(ActionLog),
	string(ActionUpdateState),
	string(ActionSyncPositions),
	string(ActionPauseMs),
	string(ActionReturn),
	string(ActionAssert),
}

// CallTargets are the external capability namespaces a call step may
// address.
var CallTargets = []string{"market", "user", "order", "agent", "state"}

// PriceConditionKeys are the comparison keys of a price trigger condition.
var PriceConditionKeys = []string{"above", "below", "crosses", "crosses_above", "crosses_below"}

// MaxStepDepth bounds workflow step nesting (if/for_each children).
const MaxStepDepth = 32
