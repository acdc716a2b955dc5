// Package backtest implements the candle-based backtest spec family:
// strict validation of a loosely-typed document into path-addressed
// diagnostics, and decoding of an accepted document into the canonical
// typed model.
package backtest

// SupportedVersion is the one pinned schema version. Any other value is
// a hard validation error; there is no cross-version migration here.
const SupportedVersion = "1.0"

// SignalKind discriminates the signal variants.
type SignalKind string

const (
	KindThreshold   SignalKind = "threshold"
	KindCrossover   SignalKind = "crossover"
	KindPrice       SignalKind = "price"
	KindScheduled   SignalKind = "scheduled"
	KindPositionPnL SignalKind = "position_pnl"
	KindRanking     SignalKind = "ranking"
)

// SignalKinds lists every known discriminant, in declaration order.
var SignalKinds = []string{
	string(KindThreshold),
	string(KindCrossover),
	string(KindPrice),
	string(KindScheduled),
	string(KindPositionPnL),
	string(KindRanking),
}

// Timeframes supported by the candle runtime.
var Timeframes = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "8h", "12h",
	"1d", "3d", "1w", "1M",
}

// Indicators accepted by threshold signals.
var Indicators = []string{
	"RSI", "EMA", "SMA", "MACD", "BollingerBands",
	"ATR", "ADX", "VWAP", "Stochastic",
}

// CheckFields name the indicator output a threshold compares against.
var CheckFields = []string{
	"value", "MACD", "signal", "histogram",
	"upper", "middle", "lower",
	"adx", "plus_di", "minus_di",
	"k", "d", "vwap",
}

// ThresholdOperators are the comparison operators for threshold signals
// and indicator_compare clauses.
var ThresholdOperators = []string{"lt", "lte", "gt", "gte"}

// Actions a signal or condition can emit.
var Actions = []string{"buy", "sell"}

// CrossoverDirections restrict which cross directions fire.
var CrossoverDirections = []string{"bullish", "bearish", "both"}

// CrossoverLegIndicators are the moving averages a crossover leg may use.
var CrossoverLegIndicators = []string{"EMA", "SMA"}

// SizingModes enumerate position sizing strategies. Each mode unlocks
// mode-specific required sub-fields (see validateSizing).
var SizingModes = []string{
	"notional_usd", "margin_usd", "equity_pct", "base_units",
	"risk_based", "kelly", "signal_proportional",
}

// EntryOrderTypes include the exchange-native time-in-force variants.
var EntryOrderTypes = []string{"market", "limit", "Ioc", "Gtc", "Alo"}

// ExitOrderTypes for stop and take-profit legs.
var ExitOrderTypes = []string{"market", "limit"}

// PriceTriggerTypes select which price feed arms exit triggers.
var PriceTriggerTypes = []string{"mark", "last", "oracle"}

// ConditionOperators combine clauses inside a condition.
var ConditionOperators = []string{"and", "or"}

// ClauseTypes discriminate condition clauses.
var ClauseTypes = []string{
	"indicator_compare", "volume_compare", "position_state", "signal_active",
}

// HookTriggers name when a custom hook runs.
var HookTriggers = []string{"per_bar", "on_fill", "on_exit"}

// PriceConditionKeys are the comparison keys of a price-signal condition.
var PriceConditionKeys = []string{"above", "below", "crosses"}

// Spec is the canonical, frozen form of an accepted backtest document.
// It is produced by Decode from a document that already passed Validate;
// nothing mutates it afterwards.
type Spec struct {
	Version           string     `json:"version"`
	StrategyID        string     `json:"strategy_id"`
	Name              string     `json:"name"`
	Markets           []string   `json:"markets"`
	Timeframe         string     `json:"timeframe"`
	StartTS           int64      `json:"start_ts"`
	EndTS             int64      `json:"end_ts"`
	Signals           []Signal   `json:"signals"`
	Sizing            Sizing     `json:"sizing"`
	Risk              Risk       `json:"risk"`
	Exits             Exits      `json:"exits"`
	Execution         Execution  `json:"execution"`
	InitialCapitalUSD float64    `json:"initial_capital_usd"`
	Seed              *int64     `json:"seed,omitempty"`
	Conditions        []Condition `json:"conditions,omitempty"`
	Hooks             []Hook      `json:"hooks,omitempty"`
}

// Signal is the tagged union over the six signal kinds. Exactly one
// variant struct implements it per discriminant, so a switch over the
// concrete type is exhaustive by construction.
type Signal interface {
	SignalID() string
	Kind() SignalKind
}

// Gate governs re-entry for a signal.
type Gate struct {
	CooldownBars       int  `json:"cooldown_bars,omitempty"`
	MaxTotalFires      int  `json:"max_total_fires,omitempty"`
	RequiresNoPosition bool `json:"requires_no_position,omitempty"`
	RequiresPosition   bool `json:"requires_position,omitempty"`
}

// ThresholdSignal compares one indicator output against a constant.
type ThresholdSignal struct {
	ID           string  `json:"id"`
	Indicator    string  `json:"indicator"`
	Period       int     `json:"period,omitempty"`
	FastPeriod   int     `json:"fastPeriod,omitempty"`
	SlowPeriod   int     `json:"slowPeriod,omitempty"`
	SignalPeriod int     `json:"signalPeriod,omitempty"`
	StdDev       float64 `json:"stdDev,omitempty"`
	CheckField   string  `json:"check_field"`
	Operator     string  `json:"operator"`
	Value        float64 `json:"value"`
	Action       string  `json:"action"`
	Timeframe    string  `json:"timeframe,omitempty"`
	Gate         *Gate   `json:"gate,omitempty"`
}

func (s ThresholdSignal) SignalID() string { return s.ID }
func (s ThresholdSignal) Kind() SignalKind { return KindThreshold }

// CrossoverLeg is one moving average of a crossover pair.
type CrossoverLeg struct {
	Indicator string `json:"indicator"`
	Period    int    `json:"period"`
}

// CrossoverSignal fires when the fast leg crosses the slow leg.
type CrossoverSignal struct {
	ID               string       `json:"id"`
	Fast             CrossoverLeg `json:"fast"`
	Slow             CrossoverLeg `json:"slow"`
	Direction        string       `json:"direction"`
	ActionOnBullish  string       `json:"action_on_bullish"`
	ActionOnBearish  string       `json:"action_on_bearish"`
	Gate             *Gate        `json:"gate,omitempty"`
}

func (s CrossoverSignal) SignalID() string { return s.ID }
func (s CrossoverSignal) Kind() SignalKind { return KindCrossover }

// PriceCondition holds the comparison levels of a price signal. Zero
// means absent; Validate guarantees at least one is set and positive.
type PriceCondition struct {
	Above   float64 `json:"above,omitempty"`
	Below   float64 `json:"below,omitempty"`
	Crosses float64 `json:"crosses,omitempty"`
}

// PriceSignal fires on raw price levels.
type PriceSignal struct {
	ID        string         `json:"id"`
	Condition PriceCondition `json:"condition"`
	Action    string         `json:"action"`
	Gate      *Gate          `json:"gate,omitempty"`
}

func (s PriceSignal) SignalID() string { return s.ID }
func (s PriceSignal) Kind() SignalKind { return KindPrice }

// ScheduledSignal fires every N bars.
type ScheduledSignal struct {
	ID         string `json:"id"`
	EveryNBars int    `json:"every_n_bars"`
	Action     string `json:"action"`
	Gate       *Gate  `json:"gate,omitempty"`
}

func (s ScheduledSignal) SignalID() string { return s.ID }
func (s ScheduledSignal) Kind() SignalKind { return KindScheduled }

// PositionPnLSignal fires on unrealized PnL thresholds of the open
// position. At least one threshold is set.
type PositionPnLSignal struct {
	ID          string   `json:"id"`
	PnLPctAbove *float64 `json:"pnl_pct_above,omitempty"`
	PnLPctBelow *float64 `json:"pnl_pct_below,omitempty"`
	Action      string   `json:"action"`
	Gate        *Gate    `json:"gate,omitempty"`
}

func (s PositionPnLSignal) SignalID() string { return s.ID }
func (s PositionPnLSignal) Kind() SignalKind { return KindPositionPnL }

// RankingSignal rotates into the top/bottom markets by a ranking field.
type RankingSignal struct {
	ID              string `json:"id"`
	RankBy          string `json:"rank_by"`
	LongTopN        int    `json:"long_top_n"`
	ShortBottomN    int    `json:"short_bottom_n"`
	Rebalance       bool   `json:"rebalance,omitempty"`
	CloseBeforeOpen bool   `json:"close_before_open,omitempty"`
	Gate            *Gate  `json:"gate,omitempty"`
}

func (s RankingSignal) SignalID() string { return s.ID }
func (s RankingSignal) Kind() SignalKind { return KindRanking }

// Sizing selects the position sizing mode and its parameters.
type Sizing struct {
	Mode  string  `json:"mode"`
	Value float64 `json:"value"`

	// risk_based
	RiskPerTradeUSD float64 `json:"risk_per_trade_usd,omitempty"`
	SLATRMultiple   float64 `json:"sl_atr_multiple,omitempty"`

	// kelly
	KellyFraction       float64 `json:"kelly_fraction,omitempty"`
	KellyLookbackTrades int     `json:"kelly_lookback_trades,omitempty"`
	KellyMinTrades      int     `json:"kelly_min_trades,omitempty"`
	MaxBalancePct       float64 `json:"max_balance_pct,omitempty"`

	// signal_proportional
	BaseNotionalUSD float64 `json:"base_notional_usd,omitempty"`
	MaxNotionalUSD  float64 `json:"max_notional_usd,omitempty"`
	SignalField     string  `json:"signal_field,omitempty"`
}

// Risk bounds portfolio exposure.
type Risk struct {
	Leverage                float64 `json:"leverage"`
	MaxPositions            int     `json:"max_positions"`
	MinNotionalUSD          float64 `json:"min_notional_usd"`
	AllowPositionAdd        bool    `json:"allow_position_add"`
	AllowFlip               bool    `json:"allow_flip"`
	DailyLossLimitUSD       float64 `json:"daily_loss_limit_usd,omitempty"`
	MaxPositionNotionalUSD  float64 `json:"max_position_notional_usd,omitempty"`
	MaxTotalNotionalUSD     float64 `json:"max_total_notional_usd,omitempty"`
	MaxTotalMarginUSD       float64 `json:"max_total_margin_usd,omitempty"`
	MaintenanceMarginRate   float64 `json:"maintenance_margin_rate,omitempty"`
	IndependentSubPositions bool    `json:"independent_sub_positions,omitempty"`
}

// PartialTakeProfit closes a fraction of the position at a profit level.
type PartialTakeProfit struct {
	ProfitPct     float64 `json:"profit_pct"`
	CloseFraction float64 `json:"close_fraction"`
}

// Exits define how positions are closed. Percentages are ratios in (0, 1].
type Exits struct {
	StopLossPct             float64             `json:"stop_loss_pct,omitempty"`
	TakeProfitPct           float64             `json:"take_profit_pct,omitempty"`
	TrailingStopPct         float64             `json:"trailing_stop_pct,omitempty"`
	MaxHoldBars             int                 `json:"max_hold_bars,omitempty"`
	MoveStopToBreakEven     bool                `json:"move_stop_to_break_even_after_tp,omitempty"`
	PartialTakeProfitLevels []PartialTakeProfit `json:"partial_take_profit_levels,omitempty"`
}

// Execution describes order placement mechanics.
type Execution struct {
	EntryOrderType             string  `json:"entry_order_type"`
	LimitOffsetBps             float64 `json:"limit_offset_bps"`
	SlippageBps                float64 `json:"slippage_bps"`
	MakerFeeRate               float64 `json:"maker_fee_rate"`
	TakerFeeRate               float64 `json:"taker_fee_rate"`
	StopOrderType              string  `json:"stop_order_type"`
	TakeProfitOrderType        string  `json:"take_profit_order_type"`
	StopLimitSlippagePct       float64 `json:"stop_limit_slippage_pct"`
	TakeProfitLimitSlippagePct float64 `json:"take_profit_limit_slippage_pct"`
	TriggerType                string  `json:"trigger_type"`
	ReduceOnlyOnExits          bool    `json:"reduce_only_on_exits"`
}

// Condition combines clauses into a composite entry/exit rule.
type Condition struct {
	ID       string   `json:"id"`
	Operator string   `json:"operator"`
	Clauses  []Clause `json:"clauses"`
	Action   string   `json:"action"`
	Priority int      `json:"priority,omitempty"`
}

// Clause is one predicate inside a condition. Type discriminates which
// fields apply.
type Clause struct {
	Type string `json:"type"`

	// indicator_compare
	Indicator string  `json:"indicator,omitempty"`
	Field     string  `json:"field,omitempty"`
	Operator  string  `json:"operator,omitempty"`
	Value     float64 `json:"value,omitempty"`

	// volume_compare
	VolumeRatioAbove float64 `json:"volume_ratio_above,omitempty"`
	VolumeLookback   int     `json:"volume_lookback,omitempty"`

	// position_state
	HasPosition         *bool    `json:"has_position,omitempty"`
	PositionPnLPctAbove *float64 `json:"position_pnl_pct_above,omitempty"`
	PositionPnLPctBelow *float64 `json:"position_pnl_pct_below,omitempty"`

	// signal_active
	SignalID string `json:"signal_id,omitempty"`
}

// Hook runs custom code at a lifecycle point.
type Hook struct {
	ID        string  `json:"id"`
	Trigger   string  `json:"trigger"`
	Code      string  `json:"code"`
	TimeoutMs float64 `json:"timeout_ms,omitempty"`
}
