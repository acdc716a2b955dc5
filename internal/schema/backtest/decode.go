package backtest

import (
	"fmt"

	"github.com/newthinker/specforge/internal/schema"
)

// Decode converts a document that already passed Validate into the
// canonical typed model. Call Validate first; Decode only guards against
// shapes that would make it panic and reports them as errors.
func Decode(doc map[string]any) (*Spec, error) {
	spec := &Spec{
		Version:    str(doc["version"]),
		StrategyID: str(doc["strategy_id"]),
		Name:       str(doc["name"]),
		Timeframe:  str(doc["timeframe"]),
	}

	if markets, ok := schema.Array(doc["markets"]); ok {
		for _, m := range markets {
			spec.Markets = append(spec.Markets, str(m))
		}
	}
	spec.StartTS = i64(doc["start_ts"])
	spec.EndTS = i64(doc["end_ts"])

	signals, ok := schema.Array(doc["signals"])
	if !ok {
		return nil, fmt.Errorf("decode: signals must be a list")
	}
	for i, raw := range signals {
		sig, ok := schema.Object(raw)
		if !ok {
			return nil, fmt.Errorf("decode: signals[%d] must be an object", i)
		}
		decoded, err := decodeSignal(sig)
		if err != nil {
			return nil, fmt.Errorf("decode: signals[%d]: %w", i, err)
		}
		spec.Signals = append(spec.Signals, decoded)
	}

	if sizing, ok := schema.Object(doc["sizing"]); ok {
		spec.Sizing = decodeSizing(sizing)
	}
	if risk, ok := schema.Object(doc["risk"]); ok {
		spec.Risk = decodeRisk(risk)
	}
	if exits, ok := schema.Object(doc["exits"]); ok {
		spec.Exits = decodeExits(exits)
	}
	if execution, ok := schema.Object(doc["execution"]); ok {
		spec.Execution = decodeExecution(execution)
	}

	spec.InitialCapitalUSD = num(doc["initial_capital_usd"])
	if _, present := doc["seed"]; present {
		seed := i64(doc["seed"])
		spec.Seed = &seed
	}

	if conditions, ok := schema.Array(doc["conditions"]); ok {
		for _, raw := range conditions {
			if cond, ok := schema.Object(raw); ok {
				spec.Conditions = append(spec.Conditions, decodeCondition(cond))
			}
		}
	}
	if hooks, ok := schema.Array(doc["hooks"]); ok {
		for _, raw := range hooks {
			if hook, ok := schema.Object(raw); ok {
				spec.Hooks = append(spec.Hooks, Hook{
					ID:        str(hook["id"]),
					Trigger:   str(hook["trigger"]),
					Code:      str(hook["code"]),
					TimeoutMs: num(hook["timeout_ms"]),
				})
			}
		}
	}

	return spec, nil
}

func decodeSignal(sig map[string]any) (Signal, error) {
	gate := decodeGate(sig)
	switch SignalKind(str(sig["kind"])) {
	case KindThreshold:
		checkField := str(sig["check_field"])
		if checkField == "" {
			checkField = "value"
		}
		return ThresholdSignal{
			ID:           str(sig["id"]),
			Indicator:    str(sig["indicator"]),
			Period:       integer(sig["period"]),
			FastPeriod:   integer(sig["fastPeriod"]),
			SlowPeriod:   integer(sig["slowPeriod"]),
			SignalPeriod: integer(sig["signalPeriod"]),
			StdDev:       num(sig["stdDev"]),
			CheckField:   checkField,
			Operator:     str(sig["operator"]),
			Value:        num(sig["value"]),
			Action:       str(sig["action"]),
			Timeframe:    str(sig["timeframe"]),
			Gate:         gate,
		}, nil

	case KindCrossover:
		return CrossoverSignal{
			ID:              str(sig["id"]),
			Fast:            decodeLeg(sig["fast"]),
			Slow:            decodeLeg(sig["slow"]),
			Direction:       str(sig["direction"]),
			ActionOnBullish: str(sig["action_on_bullish"]),
			ActionOnBearish: str(sig["action_on_bearish"]),
			Gate:            gate,
		}, nil

	case KindPrice:
		cond := PriceCondition{}
		if c, ok := schema.Object(sig["condition"]); ok {
			cond.Above = num(c["above"])
			cond.Below = num(c["below"])
			cond.Crosses = num(c["crosses"])
		}
		return PriceSignal{
			ID:        str(sig["id"]),
			Condition: cond,
			Action:    str(sig["action"]),
			Gate:      gate,
		}, nil

	case KindScheduled:
		return ScheduledSignal{
			ID:         str(sig["id"]),
			EveryNBars: integer(sig["every_n_bars"]),
			Action:     str(sig["action"]),
			Gate:       gate,
		}, nil

	case KindPositionPnL:
		out := PositionPnLSignal{
			ID:     str(sig["id"]),
			Action: str(sig["action"]),
			Gate:   gate,
		}
		if _, present := sig["pnl_pct_above"]; present {
			v := num(sig["pnl_pct_above"])
			out.PnLPctAbove = &v
		}
		if _, present := sig["pnl_pct_below"]; present {
			v := num(sig["pnl_pct_below"])
			out.PnLPctBelow = &v
		}
		return out, nil

	case KindRanking:
		return RankingSignal{
			ID:              str(sig["id"]),
			RankBy:          str(sig["rank_by"]),
			LongTopN:        integer(sig["long_top_n"]),
			ShortBottomN:    integer(sig["short_bottom_n"]),
			Rebalance:       boolean(sig["rebalance"]),
			CloseBeforeOpen: boolean(sig["close_before_open"]),
			Gate:            gate,
		}, nil
	}
	return nil, fmt.Errorf("unknown signal kind %q", str(sig["kind"]))
}

func decodeGate(sig map[string]any) *Gate {
	raw, ok := schema.Object(sig["gate"])
	if !ok {
		return nil
	}
	return &Gate{
		CooldownBars:       integer(raw["cooldown_bars"]),
		MaxTotalFires:      integer(raw["max_total_fires"]),
		RequiresNoPosition: boolean(raw["requires_no_position"]),
		RequiresPosition:   boolean(raw["requires_position"]),
	}
}

func decodeLeg(raw any) CrossoverLeg {
	leg, ok := schema.Object(raw)
	if !ok {
		return CrossoverLeg{}
	}
	return CrossoverLeg{Indicator: str(leg["indicator"]), Period: integer(leg["period"])}
}

func decodeSizing(sizing map[string]any) Sizing {
	return Sizing{
		Mode:                str(sizing["mode"]),
		Value:               num(sizing["value"]),
		RiskPerTradeUSD:     num(sizing["risk_per_trade_usd"]),
		SLATRMultiple:       num(sizing["sl_atr_multiple"]),
		KellyFraction:       num(sizing["kelly_fraction"]),
		KellyLookbackTrades: integer(sizing["kelly_lookback_trades"]),
		KellyMinTrades:      integer(sizing["kelly_min_trades"]),
		MaxBalancePct:       num(sizing["max_balance_pct"]),
		BaseNotionalUSD:     num(sizing["base_notional_usd"]),
		MaxNotionalUSD:      num(sizing["max_notional_usd"]),
		SignalField:         str(sizing["signal_field"]),
	}
}

func decodeRisk(risk map[string]any) Risk {
	return Risk{
		Leverage:                num(risk["leverage"]),
		MaxPositions:            integer(risk["max_positions"]),
		MinNotionalUSD:          num(risk["min_notional_usd"]),
		AllowPositionAdd:        boolean(risk["allow_position_add"]),
		AllowFlip:               boolean(risk["allow_flip"]),
		DailyLossLimitUSD:       num(risk["daily_loss_limit_usd"]),
		MaxPositionNotionalUSD:  num(risk["max_position_notional_usd"]),
		MaxTotalNotionalUSD:     num(risk["max_total_notional_usd"]),
		MaxTotalMarginUSD:       num(risk["max_total_margin_usd"]),
		MaintenanceMarginRate:   num(risk["maintenance_margin_rate"]),
		IndependentSubPositions: boolean(risk["independent_sub_positions"]),
	}
}

func decodeExits(exits map[string]any) Exits {
	out := Exits{
		StopLossPct:         num(exits["stop_loss_pct"]),
		TakeProfitPct:       num(exits["take_profit_pct"]),
		TrailingStopPct:     num(exits["trailing_stop_pct"]),
		MaxHoldBars:         integer(exits["max_hold_bars"]),
		MoveStopToBreakEven: boolean(exits["move_stop_to_break_even_after_tp"]),
	}
	if partials, ok := schema.Array(exits["partial_take_profit_levels"]); ok {
		for _, raw := range partials {
			if level, ok := schema.Object(raw); ok {
				out.PartialTakeProfitLevels = append(out.PartialTakeProfitLevels, PartialTakeProfit{
					ProfitPct:     num(level["profit_pct"]),
					CloseFraction: num(level["close_fraction"]),
				})
			}
		}
	}
	return out
}

func decodeExecution(execution map[string]any) Execution {
	return Execution{
		EntryOrderType:             str(execution["entry_order_type"]),
		LimitOffsetBps:             num(execution["limit_offset_bps"]),
		SlippageBps:                num(execution["slippage_bps"]),
		MakerFeeRate:               num(execution["maker_fee_rate"]),
		TakerFeeRate:               num(execution["taker_fee_rate"]),
		StopOrderType:              str(execution["stop_order_type"]),
		TakeProfitOrderType:        str(execution["take_profit_order_type"]),
		StopLimitSlippagePct:       num(execution["stop_limit_slippage_pct"]),
		TakeProfitLimitSlippagePct: num(execution["take_profit_limit_slippage_pct"]),
		TriggerType:                str(execution["trigger_type"]),
		ReduceOnlyOnExits:          boolean(execution["reduce_only_on_exits"]),
	}
}

func decodeCondition(cond map[string]any) Condition {
	out := Condition{
		ID:       str(cond["id"]),
		Operator: str(cond["operator"]),
		Action:   str(cond["action"]),
		Priority: integer(cond["priority"]),
	}
	if clauses, ok := schema.Array(cond["clauses"]); ok {
		for _, raw := range clauses {
			clause, ok := schema.Object(raw)
			if !ok {
				continue
			}
			c := Clause{
				Type:             str(clause["type"]),
				Indicator:        str(clause["indicator"]),
				Field:            str(clause["field"]),
				Operator:         str(clause["operator"]),
				Value:            num(clause["value"]),
				VolumeRatioAbove: num(clause["volume_ratio_above"]),
				VolumeLookback:   integer(clause["volume_lookback"]),
				SignalID:         str(clause["signal_id"]),
			}
			if _, present := clause["has_position"]; present {
				v := boolean(clause["has_position"])
				c.HasPosition = &v
			}
			if _, present := clause["position_pnl_pct_above"]; present {
				v := num(clause["position_pnl_pct_above"])
				c.PositionPnLPctAbove = &v
			}
			if _, present := clause["position_pnl_pct_below"]; present {
				v := num(clause["position_pnl_pct_below"])
				c.PositionPnLPctBelow = &v
			}
			out.Clauses = append(out.Clauses, c)
		}
	}
	return out
}

// Loose getters for decoding an already-validated document.

func str(v any) string {
	s, _ := schema.Str(v)
	return s
}

func num(v any) float64 {
	n, _ := schema.Number(v)
	return n
}

func integer(v any) int {
	n, _ := schema.Int(v)
	return n
}

func i64(v any) int64 {
	n, _ := schema.Int(v)
	return int64(n)
}

func boolean(v any) bool {
	b, _ := schema.Bool(v)
	return b
}
