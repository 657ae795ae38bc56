package state

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 玩家下注状态（按 active_winnings 推导，不单独落库）
const (
	NoCarry  = "no_carry"  // 无携带彩金：可自由下注
	HasCarry = "has_carry" // 有携带彩金：下一局强制以彩金加倍
)

// 状态事件
const (
	EvtWin     = "win"
	EvtLoss    = "loss"
	EvtCashOut = "cash_out"
)

// Of 由携带彩金推导当前状态
func Of(activeWinnings decimal.Decimal) string {
	if activeWinnings.IsPositive() {
		return HasCarry
	}
	return NoCarry
}

// Next 根据当前状态与事件计算下一个状态，非法状态或事件报错
// no_carry 上的 cash_out 为幂等空操作，状态不变
func Next(cur, evt string) (string, error) {
	switch cur {
	case NoCarry, HasCarry:
		switch evt {
		case EvtWin:
			return HasCarry, nil
		case EvtLoss, EvtCashOut:
			return NoCarry, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// OutcomeEvent 把输赢映射为状态事件
func OutcomeEvent(didWin bool) string {
	if didWin {
		return EvtWin
	}
	return EvtLoss
}
