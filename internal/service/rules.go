package service

import (
	"tuplaus-server/internal/card"
	"tuplaus-server/internal/model"

	"github.com/shopspring/decimal"
)

// 7 为庄家牌，任何选择都输
const houseCard = 7

var payoutMultiplier = decimal.NewFromInt(2)

// Wins 判定输赢：small 赢 1..6，large 赢 8..13，7 必输
func Wins(choice model.Choice, drawn int) bool {
	if !card.Valid(drawn) || drawn == houseCard {
		return false
	}
	switch choice {
	case model.ChoiceSmall:
		return drawn < houseCard
	case model.ChoiceLarge:
		return drawn > houseCard
	}
	return false
}

// settle 在玩家副本上执行一局资金变化
// 非携带局无论输赢都扣本金；携带局余额不动，本金即携带彩金
func settle(p *model.Player, stake decimal.Decimal, carry, won bool) {
	if !carry {
		p.Balance = p.Balance.Sub(stake)
	}
	if won {
		p.ActiveWinnings = stake.Mul(payoutMultiplier)
	} else {
		p.ActiveWinnings = decimal.Zero
	}
}
