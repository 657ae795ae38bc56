package service

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidBet 非正数、超出限额或超过两位小数的下注额；errors.Is(ErrInvalidBet, ErrInsufficientBalance) 成立
	ErrInvalidBet        = fmt.Errorf("invalid bet: %w", ErrInsufficientBalance)
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrSettlementFailed  = errors.New("settlement failed")
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
	ErrResetDisabled     = errors.New("player reset disabled")
)

// errLabel 错误到指标标签的映射
func errLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPlayerNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidBet):
		return "invalid_bet"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidChoice):
		return "invalid_choice"
	case errors.Is(err, ErrDuplicateInFlight):
		return "in_flight"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	}
	return "fail"
}
