package model

import (
	"errors"
	"strings"
)

// Choice 玩家押注方向
type Choice string

const (
	ChoiceSmall Choice = "small" // 1~6
	ChoiceLarge Choice = "large" // 8~13
)

var ErrUnknownChoice = errors.New("choice must be small or large")

// ParseChoice 大小写不敏感，去除首尾空白
func ParseChoice(s string) (Choice, error) {
	switch Choice(strings.ToLower(strings.TrimSpace(s))) {
	case ChoiceSmall:
		return ChoiceSmall, nil
	case ChoiceLarge:
		return ChoiceLarge, nil
	}
	return "", ErrUnknownChoice
}

func (c Choice) String() string { return string(c) }
