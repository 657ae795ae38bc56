package helper

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// 金额格式：非负，最多两位小数
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

var ErrMoneyFormat = errors.New("amount must be numeric with up to 2 decimals")

// TrimDecimal 四舍五入到2位小数输出
func TrimDecimal(val decimal.Decimal) string {
	return val.StringFixed(2)
}

// IsMoneyFormat 判断金额字符串格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// ParseMoney 解析金额字符串（格式校验后转 decimal）
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !IsMoneyFormat(s) {
		return decimal.Zero, ErrMoneyFormat
	}
	return decimal.NewFromString(s)
}
