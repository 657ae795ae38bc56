package card

import (
	"crypto/rand"
	"math/big"
)

// 牌面范围 1~13
const (
	Min = 1
	Max = 13
)

var span = big.NewInt(Max - Min + 1)

// Drawer 抽取一张独立的牌，返回 [Min, Max]
// 实现必须无状态、可并发调用
type Drawer interface {
	Draw() int
}

// CryptoDrawer 基于 crypto/rand 均匀抽牌（不可复现的安全随机源）
type CryptoDrawer struct{}

func NewCryptoDrawer() CryptoDrawer { return CryptoDrawer{} }

// Draw 熵源读取失败属于不可恢复的系统故障，直接 panic
func (CryptoDrawer) Draw() int {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		panic("card: crypto/rand unavailable: " + err.Error())
	}
	return int(n.Int64()) + Min
}

// Func 将普通函数适配为 Drawer，测试中用于注入固定牌面
type Func func() int

func (f Func) Draw() int { return f() }

// Sequence 依次返回给定牌面，用尽后循环
func Sequence(cards ...int) Func {
	i := 0
	return func() int {
		c := cards[i%len(cards)]
		i++
		return c
	}
}

// Valid 判断牌面是否在合法范围内
func Valid(c int) bool { return c >= Min && c <= Max }
