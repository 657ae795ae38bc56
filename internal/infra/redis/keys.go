package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串

const (
	// PrefixRoundIdemResult：单局幂等“结果缓存”前缀，值为第一次结算结果 JSON
	PrefixRoundIdemResult = "round:idem:result:"
	// PrefixRoundIdemLock：单局幂等“进行中锁”前缀，SETNX + TTL 吸收瞬时重复请求
	PrefixRoundIdemLock = "round:idem:lock:"
)

// IdemResultKey 形如：round:idem:result:{request_key}
func IdemResultKey(k string) string { return PrefixRoundIdemResult + k }

// IdemLockKey 形如：round:idem:lock:{request_key}
func IdemLockKey(k string) string { return PrefixRoundIdemLock + k }
