// Package phone 电话号码规范化（纯函数，无副作用）。
//
// 全局身份（Person）以规范化后的号码为唯一键，
// 所以所有入口（注册、联系人、业主、购房申请）必须经过同一套规则。
package phone

import "strings"

const (
	// MinDigits 规范化后允许的最小位数
	MinDigits = 10
	// MaxDigits 规范化后允许的最大位数
	MaxDigits = 15
)

// Normalize 将任意格式的电话转换为"纯数字"规范形式。
//
// 规则：
//  1. 去掉所有非数字字符（'+7 (700) 123-45-67' -> '77001234567'）
//  2. 去掉国际拨号前缀 "00"（'0037529...' -> '37529...'）
//  3. 11位且以 "8" 开头时，把前导 "8" 改写为 "7"（CIS 本地格式修正）
//  4. 最终长度必须在 [10, 15]，否则返回空字符串（无效）
//
// 幂等：对合法结果再次调用返回同一值。
func Normalize(raw string) string {
	digits := stripNonDigits(raw)

	// 国际前缀 00（可能重复出现，循环剥离以保证幂等）
	for strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}

	// CIS 本地格式：8XXXXXXXXXX -> 7XXXXXXXXXX
	if len(digits) == 11 && digits[0] == '8' {
		digits = "7" + digits[1:]
	}

	if len(digits) < MinDigits || len(digits) > MaxDigits {
		return ""
	}
	return digits
}

// NormalizeList 规范化号码列表：逐项规范化、去掉无效项、去重（保序）。
func NormalizeList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		n := Normalize(r)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// IsNormalized 判断字符串是否已经是合法的规范形式
func IsNormalized(s string) bool {
	if len(s) < MinDigits || len(s) > MaxDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	// "00"前缀和 8XXXXXXXXXX 形式会被 Normalize 改写，不算规范形式
	return Normalize(s) == s
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
