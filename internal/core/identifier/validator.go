// Package identifier 银行标识符（UPI / 账号 / 卡号）的校验与脱敏，纯函数。
package identifier

import (
	"regexp"

	"github.com/chandraveer04/token-browser/internal/domain"
)

var (
	upiPattern     = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	accountPattern = regexp.MustCompile(`^\d{10,16}$`)
	cardPattern    = regexp.MustCompile(`^\d{16}$`)
)

// Validate 未知 method 一律 false
func Validate(method domain.Method, id string) bool {
	switch method {
	case domain.MethodUPI:
		return upiPattern.MatchString(id)
	case domain.MethodAccount:
		return accountPattern.MatchString(id)
	case domain.MethodCard:
		return cardPattern.MatchString(id) && Luhn(id)
	default:
		return false
	}
}

// Luhn 从右往左，偶数位翻倍，>9 减 9，总和能被 10 整除
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
