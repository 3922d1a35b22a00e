package identifier

import (
	"strings"
	"unicode/utf8"

	"github.com/chandraveer04/token-browser/internal/domain"
)

const (
	maskStars   = "****"
	maskCardPre = "****-****-****-"
	maskUnknown = "********"
)

// Rejected 未通过校验的标识符一律用这个占位，不带任何原始字符
const Rejected = maskUnknown

// Mask 确定性脱敏，最多保留 4 个原始字符（upi 只保留首字符和域名）
func Mask(method domain.Method, id string) string {
	switch method {
	case domain.MethodUPI:
		local, host, ok := strings.Cut(id, "@")
		first := ""
		if r, size := utf8.DecodeRuneInString(local); r != utf8.RuneError {
			first = local[:size]
		}
		if !ok {
			return first + maskStars
		}
		return first + maskStars + "@" + host
	case domain.MethodAccount:
		return maskStars + lastN(id, 4)
	case domain.MethodCard:
		return maskCardPre + lastN(id, 4)
	default:
		return maskUnknown
	}
}

// lastN 按字符截取，不会切断多字节字符
func lastN(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[len(rs)-n:])
}
