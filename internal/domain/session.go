package domain

import "strings"

// Session 每次调用显式传入的会话信息
type Session struct {
	ID        string
	User      string // 钱包地址，可为空
	IPAddress string
	UserAgent string
}

// UserKey 小写地址，没有则 unknown
func (s Session) UserKey() string {
	u := strings.ToLower(strings.TrimSpace(s.User))
	if u == "" {
		return UnknownUser
	}
	return u
}
