package panel

import "github.com/google/uuid"

// Button 可点击控件。token 非空表示该控件触发的请求仍在途中，
// 期间重复触发直接忽略，回包只在令牌匹配时才生效。
type Button struct {
	Label   string
	Enabled bool
	token   string
}

func (b Button) busy() bool {
	return b.token != ""
}

// acquire 领取请求令牌并禁用控件；已有在途请求时返回 false
func (b *Button) acquire(newToken func() string) (string, bool) {
	if b.token != "" {
		return "", false
	}
	b.token = newToken()
	b.Enabled = false
	return b.token, true
}

// release 归还令牌；令牌不匹配（过期回包）时返回 false
func (b *Button) release(token string) bool {
	if token == "" || b.token != token {
		return false
	}
	b.token = ""
	return true
}

func newRequestToken() string {
	return uuid.NewString()
}
