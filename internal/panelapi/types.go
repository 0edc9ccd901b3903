package panelapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// 两个敏感字段只写不读：服务端回包里即使带了，也不能回填到表单
const (
	FieldDiscordToken = "discord_token"
	FieldLNBitsAPIKey = "lnbits_api_key"
)

// IsSensitive 判断字段是否为只写凭据
func IsSensitive(field string) bool {
	return field == FieldDiscordToken || field == FieldLNBitsAPIKey
}

// Configuration GET /config 的结果
type Configuration struct {
	Configured bool
	// Fields 除 configured 之外的所有键，值统一转成字符串
	Fields map[string]string
	// LNBitsAvailable 后端探测 LNBits 健康检查的结果，未返回时为 nil
	LNBitsAvailable *bool
}

func (c *Configuration) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Fields = make(map[string]string, len(raw))
	for k, v := range raw {
		switch k {
		case "configured":
			c.Configured = truthy(v)
		case "lnbits_available":
			ok := truthy(v)
			c.LNBitsAvailable = &ok
		default:
			if s, ok := stringify(v); ok {
				c.Fields[k] = s
			}
		}
	}
	return nil
}

// truthy 按 JS 的真值规则解释 JSON 值（"" / 0 / false / null 为假）
func truthy(v json.RawMessage) bool {
	t := strings.TrimSpace(string(v))
	switch t {
	case "", "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f != 0
	}
	return true
}

func stringify(v json.RawMessage) (string, bool) {
	t := strings.TrimSpace(string(v))
	if t == "" || t == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	// 数字、布尔、对象保持 JSON 文本
	return t, true
}

// BotStatus GET /bot/status
type BotStatus struct {
	Running    bool  `json:"running"`
	Configured *bool `json:"configured,omitempty"`
}

// ActionResult POST /bot/start 与 /bot/stop
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SaveResult POST /config 成功时的回包
type SaveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CheckResult 单个外部依赖的检测结果
type CheckResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// TestResult POST /test-connection
type TestResult struct {
	Discord CheckResult
	LNBits  CheckResult
}

// AllValid 两个依赖都通过
func (r TestResult) AllValid() bool {
	return r.Discord.Valid && r.LNBits.Valid
}

// LogSnapshot GET /logs，按时间顺序（最旧在前），每行自带换行符
type LogSnapshot struct {
	Lines []string
}

// Text 渲染文本：直接拼接，不加分隔符
func (s LogSnapshot) Text() string {
	return strings.Join(s.Lines, "")
}

type testResultWire struct {
	Discord *CheckResult `json:"discord"`
	LNBits  *CheckResult `json:"lnbits"`
}

type logsWire struct {
	Logs  *[]string `json:"logs"`
	Error string    `json:"error"`
}

type errorWire struct {
	Error string `json:"error"`
}
