package panel

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/lnpanel/internal/panelapi"
)

// Field 表单输入项
type Field struct {
	Name      string
	Label     string
	Value     string
	Sensitive bool
}

// Form 配置表单，字段顺序即界面顺序
type Form struct {
	Fields []Field
	Focus  int
}

// 与后端 POST /config 的必填字段及 invoicemessage 对应
var formLayout = []struct {
	name  string
	label string
}{
	{panelapi.FieldDiscordToken, "Discord Bot Token"},
	{"guild_id", "Guild ID"},
	{"role_id", "Role ID"},
	{"channelid", "Invoice Channel ID"},
	{"command_name", "Command Name"},
	{"price", "Price (sats)"},
	{panelapi.FieldLNBitsAPIKey, "LNBits API Key"},
	{"invoicemessage", "Invoice Message"},
}

func NewForm() Form {
	f := Form{Fields: make([]Field, 0, len(formLayout))}
	for _, l := range formLayout {
		f.Fields = append(f.Fields, Field{
			Name:      l.name,
			Label:     l.label,
			Sensitive: panelapi.IsSensitive(l.name),
		})
	}
	return f
}

// Values 把所有字段（包括空值）序列化为扁平键值
func (f Form) Values() map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, fd := range f.Fields {
		out[fd.Name] = fd.Value
	}
	return out
}

// Value 按名字取值
func (f Form) Value(name string) (string, bool) {
	for _, fd := range f.Fields {
		if fd.Name == name {
			return fd.Value, true
		}
	}
	return "", false
}

// Populate 用服务端返回值回填表单。敏感字段永不回填；表单里不存在的键忽略。
func (f *Form) Populate(values map[string]string) {
	for i := range f.Fields {
		fd := &f.Fields[i]
		if fd.Sensitive {
			continue
		}
		if v, ok := values[fd.Name]; ok {
			fd.Value = v
		}
	}
}

func (f *Form) focused() *Field {
	if len(f.Fields) == 0 {
		return nil
	}
	return &f.Fields[f.Focus]
}

func (f *Form) next() {
	if len(f.Fields) > 0 {
		f.Focus = (f.Focus + 1) % len(f.Fields)
	}
}

func (f *Form) prev() {
	if len(f.Fields) > 0 {
		f.Focus = (f.Focus - 1 + len(f.Fields)) % len(f.Fields)
	}
}

func (f *Form) insert(s string) {
	if fd := f.focused(); fd != nil {
		fd.Value += s
	}
}

func (f *Form) backspace() {
	fd := f.focused()
	if fd == nil || fd.Value == "" {
		return
	}
	r := []rune(fd.Value)
	fd.Value = string(r[:len(r)-1])
}

func (f *Form) clearFocused() {
	if fd := f.focused(); fd != nil {
		fd.Value = ""
	}
}

var satsPerBTC = decimal.New(1, 8)

// priceHint sats 换算成 BTC 的提示；非正数或无法解析时返回 ""
func priceHint(value string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || !d.IsPositive() {
		return ""
	}
	return "≈ " + d.Div(satsPerBTC).String() + " BTC"
}
