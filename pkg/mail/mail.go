package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"advisor-hub/backend/config"
)

// Notice 预约通知内容
type Notice struct {
	To           []string // 收件人邮箱
	Title        string   // 预约标题
	CreatorName  string   // 发起人姓名
	Date         string   // 日期 "2006-01-02"
	StartTime    string   // 开始时刻 "15:04"
	EndTime      string   // 结束时刻 "15:04"
	MeetingType  string   // online | offline
	Location     string   // 线下地点或会议链接
	Reason       string
}

// Notifier 预约通知发送接口
// 发送失败不影响主流程，实现方自行记录日志
type Notifier interface {
	AppointmentCreated(ctx context.Context, notice *Notice) error
}

// ── 模板缓存 ──

// 模板在构造时一次性解析完毕，之后只读，无需加锁
const appointmentCreatedTmpl = `{{.CreatorName}} 发起了一个新预约：{{.Title}}

时间：{{.Date}} {{.StartTime}} - {{.EndTime}}
方式：{{if eq .MeetingType "online"}}线上{{else}}线下{{end}}
地点：{{.Location}}
{{- if .Reason}}
事由：{{.Reason}}
{{- end}}
`

// templateCache 显式模板缓存对象，由 Notifier 持有
type templateCache struct {
	templates map[string]*template.Template
}

func newTemplateCache() (*templateCache, error) {
	sources := map[string]string{
		"appointment_created": appointmentCreatedTmpl,
	}

	c := &templateCache{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		t, err := template.New(name).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("解析邮件模板 %s 失败: %w", name, err)
		}
		c.templates[name] = t
	}
	return c, nil
}

// render 渲染指定模板；模板不存在视为编程错误
func (c *templateCache) render(name string, data interface{}) (string, error) {
	t, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("邮件模板不存在: %s", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("渲染邮件模板 %s 失败: %w", name, err)
	}
	return buf.String(), nil
}

// NewNotifier 根据配置选择通知实现
func NewNotifier(cfg *config.MailConfig, logger *zap.Logger) (Notifier, error) {
	cache, err := newTemplateCache()
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "sendgrid":
		return newSendgridNotifier(cfg, cache, logger), nil
	default:
		return newConsoleNotifier(cache, logger), nil
	}
}
