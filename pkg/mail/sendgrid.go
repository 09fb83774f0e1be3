package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"advisor-hub/backend/config"
)

// sendgridNotifier 通过 SendGrid 发送预约通知
type sendgridNotifier struct {
	client *sendgrid.Client
	from   *sgmail.Email
	cache  *templateCache
	logger *zap.Logger
}

func newSendgridNotifier(cfg *config.MailConfig, cache *templateCache, logger *zap.Logger) *sendgridNotifier {
	return &sendgridNotifier{
		client: sendgrid.NewSendClient(cfg.SendgridAPIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		cache:  cache,
		logger: logger,
	}
}

func (n *sendgridNotifier) AppointmentCreated(_ context.Context, notice *Notice) error {
	if len(notice.To) == 0 {
		return nil
	}

	body, err := n.cache.render("appointment_created", notice)
	if err != nil {
		return err
	}

	p := sgmail.NewPersonalization()
	p.Subject = fmt.Sprintf("[Advisor Hub] 新预约：%s", notice.Title)
	for _, addr := range notice.To {
		p.AddTos(sgmail.NewEmail("", addr))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))

	resp, err := n.client.Send(m)
	if err != nil {
		return fmt.Errorf("SendGrid 发送失败: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("SendGrid 返回错误状态: %d", resp.StatusCode)
	}

	n.logger.Info("预约通知已发送",
		zap.Strings("to", notice.To),
		zap.String("title", notice.Title),
	)
	return nil
}
