package mail

import (
	"context"

	"go.uber.org/zap"
)

// consoleNotifier 将通知写入日志，开发与测试环境使用
type consoleNotifier struct {
	cache  *templateCache
	logger *zap.Logger
}

func newConsoleNotifier(cache *templateCache, logger *zap.Logger) *consoleNotifier {
	return &consoleNotifier{cache: cache, logger: logger}
}

func (n *consoleNotifier) AppointmentCreated(_ context.Context, notice *Notice) error {
	body, err := n.cache.render("appointment_created", notice)
	if err != nil {
		return err
	}

	n.logger.Info("预约通知（console）",
		zap.Strings("to", notice.To),
		zap.String("title", notice.Title),
		zap.String("body", body),
	)
	return nil
}
