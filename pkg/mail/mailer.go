package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/hieplh/ata-sample-webapp/config"
)

var activationTmpl = template.Must(template.New("activation").Parse(`<table style="width:100%;border-collapse:collapse;color:#0a0836;font-family:-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica Neue,sans-serif;font-size:14px;line-height:1.5" bgcolor="#f6fafb">
  <tr>
    <td align="center" style="padding:20px 10px 30px">
      <table style="width:580px;border-radius:10px" bgcolor="#fff">
        <tr>
          <td style="padding:30px 40px">
            <h1 style="font-size:18px;font-weight:700;margin:0;padding-bottom:10px">
              Welcome <a href="mailto:{{.Email}}" style="color:#00b08c">{{.Email}}</a>!
            </h1>
            <p style="margin:0;padding-bottom:10px">Thank you for signing up for Sample App.</p>
            <p style="margin:0;padding-bottom:10px">Verify your email address by clicking the button below.</p>
            <p style="text-align:center;padding:25px 0 35px">
              <a href="{{.Link}}" style="background:#00b08c;border-radius:25px;color:#fff;display:inline-block;font-weight:700;padding:10px 25px;text-decoration:none">Confirm my account</a>
            </p>
            <p style="margin:0;padding-bottom:10px">Note that unverified accounts are automatically deleted 30 days after signup.</p>
            <p style="margin:0;padding-bottom:10px">If you didn't request this, please ignore this email.</p>
          </td>
        </tr>
        <tr>
          <td style="padding:0 40px 30px;font-size:12px">
            <strong>Sincerely,</strong><br/><strong>Sample-App Team</strong>
          </td>
        </tr>
      </table>
    </td>
  </tr>
</table>`))

// Dialer 发送邮件的最小接口，*gomail.Dialer 满足
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer 激活邮件发送器
type Mailer struct {
	dialer   Dialer
	from     string
	subject  string
	override string
	baseURL  string
	logger   *zap.Logger
}

// NewMailer 基于 SMTP 配置创建发送器
func NewMailer(cfg *config.MailConfig, baseURL string, logger *zap.Logger) *Mailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	return NewMailerWithDialer(d, cfg, baseURL, logger)
}

// NewMailerWithDialer 使用自定义 Dialer
func NewMailerWithDialer(d Dialer, cfg *config.MailConfig, baseURL string, logger *zap.Logger) *Mailer {
	return &Mailer{
		dialer:   d,
		from:     cfg.From,
		subject:  cfg.Subject,
		override: cfg.ReceiverOverride,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// ActivationLink 激活链接
func (m *Mailer) ActivationLink(username string, otp int) string {
	return fmt.Sprintf("%s/active_user/%s/%d", m.baseURL, username, otp)
}

// SendActivation 发送激活邮件
func (m *Mailer) SendActivation(ctx context.Context, email, username string, otp int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := email
	if m.override != "" {
		to = m.override
	}

	body, err := renderActivation(to, m.ActivationLink(username, otp))
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", m.subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("发送激活邮件失败: %w", err)
	}

	m.logger.Info("激活邮件已发送", zap.String("username", username), zap.String("to", to))
	return nil
}

func renderActivation(email, link string) (string, error) {
	var body bytes.Buffer
	if err := activationTmpl.Execute(&body, struct {
		Email string
		Link  string
	}{Email: email, Link: link}); err != nil {
		return "", fmt.Errorf("渲染激活邮件失败: %w", err)
	}
	return body.String(), nil
}
