package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer 通知边界。每个发送都可能独立失败，调用方按尽力而为处理。
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendWelcomeEmail(ctx context.Context, to, name string) error
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error
	SendPasswordChangedEmail(ctx context.Context, to, name string) error
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	LinkBase string // 拼验证/重置链接的前端地址
}

type SMTPMailer struct{ opt SMTPOptions }

func NewSMTPMailer(opt SMTPOptions) *SMTPMailer { return &SMTPMailer{opt: opt} }

func (m *SMTPMailer) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.opt.Host, m.opt.Port)
	var auth smtp.Auth
	if m.opt.Username != "" {
		auth = smtp.PlainAuth("", m.opt.Username, m.opt.Password, m.opt.Host)
	}
	from := m.opt.From
	header := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.opt.FromName, from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
	}, "\r\n")
	msg := []byte(header + "\r\n\r\n" + body + "\r\n")
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

func (m *SMTPMailer) SendVerificationEmail(_ context.Context, to, name, token string) error {
	link := m.opt.LinkBase + "/verify-email?token=" + token
	return m.send(to, "Verify your email",
		fmt.Sprintf("Hi %s,\n\nPlease verify your email within 24 hours:\n%s\n", name, link))
}

func (m *SMTPMailer) SendWelcomeEmail(_ context.Context, to, name string) error {
	return m.send(to, "Welcome!",
		fmt.Sprintf("Hi %s,\n\nYour account is now active. Enjoy!\n", name))
}

func (m *SMTPMailer) SendPasswordResetEmail(_ context.Context, to, name, token string) error {
	link := m.opt.LinkBase + "/reset-password?token=" + token
	return m.send(to, "Password reset",
		fmt.Sprintf("Hi %s,\n\nUse this link within 1 hour to reset your password:\n%s\n", name, link))
}

func (m *SMTPMailer) SendPasswordChangedEmail(_ context.Context, to, name string) error {
	return m.send(to, "Your password was changed",
		fmt.Sprintf("Hi %s,\n\nYour password was just changed. If this wasn't you, reset it immediately.\n", name))
}
