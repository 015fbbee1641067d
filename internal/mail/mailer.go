// Package mail はパスワードリセットメールの送信を提供する。
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig はSMTP接続の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 空の場合は認証なしで接続する
	Password string
	From     string
	// FrontendURL はリセットリンクの基点となるフロントエンドのURL。
	FrontendURL string
}

// SMTPMailer はSMTP経由でメールを送信する。
type SMTPMailer struct {
	client *gomail.Client
	config SMTPConfig
}

// NewSMTPMailer はSMTPMailerを生成する。
// STARTTLSが使えるサーバーでは暗号化し、使えない場合は平文で送る。
func NewSMTPMailer(config SMTPConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(config.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(config.Username),
			gomail.WithPassword(config.Password),
		)
	}

	client, err := gomail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &SMTPMailer{client: client, config: config}, nil
}

// SendPasswordReset はパスワード再設定リンクを含むメールをtoに送信する。
// リンクはフロントエンドの再設定画面を指し、トークンとユーザーIDを含む。
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to string, token string, userID int) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.config.From); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("failed to set mail to: %w", err)
	}

	link := fmt.Sprintf("%s/change-password/%s?userId=%d", m.config.FrontendURL, token, userID)

	msg.Subject("パスワード再設定のご案内")
	msg.SetBodyString(gomail.TypeTextHTML, resetMailBody(link))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

func resetMailBody(link string) string {
	return fmt.Sprintf(`<p>パスワード再設定のリクエストを受け付けました。</p>
<p>以下のリンクから新しいパスワードを設定してください。</p>
<p><a href="%s">%s</a></p>
<p>このリンクの有効期限が切れた場合は、再度リセットをリクエストしてください。</p>
<p>心当たりがない場合は、このメールを無視してください。</p>`, link, link)
}
