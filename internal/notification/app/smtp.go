package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"video_to_mp3_service/internal/notification/domain"
	"video_to_mp3_service/pkg/config"
	errprocess "video_to_mp3_service/pkg/err"
	"video_to_mp3_service/pkg/logger"
)

// defaultTimeout SMTP 連線與整個 session 的預設時限
const defaultTimeout = 15 * time.Second

// SMTPSender 透過 SMTP STARTTLS 寄送通知信
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender create a smtp mail sender
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// ValidateConfig 開機時驗證一次憑證，缺漏直接 fail-fast
// 不然每一則訊息都會以同樣的方式失敗
func (s *SMTPSender) ValidateConfig() error {
	if s.cfg.Host == "" || s.cfg.Port == "" {
		return errprocess.SetKind(errprocess.KindConfig, "SMTP host/port 未設定")
	}
	if s.cfg.Address == "" || s.cfg.Password == "" {
		return errprocess.SetKind(errprocess.KindConfig, "GMAIL_ADDRESS 與 GMAIL_PASSWORD 必須設定")
	}
	return nil
}

func (s *SMTPSender) timeout() time.Duration {
	if s.cfg.TimeoutSeconds > 0 {
		return time.Duration(s.cfg.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// Send 寄出一封信
// session 流程固定：connect -> STARTTLS -> auth -> send -> quit
// client 在所有離開路徑都會關閉
func (s *SMTPSender) Send(_ context.Context, msg *domain.EmailMessage) error {
	if err := msg.Validate(); err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("通知信內容不合法 : %v", err))
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, s.timeout())
	if err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] 連線失敗 : %v", addr, err))
	}
	// 整個 session 共用同一個 deadline，避免卡死 worker
	if err := conn.SetDeadline(time.Now().Add(s.timeout())); err != nil {
		conn.Close()
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] 設定 deadline 失敗 : %v", addr, err))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] 建立 client 失敗 : %v", addr, err))
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] 不支援 STARTTLS", addr))
	}
	if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] STARTTLS 失敗 : %v", addr, err))
	}

	auth := smtp.PlainAuth("", s.cfg.Address, strings.TrimSpace(s.cfg.Password), s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] 登入失敗 : %v", addr, err))
	}

	if err := client.Mail(s.cfg.Address); err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] MAIL FROM 失敗 : %v", addr, err))
	}
	if err := client.Rcpt(msg.To); err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] RCPT TO 失敗 : %v", addr, err))
	}

	w, err := client.Data()
	if err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] DATA 失敗 : %v", addr, err))
	}
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.cfg.Address, msg.To, msg.Subject, msg.Body)
	if _, err := w.Write([]byte(raw)); err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] 寫入信件內容失敗 : %v", addr, err))
	}
	if err := w.Close(); err != nil {
		return errprocess.SetKind(errprocess.KindMail,
			fmt.Sprintf("SMTP[%s] 結束信件內容失敗 : %v", addr, err))
	}

	if err := client.Quit(); err != nil {
		// 信已送出，quit 失敗只留 log
		logger.Log.Errorf(fmt.Sprintf("SMTP[%s] QUIT 失敗 :", addr), err)
	}

	return nil
}
