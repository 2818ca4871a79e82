package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/lostfoundhub/lostfound-backend/internal/goroutine"
	"github.com/lostfoundhub/lostfound-backend/internal/logger"
)

// Mailer отправляет HTML письма через SMTP. Отправка всегда best-effort:
// сбой почты логируется и никогда не влияет на результат основной операции.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	enabled  bool
}

// New создаёт почтовый сервис. Если SMTP не сконфигурирован,
// возвращается выключенный mailer, который молча пропускает отправку.
func New(host, port, username, password, from string) *Mailer {
	enabled := host != "" && from != ""
	if !enabled && logger.Log != nil {
		logger.Log.Warn("mailer: SMTP не сконфигурирован, письма отправляться не будут")
	}

	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		enabled:  enabled,
	}
}

// Send отправляет одно письмо синхронно.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.enabled {
		return nil
	}

	headers := []string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: не удалось отправить письмо: %w", err)
	}

	return nil
}

// SendAsync отправляет письмо в фоне. Ошибка логируется и не пробрасывается.
func (m *Mailer) SendAsync(to, subject, htmlBody string) {
	if !m.enabled {
		return
	}

	goroutine.SafeGo(func() {
		if err := m.Send(to, subject, htmlBody); err != nil {
			if logger.Log != nil {
				logger.Log.WithField("to", to).Warnf("mailer: %v", err)
			}
		}
	})
}

// WelcomeBody формирует приветственное письмо после регистрации.
func WelcomeBody(username, baseURL string) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Добро пожаловать в Lost &amp; Found Hub!</h2>
			<p>Здравствуйте, %s!</p>
			<p>Спасибо за регистрацию. Теперь вы можете публиковать объявления о потерянных
			и найденных вещах и помогать возвращать их владельцам.</p>
			<p><a href="%s">Перейти на сайт</a></p>
		</div>
	`, username, baseURL)
}

// PasswordResetBody формирует письмо со ссылкой сброса пароля.
func PasswordResetBody(resetLink string) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Сброс пароля</h2>
			<p>Вы запросили сброс пароля. Ссылка действительна 15 минут:</p>
			<p><a href="%s">Сбросить пароль</a></p>
			<p style="word-break: break-all;">%s</p>
			<p>Если вы не запрашивали сброс, проигнорируйте это письмо.</p>
		</div>
	`, resetLink, resetLink)
}
