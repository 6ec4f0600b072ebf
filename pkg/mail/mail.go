// Package mail sends the storefront's transactional email: the welcome mail,
// order confirmations, and order status updates.
//
//	mail.To(user.Email).
//	    Subject("Your order is confirmed").
//	    Body("<h1>Thanks!</h1>").
//	    Send()
package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/adityaraj/bazario/config"
)

// SMTP carries the server credentials, filled from config by default.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func configuredSMTP() SMTP {
	return SMTP{
		Host:     config.SMTPHost(),
		Port:     config.SMTPPort(),
		Username: config.SMTPUser(),
		Password: config.SMTPPass(),
		From:     config.MailFrom(),
		FromName: config.Get("MAIL_FROM_NAME", "Bazario"),
	}
}

// Message builds one email fluently. HTML is the default body type.
type Message struct {
	to      []string
	cc      []string
	bcc     []string
	subject string
	body    string
	isHTML  bool
	server  SMTP
}

// To starts a message to the given recipients.
func To(addresses ...string) *Message {
	return &Message{to: addresses, isHTML: true, server: configuredSMTP()}
}

// CC adds carbon-copy recipients.
func (m *Message) CC(addresses ...string) *Message {
	m.cc = append(m.cc, addresses...)
	return m
}

// BCC adds blind-copy recipients.
func (m *Message) BCC(addresses ...string) *Message {
	m.bcc = append(m.bcc, addresses...)
	return m
}

// Subject sets the subject line.
func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Body sets an HTML body.
func (m *Message) Body(html string) *Message {
	m.body = html
	m.isHTML = true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

// UseConfig overrides the server settings for this one message.
func (m *Message) UseConfig(cfg SMTP) *Message {
	m.server = cfg
	return m
}

// Send delivers the message. Port 465 gets implicit TLS; everything else
// goes through smtp.SendMail, which upgrades with STARTTLS when offered.
func (m *Message) Send() error {
	cfg := m.server
	if cfg.Host == "" {
		return fmt.Errorf("mail: SMTP_HOST not configured")
	}

	from := fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	recipients := append(append(append([]string{}, m.to...), m.cc...), m.bcc...)
	raw := m.render(from)

	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	if cfg.Port == "465" {
		return m.sendImplicitTLS(addr, auth, cfg.From, recipients, raw, cfg.Host)
	}
	return smtp.SendMail(addr, auth, cfg.From, recipients, raw)
}

func (m *Message) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, raw []byte, host string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("mail: TLS dial: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = w.Write(raw)
	return err
}

func (m *Message) render(from string) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.to, ", "))
	if len(m.cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(m.cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", m.subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"UTF-8\"\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}
