// Package notify delivers outbound account mail.
package notify

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Notifier sends a single plain text message.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DefaultSMTPTimeout bounds a whole SMTP session when the caller sets no deadline.
const DefaultSMTPTimeout = 10 * time.Second

// SMTPNotifier relays mail through an SMTP server.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
	send     func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPNotifier(host string, port int, username, password, from string, timeout time.Duration) *SMTPNotifier {
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}
	n := &SMTPNotifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		timeout:  timeout,
	}
	n.send = n.dialAndSend
	return n
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("notify: header contains line break")
	}

	msg, err := n.buildMessage(to, subject, body, time.Now())
	if err != nil {
		return err
	}
	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("notify: smtp %s: %w", net.JoinHostPort(n.host, fmt.Sprint(n.port)), err)
	}

	logger.Log.Debug("Mail sent",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

func (n *SMTPNotifier) buildMessage(to, subject, body string, now time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("notify: sender %q: %w", n.from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("notify: recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(now)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(n.port),
		mail.WithTimeout(n.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(deadlineDialer),
	}
	if n.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.username),
			mail.WithPassword(n.password),
		)
	}

	client, err := mail.NewClient(n.host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// deadlineDialer carries the dial context's deadline onto the connection so a
// server that stops answering mid-session cannot outlive the request.
func deadlineDialer(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// ConsoleNotifier writes mail to the log instead of sending it.
type ConsoleNotifier struct {
	from string
}

func NewConsoleNotifier(from string) *ConsoleNotifier {
	return &ConsoleNotifier{from: from}
}

func (n *ConsoleNotifier) Send(_ context.Context, to, subject, body string) error {
	logger.Log.Info("Mail (console backend)",
		zap.String("from", n.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
