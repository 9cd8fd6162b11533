package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/smtp"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/go-gomail/gomail"

	"newsletterdispatch/internal/domain"
)

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	InsecureSkipVerify bool
}

// SMTPConfig holds configuration for an SMTP relay. URL is smtp://host:port or
// smtps://host:port; User and Pass override credentials embedded in the URL.
type SMTPConfig struct {
	URL  string
	User string
	Pass string
}

// MailerConfig holds configuration for creating a mailer.
type MailerConfig struct {
	Provider    string
	FromAddress string
	FromName    string
	SES         SESConfig
	SMTP        SMTPConfig
}

// NewMailer creates a mailer from config. Provider "smtp" relays through an SMTP server,
// "ses" uses AWS SES raw sends; "noop" or unknown uses a no-op mailer.
func NewMailer(config MailerConfig, logger *slog.Logger) (domain.Mailer, error) {
	from := sender{address: config.FromAddress, name: config.FromName}
	switch config.Provider {
	case "smtp":
		dialer, err := smtpDialer(config.SMTP)
		if err != nil {
			return nil, fmt.Errorf("smtp mailer: %w", err)
		}
		return &smtpMailer{dialer: dialer, from: from, logger: logger}, nil
	case "ses":
		sesConfig := config.SES
		if sesConfig.InsecureSkipVerify {
			logger.Warn("TLS certificate verification is disabled for SES. Use only in development.")
		}
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: sesConfig.InsecureSkipVerify,
					MinVersion:         tls.VersionTLS12,
				},
			},
		}
		awsCfg := aws.Config{
			Region: sesConfig.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					sesConfig.AccessKeyID,
					sesConfig.SecretAccessKey,
					"",
				),
			),
			HTTPClient: httpClient,
		}
		return &sesMailer{client: ses.NewFromConfig(awsCfg), from: from, logger: logger}, nil
	case "noop":
		return &noopMailer{logger: logger}, nil
	default:
		logger.Warn("unknown email provider, using noop", "provider", config.Provider)
		return &noopMailer{logger: logger}, nil
	}
}

type sender struct {
	address string
	name    string
}

// buildMessage renders msg as a MIME message. msg.From wins over the configured sender.
func buildMessage(from sender, msg *domain.OutboundEmail) *gomail.Message {
	m := gomail.NewMessage()
	if msg.From != "" {
		m.SetHeader("From", msg.From)
	} else if from.name != "" {
		m.SetHeader("From", m.FormatAddress(from.address, from.name))
	} else {
		m.SetHeader("From", from.address)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}
	m.SetBody("text/html", msg.HTML)
	return m
}

// smtpDialer builds a dialer from an smtp:// or smtps:// URL.
func smtpDialer(cfg SMTPConfig) (*gomail.Dialer, error) {
	surl, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	if surl.Hostname() == "" {
		return nil, fmt.Errorf("missing SMTP host in %q", cfg.URL)
	}

	switch surl.Scheme {
	case "":
		surl.Scheme = "smtps"
	case "smtp", "smtps":
	default:
		return nil, fmt.Errorf("invalid SMTP URL scheme: %s", surl.Scheme)
	}

	var user, pass string
	if auth := surl.User; auth != nil {
		pass, _ = auth.Password()
		user = auth.Username()
	}
	if cfg.User != "" {
		user = cfg.User
	}
	if cfg.Pass != "" {
		pass = cfg.Pass
	}

	var port int
	if p, err := strconv.Atoi(surl.Port()); err == nil {
		port = p
	} else if surl.Scheme == "smtp" {
		port = 25
	} else {
		port = 465
	}

	d := gomail.NewDialer(surl.Hostname(), port, user, pass)
	d.SSL = surl.Scheme == "smtps"
	return d, nil
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   sender
	logger *slog.Logger
}

// Send runs one SMTP session per message. The whole conversation is bounded by ctx:
// its deadline is set on the connection and cancellation aborts pending I/O.
func (s *smtpMailer) Send(ctx context.Context, msg *domain.OutboundEmail) error {
	if err := s.send(ctx, buildMessage(s.from, msg)); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			// Connection deadlines only ever come from ctx.
			<-ctx.Done()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to send email via SMTP: %w: %w", ctxErr, err)
		}
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	s.logger.Debug("email sent via SMTP", "to", msg.To)
	return nil
}

func (s *smtpMailer) send(ctx context.Context, m *gomail.Message) error {
	d := s.dialer
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	tlsConfig := d.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: d.Host, MinVersion: tls.VersionTLS12}
	}
	if d.SSL {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if !d.SSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if d.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", d.Username, d.Password, d.Host)); err != nil {
				return err
			}
		}
	}

	if err := gomail.Send(envelope(c), m); err != nil {
		return err
	}
	return c.Quit()
}

// envelope adapts an open SMTP session to gomail's Sender.
func envelope(c *smtp.Client) gomail.SendFunc {
	return func(from string, to []string, msg io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, addr := range to {
			if err := c.Rcpt(addr); err != nil {
				return err
			}
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := msg.WriteTo(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}
}

// sesRawClient is the part of the SES client used for sending.
type sesRawClient interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type sesMailer struct {
	client sesRawClient
	from   sender
	logger *slog.Logger
}

// Send uses SendRawEmail so the list-unsubscribe headers reach the recipient.
func (s *sesMailer) Send(ctx context.Context, msg *domain.OutboundEmail) error {
	var raw bytes.Buffer
	if _, err := buildMessage(s.from, msg).WriteTo(&raw); err != nil {
		return fmt.Errorf("build raw email: %w", err)
	}
	input := &ses.SendRawEmailInput{
		Destinations: []string{msg.To},
		RawMessage:   &types.RawMessage{Data: raw.Bytes()},
	}
	result, err := s.client.SendRawEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	s.logger.Debug("email sent via SES", "message_id", aws.ToString(result.MessageId))
	return nil
}

type noopMailer struct {
	logger *slog.Logger
}

func (n *noopMailer) Send(_ context.Context, msg *domain.OutboundEmail) error {
	n.logger.Info("email would be sent (noop)", "to", msg.To, "subject", msg.Subject)
	return nil
}
