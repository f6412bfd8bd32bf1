package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SMTPSender struct {
	client *mail.Client
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg *mail.Msg) error {
	return s.client.DialAndSendWithContext(ctx, msg)
}

type Mailer struct {
	sender Sender
	from   string
	tmpl   *template.Template
}

func NewMailer(sender Sender, from string) (*Mailer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"productName": func(it models.OrderItem) string {
			if it.Product != nil {
				return it.Product.Name
			}
			return fmt.Sprintf("product %d", it.ProductID)
		},
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Mailer{sender: sender, from: from, tmpl: tmpl}, nil
}

type confirmationData struct {
	Order   *models.Order
	Total   string
	Payload string
}

// SendOrderConfirmation renders and sends the confirmation for order.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, order *models.Order, payload string) error {
	var body bytes.Buffer
	data := confirmationData{Order: order, Total: order.Total().StringFixed(2), Payload: payload}
	if err := m.tmpl.ExecuteTemplate(&body, "order_confirmation.html", data); err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(order.Email); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(fmt.Sprintf("Order confirmation #%d", order.ID))
	msg.SetBodyString(mail.TypeTextPlain, StripTags(body.String()))
	msg.AddAlternativeString(mail.TypeTextHTML, body.String())

	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// NotifyOrderConfirmed sends the confirmation and only logs failures.
func (m *Mailer) NotifyOrderConfirmed(ctx context.Context, order *models.Order, payload string) {
	l := logging.FromContext(ctx).With("svc", "notify.order_confirmation", "order_id", order.ID)
	if err := m.SendOrderConfirmation(ctx, order, payload); err != nil {
		l.Error("order_email_failed", "error", err)
		return
	}
	l.Info("order_email_sent")
}
