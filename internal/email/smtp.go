package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/farewatch-api/internal/model"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// TrackingBaseURL is prepended to the open-pixel and click-redirect
	// paths embedded in alert emails.
	TrackingBaseURL string
	// DashboardURL is where the booking call-to-action points.
	DashboardURL string
}

type smtpService struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
	tmpl   *template.Template
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		tmpl:   template.Must(template.New("price_alert").Parse(priceAlertTemplate)),
	}
}

type alertTemplateData struct {
	model.AlertEmailPayload
	Avg90DayText   string
	AllTimeLowText string
	ClickURL       template.URL
	PixelURL       template.URL
}

func (s *smtpService) SendPriceAlert(_ context.Context, msg *model.QueuedMessage) error {
	var payload model.AlertEmailPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid alert payload: %w", err)
	}

	data := alertTemplateData{
		AlertEmailPayload: payload,
		ClickURL:          template.URL(s.clickURL(msg)),
		PixelURL:          template.URL(s.pixelURL(msg)),
	}
	if payload.Avg90Day != nil {
		data.Avg90DayText = fmt.Sprintf("$%.0f", *payload.Avg90Day)
	}
	if payload.AllTimeLow != nil {
		data.AllTimeLowText = fmt.Sprintf("$%.0f", *payload.AllTimeLow)
	}

	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render alert email: %w", err)
	}

	subject := fmt.Sprintf("Price alert: %s for $%.0f (%s deal)",
		payload.Destination, payload.CurrentPrice, payload.DealQuality)

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

func (s *smtpService) SendCustom(_ context.Context, to string, subject string, content string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *smtpService) pixelURL(msg *model.QueuedMessage) string {
	return fmt.Sprintf("%s/track/open?queue_id=%s", s.cfg.TrackingBaseURL, msg.ID)
}

func (s *smtpService) clickURL(msg *model.QueuedMessage) string {
	return fmt.Sprintf("%s/track/click?queue_id=%s&url=%s",
		s.cfg.TrackingBaseURL, msg.ID, url.QueryEscape(s.cfg.DashboardURL))
}

const priceAlertTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #222;">
	<h2>{{.Destination}}, {{.Country}} just dropped to ${{printf "%.0f" .CurrentPrice}}</h2>
	<p><strong>{{.DealQuality}}</strong> &mdash; {{printf "%.1f" .SavingsPercent}}% below the 90-day average.</p>
	<p>{{.Recommendation}}</p>
	<ul>
		<li>Your threshold: ${{printf "%.0f" .UserThreshold}}</li>
		{{if .Avg90DayText}}<li>90-day average: {{.Avg90DayText}}</li>{{end}}
		{{if .AllTimeLowText}}<li>All-time low: {{.AllTimeLowText}}</li>{{end}}
		<li>Departure date: {{.OutboundDate}}</li>
	</ul>
	<p><a href="{{.ClickURL}}">View this deal</a></p>
	<img src="{{.PixelURL}}" width="1" height="1" alt="" />
</body>
</html>`
