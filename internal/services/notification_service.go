package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"sync"
	"time"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
)

// NotificationService dispatches lifecycle emails. Sends are a side effect of
// the request, never its outcome: Enqueue hands the message to a worker
// goroutine and returns immediately, and delivery failures are logged and kept
// for the retry sweep instead of surfacing to the caller.
type NotificationService interface {
	// SendNow delivers synchronously. Referral creation awaits the referrer's
	// link email this way; everything else goes through Enqueue.
	SendNow(ctx context.Context, msg *models.EmailMessage) error
	Enqueue(msg *models.EmailMessage)

	// RetryFailed re-attempts messages whose delivery failed. Driven by the
	// background scheduler.
	RetryFailed(ctx context.Context) int

	Close()
}

const (
	notificationQueueSize = 256
	maxDeliveryAttempts   = 3
)

type notificationService struct {
	mailer      Mailer
	defaultFrom string

	queue chan *models.EmailMessage
	done  chan struct{}

	mu     sync.Mutex
	failed []*models.EmailMessage
}

func NewNotificationService(mailer Mailer, defaultFrom string) NotificationService {
	s := &notificationService{
		mailer:      mailer,
		defaultFrom: defaultFrom,
		queue:       make(chan *models.EmailMessage, notificationQueueSize),
		done:        make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *notificationService) SendNow(ctx context.Context, msg *models.EmailMessage) error {
	s.prepare(msg)
	msg.Attempts++
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("notification: send failed (event=%s to=%v): %v", msg.EventType, msg.To, err)
		s.remember(msg)
		return err
	}
	return nil
}

func (s *notificationService) Enqueue(msg *models.EmailMessage) {
	s.prepare(msg)
	select {
	case s.queue <- msg:
	default:
		// Queue full; keep the message for the retry sweep rather than block
		// the request handler.
		log.Printf("notification: queue full, deferring event=%s to=%v", msg.EventType, msg.To)
		s.remember(msg)
	}
}

func (s *notificationService) worker() {
	for {
		select {
		case msg := <-s.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			msg.Attempts++
			if err := s.mailer.Send(ctx, msg); err != nil {
				log.Printf("notification: async send failed (event=%s to=%v attempt=%d): %v", msg.EventType, msg.To, msg.Attempts, err)
				s.remember(msg)
			}
			cancel()
		case <-s.done:
			return
		}
	}
}

func (s *notificationService) RetryFailed(ctx context.Context) int {
	s.mu.Lock()
	pending := s.failed
	s.failed = nil
	s.mu.Unlock()

	retried := 0
	for _, msg := range pending {
		msg.Attempts++
		if err := s.mailer.Send(ctx, msg); err != nil {
			log.Printf("notification: retry failed (event=%s to=%v attempt=%d): %v", msg.EventType, msg.To, msg.Attempts, err)
			s.remember(msg)
			continue
		}
		retried++
	}
	return retried
}

func (s *notificationService) Close() {
	close(s.done)
}

func (s *notificationService) prepare(msg *models.EmailMessage) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.From == "" {
		msg.From = s.defaultFrom
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
}

func (s *notificationService) remember(msg *models.EmailMessage) {
	if msg.Attempts >= maxDeliveryAttempts {
		log.Printf("notification: dropping event=%s to=%v after %d attempts", msg.EventType, msg.To, msg.Attempts)
		return
	}
	s.mu.Lock()
	s.failed = append(s.failed, msg)
	s.mu.Unlock()
}

// Email bodies. Kept as plain templates the way the original system rendered
// its transactional mail.
var (
	referralLinkTmpl = template.Must(template.New("referral_link").Parse(
		`<p>Hi {{.ReferrerName}},</p>
<p>Your referral link for {{.TenantName}} is ready. Share it with {{if .ProspectName}}{{.ProspectName}}{{else}}your friend{{end}}:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Reward on completion: {{.Reward}}</p>`))

	referralAdminTmpl = template.Must(template.New("referral_admin").Parse(
		`<p>{{.ReferrerName}} ({{.ReferrerEmail}}) created a new referral.</p>
<p>Code: {{.Code}}<br>Reward: {{.Reward}}</p>`))

	estimateAdminTmpl = template.Must(template.New("estimate_admin").Parse(
		`<p>A new estimate request came in for referral code {{.Code}}.</p>
<p>Prospect: {{.ProspectName}} ({{.ProspectEmail}}, {{.ProspectPhone}})<br>Address: {{.Address}}</p>`))

	estimateReferrerTmpl = template.Must(template.New("estimate_referrer").Parse(
		`<p>Hi {{.ReferrerName}},</p>
<p>Good news: your referral code {{.Code}} was just used to request an estimate. We will let you know when your reward is activated.</p>`))

	estimateProspectTmpl = template.Must(template.New("estimate_prospect").Parse(
		`<p>Hi {{.ProspectName}},</p>
<p>Thanks for requesting an estimate from {{.TenantName}}. We received your details and will be in touch shortly.</p>`))

	rewardActivatedTmpl = template.Must(template.New("reward_activated").Parse(
		`<p>Hi {{.ReferrerName}},</p>
<p>Your referral was completed and your reward is now active: {{.Reward}}</p>
<p>Thank you for referring {{.TenantName}}!</p>`))
)

func renderTemplate(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Printf("notification: template %s render failed: %v", tmpl.Name(), err)
		return ""
	}
	return buf.String()
}

func senderFor(tenant *models.Tenant, fallback string) string {
	if tenant != nil && tenant.SenderEmail != nil && *tenant.SenderEmail != "" {
		return *tenant.SenderEmail
	}
	return fallback
}

func referralLink(tenant *models.Tenant, code string) string {
	return fmt.Sprintf("%s/referral/%s", tenant.ClientURL, code)
}
