package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/luminahr/pulse-engage/internal/domain"
	"github.com/luminahr/pulse-engage/internal/pkg/logger"
)

// ErrQuotaExceeded aborts dispatch before any send when the tenant's daily
// quota cannot cover the eligible recipients.
var ErrQuotaExceeded = errors.New("daily send quota exceeded")

// Dispatcher iterates a campaign's participants in stable order and sends
// one personalized notification each.
type Dispatcher struct {
	renderer  Renderer
	transport Transport
	ledger    Ledger
	pacer     *Pacer
	quota     *QuotaGuard // nil when the guard is disabled

	surveyBaseURL string
	now           func() time.Time
}

// New creates a dispatcher. quota may be nil.
func New(renderer Renderer, transport Transport, ledger Ledger, pacer *Pacer, quota *QuotaGuard, surveyBaseURL string) *Dispatcher {
	return &Dispatcher{
		renderer:      renderer,
		transport:     transport,
		ledger:        ledger,
		pacer:         pacer,
		quota:         quota,
		surveyBaseURL: surveyBaseURL,
		now:           time.Now,
	}
}

// WithNow replaces the clock. Test hook.
func (d *Dispatcher) WithNow(fn func() time.Time) *Dispatcher {
	d.now = fn
	return d
}

// Dispatch processes every participant once, in list order. The returned
// error is non-nil only for systemic failures (template provider, transport
// connectivity, quota, cancellation); in that case the outcome so far is
// discarded by the caller and the campaign transition is rolled back.
// Recipient-level failures and missing contact addresses are classified,
// recorded in the ledger, and reported in the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, c domain.Campaign, participants []domain.Participant) (*Outcome, error) {
	eligible := 0
	for i := range participants {
		if participants[i].HasEmail() {
			eligible++
		}
	}

	if d.quota != nil && eligible > 0 {
		allowed, used, err := d.quota.Reserve(ctx, c.TenantID, eligible)
		if err != nil {
			return nil, fmt.Errorf("reserve send quota: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %d of daily limit already used, %d needed", ErrQuotaExceeded, used, eligible)
		}
	}

	out := &Outcome{Errors: []string{}, NoEmail: []domain.ParticipantRef{}}
	sendCalls := 0

	for i := range participants {
		p := &participants[i]

		if !p.HasEmail() {
			out.SkippedNoEmail++
			out.NoEmail = append(out.NoEmail, p.Ref())
			out.Deliveries = append(out.Deliveries, Delivery{
				Participant: p.Ref(),
				Status:      domain.DeliverySkippedNoEmail,
			})
			d.record(ctx, c.ID, p.ID, domain.DeliverySkippedNoEmail, "", "no contact address")
			continue
		}

		msg, err := d.renderer.Render(ctx, c.SurveyType, d.variables(&c, p))
		if err != nil {
			// Template failures affect every remaining recipient alike.
			d.releaseQuota(ctx, c.TenantID, eligible-sendCalls)
			return nil, fmt.Errorf("render notification for participant %s: %w", p.ID, err)
		}

		messageID, err := d.transport.Send(ctx, OutboundEmail{
			To:      *p.Email,
			ToName:  p.FullName(),
			Subject: msg.Subject,
			Body:    msg.Body,
		})

		sendCalls++

		var recipientErr *RecipientError
		switch {
		case err == nil:
			out.EmailsSent++
			out.Deliveries = append(out.Deliveries, Delivery{
				Participant: p.Ref(),
				Status:      domain.DeliverySent,
				MessageID:   messageID,
			})
			d.record(ctx, c.ID, p.ID, domain.DeliverySent, messageID, "")

		case errors.As(err, &recipientErr):
			detail := fmt.Sprintf("%s (participant %s): %s", p.FullName(), p.ID, recipientErr.Reason)
			out.Errors = append(out.Errors, detail)
			out.Deliveries = append(out.Deliveries, Delivery{
				Participant: p.Ref(),
				Status:      domain.DeliveryFailed,
				Detail:      recipientErr.Reason,
			})
			d.record(ctx, c.ID, p.ID, domain.DeliveryFailed, "", recipientErr.Reason)

		default:
			// Transport-level failure: credentials, connectivity. Fatal.
			d.releaseQuota(ctx, c.TenantID, eligible-sendCalls)
			return nil, fmt.Errorf("transport send: %w", err)
		}

		if err := d.pacer.Throttle(ctx, sendCalls-1); err != nil {
			d.releaseQuota(ctx, c.TenantID, eligible-sendCalls)
			return nil, fmt.Errorf("dispatch cancelled: %w", err)
		}
	}

	return out, nil
}

// record appends a ledger row. Losing one row is preferable to losing the
// distinction between "not sent" and "sent but unlogged", so failures are
// logged and swallowed.
func (d *Dispatcher) record(ctx context.Context, campaignID, participantID string, status domain.DeliveryStatus, messageID, detail string) {
	rec := &domain.DeliveryRecord{
		ID:            uuid.New().String(),
		CampaignID:    campaignID,
		ParticipantID: participantID,
		Status:        status,
		MessageID:     messageID,
		ErrorDetail:   detail,
		SentAt:        d.now(),
	}
	if err := d.ledger.Append(ctx, rec); err != nil {
		logger.Warn("delivery ledger write failed",
			"campaign_id", campaignID,
			"participant_id", participantID,
			"status", string(status),
			"error", err.Error())
	}
}

func (d *Dispatcher) releaseQuota(ctx context.Context, tenantID string, n int) {
	if d.quota == nil {
		return
	}
	if err := d.quota.Release(ctx, tenantID, n); err != nil {
		logger.Warn("quota release failed", "tenant_id", tenantID, "error", err.Error())
	}
}

// variables builds the per-recipient template context. The survey link
// embeds the participant's capability token.
func (d *Dispatcher) variables(c *domain.Campaign, p *domain.Participant) map[string]interface{} {
	return map[string]interface{}{
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"full_name":     p.FullName(),
		"company":       p.Company,
		"campaign_name": c.Name,
		"survey_link":   fmt.Sprintf("%s/s/%s", d.surveyBaseURL, p.UniqueToken),
	}
}
