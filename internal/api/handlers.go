package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/luminahr/pulse-engage/internal/auth"
	"github.com/luminahr/pulse-engage/internal/domain"
	"github.com/luminahr/pulse-engage/internal/pkg/httputil"
	"github.com/luminahr/pulse-engage/internal/repository/postgres"
	"github.com/luminahr/pulse-engage/internal/service/activation"
)

// ActivationService runs the draft→active transition.
type ActivationService interface {
	Activate(ctx context.Context, tenantID, campaignID, actor string) (*activation.Result, error)
}

// CampaignReader serves campaign read endpoints.
type CampaignReader interface {
	Get(ctx context.Context, tenantID, campaignID string) (*domain.Campaign, error)
	List(ctx context.Context, tenantID string, f postgres.ListFilter) ([]domain.Campaign, int, error)
}

// LedgerReader serves delivery-ledger read endpoints.
type LedgerReader interface {
	ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]domain.DeliveryRecord, error)
	Stats(ctx context.Context, campaignID string) (domain.DeliveryStats, error)
}

// AuditReader serves audit read endpoints.
type AuditReader interface {
	ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]domain.AuditEntry, error)
}

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	activations ActivationService
	campaigns   CampaignReader
	ledger      LedgerReader
	audits      AuditReader
	db          *sql.DB // health check only
}

// NewHandlers creates the handler set.
func NewHandlers(activations ActivationService, campaigns CampaignReader, ledger LedgerReader, audits AuditReader, db *sql.DB) *Handlers {
	return &Handlers{
		activations: activations,
		campaigns:   campaigns,
		ledger:      ledger,
		audits:      audits,
		db:          db,
	}
}

// ActivationResponse is the success payload of the activate endpoint. A
// partially-successful activation (some recipients failed) still reports
// success; the breakdown is there for manual follow-up.
type ActivationResponse struct {
	Success                  bool                    `json:"success"`
	Message                  string                  `json:"message"`
	EmailsSent               int                     `json:"emails_sent"`
	SkippedNoEmail           int                     `json:"skipped_no_email"`
	Errors                   []string                `json:"errors"`
	ParticipantsWithoutEmail []domain.ParticipantRef `json:"participants_without_email"`
	Campaign                 *domain.Campaign        `json:"campaign"`
}

// HandleActivate runs POST /api/campaigns/{id}/activate.
func (h *Handlers) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	campaignID := chi.URLParam(r, "id")

	result, err := h.activations.Activate(r.Context(), id.TenantID, campaignID, id.Actor)
	if err != nil {
		h.writeActivationError(w, err)
		return
	}

	httputil.OK(w, ActivationResponse{
		Success:                  true,
		Message:                  "campaign activated",
		EmailsSent:               result.Outcome.EmailsSent,
		SkippedNoEmail:           result.Outcome.SkippedNoEmail,
		Errors:                   result.Outcome.Errors,
		ParticipantsWithoutEmail: result.Outcome.NoEmail,
		Campaign:                 result.Campaign,
	})
}

func (h *Handlers) writeActivationError(w http.ResponseWriter, err error) {
	if verrs, ok := activation.AsValidation(err); ok {
		httputil.Unprocessable(w, "activation preconditions not met", verrs)
		return
	}
	switch {
	case errors.Is(err, activation.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, activation.ErrConflict):
		httputil.Conflict(w, "campaign was activated by a concurrent request")
	default:
		httputil.InternalError(w, err)
	}
}

// CampaignDetail is a campaign with its delivery stats.
type CampaignDetail struct {
	domain.Campaign
	Deliveries domain.DeliveryStats `json:"deliveries"`
}

// HandleGetCampaign runs GET /api/campaigns/{id}.
func (h *Handlers) HandleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	campaignID := chi.URLParam(r, "id")

	c, err := h.campaigns.Get(r.Context(), id.TenantID, campaignID)
	if err != nil {
		if errors.Is(err, activation.ErrNotFound) {
			httputil.NotFound(w, "campaign not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	stats, err := h.ledger.Stats(r.Context(), campaignID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, CampaignDetail{Campaign: *c, Deliveries: stats})
}

// HandleListCampaigns runs GET /api/campaigns.
func (h *Handlers) HandleListCampaigns(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	f := postgres.ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	campaigns, total, err := h.campaigns.List(r.Context(), id.TenantID, f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	httputil.OK(w, map[string]interface{}{
		"campaigns": campaigns,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": (total + pageSize - 1) / pageSize,
		},
	})
}

// HandleListDeliveries runs GET /api/campaigns/{id}/deliveries.
func (h *Handlers) HandleListDeliveries(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	campaignID := chi.URLParam(r, "id")

	// 404 for campaigns outside the tenant's scope
	if _, err := h.campaigns.Get(r.Context(), id.TenantID, campaignID); err != nil {
		if errors.Is(err, activation.ErrNotFound) {
			httputil.NotFound(w, "campaign not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	records, err := h.ledger.ListByCampaign(r.Context(), id.TenantID, campaignID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if records == nil {
		records = []domain.DeliveryRecord{}
	}
	httputil.OK(w, map[string]interface{}{"deliveries": records})
}

// HandleListAudit runs GET /api/campaigns/{id}/audit.
func (h *Handlers) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w, "authentication required")
		return
	}
	campaignID := chi.URLParam(r, "id")

	entries, err := h.audits.ListByCampaign(r.Context(), id.TenantID, campaignID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	httputil.OK(w, map[string]interface{}{"audit": entries})
}

// HealthCheck runs GET /health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			httputil.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	httputil.OK(w, status)
}
