package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminahr/pulse-engage/internal/domain"
)

type fakeRenderer struct {
	err      error
	rendered []map[string]interface{}
}

func (f *fakeRenderer) Render(ctx context.Context, key string, vars map[string]interface{}) (Message, error) {
	if f.err != nil {
		return Message{}, f.err
	}
	f.rendered = append(f.rendered, vars)
	return Message{
		Subject: fmt.Sprintf("Your %s survey", key),
		Body:    fmt.Sprintf("<p>Hi %v, click %v</p>", vars["first_name"], vars["survey_link"]),
	}, nil
}

type fakeTransport struct {
	// failWith maps recipient address to the error Send returns for it.
	failWith map[string]error
	sent     []OutboundEmail
}

func (f *fakeTransport) Send(ctx context.Context, email OutboundEmail) (string, error) {
	if err, ok := f.failWith[email.To]; ok {
		return "", err
	}
	f.sent = append(f.sent, email)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

type fakeLedger struct {
	err  error
	rows []*domain.DeliveryRecord
}

func (f *fakeLedger) Append(ctx context.Context, rec *domain.DeliveryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rec)
	return nil
}

func instantPacer() *Pacer {
	return NewPacer(0, 0, 0)
}

func testCampaign() domain.Campaign {
	return domain.Campaign{
		ID:         "c1",
		TenantID:   "t1",
		Name:       "Q3 Engagement",
		SurveyType: "engagement",
		Status:     domain.CampaignDraft,
	}
}

func participantList(n int) []domain.Participant {
	out := make([]domain.Participant, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("p%d@example.com", i)
		out = append(out, domain.Participant{
			ID:          fmt.Sprintf("p%d", i),
			FirstName:   fmt.Sprintf("Person%d", i),
			LastName:    "Example",
			Email:       &email,
			UniqueToken: fmt.Sprintf("tok-%d", i),
		})
	}
	return out
}

func TestDispatchAllSent(t *testing.T) {
	renderer := &fakeRenderer{}
	transport := &fakeTransport{}
	ledger := &fakeLedger{}
	d := New(renderer, transport, ledger, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), participantList(4))

	require.NoError(t, err)
	assert.Equal(t, 4, out.EmailsSent)
	assert.Equal(t, 0, out.SkippedNoEmail)
	assert.Empty(t, out.Errors)
	assert.Len(t, transport.sent, 4)
	assert.Len(t, ledger.rows, 4)

	// Sends happen in participant order.
	for i, email := range transport.sent {
		assert.Equal(t, fmt.Sprintf("p%d@example.com", i), email.To)
	}
	for _, rec := range ledger.rows {
		assert.Equal(t, domain.DeliverySent, rec.Status)
		assert.NotEmpty(t, rec.MessageID)
	}
}

func TestDispatchSurveyLinkEmbedsToken(t *testing.T) {
	renderer := &fakeRenderer{}
	d := New(renderer, &fakeTransport{}, &fakeLedger{}, instantPacer(), nil, "https://surveys.test")

	_, err := d.Dispatch(context.Background(), testCampaign(), participantList(2))

	require.NoError(t, err)
	require.Len(t, renderer.rendered, 2)
	assert.Equal(t, "https://surveys.test/s/tok-0", renderer.rendered[0]["survey_link"])
	assert.Equal(t, "https://surveys.test/s/tok-1", renderer.rendered[1]["survey_link"])
	assert.Equal(t, "Q3 Engagement", renderer.rendered[0]["campaign_name"])
}

func TestDispatchSkipsParticipantsWithoutEmail(t *testing.T) {
	ps := participantList(3)
	ps[1].Email = nil
	empty := ""
	ps[2].Email = &empty

	transport := &fakeTransport{}
	ledger := &fakeLedger{}
	d := New(&fakeRenderer{}, transport, ledger, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), ps)

	require.NoError(t, err)
	assert.Equal(t, 1, out.EmailsSent)
	assert.Equal(t, 2, out.SkippedNoEmail)
	require.Len(t, out.NoEmail, 2)
	assert.Equal(t, "p1", out.NoEmail[0].ID)
	assert.Equal(t, "p2", out.NoEmail[1].ID)

	// Skips still land in the ledger, marked distinctly from failures.
	require.Len(t, ledger.rows, 3)
	skipped := 0
	for _, rec := range ledger.rows {
		if rec.Status == domain.DeliverySkippedNoEmail {
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)
}

func TestDispatchRecipientFailureDoesNotAbort(t *testing.T) {
	ps := participantList(4)
	transport := &fakeTransport{failWith: map[string]error{
		"p1@example.com": &RecipientError{Reason: "mailbox does not exist"},
	}}
	ledger := &fakeLedger{}
	d := New(&fakeRenderer{}, transport, ledger, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), ps)

	require.NoError(t, err)
	assert.Equal(t, 3, out.EmailsSent)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "Person1 Example")
	assert.Contains(t, out.Errors[0], "p1")
	assert.Contains(t, out.Errors[0], "mailbox does not exist")

	// All four attempts are in the ledger: 3 sent + 1 failed.
	require.Len(t, ledger.rows, 4)
	failed := 0
	for _, rec := range ledger.rows {
		if rec.Status == domain.DeliveryFailed {
			failed++
			assert.Equal(t, "mailbox does not exist", rec.ErrorDetail)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestDispatchSystemicTransportFailureAborts(t *testing.T) {
	ps := participantList(5)
	transport := &fakeTransport{failWith: map[string]error{
		"p2@example.com": errors.New("connection refused"),
	}}
	ledger := &fakeLedger{}
	d := New(&fakeRenderer{}, transport, ledger, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), ps)

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "transport send")

	// The two sends before the failure stay in the ledger.
	require.Len(t, ledger.rows, 2)
	for _, rec := range ledger.rows {
		assert.Equal(t, domain.DeliverySent, rec.Status)
	}
}

func TestDispatchRenderFailureAborts(t *testing.T) {
	d := New(&fakeRenderer{err: errors.New("unknown template key")}, &fakeTransport{}, &fakeLedger{}, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), participantList(3))

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "render notification")
}

func TestDispatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	sent := 0
	pacer := NewPacer(time.Millisecond, 0, 0).WithSleep(
		func(ctx context.Context, d time.Duration) error {
			sent++
			if sent == 2 {
				cancel()
			}
			return ctx.Err()
		})

	ledger := &fakeLedger{}
	d := New(&fakeRenderer{}, &fakeTransport{}, ledger, pacer, nil, "https://surveys.test")

	out, err := d.Dispatch(ctx, testCampaign(), participantList(10))

	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	// Sends already made are permanent.
	assert.Len(t, ledger.rows, 2)
}

func TestDispatchLedgerFailureIsSwallowed(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("ledger db down")}
	d := New(&fakeRenderer{}, &fakeTransport{}, ledger, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), participantList(3))

	require.NoError(t, err)
	assert.Equal(t, 3, out.EmailsSent)
}

func TestDispatchQuotaDeniesUpFront(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	quota := NewQuotaGuard(client, 2)

	transport := &fakeTransport{}
	d := New(&fakeRenderer{}, transport, &fakeLedger{}, instantPacer(), quota, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), participantList(5))

	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	// Denied before any provider call.
	assert.Empty(t, transport.sent)
}

func TestDispatchQuotaReleasedOnSystemicFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	quota := NewQuotaGuard(client, 100)

	transport := &fakeTransport{failWith: map[string]error{
		"p2@example.com": errors.New("connection refused"),
	}}
	d := New(&fakeRenderer{}, transport, &fakeLedger{}, instantPacer(), quota, "https://surveys.test")

	_, err := d.Dispatch(context.Background(), testCampaign(), participantList(5))
	require.Error(t, err)

	// 5 reserved, 3 provider calls consumed (2 sent + 1 failed attempt),
	// 2 returned to the pool.
	used, err := quota.Usage(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), used)
}

func TestDispatchQuotaCountsOnlyEligible(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	quota := NewQuotaGuard(client, 3)

	ps := participantList(5)
	ps[0].Email = nil
	ps[4].Email = nil

	d := New(&fakeRenderer{}, &fakeTransport{}, &fakeLedger{}, instantPacer(), quota, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), ps)

	// 3 eligible fits a quota of 3 even though the pool holds 5.
	require.NoError(t, err)
	assert.Equal(t, 3, out.EmailsSent)
	assert.Equal(t, 2, out.SkippedNoEmail)
}

func TestDispatchEmptyPool(t *testing.T) {
	d := New(&fakeRenderer{}, &fakeTransport{}, &fakeLedger{}, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, out.EmailsSent)
	assert.NotNil(t, out.Errors)
	assert.NotNil(t, out.NoEmail)
}

func TestDispatchErrorDetailFormat(t *testing.T) {
	ps := participantList(1)
	transport := &fakeTransport{failWith: map[string]error{
		"p0@example.com": &RecipientError{Reason: "address suppressed"},
	}}
	d := New(&fakeRenderer{}, transport, &fakeLedger{}, instantPacer(), nil, "https://surveys.test")

	out, err := d.Dispatch(context.Background(), testCampaign(), ps)

	require.NoError(t, err)
	require.Len(t, out.Errors, 1)
	assert.True(t, strings.HasPrefix(out.Errors[0], "Person0 Example (participant p0): "))
}
