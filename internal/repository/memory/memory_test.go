package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func TestTicketRepository_AssignIfUnassignedSingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewTicketRepository()
	ticket := &domain.Ticket{Subject: "hi", Status: domain.TicketStatusPending}
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AssignIfUnassigned(ctx, ticket.ID, fmt.Sprintf("agent-%d", i))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrAlreadyAssigned):
				losses.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 || losses.Load() != 19 {
		t.Errorf("wins=%d losses=%d, want 1 and 19", wins.Load(), losses.Load())
	}
}

func TestTicketRepository_AssignUnknownTicket(t *testing.T) {
	t.Parallel()

	_, err := NewTicketRepository().AssignIfUnassigned(context.Background(), "missing", "a1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTicketRepository_ListAtRisk(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewTicketRepository()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(15 * time.Minute)

	seed := []domain.Ticket{
		{ID: "due-soon", OwnerID: "o1", Status: domain.TicketStatusPending, SLADeadline: now.Add(10 * time.Minute)},
		{ID: "overdue", OwnerID: "o1", Status: domain.TicketStatusPending, SLADeadline: now.Add(-time.Hour)},
		{ID: "later", OwnerID: "o1", Status: domain.TicketStatusPending, SLADeadline: now.Add(time.Hour)},
		{ID: "replied", OwnerID: "o1", Status: domain.TicketStatusReplied, SLADeadline: now},
		{ID: "other-owner", OwnerID: "o2", Status: domain.TicketStatusPending, SLADeadline: now},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.ListAtRisk(ctx, "o1", cutoff)
	if err != nil {
		t.Fatalf("ListAtRisk: %v", err)
	}
	if len(got) != 2 || got[0].ID != "overdue" || got[1].ID != "due-soon" {
		t.Errorf("got %v, want [overdue due-soon]", ids(got))
	}

	all, _ := repo.ListAtRisk(ctx, "", cutoff)
	if len(all) != 3 {
		t.Errorf("all owners = %d tickets, want 3", len(all))
	}
}

func TestTicketRepository_MarkRepliedKeepsFirstReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewTicketRepository()
	deadline := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{Status: domain.TicketStatusPending, SLADeadline: deadline}
	_ = repo.Create(ctx, ticket)

	first := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	if _, err := repo.MarkReplied(ctx, ticket.ID, first); err != nil {
		t.Fatalf("MarkReplied: %v", err)
	}
	got, err := repo.MarkReplied(ctx, ticket.ID, first.Add(time.Hour))
	if err != nil {
		t.Fatalf("MarkReplied: %v", err)
	}
	if !got.FirstReplyAt.Equal(first) {
		t.Errorf("first reply = %v, want %v", got.FirstReplyAt, first)
	}
	if !got.SLADeadline.Equal(deadline) {
		t.Errorf("deadline changed to %v", got.SLADeadline)
	}
}

func TestAlertRepository_OnePerTicket(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAlertRepository()

	created, err := repo.CreateIfAbsent(ctx, &domain.Alert{TicketID: "t1", Type: domain.AlertTypeDeadlineApproaching})
	if err != nil || !created {
		t.Fatalf("first create = %v, %v", created, err)
	}
	created, err = repo.CreateIfAbsent(ctx, &domain.Alert{TicketID: "t1", Type: domain.AlertTypeOverdue})
	if err != nil || created {
		t.Fatalf("second create = %v, %v; want false", created, err)
	}
	if repo.Count() != 1 {
		t.Errorf("count = %d, want 1", repo.Count())
	}
}

func TestWebhookRepository_DeleteScopedToOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewWebhookRepository()
	sub := &domain.WebhookSubscription{OwnerID: "o1", URL: "https://example.com"}
	_ = repo.Create(ctx, sub)

	if err := repo.Delete(ctx, "o2", sub.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "o1", sub.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	list, _ := repo.ListByOwner(ctx, "o1")
	if len(list) != 0 {
		t.Errorf("list after delete = %d", len(list))
	}
}

func TestWebhookRepository_RecordDelivery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewWebhookRepository()
	sub := &domain.WebhookSubscription{OwnerID: "o1"}
	_ = repo.Create(ctx, sub)

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.RecordDelivery(ctx, sub.ID, domain.DeliveryOutcome{StatusCode: 503, Error: "boom", TriggeredAt: at}); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	list, _ := repo.ListByOwner(ctx, "o1")
	got := list[0]
	if got.LastStatus == nil || *got.LastStatus != 503 {
		t.Errorf("last status = %v", got.LastStatus)
	}
	if got.LastError == nil || *got.LastError != "boom" {
		t.Errorf("last error = %v", got.LastError)
	}
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(at) {
		t.Errorf("last triggered = %v", got.LastTriggeredAt)
	}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}
