package application_test

import (
	"context"
	"testing"
	"time"

	"contex/contexts/context-routing/subscription-registry-service/adapters/memory"
	"contex/contexts/context-routing/subscription-registry-service/application"
	"contex/contexts/context-routing/subscription-registry-service/domain/entities"
)

func TestReRegistrationResetsLastSeenSequence(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	ctx := context.Background()

	reg := entities.AgentRegistration{
		AgentID: "agent-1", ProjectID: "p",
		Needs:    []string{"billing events"},
		Delivery: entities.Delivery{Mode: entities.DeliveryModePubSub, Channel: "agent:agent-1:updates"},
	}

	if _, err := svc.Register(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.UpdateLastSeenSequence(ctx, "p", "agent-1", 42); err != nil {
		t.Fatalf("update sequence: %v", err)
	}

	saved, err := svc.Register(ctx, reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if saved.LastSeenSequence != 0 {
		t.Fatalf("expected last_seen_sequence reset to 0, got %d", saved.LastSeenSequence)
	}
}

func TestRegisterRejectsMissingNeeds(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	_, err := svc.Register(context.Background(), entities.AgentRegistration{
		AgentID: "a", ProjectID: "p",
		Delivery: entities.Delivery{Mode: entities.DeliveryModePubSub, Channel: "c"},
	})
	if err == nil {
		t.Fatal("expected error for missing needs")
	}
}

func TestRegisterRejectsWebhookWithoutURL(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	_, err := svc.Register(context.Background(), entities.AgentRegistration{
		AgentID: "a", ProjectID: "p", Needs: []string{"x"},
		Delivery: entities.Delivery{Mode: entities.DeliveryModeWebhook},
	})
	if err == nil {
		t.Fatal("expected error for webhook without url")
	}
}

func TestListOnlyReturnsMatchingProject(t *testing.T) {
	svc := &application.Service{Repo: memory.NewStore()}
	ctx := context.Background()
	must := func(err error) {
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	_, err := svc.Register(ctx, entities.AgentRegistration{
		AgentID: "a1", ProjectID: "p1", Needs: []string{"x"},
		Delivery: entities.Delivery{Mode: entities.DeliveryModePubSub, Channel: "c1"},
	})
	must(err)
	_, err = svc.Register(ctx, entities.AgentRegistration{
		AgentID: "a2", ProjectID: "p2", Needs: []string{"y"},
		Delivery: entities.Delivery{Mode: entities.DeliveryModePubSub, Channel: "c2"},
	})
	must(err)

	regs, err := svc.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(regs) != 1 || regs[0].AgentID != "a1" {
		t.Fatalf("unexpected result: %+v", regs)
	}
}

func TestIdleExpirerRemovesStaleRegistrations(t *testing.T) {
	repo := memory.NewStore()
	ctx := context.Background()
	_, err := repo.Register(ctx, entities.AgentRegistration{
		AgentID: "stale", ProjectID: "p",
		UpdatedAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	removed, err := repo.ExpireIdle(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
