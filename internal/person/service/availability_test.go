package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	communityrepo "github.com/opentribe/membership/internal/community/repository"
	"github.com/opentribe/membership/internal/person/domain"
	"github.com/opentribe/membership/internal/person/repository"
	"github.com/opentribe/membership/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAvailabilityFixture(t *testing.T) (domain.AvailabilityService, *gorm.DB, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	err = conn.AutoMigrate(
		&domain.Person{},
		&domain.Email{},
		&communitydomain.Community{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	svc := NewAvailability(AvailabilityParams{
		DB:          conn,
		Log:         zap.NewNop(),
		Repo:        repository.Provide(),
		Communities: communityrepo.Provide(),
	})
	return svc, conn, node
}

func seedPerson(t *testing.T, conn *gorm.DB, node *snowflake.Node, username, email string) *domain.Person {
	t.Helper()
	person := &domain.Person{
		ID:       node.Generate(),
		Username: username,
		Email:    email,
		Active:   true,
	}
	if err := conn.Create(person).Error; err != nil {
		t.Fatalf("failed to seed person: %v", err)
	}
	return person
}

func TestOwnEmailIsAlwaysAvailable(t *testing.T) {
	svc, conn, node := newAvailabilityFixture(t)
	person := seedPerson(t, conn, node, "jane", "jane@example.org")
	ctx := context.Background()

	available, err := svc.EmailAvailableFor(ctx, person.ID, "jane@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !available {
		t.Fatal("expected a person's own email to be available to them")
	}

	available, err = svc.EmailAvailableFor(ctx, 0, "jane@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available {
		t.Fatal("expected the email to be unavailable for everyone else")
	}
}

func TestHistoricalEmailBlocksReuse(t *testing.T) {
	svc, conn, node := newAvailabilityFixture(t)
	person := seedPerson(t, conn, node, "jane", "jane@example.org")
	ctx := context.Background()

	confirmed := time.Now().UTC()
	archived := &domain.Email{
		ID:          node.Generate(),
		PersonID:    person.ID,
		Address:     "old@example.org",
		ConfirmedAt: &confirmed,
	}
	if err := conn.Create(archived).Error; err != nil {
		t.Fatalf("failed to seed archived email: %v", err)
	}

	available, err := svc.EmailAvailableFor(ctx, 0, "OLD@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available {
		t.Fatal("expected archived address to stay claimed")
	}
}

func TestAvailableUsernameAppendsSuffix(t *testing.T) {
	svc, conn, node := newAvailabilityFixture(t)
	seedPerson(t, conn, node, "jane", "jane@example.org")
	seedPerson(t, conn, node, "jane1", "jane1@example.org")
	ctx := context.Background()

	candidate, err := svc.AvailableUsernameBasedOn(ctx, "Jane")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate != "jane2" {
		t.Fatalf("expected jane2, got %q", candidate)
	}

	free, err := svc.AvailableUsernameBasedOn(ctx, "Bob Smith")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if free != "bob-smith" {
		t.Fatalf("expected bob-smith, got %q", free)
	}
}

func TestCommunitiesRestrictingEmail(t *testing.T) {
	svc, conn, node := newAvailabilityFixture(t)
	ctx := context.Background()

	restricted := &communitydomain.Community{
		ID:                   node.Generate(),
		Name:                 "orgtown",
		AllowedEmailPatterns: []string{"@org.example"},
	}
	open := &communitydomain.Community{
		ID:   node.Generate(),
		Name: "openville",
	}
	if err := conn.Create(restricted).Error; err != nil {
		t.Fatalf("failed to seed community: %v", err)
	}
	if err := conn.Create(open).Error; err != nil {
		t.Fatalf("failed to seed community: %v", err)
	}

	matches, err := svc.CommunitiesRestrictingEmail(ctx, "jane@org.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "orgtown" {
		t.Fatalf("expected orgtown to claim the address, got %v", matches)
	}

	matches, err = svc.CommunitiesRestrictingEmail(ctx, "jane@other.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no claims, got %v", matches)
	}
}
