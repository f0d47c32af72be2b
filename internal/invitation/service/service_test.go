package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	"github.com/opentribe/membership/internal/config"
	"github.com/opentribe/membership/internal/invitation/domain"
	"github.com/opentribe/membership/internal/invitation/repository"
	"github.com/opentribe/membership/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestGate(t *testing.T, allowGlobal bool) (domain.Gate, *gorm.DB, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.Invitation{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	gate := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		Config: config.Config{GlobalInvitationCodes: allowGlobal},
		Repo:   repository.Provide(),
	})
	return gate, conn, node
}

func seedInvitation(t *testing.T, conn *gorm.DB, node *snowflake.Node, communityID snowflake.ID, uses int, expires *time.Time) *domain.Invitation {
	t.Helper()
	invitation := &domain.Invitation{
		ID:          node.Generate(),
		Code:        "WELCOME",
		CommunityID: communityID,
		UsesLeft:    uses,
		ExpiresAt:   expires,
	}
	if err := conn.Create(invitation).Error; err != nil {
		t.Fatalf("failed to seed invitation: %v", err)
	}
	return invitation
}

func TestCodeUsableMatchesCaseInsensitively(t *testing.T) {
	gate, conn, node := newTestGate(t, true)
	community := &communitydomain.Community{ID: node.Generate()}
	seedInvitation(t, conn, node, community.ID, 3, nil)

	usable, err := gate.CodeUsable(context.Background(), "welcome", community)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usable {
		t.Fatal("expected lowercase code to be usable")
	}
}

func TestCodeUsableRejectsBlankUnknownAndScoped(t *testing.T) {
	gate, conn, node := newTestGate(t, true)
	community := &communitydomain.Community{ID: node.Generate()}
	other := &communitydomain.Community{ID: node.Generate()}
	seedInvitation(t, conn, node, community.ID, 1, nil)

	ctx := context.Background()
	if usable, _ := gate.CodeUsable(ctx, "  ", community); usable {
		t.Fatal("expected blank code to be unusable")
	}
	if usable, _ := gate.CodeUsable(ctx, "NOPE", community); usable {
		t.Fatal("expected unknown code to be unusable")
	}
	if usable, _ := gate.CodeUsable(ctx, "WELCOME", other); usable {
		t.Fatal("expected code scoped to another community to be unusable")
	}
}

func TestCodeUsableHonoursExpiryAndExhaustion(t *testing.T) {
	gate, conn, node := newTestGate(t, true)
	community := &communitydomain.Community{ID: node.Generate()}

	past := time.Now().UTC().Add(-time.Hour)
	seedInvitation(t, conn, node, community.ID, 5, &past)

	ctx := context.Background()
	if usable, _ := gate.CodeUsable(ctx, "WELCOME", community); usable {
		t.Fatal("expected expired code to be unusable")
	}

	if err := conn.Model(&domain.Invitation{}).Where("code = ?", "WELCOME").
		Updates(map[string]any{"expires_at": nil, "uses_left": 0}).Error; err != nil {
		t.Fatalf("failed to update invitation: %v", err)
	}
	if usable, _ := gate.CodeUsable(ctx, "WELCOME", community); usable {
		t.Fatal("expected exhausted code to be unusable")
	}
}

func TestGlobalCodePolicy(t *testing.T) {
	gate, conn, node := newTestGate(t, false)
	community := &communitydomain.Community{ID: node.Generate()}
	seedInvitation(t, conn, node, 0, 1, nil)

	if usable, _ := gate.CodeUsable(context.Background(), "WELCOME", community); usable {
		t.Fatal("expected global code to be unusable when the policy forbids it")
	}

	allowed, conn2, node2 := newTestGate(t, true)
	seedInvitation(t, conn2, node2, 0, 1, nil)
	if usable, _ := allowed.CodeUsable(context.Background(), "WELCOME", community); !usable {
		t.Fatal("expected global code to be usable when the policy allows it")
	}
}

func TestRedeemConsumesExactlyOneUse(t *testing.T) {
	gate, conn, node := newTestGate(t, true)
	community := &communitydomain.Community{ID: node.Generate()}
	invitation := seedInvitation(t, conn, node, community.ID, 1, nil)

	ctx := context.Background()
	if err := gate.Redeem(ctx, conn, invitation); err != nil {
		t.Fatalf("failed to redeem: %v", err)
	}
	if invitation.UsesLeft != 0 {
		t.Fatalf("expected 0 uses left, got %d", invitation.UsesLeft)
	}

	var stored domain.Invitation
	if err := conn.First(&stored, "id = ?", invitation.ID).Error; err != nil {
		t.Fatalf("failed to load invitation: %v", err)
	}
	if stored.UsesLeft != 0 {
		t.Fatalf("expected stored uses_left 0, got %d", stored.UsesLeft)
	}

	if err := gate.Redeem(ctx, conn, &stored); err != domain.ErrExhausted {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	conn.First(&stored, "id = ?", invitation.ID)
	if stored.UsesLeft != 0 {
		t.Fatalf("expected uses_left to stay at the floor, got %d", stored.UsesLeft)
	}
}
