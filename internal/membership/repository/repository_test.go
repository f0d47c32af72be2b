package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/membership/domain"
	"github.com/opentribe/membership/pkg/db"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.CommunityMembership{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	err = conn.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_membership_single_admin ON community_memberships (community_id) WHERE admin",
	).Error
	if err != nil {
		t.Fatalf("failed to create admin index: %v", err)
	}
	return conn
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return node
}

func TestFirstMembershipBecomesAdmin(t *testing.T) {
	conn := newTestDB(t)
	node := newNode(t)
	repo := Provide()
	ctx := context.Background()

	communityID := node.Generate()

	first := &domain.CommunityMembership{
		ID:          node.Generate(),
		PersonID:    node.Generate(),
		CommunityID: communityID,
		Status:      domain.StatusAccepted,
	}
	if err := repo.InsertWithAdminPromotion(ctx, conn, first); err != nil {
		t.Fatalf("failed to insert first membership: %v", err)
	}
	if !first.Admin {
		t.Fatal("expected first membership to be admin")
	}

	second := &domain.CommunityMembership{
		ID:          node.Generate(),
		PersonID:    node.Generate(),
		CommunityID: communityID,
		Status:      domain.StatusAccepted,
	}
	if err := repo.InsertWithAdminPromotion(ctx, conn, second); err != nil {
		t.Fatalf("failed to insert second membership: %v", err)
	}
	if second.Admin {
		t.Fatal("expected second membership to be regular")
	}
}

func TestDuplicateMembershipRejected(t *testing.T) {
	conn := newTestDB(t)
	node := newNode(t)
	repo := Provide()
	ctx := context.Background()

	personID := node.Generate()
	communityID := node.Generate()

	first := &domain.CommunityMembership{
		ID:          node.Generate(),
		PersonID:    personID,
		CommunityID: communityID,
		Status:      domain.StatusAccepted,
	}
	if err := repo.InsertWithAdminPromotion(ctx, conn, first); err != nil {
		t.Fatalf("failed to insert membership: %v", err)
	}

	dup := &domain.CommunityMembership{
		ID:          node.Generate(),
		PersonID:    personID,
		CommunityID: communityID,
		Status:      domain.StatusAccepted,
	}
	if err := repo.InsertWithAdminPromotion(ctx, conn, dup); err != domain.ErrAlreadyMember {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	count, err := repo.CountByCommunity(ctx, conn, communityID)
	if err != nil {
		t.Fatalf("failed to count memberships: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 membership, got %d", count)
	}
}

// TestLostAdminRaceDemotesWithinTransaction drives the race loser's path: a
// membership that already claimed admin from a stale count is inserted inside
// an open transaction after another admin committed. The savepoint must absorb
// the duplicate-key failure so the demoted retry and the rest of the caller's
// transaction still run.
func TestLostAdminRaceDemotesWithinTransaction(t *testing.T) {
	conn := newTestDB(t)
	node := newNode(t)
	r := &repo{}
	ctx := context.Background()

	communityID := node.Generate()

	winner := &domain.CommunityMembership{
		ID:          node.Generate(),
		PersonID:    node.Generate(),
		CommunityID: communityID,
		Status:      domain.StatusAccepted,
		Admin:       true,
	}
	if err := conn.Create(winner).Error; err != nil {
		t.Fatalf("failed to seed winning admin: %v", err)
	}

	loser := &domain.CommunityMembership{
		ID:          node.Generate(),
		PersonID:    node.Generate(),
		CommunityID: communityID,
		Status:      domain.StatusAccepted,
		Admin:       true,
	}
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.insert(ctx, tx, loser); err != nil {
			return err
		}
		// The transaction must survive the failed admin insert.
		count, err := r.CountByCommunity(ctx, tx, communityID)
		if err != nil {
			return err
		}
		if count != 2 {
			t.Fatalf("expected 2 memberships inside transaction, got %d", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed after lost admin race: %v", err)
	}
	if loser.Admin {
		t.Fatal("expected race loser to be demoted to a regular membership")
	}

	var admins int64
	conn.Model(&domain.CommunityMembership{}).
		Where("community_id = ? AND admin", communityID).
		Count(&admins)
	if admins != 1 {
		t.Fatalf("expected exactly one admin, got %d", admins)
	}
}

func TestAdminIndexForbidsSecondAdmin(t *testing.T) {
	conn := newTestDB(t)
	node := newNode(t)
	ctx := context.Background()

	communityID := node.Generate()
	for i := 0; i < 2; i++ {
		m := &domain.CommunityMembership{
			ID:          node.Generate(),
			PersonID:    node.Generate(),
			CommunityID: communityID,
			Status:      domain.StatusAccepted,
			Admin:       true,
		}
		err := conn.WithContext(ctx).Create(m).Error
		if i == 0 && err != nil {
			t.Fatalf("failed to insert admin membership: %v", err)
		}
		if i == 1 && !db.IsDuplicateKeyErr(err) {
			t.Fatalf("expected duplicate key error for second admin, got %v", err)
		}
	}
}
