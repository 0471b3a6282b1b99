package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "dealroom.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return db
}

func newTestStores(t *testing.T) (*DraftStore, *RoomStore, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := StoreConfig{DB: openTestDB(t), Clock: clock.Now}

	drafts, err := NewDraftStore(cfg)
	if err != nil {
		t.Fatalf("draft store: %v", err)
	}
	rooms, err := NewRoomStore(cfg)
	if err != nil {
		t.Fatalf("room store: %v", err)
	}
	return drafts, rooms, clock
}

func textPtr(v string) *string { return &v }

func TestOpenSQLiteMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealroom.db")

	first, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	sqlDB, err := first.DB()
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("second open should tolerate applied migrations: %v", err)
	}

	var count int64
	if err := second.Model(&migrationRecord{}).Where("name = ?", migrationBackfillDraftExpiry).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("migration ledger rows = %d, want 1", count)
	}
}

func TestSQLiteDraftUpsertBumpsVersion(t *testing.T) {
	drafts, _, _ := newTestStores(t)
	ctx := context.Background()

	first, err := drafts.UpsertDraft(ctx, dealroom.DraftInput{
		ProjectID: "p1",
		SessionID: "s1",
		DraftData: dealroom.DraftData{InvestmentBlurb: textPtr("v1")},
	}, dealroom.DraftWriteReplace)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("first version = %d", first.Version)
	}

	second, err := drafts.UpsertDraft(ctx, dealroom.DraftInput{
		ProjectID: "p1",
		SessionID: "s1",
		DraftData: dealroom.DraftData{InvestmentBlurb: textPtr("v2")},
	}, dealroom.DraftWriteReplace)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Version != 2 || second.ID != first.ID {
		t.Fatalf("identity not preserved: %+v", second)
	}

	found, err := drafts.FindDraft(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || *found.DraftData.InvestmentBlurb != "v2" {
		t.Fatalf("stored payload: %+v", found)
	}
}

func TestSQLiteDraftExpirySweep(t *testing.T) {
	drafts, _, clock := newTestStores(t)
	ctx := context.Background()

	if _, err := drafts.UpsertDraft(ctx, dealroom.DraftInput{
		ProjectID: "p1",
		SessionID: "s1",
		DraftData: dealroom.DraftData{InvestmentBlurb: textPtr("wip")},
	}, dealroom.DraftWriteReplace); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	clock.now = clock.now.Add(25 * time.Hour)

	found, err := drafts.FindDraft(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found != nil {
		t.Fatal("expired draft should be swept on read")
	}

	removed, err := drafts.CleanupExpiredDrafts(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Fatalf("cleanup after read sweep removed %d, want 0", removed)
	}
}

func TestSQLiteVersionPruning(t *testing.T) {
	drafts, _, _ := newTestStores(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		created, err := drafts.CreateVersion(ctx, "p1", dealroom.DealRoom{ProjectID: "p1"}, fmt.Sprintf("rev %d", i), "")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if created.Version != int64(i) {
			t.Fatalf("version %d numbered %d", i, created.Version)
		}
	}

	versions, err := drafts.VersionsByProject(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 10 {
		t.Fatalf("retained %d, want 10", len(versions))
	}
	if versions[0].Version != 12 || versions[9].Version != 3 {
		t.Fatalf("retained range [%d..%d], want [12..3]", versions[0].Version, versions[9].Version)
	}

	next, err := drafts.CreateVersion(ctx, "p1", dealroom.DealRoom{ProjectID: "p1"}, "", "")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.Version != 13 {
		t.Fatalf("next numbered %d, want 13", next.Version)
	}
}

func TestSQLiteConflictResolve(t *testing.T) {
	drafts, _, _ := newTestStores(t)
	ctx := context.Background()

	created, err := drafts.CreateConflict(ctx, dealroom.ConflictResolution{
		ProjectID:      "p1",
		SessionID:      "s1",
		ConflictType:   dealroom.ConflictTypeConcurrentEdit,
		LocalData:      dealroom.DraftData{InvestmentBlurb: textPtr("local")},
		ServerData:     dealroom.DraftData{InvestmentBlurb: textPtr("server")},
		ConflictFields: []string{"investmentBlurb"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ConflictID == "" {
		t.Fatal("conflict ID not minted")
	}

	resolvedData := dealroom.DraftData{InvestmentBlurb: textPtr("server")}
	resolved, err := drafts.ResolveConflict(ctx, created.ConflictID, dealroom.ResolutionUseServer, &resolvedData)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ResolvedAt == nil || resolved.ResolvedData == nil {
		t.Fatalf("resolution not persisted: %+v", resolved)
	}

	open, err := drafts.UnresolvedConflictsByProject(ctx, "p1")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("open conflicts after resolve = %d", len(open))
	}

	_, err = drafts.ResolveConflict(ctx, "conflict_missing", dealroom.ResolutionMerge, nil)
	var notFound *dealroom.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSQLiteRoomUniquePerProject(t *testing.T) {
	_, rooms, _ := newTestStores(t)
	ctx := context.Background()

	if _, err := rooms.Create(ctx, dealroom.RoomInput{ProjectID: "p1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := rooms.Create(ctx, dealroom.RoomInput{ProjectID: "p1"})
	var conflict *dealroom.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestSQLiteRoomUpdateAndDelete(t *testing.T) {
	_, rooms, clock := newTestStores(t)
	ctx := context.Background()

	photo := dealroom.ShowcasePhoto{Filename: "showcase_1.png", UploadedAt: clock.Now()}
	if _, err := rooms.Create(ctx, dealroom.RoomInput{ProjectID: "p1", ShowcasePhoto: &photo}); err != nil {
		t.Fatalf("create: %v", err)
	}

	blurb := "updated"
	updated, err := rooms.Update(ctx, "p1", dealroom.RoomPatch{InvestmentBlurb: &blurb})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.InvestmentBlurb != "updated" {
		t.Fatalf("blurb = %q", updated.InvestmentBlurb)
	}

	returned, err := rooms.Delete(ctx, "p1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if returned == nil || returned.Filename != "showcase_1.png" {
		t.Fatalf("photo reference = %+v", returned)
	}

	room, err := rooms.FindByProjectID(ctx, "p1")
	if err != nil {
		t.Fatalf("find after delete: %v", err)
	}
	if room != nil {
		t.Fatal("room should be gone")
	}

	_, err = rooms.Update(ctx, "p1", dealroom.RoomPatch{InvestmentBlurb: &blurb})
	var notFound *dealroom.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
