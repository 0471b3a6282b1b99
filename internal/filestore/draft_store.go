package filestore

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

const (
	draftsFile    = "deal-room-drafts.json"
	versionsFile  = "deal-room-versions.json"
	conflictsFile = "deal-room-conflicts.json"
	roomsFile     = "deal-rooms.json"

	// DefaultDraftTTL is the sliding draft expiration window.
	DefaultDraftTTL = 24 * time.Hour
	// DefaultRetainVersions bounds the per-project version history.
	DefaultRetainVersions = 10
)

// Config carries the shared settings for the file-backed stores.
type Config struct {
	// Fs defaults to the OS filesystem; tests substitute an in-memory one.
	Fs         afero.Fs
	DataDir    string
	UploadsDir string
	Clock      func() time.Time
	IDProvider dealroom.IDProvider
	// DraftTTL defaults to 24 hours.
	DraftTTL time.Duration
	// RetainVersions defaults to 10.
	RetainVersions int
	Logger         *zap.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDProvider == nil {
		cfg.IDProvider = dealroom.NewUUIDProvider()
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = DefaultDraftTTL
	}
	if cfg.RetainVersions <= 0 {
		cfg.RetainVersions = DefaultRetainVersions
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

// DraftStore is the flat-file implementation of dealroom.DraftRepository.
// Drafts, versions, and conflicts each live in their own JSON array file
// under the data directory.
type DraftStore struct {
	drafts    *collection[dealroom.Draft]
	versions  *collection[dealroom.Version]
	conflicts *collection[dealroom.ConflictResolution]
	clock     func() time.Time
	ids       dealroom.IDProvider
	ttl       time.Duration
	retain    int
}

// NewDraftStore constructs a DraftStore rooted at cfg.DataDir.
func NewDraftStore(cfg Config) (*DraftStore, error) {
	if cfg.DataDir == "" {
		return nil, dealroom.NewValidationError("data directory is required")
	}
	cfg = cfg.withDefaults()
	cfg.Logger.Info("draft store initialized",
		zap.String("data_dir", cfg.DataDir),
		zap.Duration("draft_ttl", cfg.DraftTTL),
		zap.Int("retain_versions", cfg.RetainVersions))

	return &DraftStore{
		drafts:    newCollection[dealroom.Draft](cfg.Fs, filepath.Join(cfg.DataDir, draftsFile), "deal room draft"),
		versions:  newCollection[dealroom.Version](cfg.Fs, filepath.Join(cfg.DataDir, versionsFile), "deal room version"),
		conflicts: newCollection[dealroom.ConflictResolution](cfg.Fs, filepath.Join(cfg.DataDir, conflictsFile), "deal room conflict"),
		clock:     cfg.Clock,
		ids:       cfg.IDProvider,
		ttl:       cfg.DraftTTL,
		retain:    cfg.RetainVersions,
	}, nil
}

// partitionLive splits drafts into live and expired.
func partitionLive(items []dealroom.Draft, now time.Time) (live []dealroom.Draft, expired int) {
	live = make([]dealroom.Draft, 0, len(items))
	for _, draft := range items {
		if draft.Expired(now) {
			expired++
			continue
		}
		live = append(live, draft)
	}
	return live, expired
}

// FindDraft returns the live draft at the key, pruning any expired rows it
// encounters as a side effect.
func (s *DraftStore) FindDraft(ctx context.Context, projectID, sessionID string) (*dealroom.Draft, error) {
	now := s.clock()
	var found *dealroom.Draft
	err := s.drafts.mutate(func(items []dealroom.Draft) ([]dealroom.Draft, bool, error) {
		live, expired := partitionLive(items, now)
		for i := range live {
			if live[i].ProjectID == projectID && live[i].SessionID == sessionID {
				match := live[i]
				found = &match
				break
			}
		}
		return live, expired > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// UpsertDraft writes the draft at (ProjectID, SessionID). An existing draft
// keeps its identity (ID, CreatedAt, LastSavedVersion) and has its version
// bumped; the payload is replaced or merged per mode. The sliding expiration
// is refreshed either way.
func (s *DraftStore) UpsertDraft(ctx context.Context, input dealroom.DraftInput, mode dealroom.DraftWriteMode) (dealroom.Draft, error) {
	now := s.clock().UTC()
	var saved dealroom.Draft
	err := s.drafts.mutate(func(items []dealroom.Draft) ([]dealroom.Draft, bool, error) {
		live, _ := partitionLive(items, now)

		index := -1
		for i := range live {
			if live[i].ProjectID == input.ProjectID && live[i].SessionID == input.SessionID {
				index = i
				break
			}
		}

		if index >= 0 {
			existing := live[index]
			data := input.DraftData
			if mode == dealroom.DraftWriteMerge {
				data = dealroom.MergeDraftData(input.DraftData, existing.DraftData, dealroom.ResolutionMerge)
			}
			saved = dealroom.Draft{
				ID:               existing.ID,
				ProjectID:        existing.ProjectID,
				SessionID:        existing.SessionID,
				UserID:           input.UserID,
				DraftData:        data,
				Version:          existing.Version + 1,
				LastSavedVersion: existing.LastSavedVersion,
				IsAutoSave:       input.IsAutoSave,
				CreatedAt:        existing.CreatedAt,
				UpdatedAt:        now,
				ExpiresAt:        now.Add(s.ttl),
			}
			live[index] = saved
		} else {
			saved = dealroom.Draft{
				ID:         dealroom.NewDraftID(now),
				ProjectID:  input.ProjectID,
				SessionID:  input.SessionID,
				UserID:     input.UserID,
				DraftData:  input.DraftData,
				Version:    1,
				IsAutoSave: input.IsAutoSave,
				CreatedAt:  now,
				UpdatedAt:  now,
				ExpiresAt:  now.Add(s.ttl),
			}
			live = append(live, saved)
		}
		return live, true, nil
	})
	if err != nil {
		return dealroom.Draft{}, err
	}
	return saved, nil
}

// DeleteDraft removes the draft at the key. Deleting an absent draft is a
// no-op.
func (s *DraftStore) DeleteDraft(ctx context.Context, projectID, sessionID string) error {
	now := s.clock()
	return s.drafts.mutate(func(items []dealroom.Draft) ([]dealroom.Draft, bool, error) {
		live, expired := partitionLive(items, now)
		kept := live[:0]
		removed := false
		for _, draft := range live {
			if draft.ProjectID == projectID && draft.SessionID == sessionID {
				removed = true
				continue
			}
			kept = append(kept, draft)
		}
		return kept, removed || expired > 0, nil
	})
}

// CleanupExpiredDrafts sweeps expired drafts and returns the count removed.
func (s *DraftStore) CleanupExpiredDrafts(ctx context.Context) (int, error) {
	now := s.clock()
	removed := 0
	err := s.drafts.mutate(func(items []dealroom.Draft) ([]dealroom.Draft, bool, error) {
		live, expired := partitionLive(items, now)
		removed = expired
		return live, expired > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CreateVersion appends a snapshot numbered max(existing)+1 for the project
// and prunes the history down to the retention bound. Numbering survives
// pruning gaps because it derives from the highest retained number, not the
// count.
func (s *DraftStore) CreateVersion(ctx context.Context, projectID string, data dealroom.DealRoom, changeDescription, createdBy string) (dealroom.Version, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return dealroom.Version{}, dealroom.NewStorageError("save deal room version", err)
	}

	now := s.clock().UTC()
	var created dealroom.Version
	err = s.versions.mutate(func(items []dealroom.Version) ([]dealroom.Version, bool, error) {
		next := int64(1)
		for _, v := range items {
			if v.ProjectID == projectID && v.Version >= next {
				next = v.Version + 1
			}
		}

		created = dealroom.Version{
			ID:                id,
			ProjectID:         projectID,
			Version:           next,
			Data:              data,
			ChangeDescription: changeDescription,
			CreatedAt:         now,
			CreatedBy:         createdBy,
		}
		items = append(items, created)

		var mine []dealroom.Version
		var others []dealroom.Version
		for _, v := range items {
			if v.ProjectID == projectID {
				mine = append(mine, v)
			} else {
				others = append(others, v)
			}
		}
		sort.Slice(mine, func(i, j int) bool { return mine[i].Version > mine[j].Version })
		if len(mine) > s.retain {
			mine = mine[:s.retain]
		}
		return append(others, mine...), true, nil
	})
	if err != nil {
		return dealroom.Version{}, err
	}
	return created, nil
}

// VersionsByProject lists snapshots sorted by version descending, truncated
// to limit (the retention bound when limit is not positive).
func (s *DraftStore) VersionsByProject(ctx context.Context, projectID string, limit int) ([]dealroom.Version, error) {
	if limit <= 0 {
		limit = s.retain
	}
	var result []dealroom.Version
	err := s.versions.view(func(items []dealroom.Version) error {
		for _, v := range items {
			if v.ProjectID == projectID {
				result = append(result, v)
			}
		}
		sort.Slice(result, func(i, j int) bool { return result[i].Version > result[j].Version })
		if len(result) > limit {
			result = result[:limit]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateConflict appends a conflict record, assigning an identifier and
// timestamp when the caller left them unset.
func (s *DraftStore) CreateConflict(ctx context.Context, conflict dealroom.ConflictResolution) (dealroom.ConflictResolution, error) {
	now := s.clock().UTC()
	if conflict.ConflictID == "" {
		conflict.ConflictID = dealroom.NewConflictID(now)
	}
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = now
	}
	err := s.conflicts.mutate(func(items []dealroom.ConflictResolution) ([]dealroom.ConflictResolution, bool, error) {
		return append(items, conflict), true, nil
	})
	if err != nil {
		return dealroom.ConflictResolution{}, err
	}
	return conflict, nil
}

// ResolveConflict stamps resolution metadata on the record; unknown IDs
// yield a NotFoundError.
func (s *DraftStore) ResolveConflict(ctx context.Context, conflictID string, resolution dealroom.Resolution, resolved *dealroom.DraftData) (dealroom.ConflictResolution, error) {
	now := s.clock().UTC()
	var updated dealroom.ConflictResolution
	err := s.conflicts.mutate(func(items []dealroom.ConflictResolution) ([]dealroom.ConflictResolution, bool, error) {
		for i := range items {
			if items[i].ConflictID == conflictID {
				items[i].Resolution = resolution
				items[i].ResolvedData = resolved
				resolvedAt := now
				items[i].ResolvedAt = &resolvedAt
				updated = items[i]
				return items, true, nil
			}
		}
		return items, false, dealroom.NewNotFoundError("conflict %s not found", conflictID)
	})
	if err != nil {
		return dealroom.ConflictResolution{}, err
	}
	return updated, nil
}

// UnresolvedConflictsByProject lists open conflicts for a project.
func (s *DraftStore) UnresolvedConflictsByProject(ctx context.Context, projectID string) ([]dealroom.ConflictResolution, error) {
	var result []dealroom.ConflictResolution
	err := s.conflicts.view(func(items []dealroom.ConflictResolution) error {
		for _, c := range items {
			if c.ProjectID == projectID && !c.Resolved() {
				result = append(result, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConflictByID returns the conflict record, or nil when unknown.
func (s *DraftStore) ConflictByID(ctx context.Context, conflictID string) (*dealroom.ConflictResolution, error) {
	var found *dealroom.ConflictResolution
	err := s.conflicts.view(func(items []dealroom.ConflictResolution) error {
		for i := range items {
			if items[i].ConflictID == conflictID {
				match := items[i]
				found = &match
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
