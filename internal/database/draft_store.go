package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

// StoreConfig carries the shared settings for the SQLite-backed stores.
type StoreConfig struct {
	DB         *gorm.DB
	Clock      func() time.Time
	IDProvider dealroom.IDProvider
	// DraftTTL defaults to 24 hours.
	DraftTTL time.Duration
	// RetainVersions defaults to 10.
	RetainVersions int
}

func (cfg StoreConfig) withDefaults() StoreConfig {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDProvider == nil {
		cfg.IDProvider = dealroom.NewUUIDProvider()
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 24 * time.Hour
	}
	if cfg.RetainVersions <= 0 {
		cfg.RetainVersions = 10
	}
	return cfg
}

// DraftStore is the SQLite implementation of dealroom.DraftRepository.
type DraftStore struct {
	db     *gorm.DB
	clock  func() time.Time
	ids    dealroom.IDProvider
	ttl    time.Duration
	retain int
}

// NewDraftStore constructs a DraftStore over an open database handle.
func NewDraftStore(cfg StoreConfig) (*DraftStore, error) {
	if cfg.DB == nil {
		return nil, errors.New("database handle is required")
	}
	cfg = cfg.withDefaults()
	return &DraftStore{
		db:     cfg.DB,
		clock:  cfg.Clock,
		ids:    cfg.IDProvider,
		ttl:    cfg.DraftTTL,
		retain: cfg.RetainVersions,
	}, nil
}

// sweepExpiredLocked removes expired drafts inside the caller's transaction.
func (s *DraftStore) sweepExpired(tx *gorm.DB, now time.Time) (int64, error) {
	result := tx.Where("expires_at_s <= ?", now.Unix()).Delete(&draftRecord{})
	return result.RowsAffected, result.Error
}

// FindDraft returns the live draft at the key, sweeping expired rows as a
// side effect of the read.
func (s *DraftStore) FindDraft(ctx context.Context, projectID, sessionID string) (*dealroom.Draft, error) {
	now := s.clock().UTC()
	var found *dealroom.Draft
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.sweepExpired(tx, now); err != nil {
			return dealroom.NewStorageError("read deal room draft", err)
		}
		var record draftRecord
		err := tx.Where("project_id = ? AND session_id = ?", projectID, sessionID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return dealroom.NewStorageError("read deal room draft", err)
		}
		draft, err := recordToDraft(record)
		if err != nil {
			return err
		}
		found = &draft
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// UpsertDraft creates or updates the draft at (ProjectID, SessionID) in one
// transaction, bumping the version and refreshing the sliding expiration.
func (s *DraftStore) UpsertDraft(ctx context.Context, input dealroom.DraftInput, mode dealroom.DraftWriteMode) (dealroom.Draft, error) {
	now := s.clock().UTC()
	var saved dealroom.Draft
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.sweepExpired(tx, now); err != nil {
			return dealroom.NewStorageError("save deal room draft", err)
		}

		var record draftRecord
		err := tx.Where("project_id = ? AND session_id = ?", input.ProjectID, input.SessionID).Take(&record).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dealroom.NewStorageError("save deal room draft", err)
		}

		if err == nil {
			existing, convErr := recordToDraft(record)
			if convErr != nil {
				return convErr
			}
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
		}

		out, convErr := draftToRecord(saved)
		if convErr != nil {
			return convErr
		}
		if saveErr := tx.Save(&out).Error; saveErr != nil {
			return dealroom.NewStorageError("save deal room draft", saveErr)
		}
		return nil
	})
	if err != nil {
		return dealroom.Draft{}, err
	}
	return saved, nil
}

// DeleteDraft removes the draft at the key; deleting an absent draft is not
// an error.
func (s *DraftStore) DeleteDraft(ctx context.Context, projectID, sessionID string) error {
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND session_id = ?", projectID, sessionID).
		Delete(&draftRecord{}).Error
	if err != nil {
		return dealroom.NewStorageError("delete deal room draft", err)
	}
	return nil
}

// CleanupExpiredDrafts sweeps expired drafts and returns the count removed.
func (s *DraftStore) CleanupExpiredDrafts(ctx context.Context) (int, error) {
	removed, err := s.sweepExpired(s.db.WithContext(ctx), s.clock().UTC())
	if err != nil {
		return 0, dealroom.NewStorageError("delete deal room draft", err)
	}
	return int(removed), nil
}

// CreateVersion appends a snapshot numbered max(existing)+1 for the project
// and prunes beyond the retention bound, all in one transaction.
func (s *DraftStore) CreateVersion(ctx context.Context, projectID string, data dealroom.DealRoom, changeDescription, createdBy string) (dealroom.Version, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return dealroom.Version{}, dealroom.NewStorageError("save deal room version", err)
	}

	now := s.clock().UTC()
	var created dealroom.Version
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var highest int64
		row := tx.Model(&versionRecord{}).
			Where("project_id = ?", projectID).
			Select("COALESCE(MAX(version), 0)").
			Row()
		if err := row.Scan(&highest); err != nil {
			return dealroom.NewStorageError("save deal room version", err)
		}

		created = dealroom.Version{
			ID:                id,
			ProjectID:         projectID,
			Version:           highest + 1,
			Data:              data,
			ChangeDescription: changeDescription,
			CreatedAt:         now,
			CreatedBy:         createdBy,
		}
		record, convErr := versionToRecord(created)
		if convErr != nil {
			return convErr
		}
		if err := tx.Create(&record).Error; err != nil {
			return dealroom.NewStorageError("save deal room version", err)
		}

		var stale []versionRecord
		if err := tx.Where("project_id = ?", projectID).
			Order("version DESC").
			Offset(s.retain).
			Find(&stale).Error; err != nil {
			return dealroom.NewStorageError("save deal room version", err)
		}
		for _, old := range stale {
			if err := tx.Delete(&versionRecord{}, "id = ?", old.ID).Error; err != nil {
				return dealroom.NewStorageError("save deal room version", err)
			}
		}
		return nil
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
	var records []versionRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("version DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, dealroom.NewStorageError("read deal room version", err)
	}

	versions := make([]dealroom.Version, 0, len(records))
	for _, record := range records {
		version, convErr := recordToVersion(record)
		if convErr != nil {
			return nil, convErr
		}
		versions = append(versions, version)
	}
	return versions, nil
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

	record, err := conflictToRecord(conflict)
	if err != nil {
		return dealroom.ConflictResolution{}, err
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return dealroom.ConflictResolution{}, dealroom.NewStorageError("save deal room conflict", err)
	}
	return conflict, nil
}

// ResolveConflict stamps resolution metadata on the record; unknown IDs
// yield a NotFoundError.
func (s *DraftStore) ResolveConflict(ctx context.Context, conflictID string, resolution dealroom.Resolution, resolved *dealroom.DraftData) (dealroom.ConflictResolution, error) {
	now := s.clock().UTC()
	var updated dealroom.ConflictResolution
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record conflictRecord
		err := tx.Where("conflict_id = ?", conflictID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dealroom.NewNotFoundError("conflict %s not found", conflictID)
		}
		if err != nil {
			return dealroom.NewStorageError("read deal room conflict", err)
		}

		conflict, convErr := recordToConflict(record)
		if convErr != nil {
			return convErr
		}
		conflict.Resolution = resolution
		conflict.ResolvedData = resolved
		resolvedAt := now
		conflict.ResolvedAt = &resolvedAt

		out, convErr := conflictToRecord(conflict)
		if convErr != nil {
			return convErr
		}
		if err := tx.Save(&out).Error; err != nil {
			return dealroom.NewStorageError("save deal room conflict", err)
		}
		updated = conflict
		return nil
	})
	if err != nil {
		return dealroom.ConflictResolution{}, err
	}
	return updated, nil
}

// UnresolvedConflictsByProject lists open conflicts for a project.
func (s *DraftStore) UnresolvedConflictsByProject(ctx context.Context, projectID string) ([]dealroom.ConflictResolution, error) {
	var records []conflictRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND resolved_at_s IS NULL", projectID).
		Find(&records).Error
	if err != nil {
		return nil, dealroom.NewStorageError("read deal room conflict", err)
	}

	conflicts := make([]dealroom.ConflictResolution, 0, len(records))
	for _, record := range records {
		conflict, convErr := recordToConflict(record)
		if convErr != nil {
			return nil, convErr
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts, nil
}

// ConflictByID returns the conflict record, or nil when unknown.
func (s *DraftStore) ConflictByID(ctx context.Context, conflictID string) (*dealroom.ConflictResolution, error) {
	var record conflictRecord
	err := s.db.WithContext(ctx).Where("conflict_id = ?", conflictID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dealroom.NewStorageError("read deal room conflict", err)
	}
	conflict, convErr := recordToConflict(record)
	if convErr != nil {
		return nil, convErr
	}
	return &conflict, nil
}
