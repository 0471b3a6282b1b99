package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

// RoomStore is the SQLite implementation of dealroom.DealRoomRepository.
type RoomStore struct {
	db    *gorm.DB
	clock func() time.Time
	ids   dealroom.IDProvider
}

// NewRoomStore constructs a RoomStore over an open database handle.
func NewRoomStore(cfg StoreConfig) (*RoomStore, error) {
	if cfg.DB == nil {
		return nil, errors.New("database handle is required")
	}
	cfg = cfg.withDefaults()
	return &RoomStore{db: cfg.DB, clock: cfg.Clock, ids: cfg.IDProvider}, nil
}

// FindByProjectID returns the room for the project, or nil when none exists.
func (s *RoomStore) FindByProjectID(ctx context.Context, projectID string) (*dealroom.DealRoom, error) {
	return s.find(ctx, "project_id = ?", projectID)
}

// FindByID returns the room with the given record ID, or nil.
func (s *RoomStore) FindByID(ctx context.Context, id string) (*dealroom.DealRoom, error) {
	return s.find(ctx, "id = ?", id)
}

func (s *RoomStore) find(ctx context.Context, query string, arg any) (*dealroom.DealRoom, error) {
	var record roomRecord
	err := s.db.WithContext(ctx).Where(query, arg).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dealroom.NewStorageError("read deal room", err)
	}
	room, convErr := recordToRoom(record)
	if convErr != nil {
		return nil, convErr
	}
	return &room, nil
}

// Create persists a new room, rejecting a second room for the same project
// with a ConflictError.
func (s *RoomStore) Create(ctx context.Context, input dealroom.RoomInput) (dealroom.DealRoom, error) {
	if input.ProjectID == "" {
		return dealroom.DealRoom{}, dealroom.NewValidationError("projectId is required")
	}

	id, err := s.ids.NewID()
	if err != nil {
		return dealroom.DealRoom{}, dealroom.NewStorageError("save deal room", err)
	}

	now := s.clock().UTC()
	keyInfo, err := dealroom.MintKeyInfo(input.KeyInfo, s.ids)
	if err != nil {
		return dealroom.DealRoom{}, err
	}
	externalLinks, err := dealroom.MintExternalLinks(input.ExternalLinks, s.ids)
	if err != nil {
		return dealroom.DealRoom{}, err
	}

	created := dealroom.DealRoom{
		ID:                id,
		ProjectID:         input.ProjectID,
		ShowcasePhoto:     input.ShowcasePhoto,
		InvestmentBlurb:   input.InvestmentBlurb,
		InvestmentSummary: input.InvestmentSummary,
		KeyInfo:           keyInfo,
		ExternalLinks:     externalLinks,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing roomRecord
		err := tx.Where("project_id = ?", input.ProjectID).Take(&existing).Error
		if err == nil {
			return dealroom.NewConflictError("deal room already exists for project %s", input.ProjectID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dealroom.NewStorageError("save deal room", err)
		}

		record, convErr := roomToRecord(created)
		if convErr != nil {
			return convErr
		}
		if err := tx.Create(&record).Error; err != nil {
			return dealroom.NewStorageError("save deal room", err)
		}
		return nil
	})
	if err != nil {
		return dealroom.DealRoom{}, err
	}
	return created, nil
}

// Update applies a sparse patch to an existing room; a missing room yields a
// NotFoundError.
func (s *RoomStore) Update(ctx context.Context, projectID string, patch dealroom.RoomPatch) (dealroom.DealRoom, error) {
	now := s.clock().UTC()
	var updated dealroom.DealRoom
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record roomRecord
		err := tx.Where("project_id = ?", projectID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dealroom.NewNotFoundError("deal room not found for project %s", projectID)
		}
		if err != nil {
			return dealroom.NewStorageError("read deal room", err)
		}

		room, convErr := recordToRoom(record)
		if convErr != nil {
			return convErr
		}
		if err := dealroom.ApplyRoomPatch(&room, patch, s.ids, now); err != nil {
			return err
		}

		out, convErr := roomToRecord(room)
		if convErr != nil {
			return convErr
		}
		if err := tx.Save(&out).Error; err != nil {
			return dealroom.NewStorageError("save deal room", err)
		}
		updated = room
		return nil
	})
	if err != nil {
		return dealroom.DealRoom{}, err
	}
	return updated, nil
}

// Delete removes the room record and returns the showcase photo reference it
// held, if any.
func (s *RoomStore) Delete(ctx context.Context, projectID string) (*dealroom.ShowcasePhoto, error) {
	var photo *dealroom.ShowcasePhoto
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record roomRecord
		err := tx.Where("project_id = ?", projectID).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dealroom.NewNotFoundError("deal room not found for project %s", projectID)
		}
		if err != nil {
			return dealroom.NewStorageError("read deal room", err)
		}

		room, convErr := recordToRoom(record)
		if convErr != nil {
			return convErr
		}
		photo = room.ShowcasePhoto

		if err := tx.Delete(&roomRecord{}, "project_id = ?", projectID).Error; err != nil {
			return dealroom.NewStorageError("delete deal room", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}
