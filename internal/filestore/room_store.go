package filestore

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

// RoomStore is the flat-file implementation of dealroom.DealRoomRepository.
type RoomStore struct {
	rooms *collection[dealroom.DealRoom]
	clock func() time.Time
	ids   dealroom.IDProvider
}

// NewRoomStore constructs a RoomStore rooted at cfg.DataDir.
func NewRoomStore(cfg Config) (*RoomStore, error) {
	if cfg.DataDir == "" {
		return nil, dealroom.NewValidationError("data directory is required")
	}
	cfg = cfg.withDefaults()
	cfg.Logger.Info("deal room store initialized", zap.String("data_dir", cfg.DataDir))

	return &RoomStore{
		rooms: newCollection[dealroom.DealRoom](cfg.Fs, filepath.Join(cfg.DataDir, roomsFile), "deal room"),
		clock: cfg.Clock,
		ids:   cfg.IDProvider,
	}, nil
}

// FindByProjectID returns the room for the project, or nil when none exists.
func (s *RoomStore) FindByProjectID(ctx context.Context, projectID string) (*dealroom.DealRoom, error) {
	return s.find(func(room dealroom.DealRoom) bool { return room.ProjectID == projectID })
}

// FindByID returns the room with the given record ID, or nil.
func (s *RoomStore) FindByID(ctx context.Context, id string) (*dealroom.DealRoom, error) {
	return s.find(func(room dealroom.DealRoom) bool { return room.ID == id })
}

func (s *RoomStore) find(match func(dealroom.DealRoom) bool) (*dealroom.DealRoom, error) {
	var found *dealroom.DealRoom
	err := s.rooms.view(func(items []dealroom.DealRoom) error {
		for i := range items {
			if match(items[i]) {
				room := items[i]
				found = &room
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

// Create persists a new room. A second room for the same project is rejected
// with a ConflictError. Item IDs are minted server-side; a missing item
// order defaults to the array index.
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

	err = s.rooms.mutate(func(items []dealroom.DealRoom) ([]dealroom.DealRoom, bool, error) {
		for _, room := range items {
			if room.ProjectID == input.ProjectID {
				return items, false, dealroom.NewConflictError("deal room already exists for project %s", input.ProjectID)
			}
		}
		return append(items, created), true, nil
	})
	if err != nil {
		return dealroom.DealRoom{}, err
	}
	return created, nil
}

// Update applies a sparse patch to an existing room. Present list fields
// replace the stored list wholesale, re-minting every item ID. A missing
// room yields a NotFoundError; this store never implicitly creates.
func (s *RoomStore) Update(ctx context.Context, projectID string, patch dealroom.RoomPatch) (dealroom.DealRoom, error) {
	now := s.clock().UTC()
	var updated dealroom.DealRoom
	err := s.rooms.mutate(func(items []dealroom.DealRoom) ([]dealroom.DealRoom, bool, error) {
		for i := range items {
			if items[i].ProjectID != projectID {
				continue
			}
			room := items[i]
			if err := dealroom.ApplyRoomPatch(&room, patch, s.ids, now); err != nil {
				return items, false, err
			}
			items[i] = room
			updated = room
			return items, true, nil
		}
		return items, false, dealroom.NewNotFoundError("deal room not found for project %s", projectID)
	})
	if err != nil {
		return dealroom.DealRoom{}, err
	}
	return updated, nil
}

// Delete removes the room record and returns the showcase photo reference it
// held so the caller can dispose of the blob.
func (s *RoomStore) Delete(ctx context.Context, projectID string) (*dealroom.ShowcasePhoto, error) {
	var photo *dealroom.ShowcasePhoto
	err := s.rooms.mutate(func(items []dealroom.DealRoom) ([]dealroom.DealRoom, bool, error) {
		for i := range items {
			if items[i].ProjectID == projectID {
				photo = items[i].ShowcasePhoto
				return append(items[:i], items[i+1:]...), true, nil
			}
		}
		return items, false, dealroom.NewNotFoundError("deal room not found for project %s", projectID)
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}
