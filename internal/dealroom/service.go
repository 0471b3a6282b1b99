package dealroom

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingRoomRepository  = errors.New("deal room repository is required")
	errMissingDraftRepository = errors.New("draft repository is required")
	errMissingPhotoStore      = errors.New("showcase photo store is required")
	noOpLogger                = zap.NewNop()
)

const (
	opGetOrCreate     = "dealroom.get_or_create"
	opUpdateRoom      = "dealroom.update_room"
	opUploadPhoto     = "dealroom.upload_photo"
	opRemovePhoto     = "dealroom.remove_photo"
	opDeleteRoom      = "dealroom.delete_room"
	opSaveDraft       = "dealroom.save_draft"
	opRecoverDraft    = "dealroom.recover_draft"
	opPublishDraft    = "dealroom.publish_draft"
	opSaveStatus      = "dealroom.save_status"
	opDetectConflict  = "dealroom.detect_conflict"
	opResolveConflict = "dealroom.resolve_conflict"
	opListVersions    = "dealroom.list_versions"
	opCleanupDrafts   = "dealroom.cleanup_drafts"
)

// ServiceConfig wires the orchestrator's collaborators.
type ServiceConfig struct {
	Rooms  DealRoomRepository
	Drafts DraftRepository
	Photos ShowcasePhotoStore
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service coordinates the draft lifecycle across the room store, the draft
// store, and the photo store. It holds no persistent state of its own.
type Service struct {
	rooms  DealRoomRepository
	drafts DraftRepository
	photos ShowcasePhotoStore
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Rooms == nil {
		return nil, errMissingRoomRepository
	}
	if cfg.Drafts == nil {
		return nil, errMissingDraftRepository
	}
	if cfg.Photos == nil {
		return nil, errMissingPhotoStore
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		rooms:  cfg.Rooms,
		drafts: cfg.Drafts,
		photos: cfg.Photos,
		clock:  clock,
		logger: logger,
	}, nil
}

// GetOrCreateDealRoom returns the project's deal room, creating an empty one
// on first access. Idempotent.
func (s *Service) GetOrCreateDealRoom(ctx context.Context, projectID string) (DealRoom, error) {
	if projectID == "" {
		return DealRoom{}, NewValidationError("projectId is required")
	}

	existing, err := s.rooms.FindByProjectID(ctx, projectID)
	if err != nil {
		s.logError(opGetOrCreate, "room_lookup_failed", err, zap.String("project_id", projectID))
		return DealRoom{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	created, err := s.rooms.Create(ctx, RoomInput{ProjectID: projectID})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			// Another caller created the room between our lookup and create.
			room, findErr := s.rooms.FindByProjectID(ctx, projectID)
			if findErr == nil && room != nil {
				return *room, nil
			}
		}
		s.logError(opGetOrCreate, "room_create_failed", err, zap.String("project_id", projectID))
		return DealRoom{}, err
	}
	return created, nil
}

// UpdateInvestmentBlurb validates and replaces the blurb on an existing room.
func (s *Service) UpdateInvestmentBlurb(ctx context.Context, projectID, text string) (DealRoom, error) {
	if err := ValidateInvestmentBlurb(text); err != nil {
		return DealRoom{}, err
	}
	return s.updateRoom(ctx, projectID, RoomPatch{InvestmentBlurb: &text})
}

// UpdateInvestmentSummary validates and replaces the summary on an existing
// room.
func (s *Service) UpdateInvestmentSummary(ctx context.Context, projectID, text string) (DealRoom, error) {
	if err := ValidateInvestmentSummary(text); err != nil {
		return DealRoom{}, err
	}
	return s.updateRoom(ctx, projectID, RoomPatch{InvestmentSummary: &text})
}

// UpdateKeyInfo validates and replaces the full key info list.
func (s *Service) UpdateKeyInfo(ctx context.Context, projectID string, items []KeyInfoItem) (DealRoom, error) {
	if err := ValidateKeyInfo(items); err != nil {
		return DealRoom{}, err
	}
	return s.updateRoom(ctx, projectID, RoomPatch{KeyInfo: &items})
}

// UpdateExternalLinks validates and replaces the full external links list.
func (s *Service) UpdateExternalLinks(ctx context.Context, projectID string, items []ExternalLinkItem) (DealRoom, error) {
	if err := ValidateExternalLinks(items); err != nil {
		return DealRoom{}, err
	}
	return s.updateRoom(ctx, projectID, RoomPatch{ExternalLinks: &items})
}

// UpdateDealRoom validates a sparse payload and persists it in one call.
func (s *Service) UpdateDealRoom(ctx context.Context, projectID string, data DraftData) (DealRoom, error) {
	if result := ValidatePatch(data); !result.IsValid {
		return DealRoom{}, NewValidationError(result.Errors...)
	}
	return s.updateRoom(ctx, projectID, PatchFromDraftData(data))
}

func (s *Service) updateRoom(ctx context.Context, projectID string, patch RoomPatch) (DealRoom, error) {
	updated, err := s.rooms.Update(ctx, projectID, patch)
	if err != nil {
		s.logError(opUpdateRoom, "room_update_failed", err, zap.String("project_id", projectID))
		return DealRoom{}, err
	}
	return updated, nil
}

// UploadShowcasePhoto stores the image blob and folds the resulting metadata
// into the room record. A previously referenced blob is disposed of
// best-effort.
func (s *Service) UploadShowcasePhoto(ctx context.Context, projectID string, content []byte, originalName, mimeType string) (ShowcasePhoto, error) {
	if len(content) == 0 {
		return ShowcasePhoto{}, NewValidationError("photo content is required")
	}

	room, err := s.GetOrCreateDealRoom(ctx, projectID)
	if err != nil {
		return ShowcasePhoto{}, err
	}
	previous := room.ShowcasePhoto

	photo, err := s.photos.Save(ctx, content, originalName, mimeType)
	if err != nil {
		s.logError(opUploadPhoto, "photo_save_failed", err, zap.String("project_id", projectID))
		return ShowcasePhoto{}, err
	}

	if _, err := s.rooms.Update(ctx, projectID, RoomPatch{ShowcasePhoto: &photo}); err != nil {
		s.logError(opUploadPhoto, "room_update_failed", err, zap.String("project_id", projectID))
		return ShowcasePhoto{}, err
	}

	if previous != nil && previous.Filename != photo.Filename {
		s.disposePhoto(ctx, opUploadPhoto, projectID, previous.Filename)
	}
	return photo, nil
}

// RemoveShowcasePhoto clears the photo reference and deletes the blob
// best-effort.
func (s *Service) RemoveShowcasePhoto(ctx context.Context, projectID string) error {
	room, err := s.rooms.FindByProjectID(ctx, projectID)
	if err != nil {
		return err
	}
	if room == nil {
		return NewNotFoundError("deal room not found for project %s", projectID)
	}
	if room.ShowcasePhoto == nil {
		return nil
	}

	filename := room.ShowcasePhoto.Filename
	if _, err := s.rooms.Update(ctx, projectID, RoomPatch{ClearShowcasePhoto: true}); err != nil {
		s.logError(opRemovePhoto, "room_update_failed", err, zap.String("project_id", projectID))
		return err
	}
	s.disposePhoto(ctx, opRemovePhoto, projectID, filename)
	return nil
}

// GetShowcasePhoto returns the photo metadata, or nil when the project has
// no room or no photo.
func (s *Service) GetShowcasePhoto(ctx context.Context, projectID string) (*ShowcasePhoto, error) {
	room, err := s.rooms.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, nil
	}
	return room.ShowcasePhoto, nil
}

// OpenShowcasePhoto returns the photo metadata together with its content for
// file responses. A missing photo yields a NotFoundError.
func (s *Service) OpenShowcasePhoto(ctx context.Context, projectID string) (ShowcasePhoto, []byte, error) {
	photo, err := s.GetShowcasePhoto(ctx, projectID)
	if err != nil {
		return ShowcasePhoto{}, nil, err
	}
	if photo == nil {
		return ShowcasePhoto{}, nil, NewNotFoundError("showcase photo not found for project %s", projectID)
	}
	content, err := s.photos.Read(ctx, photo.Filename)
	if err != nil {
		return ShowcasePhoto{}, nil, err
	}
	return *photo, content, nil
}

// DeleteDealRoom removes the room record for project teardown and disposes
// of its showcase photo blob best-effort.
func (s *Service) DeleteDealRoom(ctx context.Context, projectID string) error {
	photo, err := s.rooms.Delete(ctx, projectID)
	if err != nil {
		s.logError(opDeleteRoom, "room_delete_failed", err, zap.String("project_id", projectID))
		return err
	}
	if photo != nil {
		s.disposePhoto(ctx, opDeleteRoom, projectID, photo.Filename)
	}
	return nil
}

func (s *Service) disposePhoto(ctx context.Context, operation, projectID, filename string) {
	if err := s.photos.Delete(ctx, filename); err != nil {
		s.logger.Warn("showcase photo file deletion failed",
			zap.String("operation", operation),
			zap.String("project_id", projectID),
			zap.String("filename", filename),
			zap.Error(err))
	}
}

// SaveDraftInput carries one draft save request.
type SaveDraftInput struct {
	ProjectID  string
	SessionID  string
	UserID     string
	DraftData  DraftData
	IsAutoSave bool
}

// SaveDraft validates the payload and upserts the session's draft, bumping
// its version. Auto-save and manual saves are indistinguishable beyond the
// IsAutoSave flag carried on the draft.
func (s *Service) SaveDraft(ctx context.Context, input SaveDraftInput) (Draft, error) {
	result := ValidateDraftInput(input.ProjectID, input.SessionID, input.DraftData)
	if !result.IsValid {
		return Draft{}, NewValidationError(result.Errors...)
	}

	draft, err := s.drafts.UpsertDraft(ctx, DraftInput{
		ProjectID:  input.ProjectID,
		SessionID:  input.SessionID,
		UserID:     input.UserID,
		DraftData:  input.DraftData,
		IsAutoSave: input.IsAutoSave,
	}, DraftWriteReplace)
	if err != nil {
		s.logError(opSaveDraft, "draft_upsert_failed", err,
			zap.String("project_id", input.ProjectID),
			zap.String("session_id", input.SessionID))
		return Draft{}, err
	}
	return draft, nil
}

// RecoveredDraft is the view returned to clients offering to restore unsaved
// work.
type RecoveredDraft struct {
	DraftData DraftData `json:"draftData"`
	Version   int64     `json:"version"`
}

// RecoverUnsavedChanges returns the session's live draft payload, or nil
// when no unexpired draft exists.
func (s *Service) RecoverUnsavedChanges(ctx context.Context, projectID, sessionID string) (*RecoveredDraft, error) {
	draft, err := s.drafts.FindDraft(ctx, projectID, sessionID)
	if err != nil {
		s.logError(opRecoverDraft, "draft_lookup_failed", err,
			zap.String("project_id", projectID),
			zap.String("session_id", sessionID))
		return nil, err
	}
	if draft == nil {
		return nil, nil
	}
	return &RecoveredDraft{DraftData: draft.DraftData, Version: draft.Version}, nil
}

// PublishResult reports a successful publish.
type PublishResult struct {
	DealRoom DealRoom `json:"dealRoom"`
	Version  Version  `json:"version"`
}

// PublishDraft merges the session's draft onto the published room, snapshots
// the result into the version history, and deletes the draft. If persisting
// or snapshotting fails the draft is retained so the caller can retry or
// resolve.
func (s *Service) PublishDraft(ctx context.Context, projectID, sessionID, changeDescription string) (PublishResult, error) {
	draft, err := s.drafts.FindDraft(ctx, projectID, sessionID)
	if err != nil {
		s.logError(opPublishDraft, "draft_lookup_failed", err,
			zap.String("project_id", projectID),
			zap.String("session_id", sessionID))
		return PublishResult{}, err
	}
	if draft == nil {
		return PublishResult{}, NewNotFoundError("no draft found to publish for project %s", projectID)
	}

	if _, err := s.GetOrCreateDealRoom(ctx, projectID); err != nil {
		return PublishResult{}, err
	}

	merged, err := s.rooms.Update(ctx, projectID, PatchFromDraftData(draft.DraftData))
	if err != nil {
		s.logError(opPublishDraft, "room_update_failed", err,
			zap.String("project_id", projectID),
			zap.String("session_id", sessionID))
		return PublishResult{}, err
	}

	version, err := s.drafts.CreateVersion(ctx, projectID, merged, changeDescription, draft.UserID)
	if err != nil {
		s.logError(opPublishDraft, "version_create_failed", err,
			zap.String("project_id", projectID),
			zap.String("session_id", sessionID))
		return PublishResult{}, err
	}

	if err := s.drafts.DeleteDraft(ctx, projectID, sessionID); err != nil {
		s.logError(opPublishDraft, "draft_delete_failed", err,
			zap.String("project_id", projectID),
			zap.String("session_id", sessionID))
		return PublishResult{}, err
	}

	return PublishResult{DealRoom: merged, Version: version}, nil
}

// Save status values surfaced to editing clients.
const (
	SaveStatusSaved    = "saved"
	SaveStatusSaving   = "saving"
	SaveStatusUnsaved  = "unsaved"
	SaveStatusError    = "error"
	SaveStatusConflict = "conflict"
)

// SaveStatus is a derived view of a session's draft state, computed purely
// from stored fields at call time.
type SaveStatus struct {
	Status            string     `json:"status"`
	LastSaved         *time.Time `json:"lastSaved,omitempty"`
	HasUnsavedChanges bool       `json:"hasUnsavedChanges"`
	Version           int64      `json:"version"`
}

// GetSaveStatus compares the draft's version against its last published
// version. An unresolved conflict for the session takes precedence.
func (s *Service) GetSaveStatus(ctx context.Context, projectID, sessionID string) (SaveStatus, error) {
	draft, err := s.drafts.FindDraft(ctx, projectID, sessionID)
	if err != nil {
		s.logError(opSaveStatus, "draft_lookup_failed", err,
			zap.String("project_id", projectID),
			zap.String("session_id", sessionID))
		return SaveStatus{}, err
	}
	if draft == nil {
		return SaveStatus{Status: SaveStatusSaved, HasUnsavedChanges: false, Version: 0}, nil
	}

	unresolved, err := s.drafts.UnresolvedConflictsByProject(ctx, projectID)
	if err != nil {
		s.logError(opSaveStatus, "conflict_lookup_failed", err, zap.String("project_id", projectID))
		return SaveStatus{}, err
	}
	for _, conflict := range unresolved {
		if conflict.SessionID == sessionID {
			lastSaved := draft.UpdatedAt
			return SaveStatus{
				Status:            SaveStatusConflict,
				LastSaved:         &lastSaved,
				HasUnsavedChanges: true,
				Version:           draft.Version,
			}, nil
		}
	}

	lastSaved := draft.UpdatedAt
	status := SaveStatusUnsaved
	hasUnsaved := true
	if draft.LastSavedVersion != nil && *draft.LastSavedVersion == draft.Version {
		status = SaveStatusSaved
		hasUnsaved = false
	}
	return SaveStatus{
		Status:            status,
		LastSaved:         &lastSaved,
		HasUnsavedChanges: hasUnsaved,
		Version:           draft.Version,
	}, nil
}

// DetectPublishConflict compares the session's draft against the published
// room and records a conflict when any field both sides define disagrees.
// Returns nil when nothing collides.
func (s *Service) DetectPublishConflict(ctx context.Context, projectID, sessionID string) (*ConflictResolution, error) {
	draft, err := s.drafts.FindDraft(ctx, projectID, sessionID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, NewNotFoundError("no draft found for project %s", projectID)
	}

	room, err := s.rooms.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, nil
	}

	serverData := room.SparseData()
	fields := DetectFieldConflicts(draft.DraftData, serverData)
	if len(fields) == 0 {
		return nil, nil
	}

	serverVersion := int64(0)
	versions, err := s.drafts.VersionsByProject(ctx, projectID, 1)
	if err != nil {
		s.logError(opDetectConflict, "version_lookup_failed", err, zap.String("project_id", projectID))
		return nil, err
	}
	if len(versions) > 0 {
		serverVersion = versions[0].Version
	}

	now := s.clock().UTC()
	conflict, err := s.drafts.CreateConflict(ctx, ConflictResolution{
		ConflictID:     NewConflictID(now),
		ProjectID:      projectID,
		SessionID:      sessionID,
		ConflictType:   ConflictTypeConcurrentEdit,
		LocalVersion:   draft.Version,
		ServerVersion:  serverVersion,
		LocalData:      draft.DraftData,
		ServerData:     serverData,
		ConflictFields: fields,
		CreatedAt:      now,
	})
	if err != nil {
		s.logError(opDetectConflict, "conflict_create_failed", err, zap.String("project_id", projectID))
		return nil, err
	}
	return &conflict, nil
}

// ResolveConflict applies the chosen strategy to a recorded conflict,
// computing the resolved payload and stamping resolvedAt. A conflict can be
// resolved exactly once.
func (s *Service) ResolveConflict(ctx context.Context, conflictID string, resolution Resolution) (ConflictResolution, error) {
	conflict, err := s.drafts.ConflictByID(ctx, conflictID)
	if err != nil {
		return ConflictResolution{}, err
	}
	if conflict == nil {
		return ConflictResolution{}, NewNotFoundError("conflict %s not found", conflictID)
	}
	if conflict.Resolved() {
		return ConflictResolution{}, NewConflictError("conflict %s is already resolved", conflictID)
	}

	merged := MergeDraftData(conflict.LocalData, conflict.ServerData, resolution)
	resolved, err := s.drafts.ResolveConflict(ctx, conflictID, resolution, &merged)
	if err != nil {
		s.logError(opResolveConflict, "conflict_resolve_failed", err, zap.String("conflict_id", conflictID))
		return ConflictResolution{}, err
	}
	return resolved, nil
}

// UnresolvedConflicts lists open conflicts for a project.
func (s *Service) UnresolvedConflicts(ctx context.Context, projectID string) ([]ConflictResolution, error) {
	return s.drafts.UnresolvedConflictsByProject(ctx, projectID)
}

// ListVersions returns the project's retained version history, newest first.
func (s *Service) ListVersions(ctx context.Context, projectID string, limit int) ([]Version, error) {
	versions, err := s.drafts.VersionsByProject(ctx, projectID, limit)
	if err != nil {
		s.logError(opListVersions, "version_lookup_failed", err, zap.String("project_id", projectID))
		return nil, err
	}
	return versions, nil
}

// CleanupExpiredDrafts sweeps expired drafts and returns the count removed.
func (s *Service) CleanupExpiredDrafts(ctx context.Context) (int, error) {
	removed, err := s.drafts.CleanupExpiredDrafts(ctx)
	if err != nil {
		s.logError(opCleanupDrafts, "cleanup_failed", err)
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired drafts removed", zap.Int("count", removed))
	}
	return removed, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("deal room service error", attrs...)
}
