package dealroom

import "context"

// DraftWriteMode selects how an upsert treats the payload of an existing
// draft at the same (project, session) key.
type DraftWriteMode int

const (
	// DraftWriteReplace replaces the stored draftData wholesale. This is the
	// canonical save semantic used by the service layer.
	DraftWriteReplace DraftWriteMode = iota
	// DraftWriteMerge overlays the incoming fields onto the stored payload,
	// leaving untouched fields in place. Reachable only through the
	// repository interface, for callers that patch single fields.
	DraftWriteMerge
)

// DraftInput carries the caller-supplied portion of a draft save.
type DraftInput struct {
	ProjectID  string
	SessionID  string
	UserID     string
	DraftData  DraftData
	IsAutoSave bool
}

// DraftRepository is the persistence boundary for drafts, publish-time
// version snapshots, and conflict records. Implementations enforce sliding
// draft expiration on every read and bounded version retention on every
// append.
type DraftRepository interface {
	// FindDraft returns the live draft for the key, or nil when none exists
	// or the stored one has expired.
	FindDraft(ctx context.Context, projectID, sessionID string) (*Draft, error)
	// UpsertDraft creates or updates the draft at (ProjectID, SessionID),
	// bumping Version on every call and refreshing the sliding expiration.
	UpsertDraft(ctx context.Context, input DraftInput, mode DraftWriteMode) (Draft, error)
	// DeleteDraft removes the draft at the key; deleting an absent draft is
	// not an error.
	DeleteDraft(ctx context.Context, projectID, sessionID string) error
	// CleanupExpiredDrafts sweeps expired drafts and returns the count
	// removed.
	CleanupExpiredDrafts(ctx context.Context) (int, error)

	// CreateVersion appends an immutable snapshot numbered max(existing)+1
	// for the project, then prunes beyond the retention bound.
	CreateVersion(ctx context.Context, projectID string, data DealRoom, changeDescription, createdBy string) (Version, error)
	// VersionsByProject lists snapshots sorted by version descending,
	// truncated to limit.
	VersionsByProject(ctx context.Context, projectID string, limit int) ([]Version, error)

	CreateConflict(ctx context.Context, conflict ConflictResolution) (ConflictResolution, error)
	// ResolveConflict stamps resolution and resolvedAt on an unresolved
	// conflict; unknown IDs yield a NotFoundError.
	ResolveConflict(ctx context.Context, conflictID string, resolution Resolution, resolved *DraftData) (ConflictResolution, error)
	UnresolvedConflictsByProject(ctx context.Context, projectID string) ([]ConflictResolution, error)
	// ConflictByID returns the conflict record, or nil when unknown.
	ConflictByID(ctx context.Context, conflictID string) (*ConflictResolution, error)
}

// RoomInput carries the caller-supplied portion of a deal room create.
type RoomInput struct {
	ProjectID         string
	InvestmentBlurb   string
	InvestmentSummary string
	KeyInfo           []KeyInfoItem
	ExternalLinks     []ExternalLinkItem
	ShowcasePhoto     *ShowcasePhoto
}

// RoomPatch is a sparse deal room update. A set field fully replaces the
// stored value (lists are replaced wholesale, re-minting item IDs); nil
// fields are left untouched. ClearShowcasePhoto removes the photo reference,
// which the nil-means-untouched convention cannot express.
type RoomPatch struct {
	InvestmentBlurb    *string
	InvestmentSummary  *string
	KeyInfo            *[]KeyInfoItem
	ExternalLinks      *[]ExternalLinkItem
	ShowcasePhoto      *ShowcasePhoto
	ClearShowcasePhoto bool
}

// PatchFromDraftData lifts a draft payload into a room patch.
func PatchFromDraftData(data DraftData) RoomPatch {
	return RoomPatch{
		InvestmentBlurb:   data.InvestmentBlurb,
		InvestmentSummary: data.InvestmentSummary,
		KeyInfo:           data.KeyInfo,
		ExternalLinks:     data.ExternalLinks,
		ShowcasePhoto:     data.ShowcasePhoto,
	}
}

// DealRoomRepository is the persistence boundary for the single published
// deal room per project.
type DealRoomRepository interface {
	// FindByProjectID returns the room for the project, or nil when none
	// exists.
	FindByProjectID(ctx context.Context, projectID string) (*DealRoom, error)
	// FindByID returns the room with the given record ID, or nil.
	FindByID(ctx context.Context, id string) (*DealRoom, error)
	// Create persists a new room, minting item IDs and defaulting missing
	// item orders to the array index. A second room for the same project is
	// rejected with a ConflictError.
	Create(ctx context.Context, input RoomInput) (DealRoom, error)
	// Update applies a sparse patch; a missing room yields a NotFoundError,
	// never an implicit create.
	Update(ctx context.Context, projectID string, patch RoomPatch) (DealRoom, error)
	// Delete removes the record and returns the showcase photo reference it
	// held, if any, so the caller can dispose of the blob.
	Delete(ctx context.Context, projectID string) (*ShowcasePhoto, error)
}

// ShowcasePhotoStore manages showcase photo blobs, decoupled from the room
// record that references them by filename.
type ShowcasePhotoStore interface {
	Save(ctx context.Context, content []byte, originalName, mimeType string) (ShowcasePhoto, error)
	// Delete is tolerant of an already-missing file.
	Delete(ctx context.Context, filename string) error
	Read(ctx context.Context, filename string) ([]byte, error)
	Path(filename string) string
}
