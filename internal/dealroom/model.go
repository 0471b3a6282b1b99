package dealroom

import "time"

// ShowcasePhoto references the single featured image stored for a deal room.
// The binary itself lives in the photo store; the record only carries metadata.
type ShowcasePhoto struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// KeyInfoItem is one ordered entry in a deal room's key information list.
// Order is a pointer so an unset value can be defaulted to the array index
// by the repository while an explicit zero is preserved.
type KeyInfoItem struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Link  string   `json:"link"`
	Order *float64 `json:"order,omitempty"`
}

// ExternalLinkItem is one ordered entry in a deal room's external links list.
// Same shape as KeyInfoItem but the target field is named "url" on the wire.
type ExternalLinkItem struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	URL   string   `json:"url"`
	Order *float64 `json:"order,omitempty"`
}

// DealRoom is the published marketing page for a project. At most one deal
// room exists per project.
type DealRoom struct {
	ID                string             `json:"id"`
	ProjectID         string             `json:"projectId"`
	ShowcasePhoto     *ShowcasePhoto     `json:"showcasePhoto,omitempty"`
	InvestmentBlurb   string             `json:"investmentBlurb"`
	InvestmentSummary string             `json:"investmentSummary"`
	KeyInfo           []KeyInfoItem      `json:"keyInfo"`
	ExternalLinks     []ExternalLinkItem `json:"externalLinks"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// DraftData is the sparse edit payload carried by a draft. A nil field means
// the session never touched that field; the published value fills the gap at
// merge time.
type DraftData struct {
	InvestmentBlurb   *string             `json:"investmentBlurb,omitempty"`
	InvestmentSummary *string             `json:"investmentSummary,omitempty"`
	KeyInfo           *[]KeyInfoItem      `json:"keyInfo,omitempty"`
	ExternalLinks     *[]ExternalLinkItem `json:"externalLinks,omitempty"`
	ShowcasePhoto     *ShowcasePhoto      `json:"showcasePhoto,omitempty"`
}

// IsEmpty reports whether no field of the draft payload is set.
func (d DraftData) IsEmpty() bool {
	return d.InvestmentBlurb == nil &&
		d.InvestmentSummary == nil &&
		d.KeyInfo == nil &&
		d.ExternalLinks == nil &&
		d.ShowcasePhoto == nil
}

// Draft is the scratch state one editing session holds for one project.
// Uniqueness is enforced on the (ProjectID, SessionID) pair; Version is a
// per-draft monotonic counter bumped on every save.
type Draft struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"projectId"`
	SessionID        string    `json:"sessionId"`
	UserID           string    `json:"userId,omitempty"`
	DraftData        DraftData `json:"draftData"`
	Version          int64     `json:"version"`
	LastSavedVersion *int64    `json:"lastSavedVersion,omitempty"`
	IsAutoSave       bool      `json:"isAutoSave"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// Expired reports whether the draft's sliding expiration has passed.
func (d Draft) Expired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// Version is an immutable snapshot of a deal room taken at publish time.
// Numbering is 1-based per project and survives retention pruning gaps.
type Version struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"projectId"`
	Version           int64     `json:"version"`
	Data              DealRoom  `json:"data"`
	ChangeDescription string    `json:"changeDescription,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	CreatedBy         string    `json:"createdBy,omitempty"`
}

// ConflictType classifies how a conflict was detected.
type ConflictType string

const (
	ConflictTypeConcurrentEdit  ConflictType = "concurrent_edit"
	ConflictTypeVersionMismatch ConflictType = "version_mismatch"
	ConflictTypeDataCorruption  ConflictType = "data_corruption"
)

// Resolution names the strategy applied when resolving a conflict.
type Resolution string

const (
	ResolutionUseLocal  Resolution = "use_local"
	ResolutionUseServer Resolution = "use_server"
	ResolutionMerge     Resolution = "merge"
	ResolutionManual    Resolution = "manual"
)

// ConflictResolution records a detected disagreement between a session's
// draft and the published state. It is mutated exactly once, when resolved.
type ConflictResolution struct {
	ConflictID     string       `json:"conflictId"`
	ProjectID      string       `json:"projectId"`
	SessionID      string       `json:"sessionId"`
	ConflictType   ConflictType `json:"conflictType"`
	LocalVersion   int64        `json:"localVersion"`
	ServerVersion  int64        `json:"serverVersion"`
	LocalData      DraftData    `json:"localData"`
	ServerData     DraftData    `json:"serverData"`
	ConflictFields []string     `json:"conflictFields"`
	ResolvedData   *DraftData   `json:"resolvedData,omitempty"`
	Resolution     Resolution   `json:"resolution,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	ResolvedAt     *time.Time   `json:"resolvedAt,omitempty"`
}

// Resolved reports whether the conflict has already been resolved.
func (c ConflictResolution) Resolved() bool {
	return c.ResolvedAt != nil
}

// SparseData projects the published room into the draft payload shape with
// every field set, so it can be diffed against a session's draft.
func (r DealRoom) SparseData() DraftData {
	blurb := r.InvestmentBlurb
	summary := r.InvestmentSummary
	keyInfo := r.KeyInfo
	externalLinks := r.ExternalLinks
	return DraftData{
		InvestmentBlurb:   &blurb,
		InvestmentSummary: &summary,
		KeyInfo:           &keyInfo,
		ExternalLinks:     &externalLinks,
		ShowcasePhoto:     r.ShowcasePhoto,
	}
}
