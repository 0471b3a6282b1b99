// Package database provides the SQLite-backed implementations of the deal
// room repositories, selectable in place of the default flat-file driver.
package database

import (
	"encoding/json"
	"time"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

type roomRecord struct {
	ID               string `gorm:"column:id;primaryKey;size:190;not null"`
	ProjectID        string `gorm:"column:project_id;size:190;not null;uniqueIndex:idx_rooms_project"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

func (roomRecord) TableName() string {
	return "deal_rooms"
}

type draftRecord struct {
	ID               string `gorm:"column:id;primaryKey;size:190;not null"`
	ProjectID        string `gorm:"column:project_id;size:190;not null;uniqueIndex:idx_drafts_project_session,priority:1"`
	SessionID        string `gorm:"column:session_id;size:190;not null;uniqueIndex:idx_drafts_project_session,priority:2"`
	UserID           string `gorm:"column:user_id;size:190;not null;default:''"`
	DraftDataJSON    string `gorm:"column:draft_data_json;type:text;not null"`
	Version          int64  `gorm:"column:version;not null;default:1"`
	LastSavedVersion *int64 `gorm:"column:last_saved_version"`
	IsAutoSave       bool   `gorm:"column:is_auto_save;not null;default:false"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
	ExpiresAtSeconds int64  `gorm:"column:expires_at_s;not null;index:idx_drafts_expiry"`
}

func (draftRecord) TableName() string {
	return "deal_room_drafts"
}

type versionRecord struct {
	ID                string `gorm:"column:id;primaryKey;size:190;not null"`
	ProjectID         string `gorm:"column:project_id;size:190;not null;uniqueIndex:idx_versions_project_version,priority:1"`
	Version           int64  `gorm:"column:version;not null;uniqueIndex:idx_versions_project_version,priority:2"`
	PayloadJSON       string `gorm:"column:payload_json;type:text;not null"`
	ChangeDescription string `gorm:"column:change_description;type:text;not null;default:''"`
	CreatedBy         string `gorm:"column:created_by;size:190;not null;default:''"`
	CreatedAtSeconds  int64  `gorm:"column:created_at_s;not null"`
}

func (versionRecord) TableName() string {
	return "deal_room_versions"
}

type conflictRecord struct {
	ConflictID         string  `gorm:"column:conflict_id;primaryKey;size:190;not null"`
	ProjectID          string  `gorm:"column:project_id;size:190;not null;index:idx_conflicts_project"`
	SessionID          string  `gorm:"column:session_id;size:190;not null"`
	ConflictType       string  `gorm:"column:conflict_type;size:64;not null"`
	LocalVersion       int64   `gorm:"column:local_version;not null"`
	ServerVersion      int64   `gorm:"column:server_version;not null"`
	LocalDataJSON      string  `gorm:"column:local_data_json;type:text;not null"`
	ServerDataJSON     string  `gorm:"column:server_data_json;type:text;not null"`
	ConflictFieldsJSON string  `gorm:"column:conflict_fields_json;type:text;not null"`
	ResolvedDataJSON   *string `gorm:"column:resolved_data_json;type:text"`
	Resolution         string  `gorm:"column:resolution;size:32;not null;default:''"`
	CreatedAtSeconds   int64   `gorm:"column:created_at_s;not null"`
	ResolvedAtSeconds  *int64  `gorm:"column:resolved_at_s"`
}

func (conflictRecord) TableName() string {
	return "deal_room_conflicts"
}

func roomToRecord(room dealroom.DealRoom) (roomRecord, error) {
	payload, err := json.Marshal(room)
	if err != nil {
		return roomRecord{}, dealroom.NewStorageError("save deal room", err)
	}
	return roomRecord{
		ID:               room.ID,
		ProjectID:        room.ProjectID,
		PayloadJSON:      string(payload),
		CreatedAtSeconds: room.CreatedAt.Unix(),
		UpdatedAtSeconds: room.UpdatedAt.Unix(),
	}, nil
}

func recordToRoom(record roomRecord) (dealroom.DealRoom, error) {
	var room dealroom.DealRoom
	if err := json.Unmarshal([]byte(record.PayloadJSON), &room); err != nil {
		return dealroom.DealRoom{}, dealroom.NewStorageError("read deal room", err)
	}
	return room, nil
}

func draftToRecord(draft dealroom.Draft) (draftRecord, error) {
	payload, err := json.Marshal(draft.DraftData)
	if err != nil {
		return draftRecord{}, dealroom.NewStorageError("save deal room draft", err)
	}
	return draftRecord{
		ID:               draft.ID,
		ProjectID:        draft.ProjectID,
		SessionID:        draft.SessionID,
		UserID:           draft.UserID,
		DraftDataJSON:    string(payload),
		Version:          draft.Version,
		LastSavedVersion: draft.LastSavedVersion,
		IsAutoSave:       draft.IsAutoSave,
		CreatedAtSeconds: draft.CreatedAt.Unix(),
		UpdatedAtSeconds: draft.UpdatedAt.Unix(),
		ExpiresAtSeconds: draft.ExpiresAt.Unix(),
	}, nil
}

func recordToDraft(record draftRecord) (dealroom.Draft, error) {
	var data dealroom.DraftData
	if err := json.Unmarshal([]byte(record.DraftDataJSON), &data); err != nil {
		return dealroom.Draft{}, dealroom.NewStorageError("read deal room draft", err)
	}
	return dealroom.Draft{
		ID:               record.ID,
		ProjectID:        record.ProjectID,
		SessionID:        record.SessionID,
		UserID:           record.UserID,
		DraftData:        data,
		Version:          record.Version,
		LastSavedVersion: record.LastSavedVersion,
		IsAutoSave:       record.IsAutoSave,
		CreatedAt:        time.Unix(record.CreatedAtSeconds, 0).UTC(),
		UpdatedAt:        time.Unix(record.UpdatedAtSeconds, 0).UTC(),
		ExpiresAt:        time.Unix(record.ExpiresAtSeconds, 0).UTC(),
	}, nil
}

func versionToRecord(version dealroom.Version) (versionRecord, error) {
	payload, err := json.Marshal(version.Data)
	if err != nil {
		return versionRecord{}, dealroom.NewStorageError("save deal room version", err)
	}
	return versionRecord{
		ID:                version.ID,
		ProjectID:         version.ProjectID,
		Version:           version.Version,
		PayloadJSON:       string(payload),
		ChangeDescription: version.ChangeDescription,
		CreatedBy:         version.CreatedBy,
		CreatedAtSeconds:  version.CreatedAt.Unix(),
	}, nil
}

func recordToVersion(record versionRecord) (dealroom.Version, error) {
	var data dealroom.DealRoom
	if err := json.Unmarshal([]byte(record.PayloadJSON), &data); err != nil {
		return dealroom.Version{}, dealroom.NewStorageError("read deal room version", err)
	}
	return dealroom.Version{
		ID:                record.ID,
		ProjectID:         record.ProjectID,
		Version:           record.Version,
		Data:              data,
		ChangeDescription: record.ChangeDescription,
		CreatedAt:         time.Unix(record.CreatedAtSeconds, 0).UTC(),
		CreatedBy:         record.CreatedBy,
	}, nil
}

func conflictToRecord(conflict dealroom.ConflictResolution) (conflictRecord, error) {
	local, err := json.Marshal(conflict.LocalData)
	if err != nil {
		return conflictRecord{}, dealroom.NewStorageError("save deal room conflict", err)
	}
	server, err := json.Marshal(conflict.ServerData)
	if err != nil {
		return conflictRecord{}, dealroom.NewStorageError("save deal room conflict", err)
	}
	fields, err := json.Marshal(conflict.ConflictFields)
	if err != nil {
		return conflictRecord{}, dealroom.NewStorageError("save deal room conflict", err)
	}

	record := conflictRecord{
		ConflictID:         conflict.ConflictID,
		ProjectID:          conflict.ProjectID,
		SessionID:          conflict.SessionID,
		ConflictType:       string(conflict.ConflictType),
		LocalVersion:       conflict.LocalVersion,
		ServerVersion:      conflict.ServerVersion,
		LocalDataJSON:      string(local),
		ServerDataJSON:     string(server),
		ConflictFieldsJSON: string(fields),
		Resolution:         string(conflict.Resolution),
		CreatedAtSeconds:   conflict.CreatedAt.Unix(),
	}
	if conflict.ResolvedData != nil {
		resolved, err := json.Marshal(conflict.ResolvedData)
		if err != nil {
			return conflictRecord{}, dealroom.NewStorageError("save deal room conflict", err)
		}
		text := string(resolved)
		record.ResolvedDataJSON = &text
	}
	if conflict.ResolvedAt != nil {
		seconds := conflict.ResolvedAt.Unix()
		record.ResolvedAtSeconds = &seconds
	}
	return record, nil
}

func recordToConflict(record conflictRecord) (dealroom.ConflictResolution, error) {
	conflict := dealroom.ConflictResolution{
		ConflictID:    record.ConflictID,
		ProjectID:     record.ProjectID,
		SessionID:     record.SessionID,
		ConflictType:  dealroom.ConflictType(record.ConflictType),
		LocalVersion:  record.LocalVersion,
		ServerVersion: record.ServerVersion,
		Resolution:    dealroom.Resolution(record.Resolution),
		CreatedAt:     time.Unix(record.CreatedAtSeconds, 0).UTC(),
	}
	if err := json.Unmarshal([]byte(record.LocalDataJSON), &conflict.LocalData); err != nil {
		return dealroom.ConflictResolution{}, dealroom.NewStorageError("read deal room conflict", err)
	}
	if err := json.Unmarshal([]byte(record.ServerDataJSON), &conflict.ServerData); err != nil {
		return dealroom.ConflictResolution{}, dealroom.NewStorageError("read deal room conflict", err)
	}
	if err := json.Unmarshal([]byte(record.ConflictFieldsJSON), &conflict.ConflictFields); err != nil {
		return dealroom.ConflictResolution{}, dealroom.NewStorageError("read deal room conflict", err)
	}
	if record.ResolvedDataJSON != nil {
		var resolved dealroom.DraftData
		if err := json.Unmarshal([]byte(*record.ResolvedDataJSON), &resolved); err != nil {
			return dealroom.ConflictResolution{}, dealroom.NewStorageError("read deal room conflict", err)
		}
		conflict.ResolvedData = &resolved
	}
	if record.ResolvedAtSeconds != nil {
		resolvedAt := time.Unix(*record.ResolvedAtSeconds, 0).UTC()
		conflict.ResolvedAt = &resolvedAt
	}
	return conflict, nil
}
