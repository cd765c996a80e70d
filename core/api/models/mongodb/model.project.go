package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái vòng đời của Project
const (
	ProjectStatusInitializing = "initializing"
	ProjectStatusPending      = "pending"
	ProjectStatusInProgress   = "in_progress"
	ProjectStatusCompleted    = "completed"
	ProjectStatusOnHold       = "on_hold"
)

// Các vai trò trong một project
const (
	RoleTranscriber    = "transcriber"
	RoleTranslator     = "translator"
	RoleVoiceArtist    = "voice_artist"
	RoleDirector       = "director"
	RoleSeniorDirector = "senior_director"
	RoleAdmin          = "admin"
)

// ProjectAssignment - một cặp (username, role) được gán vào project
type ProjectAssignment struct {
	Username string `json:"username" bson:"username"`
	Role     string `json:"role" bson:"role"` // transcriber, translator, voice_artist, director, senior_director, admin
}

// EpisodeSummary - bản tóm tắt episode lưu trong Project document.
// Dữ liệu đầy đủ của episode nằm trong collection episodes của database tenant.
type EpisodeSummary struct {
	EpisodeID      primitive.ObjectID `json:"episodeId" bson:"episodeId"`
	Name           string             `json:"name" bson:"name"`
	Number         int                `json:"number" bson:"number"`
	CollectionName string             `json:"collectionName" bson:"collectionName"` // <slug>_Ep_<NN>
	VideoKey       string             `json:"videoKey,omitempty" bson:"videoKey,omitempty"`
	Status         string             `json:"status" bson:"status"`
}

// Project - tenant root, lưu trong database điều khiển.
// DatabaseName là duy nhất, dẫn xuất tất định từ Title và bất biến sau khi tạo
// (đổi tên sẽ làm mồ côi toàn bộ dữ liệu tenant đã tồn tại).
type Project struct {
	ID            primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Title         string              `json:"title" bson:"title"`
	Slug          string              `json:"slug" bson:"slug" index:"single:1"`
	DatabaseName  string              `json:"databaseName" bson:"databaseName" index:"unique"` // dub_<slug>, bất biến
	ProjectNumber int                 `json:"projectNumber" bson:"projectNumber" index:"unique"`
	Episodes      []EpisodeSummary    `json:"episodes" bson:"episodes"`
	Assignments   []ProjectAssignment `json:"assignments" bson:"assignments"`
	Status        string              `json:"status" bson:"status" index:"single:1"` // initializing, pending, in_progress, completed, on_hold

	CreatedAt int64  `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64  `json:"updatedAt" bson:"updatedAt"`
	CreatedBy string `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
}

// HasAssignment kiểm tra username có được gán role trong project hay không.
// Admin được phép mọi thao tác.
func (p *Project) HasAssignment(username, role string) bool {
	for _, a := range p.Assignments {
		if a.Username != username {
			continue
		}
		if a.Role == role || a.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// IsMember kiểm tra username có thuộc project hay không (bất kỳ role nào)
func (p *Project) IsMember(username string) bool {
	for _, a := range p.Assignments {
		if a.Username == username {
			return true
		}
	}
	return false
}
