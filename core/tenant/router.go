// Package tenant định tuyến mọi truy cập dữ liệu theo project tới đúng
// database và collection của project đó. Tất cả các service nghiệp vụ
// đọc/ghi dữ liệu tenant đều phải đi qua router này - không bao giờ
// tự build tên database/collection.
package tenant

import (
	"context"
	"fmt"
	"regexp"

	models "dub_studio/core/api/models/mongodb"
	"dub_studio/core/common"
	"dub_studio/core/database"
	"dub_studio/core/global"

	"go.mongodb.org/mongo-driver/mongo"
)

// collectionPattern: tên collection dialogue hợp lệ có dạng <slug>_Ep_<NN>
// với slug là chữ thường/số/underscore và NN là số episode 2 chữ số.
var collectionPattern = regexp.MustCompile(`^[a-z0-9_]+_Ep_\d{2}$`)

// DatabaseNameFor trả về tên database tenant cho một slug project.
// Tên này bất biến sau khi project được tạo, kể cả khi đổi title.
func DatabaseNameFor(slug string) string {
	return "dub_" + slug
}

// CollectionNameFor trả về tên collection dialogue cho một episode.
func CollectionNameFor(slug string, episodeNumber int) string {
	return fmt.Sprintf("%s_Ep_%02d", slug, episodeNumber)
}

// ValidateCollectionName kiểm tra tên collection có đúng dạng
// <slug>_Ep_<NN> hay không. Trả về ErrInvalidFormat nếu sai.
func ValidateCollectionName(name string) error {
	if !collectionPattern.MatchString(name) {
		return common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("Tên collection '%s' không đúng định dạng <slug>_Ep_<NN>", name),
			common.StatusBadRequest,
			nil,
		)
	}
	return nil
}

// Authorize kiểm tra username có phải thành viên của project không.
// Mọi truy cập dữ liệu tenant đều phải qua bước này trước khi resolve.
func Authorize(project *models.Project, username string) error {
	if project == nil {
		return common.ErrNotFound
	}
	if !project.IsMember(username) {
		return common.NewError(
			common.ErrCodeAuthRole,
			fmt.Sprintf("Người dùng '%s' không thuộc project '%s'", username, project.Slug),
			common.StatusUnauthorized,
			nil,
		)
	}
	return nil
}

// ResolveDatabase trả về handle database tenant của project, có cache
// trong registry để tái sử dụng giữa các request.
func ResolveDatabase(project *models.Project) (*mongo.Database, error) {
	if project == nil || project.DatabaseName == "" {
		return nil, common.ErrNotFound
	}
	db, err := global.RegistryDatabase.GetOrCreate(project.DatabaseName, func() (*mongo.Database, error) {
		return global.MongoDB_Session.Database(project.DatabaseName), nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// ResolveEpisodesCollection trả về collection episodes của project.
// Lần đầu một handle được đăng ký, index của model Episode được đồng bộ
// lên collection - unique trên collectionName là thứ đảm bảo một số
// episode chỉ xuất hiện một lần trong project, kể cả khi hai request
// tạo đồng thời.
func ResolveEpisodesCollection(ctx context.Context, project *models.Project) (*mongo.Collection, error) {
	db, err := ResolveDatabase(project)
	if err != nil {
		return nil, err
	}
	key := project.DatabaseName + "/" + global.MongoDB_ColNames.Episodes
	if coll, ok := global.RegistryCollections.Get(key); ok {
		return coll, nil
	}
	return global.RegistryCollections.GetOrCreate(key, func() (*mongo.Collection, error) {
		coll := db.Collection(global.MongoDB_ColNames.Episodes)
		if err := database.CreateIndexes(ctx, coll, models.Episode{}); err != nil {
			return nil, err
		}
		return coll, nil
	})
}

// ResolveCollection trả về collection dialogue theo tên (<slug>_Ep_<NN>)
// trong database tenant của project. Collection được tạo lười và idempotent:
// nếu chưa tồn tại sẽ được tạo, hai request tạo đồng thời không gây lỗi.
func ResolveCollection(ctx context.Context, project *models.Project, collectionName string) (*mongo.Collection, error) {
	if err := ValidateCollectionName(collectionName); err != nil {
		return nil, err
	}
	db, err := ResolveDatabase(project)
	if err != nil {
		return nil, err
	}

	key := project.DatabaseName + "/" + collectionName
	if coll, ok := global.RegistryCollections.Get(key); ok {
		return coll, nil
	}

	if err := database.EnsureCollection(ctx, db, collectionName); err != nil {
		return nil, common.NewError(
			common.ErrCodeDatabaseQuery,
			fmt.Sprintf("Không thể đảm bảo collection '%s' tồn tại", collectionName),
			common.StatusInternalServerError,
			map[string]interface{}{"error": err.Error()},
		)
	}

	return global.RegistryCollections.GetOrCreate(key, func() (*mongo.Collection, error) {
		return db.Collection(collectionName), nil
	})
}

// ReleaseProject xóa mọi handle đã cache của một project khỏi registry,
// dùng khi xóa project để không giữ handle tới database đã drop.
func ReleaseProject(project *models.Project) {
	if project == nil || project.DatabaseName == "" {
		return
	}
	_, _ = global.RegistryDatabase.Clear(project.DatabaseName, nil)
	_, _ = global.RegistryCollections.ClearPrefix(project.DatabaseName+"/", nil)
}
