package global

import (
	"dub_studio/config"
	"dub_studio/core/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection cố định trong MongoDB.
// Các collection dialogue theo episode (<slug>_Ep_<NN>) được tạo động,
// không liệt kê ở đây - chúng được quản lý qua tenant router.
type MongoDB_CollectionName struct {
	Projects string // Tên collection cho projects (database điều khiển)
	Jobs     string // Tên collection cho job queue (database điều khiển)
	Episodes string // Tên collection cho episodes (trong từng database tenant)
}

// Các biến toàn cục
var Validate *validator.Validate               // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client              // Phiên kết nối tới MongoDB
var MongoDB_ServerConfig *config.Configuration // Cấu hình của server
var MongoDB_ColNames = MongoDB_CollectionName{
	Projects: "dub_studio_projects",
	Jobs:     "dub_studio_jobs",
	Episodes: "episodes",
}

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
