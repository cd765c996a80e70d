package database

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"dub_studio/core/global"
	"dub_studio/core/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureDatabaseAndCollections đảm bảo database điều khiển và các collection
// của nó (projects, jobs) tồn tại. Database tenant theo project được tạo động
// qua tenant router, không ở đây.
func EnsureDatabaseAndCollections(client *mongo.Client) error {
	dbName := global.MongoDB_ServerConfig.MongoDB_DBName_Admin

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbList, err := client.ListDatabaseNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list databases: %w", err)
	}

	dbExists := false
	for _, name := range dbList {
		if name == dbName {
			dbExists = true
			break
		}
	}
	if !dbExists {
		logger.GetAppLogger().Infof("Database %s chưa tồn tại, sẽ được tạo khi tạo collection đầu tiên", dbName)
	}

	db := client.Database(dbName)
	collections := []string{
		global.MongoDB_ColNames.Projects,
		global.MongoDB_ColNames.Jobs,
	}

	collList, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, collectionName := range collections {
		exists := false
		for _, existingColl := range collList {
			if existingColl == collectionName {
				exists = true
				break
			}
		}
		if !exists {
			logger.GetAppLogger().Infof("Collection %s chưa tồn tại, tạo mới.", collectionName)
			if err := db.CreateCollection(ctx, collectionName); err != nil {
				return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
			}
		}
	}

	logger.GetAppLogger().Infof("Đã ensure database và collections điều khiển: %s", dbName)
	return nil
}

// EnsureCollection tạo một collection trong database cho trước nếu nó chưa tồn
// tại. Idempotent - gọi nhiều lần với cùng tham số cho cùng kết quả.
// Được tenant router dùng khi ensure database/collection theo project/episode.
func EnsureCollection(ctx context.Context, db *mongo.Database, collectionName string) error {
	collList, err := db.ListCollectionNames(ctx, bson.M{"name": collectionName})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(collList) > 0 {
		return nil
	}

	if err := db.CreateCollection(ctx, collectionName); err != nil {
		// Collection có thể vừa được tạo bởi request song song khác
		if cmdErr, ok := err.(mongo.CommandError); ok && cmdErr.Code == 48 {
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
	}
	return nil
}

// parseOrder trích thứ tự sắp xếp từ tag index (1 hoặc -1)
func parseOrder(tag string) int {
	if strings.Contains(tag, "order:-1") {
		return -1
	}
	return 1
}

// parseIndexTag tách tag index thành danh sách cấu hình.
// Các cấu hình cách nhau bằng ';', mỗi cấu hình là các cặp key[:value]
// cách nhau bằng ','. Model của hệ thống dùng hai loại: single và unique.
func parseIndexTag(tag string) []map[string]string {
	parts := strings.Split(tag, ";")
	result := []map[string]string{}

	for _, part := range parts {
		subParts := strings.Split(part, ",")
		entry := map[string]string{}
		for _, subPart := range subParts {
			kv := strings.Split(subPart, ":")
			if len(kv) == 2 {
				entry[kv[0]] = kv[1]
			} else {
				entry[kv[0]] = ""
			}
		}
		result = append(result, entry)
	}

	return result
}

// compareIndex so sánh index hiện có trên collection với cấu hình mong muốn
func compareIndex(existingIndex bson.M, keys bson.D, opts *options.IndexOptions) bool {
	existingKeys, ok := existingIndex["key"].(bson.M)
	if !ok {
		return false
	}

	for _, key := range keys {
		existingValue, exists := existingKeys[key.Key]
		if !exists {
			return false
		}

		// Driver trả về giá trị key dưới nhiều kiểu số khác nhau
		newVal, isInt := key.Value.(int)
		if isInt {
			switch ev := existingValue.(type) {
			case int32:
				if int(ev) != newVal {
					return false
				}
			case int64:
				if int(ev) != newVal {
					return false
				}
			case float64:
				if int(ev) != newVal {
					return false
				}
			default:
				return false
			}
		} else if existingValue != key.Value {
			return false
		}
	}

	if unique, ok := existingIndex["unique"].(bool); ok && opts.Unique != nil {
		if unique != *opts.Unique {
			return false
		}
	} else if opts.Unique != nil && *opts.Unique {
		// Index cũ không unique, cấu hình mới lại unique
		return false
	}

	return true
}

// checkAndReplaceIndex tạo index nếu chưa có; nếu đã có nhưng sai cấu hình
// thì xóa rồi tạo lại.
func checkAndReplaceIndex(
	ctx context.Context,
	collection *mongo.Collection,
	existingIndexes map[string]bson.M,
	indexName string,
	keys bson.D,
	opts *options.IndexOptions,
) error {
	if existingIndex, exists := existingIndexes[indexName]; exists {
		if compareIndex(existingIndex, keys, opts) {
			logger.GetAppLogger().Debugf("Index %s đã tồn tại và đúng cấu hình, bỏ qua", indexName)
			return nil
		}
		if _, err := collection.Indexes().DropOne(ctx, indexName); err != nil {
			return fmt.Errorf("không thể xóa index %s: %w", indexName, err)
		}
		logger.GetAppLogger().Infof("Đã xóa index cũ: %s", indexName)
	}

	if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: opts,
	}); err != nil {
		return fmt.Errorf("không thể tạo index %s: %w", indexName, err)
	}
	logger.GetAppLogger().Infof("Đã tạo index: %s", indexName)
	return nil
}

// indexSpec mô tả một index suy ra từ tag `index` của model.
type indexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
	Sparse bool
}

// indexSpecsFor đọc tag `index` trên các field của model và trả về danh
// sách index mà collection của model đó phải có.
func indexSpecsFor(model interface{}) []indexSpec {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	specs := []indexSpec{}
	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		tag, ok := field.Tag.Lookup("index")
		if !ok {
			continue
		}

		bsonField := strings.Split(field.Tag.Get("bson"), ",")[0]
		if bsonField == "" || bsonField == "-" {
			continue
		}

		for _, config := range parseIndexTag(tag) {
			if _, ok := config["single"]; ok {
				specs = append(specs, indexSpec{
					Name: bsonField + "_single",
					Keys: bson.D{{Key: bsonField, Value: parseOrder(tag)}},
				})
			}

			if _, ok := config["unique"]; ok {
				_, sparse := config["sparse"]
				specs = append(specs, indexSpec{
					Name:   bsonField + "_unique",
					Keys:   bson.D{{Key: bsonField, Value: 1}},
					Unique: true,
					Sparse: sparse,
				})
			}
		}
	}
	return specs
}

// CreateIndexes đọc tag `index` trên các field của model và đồng bộ index
// của collection theo đó. Unique index không còn khai báo trong model sẽ
// bị xóa để tránh chặn ghi ngoài ý muốn.
func CreateIndexes(ctx context.Context, collection *mongo.Collection, model interface{}) error {
	logger.GetAppLogger().Infof("Đồng bộ index cho collection: %s", collection.Name())

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("không thể lấy danh sách index: %w", err)
	}
	defer cursor.Close(ctx)

	existingIndexes := map[string]bson.M{}
	for cursor.Next(ctx) {
		var indexInfo bson.M
		if err := cursor.Decode(&indexInfo); err != nil {
			return fmt.Errorf("không thể giải mã thông tin index: %w", err)
		}
		if name, ok := indexInfo["name"].(string); ok {
			existingIndexes[name] = indexInfo
		}
	}

	fieldsWithUniqueIndex := make(map[string]bool)

	for _, spec := range indexSpecsFor(model) {
		opts := options.Index().SetName(spec.Name)
		if spec.Unique {
			opts = opts.SetUnique(true)
			fieldsWithUniqueIndex[strings.TrimSuffix(spec.Name, "_unique")] = true
		}
		// Sparse cho phép nhiều document không có field này
		if spec.Sparse {
			opts = opts.SetSparse(true)
		}

		if err := checkAndReplaceIndex(ctx, collection, existingIndexes, spec.Name, spec.Keys, opts); err != nil {
			return err
		}
	}

	// Dọn các unique index không còn được khai báo trong model
	for indexName, indexInfo := range existingIndexes {
		if !strings.HasSuffix(indexName, "_unique") {
			continue
		}
		fieldName := strings.TrimSuffix(indexName, "_unique")
		if fieldsWithUniqueIndex[fieldName] {
			continue
		}
		if unique, ok := indexInfo["unique"].(bool); ok && unique {
			if _, err := collection.Indexes().DropOne(ctx, indexName); err != nil {
				logger.GetAppLogger().Warnf("Không thể xóa unique index %s: %v", indexName, err)
				continue
			}
			logger.GetAppLogger().Infof("Đã xóa unique index không còn được khai báo: %s", indexName)
		}
	}

	return nil
}
