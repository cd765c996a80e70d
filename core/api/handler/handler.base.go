package handler

// Package handler chứa các handler xử lý request HTTP của API.
// BaseHandler cung cấp bề mặt đọc chung (find/count/pagination) cho các
// collection; thao tác ghi đi qua các handler nghiệp vụ riêng.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dub_studio/core/api/services"
	"dub_studio/core/common"
	"dub_studio/core/global"
	"dub_studio/core/utility"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
)

// Giới hạn mặc định cho filter/options nhận từ query string.
// Các object key trên storage là chi tiết hạ tầng, không thuộc bề mặt
// truy vấn của client nên bị chặn trong filter/projection/sort.
var (
	defaultDeniedFields = []string{
		"videoKey",
		"audioKey",
		"cleanAudioKey",
	}
	defaultAllowedOperators = []string{
		"$eq",
		"$gt",
		"$gte",
		"$lt",
		"$lte",
		"$in",
		"$nin",
		"$exists",
	}
	defaultMaxFilterFields = 10
)

// FilterOptions cấu hình validate filter cho một handler cụ thể.
// Field bỏ trống sẽ dùng giá trị mặc định của package.
type FilterOptions struct {
	DeniedFields     []string // Các trường bị cấm trong filter/projection/sort
	AllowedOperators []string // Các toán tử MongoDB được phép
	MaxFields        int      // Số field tối đa trong một filter
}

func (o FilterOptions) deniedFields() []string {
	if len(o.DeniedFields) > 0 {
		return o.DeniedFields
	}
	return defaultDeniedFields
}

func (o FilterOptions) allowedOperators() []string {
	if len(o.AllowedOperators) > 0 {
		return o.AllowedOperators
	}
	return defaultAllowedOperators
}

func (o FilterOptions) maxFields() int {
	if o.MaxFields > 0 {
		return o.MaxFields
	}
	return defaultMaxFilterFields
}

// BaseHandler là base handler dùng Generic Type cho bề mặt đọc của một
// collection: Find/FindOne/FindOneById/FindWithPagination/CountDocuments.
//
// Type parameters:
// - T: Kiểu dữ liệu của model
// - CreateInput: Kiểu dữ liệu của input khi tạo mới
// - UpdateInput: Kiểu dữ liệu của input khi cập nhật
type BaseHandler[T any, CreateInput any, UpdateInput any] struct {
	BaseService   services.BaseServiceMongo[T] // Service xử lý logic nghiệp vụ với MongoDB
	filterOptions FilterOptions                // Cấu hình validate filter
}

// NewBaseHandler tạo mới một BaseHandler với BaseService được cung cấp
func NewBaseHandler[T any, CreateInput any, UpdateInput any](baseService services.BaseServiceMongo[T]) *BaseHandler[T, CreateInput, UpdateInput] {
	return &BaseHandler[T, CreateInput, UpdateInput]{
		BaseService:   baseService,
		filterOptions: FilterOptions{},
	}
}

// validateInput validate dữ liệu đầu vào theo struct tag của validator
func (h *BaseHandler[T, CreateInput, UpdateInput]) validateInput(input interface{}) error {
	if err := global.Validate.Struct(input); err != nil {
		return common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err)
	}
	return nil
}

// processFilter đọc filter JSON từ query string, normalize các giá trị
// ObjectID rồi validate theo cấu hình của handler.
func (h *BaseHandler[T, CreateInput, UpdateInput]) processFilter(c fiber.Ctx) (map[string]interface{}, error) {
	var filter map[string]interface{}

	filterStr := c.Query("filter", "{}")
	if err := json.Unmarshal([]byte(filterStr), &filter); err != nil {
		return nil, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("Filter không đúng định dạng JSON. Chi tiết lỗi: %v. Giá trị filter nhận được: %s", err, filterStr),
			common.StatusBadRequest,
			err,
		)
	}

	filter = h.normalizeFilter(filter)

	if err := h.validateFilter(filter); err != nil {
		return nil, err
	}

	return filter, nil
}

// normalizeFilter chuyển các string dạng ObjectId thành primitive.ObjectID.
// Client gửi id dưới dạng hex string (ví dụ filter {"projectId": "..."});
// các trường có tên kết thúc bằng "Id"/"ID" được chuyển kiểu tự động.
func (h *BaseHandler[T, CreateInput, UpdateInput]) normalizeFilter(filter map[string]interface{}) map[string]interface{} {
	if filter == nil {
		return filter
	}

	normalized := make(map[string]interface{})
	for field, value := range filter {
		fieldLower := strings.ToLower(field)
		isIDField := strings.HasSuffix(fieldLower, "id") && len(fieldLower) > 2
		normalized[field] = h.normalizeFilterValue(value, isIDField)
	}

	return normalized
}

// normalizeFilterValue xử lý một giá trị trong filter, đệ quy với mảng và
// các toán tử dạng map ($in, $nin, $eq...).
func (h *BaseHandler[T, CreateInput, UpdateInput]) normalizeFilterValue(value interface{}, isIDField bool) interface{} {
	switch v := value.(type) {
	case nil:
		return value

	case string:
		// Hex string trên ID field được chuyển thành ObjectID
		if isIDField && primitive.IsValidObjectID(v) {
			if objID, err := primitive.ObjectIDFromHex(v); err == nil {
				return objID
			}
		}
		return v

	case []interface{}:
		normalizedArr := make([]interface{}, len(v))
		for i, item := range v {
			normalizedArr[i] = h.normalizeFilterValue(item, isIDField)
		}
		return normalizedArr

	case map[string]interface{}:
		// MongoDB Extended JSON: {"$oid": "..."}
		if oidValue, hasOid := v["$oid"]; hasOid {
			if oidStr, ok := oidValue.(string); ok && primitive.IsValidObjectID(oidStr) {
				if objID, err := primitive.ObjectIDFromHex(oidStr); err == nil {
					return objID
				}
			}
			return value
		}
		normalizedMap := make(map[string]interface{})
		for key, val := range v {
			normalizedMap[key] = h.normalizeFilterValue(val, isIDField)
		}
		return normalizedMap

	default:
		return value
	}
}

// validateFilter kiểm tra filter theo danh sách field cấm, toán tử cho phép
// và số field tối đa.
func (h *BaseHandler[T, CreateInput, UpdateInput]) validateFilter(filter map[string]interface{}) error {
	deniedFields := h.filterOptions.deniedFields()
	allowedOperators := h.filterOptions.allowedOperators()
	maxFields := h.filterOptions.maxFields()

	if len(filter) > maxFields {
		return common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("Filter vượt quá số lượng trường cho phép. Tối đa %d trường, hiện tại có %d trường.", maxFields, len(filter)),
			common.StatusBadRequest,
			nil,
		)
	}

	for field, value := range filter {
		if utility.Contains(deniedFields, field) {
			return common.NewError(
				common.ErrCodeValidationFormat,
				fmt.Sprintf("Trường '%s' không thuộc bề mặt truy vấn, không được dùng trong filter.", field),
				common.StatusBadRequest,
				nil,
			)
		}

		if mapValue, ok := value.(map[string]interface{}); ok {
			for op := range mapValue {
				if strings.HasPrefix(op, "$") && !utility.Contains(allowedOperators, op) {
					return common.NewError(
						common.ErrCodeValidationFormat,
						fmt.Sprintf("Toán tử MongoDB '%s' không được phép sử dụng. Các toán tử được phép: %v", op, allowedOperators),
						common.StatusBadRequest,
						nil,
					)
				}
			}
		}
	}

	return nil
}

// parseSortMap chuyển sort map thành bson.D, bỏ qua các giá trị khác 1/-1.
// Thứ tự field không được đảm bảo - chỉ dùng làm fallback.
func parseSortMap(sortMap map[string]interface{}) bson.D {
	sortBson := bson.D{}
	for field, value := range sortMap {
		var sortValue int
		switch v := value.(type) {
		case float64:
			sortValue = int(v)
		case int:
			sortValue = v
		default:
			continue
		}
		if sortValue != 1 && sortValue != -1 {
			continue
		}
		sortBson = append(sortBson, bson.E{Key: field, Value: sortValue})
	}
	return sortBson
}

// parseSortPreservingOrder parse phần sort từ JSON options gốc bằng
// json.Decoder theo từng token để giữ nguyên thứ tự field client gửi lên.
// Map của Go không giữ thứ tự key nên sort đa field bắt buộc phải đi đường
// này; mọi trường hợp không parse được đều fallback về parseSortMap.
func parseSortPreservingOrder(sortMap map[string]interface{}, optionsJSON string) bson.D {
	var tempOptions map[string]json.RawMessage
	if err := json.Unmarshal([]byte(optionsJSON), &tempOptions); err != nil {
		return parseSortMap(sortMap)
	}

	sortRaw, ok := tempOptions["sort"]
	if !ok {
		return bson.D{}
	}

	decoder := json.NewDecoder(bytes.NewReader(sortRaw))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil || token != json.Delim('{') {
		return parseSortMap(sortMap)
	}

	sortBson := bson.D{}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			break
		}
		field, ok := keyToken.(string)
		if !ok {
			continue
		}

		valueToken, err := decoder.Token()
		if err != nil {
			break
		}

		var sortValue int
		switch v := valueToken.(type) {
		case json.Number:
			intVal, err := v.Int64()
			if err != nil {
				floatVal, err := v.Float64()
				if err != nil {
					continue
				}
				intVal = int64(floatVal)
			}
			sortValue = int(intVal)
		case float64:
			sortValue = int(v)
		default:
			continue
		}

		if sortValue != 1 && sortValue != -1 {
			continue
		}
		sortBson = append(sortBson, bson.E{Key: field, Value: sortValue})
	}
	_, _ = decoder.Token()

	if len(sortBson) == 0 {
		return parseSortMap(sortMap)
	}
	return sortBson
}

// processMongoOptions đọc options JSON từ query string và chuyển thành
// MongoDB options (FindOneOptions khi isFindOne, FindOptions khi không).
func (h *BaseHandler[T, CreateInput, UpdateInput]) processMongoOptions(c fiber.Ctx, isFindOne bool) (interface{}, error) {
	var rawOptions map[string]interface{}

	optionsStr := c.Query("options", "{}")
	if err := json.Unmarshal([]byte(optionsStr), &rawOptions); err != nil {
		return nil, common.NewError(
			common.ErrCodeValidationFormat,
			fmt.Sprintf("Options không đúng định dạng JSON. Chi tiết lỗi: %v. Giá trị options nhận được: %s", err, optionsStr),
			common.StatusBadRequest,
			err,
		)
	}

	if err := h.validateMongoOptions(rawOptions); err != nil {
		return nil, err
	}

	if isFindOne {
		opts := mongoopts.FindOne()
		if projection, ok := rawOptions["projection"].(map[string]interface{}); ok {
			opts.SetProjection(projection)
		}
		if sort, ok := rawOptions["sort"].(map[string]interface{}); ok {
			opts.SetSort(parseSortPreservingOrder(sort, optionsStr))
		}
		return opts, nil
	}

	opts := mongoopts.Find()
	if projection, ok := rawOptions["projection"].(map[string]interface{}); ok {
		opts.SetProjection(projection)
	}
	if sort, ok := rawOptions["sort"].(map[string]interface{}); ok {
		opts.SetSort(parseSortPreservingOrder(sort, optionsStr))
	}
	if limit, ok := rawOptions["limit"].(float64); ok {
		opts.SetLimit(int64(limit))
	}
	if skip, ok := rawOptions["skip"].(float64); ok {
		opts.SetSkip(int64(skip))
	}
	return opts, nil
}

// validateMongoOptions kiểm tra options: chỉ cho phép projection/sort/
// limit/skip, chặn các field cấm và giới hạn limit.
func (h *BaseHandler[T, CreateInput, UpdateInput]) validateMongoOptions(options map[string]interface{}) error {
	deniedFields := h.filterOptions.deniedFields()

	allowedOptions := map[string]bool{
		"projection": true,
		"sort":       true,
		"limit":      true,
		"skip":       true,
	}

	for key := range options {
		if !allowedOptions[key] {
			return common.NewError(
				common.ErrCodeValidationFormat,
				fmt.Sprintf("Option '%s' không được hỗ trợ. Các options được phép: projection, sort, limit, skip", key),
				common.StatusBadRequest,
				nil,
			)
		}
	}

	if projection, ok := options["projection"].(map[string]interface{}); ok {
		for field := range projection {
			if utility.Contains(deniedFields, field) {
				return common.NewError(
					common.ErrCodeValidationFormat,
					fmt.Sprintf("Trường '%s' không thuộc bề mặt truy vấn, không được dùng trong projection", field),
					common.StatusBadRequest,
					nil,
				)
			}
		}
	}

	if sort, ok := options["sort"].(map[string]interface{}); ok {
		for field, value := range sort {
			if utility.Contains(deniedFields, field) {
				return common.NewError(
					common.ErrCodeValidationFormat,
					fmt.Sprintf("Trường '%s' không thuộc bề mặt truy vấn, không được dùng trong sort", field),
					common.StatusBadRequest,
					nil,
				)
			}
			if v, ok := value.(float64); !ok || (v != 1 && v != -1) {
				return common.NewError(
					common.ErrCodeValidationFormat,
					fmt.Sprintf("Giá trị sort cho trường '%s' phải là 1 (tăng dần) hoặc -1 (giảm dần), giá trị hiện tại: %v", field, value),
					common.StatusBadRequest,
					nil,
				)
			}
		}
	}

	if limit, ok := options["limit"].(float64); ok {
		if limit <= 0 {
			return common.NewError(
				common.ErrCodeValidationFormat,
				"Giá trị limit phải lớn hơn 0",
				common.StatusBadRequest,
				nil,
			)
		}
		if limit > 1000 {
			return common.NewError(
				common.ErrCodeValidationFormat,
				"Giá trị limit không được vượt quá 1000 để đảm bảo hiệu năng hệ thống",
				common.StatusBadRequest,
				nil,
			)
		}
	}

	if skip, ok := options["skip"].(float64); ok {
		if skip < 0 {
			return common.NewError(
				common.ErrCodeValidationFormat,
				"Giá trị skip không được âm",
				common.StatusBadRequest,
				nil,
			)
		}
	}

	return nil
}

// ParsePagination đọc page/limit từ query string.
// Mặc định page=1, limit=10; giá trị không hợp lệ rơi về mặc định.
func (h *BaseHandler[T, CreateInput, UpdateInput]) ParsePagination(c fiber.Ctx) (int64, int64) {
	page, err := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	if err != nil || page <= 0 {
		page = 1
	}

	limit, err := strconv.ParseInt(c.Query("limit", "10"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 10
	}

	return page, limit
}
