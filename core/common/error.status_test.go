package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKeyError(indexName string) error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{
			{
				Code:    11000,
				Message: "E11000 duplicate key error collection: dub_studio.projects index: " + indexName + " dup key: { projectNumber: 7 }",
			},
		},
	}
}

func TestConvertMongoError_DuplicateKey(t *testing.T) {
	t.Run("Lỗi duplicate giữ lại tên unique index đã vi phạm", func(t *testing.T) {
		raw := duplicateKeyError("projectNumber_unique")
		assert.True(t, mongo.IsDuplicateKeyError(raw))

		converted := ConvertMongoError(raw)
		assert.True(t, errors.Is(converted, ErrMongoDuplicate))
		assert.Equal(t, "projectNumber_unique", DuplicateKeyIndex(converted))
	})

	t.Run("Hai unique index khác nhau phân biệt được qua DuplicateKeyIndex", func(t *testing.T) {
		byDatabase := ConvertMongoError(duplicateKeyError("databaseName_unique"))
		byNumber := ConvertMongoError(duplicateKeyError("projectNumber_unique"))

		assert.Equal(t, "databaseName_unique", DuplicateKeyIndex(byDatabase))
		assert.Equal(t, "projectNumber_unique", DuplicateKeyIndex(byNumber))
	})

	t.Run("Lỗi duplicate không có tên index vẫn convert về ErrMongoDuplicate", func(t *testing.T) {
		raw := mongo.WriteException{
			WriteErrors: mongo.WriteErrors{
				{Code: 11000, Message: "E11000 duplicate key error"},
			},
		}
		converted := ConvertMongoError(raw)
		assert.True(t, errors.Is(converted, ErrMongoDuplicate))
		assert.Equal(t, "", DuplicateKeyIndex(converted))
	})

	t.Run("Lỗi không phải duplicate trả về index rỗng", func(t *testing.T) {
		assert.Equal(t, "", DuplicateKeyIndex(errors.New("lỗi khác")))
		assert.Equal(t, "", DuplicateKeyIndex(ErrNotFound))
	})
}
