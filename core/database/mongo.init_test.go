package database

import (
	"testing"

	models "dub_studio/core/api/models/mongodb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// specByName gom danh sách spec theo tên index để assert từng cái
func specByName(specs []indexSpec) map[string]indexSpec {
	out := make(map[string]indexSpec, len(specs))
	for _, s := range specs {
		out[s.Name] = s
	}
	return out
}

func TestIndexSpecsFor_Episode(t *testing.T) {
	specs := specByName(indexSpecsFor(models.Episode{}))

	// collectionName unique giữ invariant "một số episode chỉ xuất hiện
	// một lần trong project" - hai CreateEpisode trùng số phải đụng nhau
	unique, ok := specs["collectionName_unique"]
	require.True(t, ok, "model Episode phải khai báo unique index trên collectionName")
	assert.True(t, unique.Unique)
	assert.Equal(t, bson.D{{Key: "collectionName", Value: 1}}, unique.Keys)

	_, ok = specs["projectId_single"]
	assert.True(t, ok, "thiếu single index trên projectId")
	_, ok = specs["status_single"]
	assert.True(t, ok, "thiếu single index trên status")
}

func TestIndexSpecsFor_Project(t *testing.T) {
	specs := specByName(indexSpecsFor(&models.Project{}))

	for _, name := range []string{"databaseName_unique", "projectNumber_unique"} {
		spec, ok := specs[name]
		require.True(t, ok, "thiếu unique index %s", name)
		assert.True(t, spec.Unique)
	}
	for _, name := range []string{"slug_single", "status_single"} {
		_, ok := specs[name]
		assert.True(t, ok, "thiếu single index %s", name)
	}
}

func TestIndexSpecsFor_BoQuaFieldKhongCoTag(t *testing.T) {
	type noIndex struct {
		Name string `bson:"name"`
	}
	assert.Empty(t, indexSpecsFor(noIndex{}))
}
