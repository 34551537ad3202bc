package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type indexedDoc struct {
	ID       string `bson:"_id"`
	CallerID string `bson:"callerId" index:"compound:callerId_callDate"`
	CallDate int64  `bson:"callDate" index:"single;compound:callerId_callDate"`
	Cost     int64  `bson:"cost,omitempty" index:"single,order:-1;compound:region_cost_unique"`
	Region   string `bson:"region" index:"compound:region_cost_unique"`
	Ignored  string `bson:"-" index:"single"`
}

func TestParseIndexTag(t *testing.T) {
	got := parseIndexTag("single,order:-1;compound:a_b")
	assert.Equal(t, []map[string]string{
		{"single": "", "order": "-1"},
		{"compound": "a_b"},
	}, got)
	assert.Empty(t, parseIndexTag(""))
}

func TestIndexSpecs(t *testing.T) {
	specs, err := IndexSpecs(&indexedDoc{})
	require.NoError(t, err)

	byName := map[string]IndexSpec{}
	for _, s := range specs {
		byName[s.Name] = s
	}
	require.Len(t, byName, 4)

	assert.Equal(t, bson.D{{Key: "callDate", Value: 1}}, byName["callDate_single"].Keys)
	assert.Equal(t, bson.D{{Key: "cost", Value: -1}}, byName["cost_single"].Keys)
	unique := byName["region_cost_unique"]
	assert.True(t, unique.Unique)
	assert.Equal(t, bson.D{{Key: "cost", Value: 1}, {Key: "region", Value: 1}}, unique.Keys)

	compound := byName["callerId_callDate"]
	assert.False(t, compound.Unique)
	assert.Equal(t, bson.D{{Key: "callerId", Value: 1}, {Key: "callDate", Value: 1}}, compound.Keys)
}

func TestSameIndex(t *testing.T) {
	spec := IndexSpec{Name: "cost_single", Keys: bson.D{{Key: "cost", Value: -1}}}
	assert.True(t, sameIndex(bson.M{"key": bson.M{"cost": int32(-1)}}, spec))
	assert.False(t, sameIndex(bson.M{"key": bson.M{"cost": int32(1)}}, spec))
	assert.False(t, sameIndex(bson.M{"key": bson.M{"cost": int32(-1)}, "unique": true}, spec))
}
