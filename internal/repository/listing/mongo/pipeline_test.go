package mongo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

func TestBuildPipeline_FilterOnly(t *testing.T) {
	p := plan.Plan{
		plan.Baseline(),
		plan.Filter{Conditions: []plan.Condition{
			{Field: plan.FieldPrice, Op: plan.OpGte, Value: 2e6},
			{Field: plan.FieldPrice, Op: plan.OpLte, Value: 4e6},
			{Field: plan.FieldCategory, Op: plan.OpEq, Value: "apartment"},
		}},
	}
	got, err := BuildPipeline(p, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{
		{Key: "isAvailable", Value: true},
		{Key: "isActive", Value: true},
	}}}, got[0])
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{
		{Key: "price", Value: bson.D{{Key: "$gte", Value: 2e6}, {Key: "$lte", Value: 4e6}}},
		{Key: "category", Value: "apartment"},
	}}}, got[1])
}

func TestBuildPipeline_GeoNearFirst(t *testing.T) {
	prox := plan.Proximity{Near: domain.Coordinates{Lon: 106.7, Lat: 10.77}, MaxDistance: 5000, DistanceField: "distance"}
	p := plan.Plan{plan.Baseline(), prox, plan.Opaque{Stage: plan.StageLimit, Value: int64(5)}}

	got, err := BuildPipeline(p, 50)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "$geoNear", got[0][0].Key)
	geo := got[0][0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "distanceField", Value: "distance"}, geo[1])
	assert.Equal(t, bson.E{Key: "maxDistance", Value: 5000.0}, geo[2])
	assert.Equal(t, bson.E{Key: "key", Value: "address.location"}, geo[3])
	assert.Equal(t, "$match", got[1][0].Key)
	assert.Equal(t, bson.D{{Key: "$limit", Value: int64(5)}}, got[2])
	assert.Equal(t, bson.D{{Key: "$limit", Value: int64(50)}}, got[3])
}

func TestBuildPipeline_OnlyFirstProximity(t *testing.T) {
	a := plan.Proximity{Near: domain.Coordinates{Lon: 1, Lat: 1}, MaxDistance: 10}
	b := plan.Proximity{Near: domain.Coordinates{Lon: 2, Lat: 2}, MaxDistance: 20}

	got, err := BuildPipeline(plan.Plan{a, b}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	geo := got[0][0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "distanceField", Value: "distance"}, geo[1])
	assert.Equal(t, bson.E{Key: "maxDistance", Value: 10.0}, geo[2])
}

func TestBuildPipeline_SortKeepsPrecedence(t *testing.T) {
	order := plan.SortOrder{{Field: "price", Dir: 1}, {Field: "area", Dir: -1}}
	p := plan.Plan{plan.Opaque{Stage: plan.StageSort, Value: order}}

	got, err := BuildPipeline(p, 0)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{
		{Key: "price", Value: int32(1)},
		{Key: "area", Value: int32(-1)},
	}}}, got[0])
}

func TestBuildPipeline_CustomDistanceFieldPinned(t *testing.T) {
	prox := plan.Proximity{Near: domain.Coordinates{Lon: 106.7, Lat: 10.77}, MaxDistance: 5000, DistanceField: "dist"}

	got, err := BuildPipeline(plan.Plan{prox}, 0)
	require.NoError(t, err)
	geo := got[0][0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "distanceField", Value: plan.DefaultDistanceField}, geo[1])
}

func TestBuildPipeline_RepeatedBoundKeepsTighter(t *testing.T) {
	f := plan.Filter{Conditions: []plan.Condition{
		{Field: plan.FieldPrice, Op: plan.OpLt, Value: 3e6},
		{Field: plan.FieldPrice, Op: plan.OpLt, Value: 5e6},
	}}

	got, err := BuildPipeline(plan.Plan{f}, 0)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{
		{Key: "price", Value: bson.D{{Key: "$lt", Value: 3e6}}},
	}}}, got[0])
}

func TestBuildPipeline_RepeatedOperatorGoesToAnd(t *testing.T) {
	f := plan.Filter{Conditions: []plan.Condition{
		{Field: plan.FieldCategory, Op: plan.OpNe, Value: "house"},
		{Field: plan.FieldCategory, Op: plan.OpNe, Value: "apartment"},
	}}

	got, err := BuildPipeline(plan.Plan{f}, 0)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{
		{Key: "category", Value: bson.D{{Key: "$ne", Value: "house"}}},
		{Key: "$and", Value: bson.A{
			bson.D{{Key: "category", Value: bson.D{{Key: "$ne", Value: "apartment"}}}},
		}},
	}}}, got[0])
}

func TestBuildPipeline_RejectsPlaceholder(t *testing.T) {
	_, err := BuildPipeline(plan.Plan{plan.Baseline(), plan.LocationPlaceholder{Place: "quận 1"}}, 0)
	assert.True(t, errors.Is(err, domain.ErrUnresolvedLocation))
}
