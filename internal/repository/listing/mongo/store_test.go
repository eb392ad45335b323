package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

func TestStore_Execute(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes listings", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		first := mtest.CreateCursorResponse(0, "rentsearch.listings", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: oid},
				{Key: "title", Value: "Phòng trọ Q1"},
				{Key: "isAvailable", Value: true},
				{Key: "isActive", Value: true},
				{Key: "price", Value: 3e6},
				{Key: "roomId", Value: int32(900)},
				{Key: "postId", Value: "55"},
				{Key: "amenities", Value: bson.A{"wifi", "parking"}},
				{Key: "address", Value: bson.D{
					{Key: "city", Value: "Hồ Chí Minh"},
					{Key: "location", Value: bson.D{
						{Key: "type", Value: "Point"},
						{Key: "coordinates", Value: bson.A{106.7, 10.77}},
					}},
				}},
				{Key: "distance", Value: 1234.5},
			},
			bson.D{{Key: "_id", Value: "plain-id"}},
		)
		mt.AddMockResponses(first)

		s := New(mt.Coll, 20, zap.NewNop())
		got, err := s.Execute(context.Background(), plan.Fallback())
		require.NoError(t, err)
		require.Len(t, got, 2)

		l := got[0]
		assert.Equal(t, oid.Hex(), l.ID)
		assert.Equal(t, "900", l.RoomID)
		assert.Equal(t, "55", l.PostID)
		assert.Equal(t, 3e6, *l.Price)
		assert.Nil(t, l.Area)
		assert.Equal(t, []string{"wifi", "parking"}, l.Amenities)
		require.NotNil(t, l.Address.Location)
		assert.Equal(t, [2]float64{106.7, 10.77}, l.Address.Location.Coordinates)
		assert.Equal(t, 1234.5, *l.Distance)

		assert.Equal(t, "plain-id", got[1].ID)
		assert.Empty(t, got[1].RoomID)
	})

	mt.Run("empty result", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rentsearch.listings", mtest.FirstBatch))

		s := New(mt.Coll, 0, zap.NewNop())
		got, err := s.Execute(context.Background(), plan.Fallback())
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	mt.Run("server error wraps ErrListingStore", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "unknown operator",
		}))

		s := New(mt.Coll, 0, zap.NewNop())
		_, err := s.Execute(context.Background(), plan.Fallback())
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrListingStore))
	})

	mt.Run("unresolved placeholder is rejected before the query", func(mt *mtest.T) {
		s := New(mt.Coll, 0, zap.NewNop())
		_, err := s.Execute(context.Background(), plan.Plan{plan.LocationPlaceholder{Place: "q1"}})
		assert.True(t, errors.Is(err, domain.ErrUnresolvedLocation))
	})
}

func TestIDString(t *testing.T) {
	_, raw, err := bson.MarshalValue(int64(42))
	require.NoError(t, err)
	assert.Equal(t, "42", idString(bson.RawValue{Type: bson.TypeInt64, Value: raw}))
	assert.Equal(t, "", idString(bson.RawValue{}))
}
