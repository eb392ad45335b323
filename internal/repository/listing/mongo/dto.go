package mongo

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/rentsearch/internal/domain"
)

// listingDoc mirrors a stored listing. Identifier fields are decoded loosely:
// upstream writers store them as strings, integers or ObjectIDs.
type listingDoc struct {
	ID          bson.RawValue  `bson:"_id"`
	Title       string         `bson:"title"`
	IsAvailable bool           `bson:"isAvailable"`
	IsActive    bool           `bson:"isActive"`
	Category    string         `bson:"category"`
	Price       *float64       `bson:"price"`
	Area        *float64       `bson:"area"`
	Address     domain.Address `bson:"address"`
	Amenities   []string       `bson:"amenities"`
	RoomID      bson.RawValue  `bson:"roomId"`
	PostID      bson.RawValue  `bson:"postId"`
	BuildingID  bson.RawValue  `bson:"buildingId"`
	Distance    *float64       `bson:"distance"`
}

func (d *listingDoc) toDomain() domain.Listing {
	return domain.Listing{
		ID:          idString(d.ID),
		Title:       d.Title,
		IsAvailable: d.IsAvailable,
		IsActive:    d.IsActive,
		Category:    d.Category,
		Price:       d.Price,
		Area:        d.Area,
		Address:     d.Address,
		Amenities:   d.Amenities,
		RoomID:      idString(d.RoomID),
		PostID:      idString(d.PostID),
		BuildingID:  idString(d.BuildingID),
		Distance:    d.Distance,
	}
}

func idString(v bson.RawValue) string {
	switch v.Type {
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeObjectID:
		return v.ObjectID().Hex()
	case bson.TypeInt32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case bson.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case bson.TypeDouble:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case 0, bson.TypeNull, bson.TypeUndefined:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
