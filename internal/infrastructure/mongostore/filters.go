package mongostore

import (
	"strings"
	"time"

	"github.com/h4food/foodmarket/internal/domain/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// decrementFilter only matches the item while it still holds at least quantity
// units, which makes the update below a conditional write.
func decrementFilter(id primitive.ObjectID, quantity int) bson.M {
	return bson.M{
		"_id":      id,
		"quantity": bson.M{"$gte": quantity},
	}
}

func decrementUpdate(quantity int, now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"quantity": -quantity, "soldCount": quantity},
		"$set": bson.M{"updatedAt": now},
	}
}

// patchSet builds the $set document for an owner edit. Only whitelisted fields
// can appear in it.
func patchSet(p catalog.Patch, now time.Time) (bson.M, error) {
	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Image != nil {
		set["image"] = *p.Image
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Origin != nil {
		set["origin"] = *p.Origin
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Price != nil {
		price, err := toDecimal128(*p.Price)
		if err != nil {
			return nil, err
		}
		set["price"] = price
	}
	if p.Quantity != nil {
		set["quantity"] = *p.Quantity
	}
	return set, nil
}

var (
	sortBySeq        = bson.D{{Key: "seq", Value: 1}}
	sortByTopSelling = bson.D{{Key: "soldCount", Value: -1}, {Key: "seq", Value: 1}}
)
