package mongo

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

// geoKey is the 2dsphere-indexed field used by $geoNear.
const geoKey = "address.location"

// BuildPipeline translates a resolved plan into an aggregation pipeline.
// The first Proximity stage is emitted as a leading $geoNear, later ones are dropped,
// since the server accepts $geoNear only as the first stage.
// A positive limit caps the result set.
func BuildPipeline(p plan.Plan, limit int64) (mongo.Pipeline, error) {
	if p.HasUnresolvedLocation() {
		return nil, domain.ErrUnresolvedLocation
	}

	pipeline := make(mongo.Pipeline, 0, len(p)+1)
	seenGeo := false
	for _, s := range p {
		if prox, ok := s.(plan.Proximity); ok {
			if !seenGeo {
				pipeline = append(mongo.Pipeline{geoNearStage(prox)}, pipeline...)
				seenGeo = true
			}
			continue
		}
		if st, ok := stage(s); ok {
			pipeline = append(pipeline, st)
		}
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: plan.StageLimit, Value: limit}})
	}
	return pipeline, nil
}

func stage(s plan.Stage) (bson.D, bool) {
	switch st := s.(type) {
	case plan.Filter:
		return bson.D{{Key: plan.StageMatch, Value: matchDoc(st)}}, true
	case plan.Opaque:
		if order, ok := st.Value.(plan.SortOrder); ok {
			return bson.D{{Key: st.Stage, Value: sortDoc(order)}}, true
		}
		return bson.D{{Key: st.Stage, Value: st.Value}}, true
	default:
		return nil, false
	}
}

// matchDoc keeps conditions in plan order so the pipeline is deterministic.
func matchDoc(f plan.Filter) bson.D {
	doc := plan.MatchDocument(f)
	out := make(bson.D, 0, len(doc))
	seen := make(map[string]bool, len(doc))
	for _, c := range f.Conditions {
		if seen[c.Field] {
			continue
		}
		seen[c.Field] = true
		v := doc[c.Field]
		if ops, ok := v.(map[string]any); ok {
			v = sortedOps(ops)
		}
		out = append(out, bson.E{Key: c.Field, Value: v})
	}
	if extra, ok := doc[plan.AndKey].([]any); ok {
		and := make(bson.A, 0, len(extra))
		for _, e := range extra {
			for field, ops := range e.(map[string]any) {
				and = append(and, bson.D{{Key: field, Value: sortedOps(ops.(map[string]any))}})
			}
		}
		out = append(out, bson.E{Key: plan.AndKey, Value: and})
	}
	return out
}

func sortedOps(ops map[string]any) bson.D {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: ops[k]})
	}
	return out
}

func sortDoc(order plan.SortOrder) bson.D {
	out := make(bson.D, 0, len(order))
	for _, k := range order {
		out = append(out, bson.E{Key: k.Field, Value: int32(k.Dir)})
	}
	return out
}

// geoNearStage always writes the distance to plan.DefaultDistanceField, the field listingDoc decodes.
func geoNearStage(p plan.Proximity) bson.D {
	return bson.D{{Key: plan.StageGeoNear, Value: bson.D{
		{Key: "near", Value: bson.D{
			{Key: "type", Value: "Point"},
			{Key: "coordinates", Value: bson.A{p.Near.Lon, p.Near.Lat}},
		}},
		{Key: "distanceField", Value: plan.DefaultDistanceField},
		{Key: "maxDistance", Value: p.MaxDistance},
		{Key: "key", Value: geoKey},
		{Key: "spherical", Value: true},
	}}}
}
