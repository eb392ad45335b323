// Package listingindex looks up listing attributes in the Elasticsearch listing index.
package listingindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/kailas-cloud/rentsearch/internal/domain"
)

// DefaultIndexName is used when no index name is configured.
const DefaultIndexName = "listings"

// Config holds index connection parameters.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Index reads listing signals from Elasticsearch.
type Index struct {
	client    *elasticsearch.Client
	indexName string
}

// esSearchResponse is the subset of a search response we decode.
type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				RoomID    json.RawMessage `json:"roomId"`
				Amenities []string        `json:"amenities"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an index client. It does not contact the cluster.
func New(cfg Config) (*Index, error) {
	name := cfg.Index
	if name == "" {
		name = DefaultIndexName
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}
	return &Index{client: client, indexName: name}, nil
}

// Ping checks whether the cluster is reachable.
func (i *Index) Ping(ctx context.Context) error {
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// LookupByRoom returns the signals of the listing with the given room id.
func (i *Index) LookupByRoom(ctx context.Context, roomID string) (domain.ListingSignals, error) {
	return i.lookup(ctx, "roomId", roomID)
}

// LookupByPost returns the signals of the listing with the given post id.
func (i *Index) LookupByPost(ctx context.Context, postID string) (domain.ListingSignals, error) {
	return i.lookup(ctx, "postId", postID)
}

func (i *Index) lookup(ctx context.Context, field, id string) (domain.ListingSignals, error) {
	query := map[string]any{
		"size":    1,
		"_source": []string{"roomId", "amenities"},
		"query": map[string]any{
			"term": map[string]any{field: id},
		},
	}
	data, err := json.Marshal(query)
	if err != nil {
		return domain.ListingSignals{}, fmt.Errorf("elasticsearch lookup: marshal query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithIndex(i.indexName),
		i.client.Search.WithBody(bytes.NewReader(data)),
		i.client.Search.WithContext(ctx),
	)
	if err != nil {
		return domain.ListingSignals{}, fmt.Errorf("elasticsearch lookup: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return domain.ListingSignals{}, fmt.Errorf("elasticsearch lookup: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return domain.ListingSignals{}, fmt.Errorf("elasticsearch lookup: unexpected status %s", res.Status())
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return domain.ListingSignals{}, fmt.Errorf("elasticsearch lookup: decode response: %w", err)
	}
	if len(esResp.Hits.Hits) == 0 {
		return domain.ListingSignals{}, fmt.Errorf("%s %s: %w", field, id, domain.ErrListingNotFound)
	}

	src := esResp.Hits.Hits[0].Source
	return domain.ListingSignals{
		RoomID:    rawID(src.RoomID),
		Amenities: src.Amenities,
	}, nil
}

// rawID accepts a JSON string or number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}
