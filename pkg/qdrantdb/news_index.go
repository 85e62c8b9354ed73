package qdrantdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"newsgate/repository"
)

// Point ids must be UUIDs in qdrant; news item ids are mapped through a
// fixed namespace so the same item always yields the same point.
var idNamespace = uuid.MustParse("b1e0c9a2-5a34-4f8e-9d11-7c2e6f0a9d43")

// Index implements repository.SimilarityIndex on a remote qdrant
// collection. Load and Persist are no-ops: durability is qdrant's job.
type Index struct {
	client     *NewsClient
	collection string
	dim        int
}

func NewIndex(client *NewsClient, collection string, dimension int) *Index {
	return &Index{client: client, collection: collection, dim: dimension}
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet.
func (x *Index) EnsureCollection(ctx context.Context) error {
	exists, err := x.client.Client.CollectionExists(ctx, x.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = x.client.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(x.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("err create news collection: %w", err)
	}
	return nil
}

func (x *Index) pointID(newsItemID string) string {
	return uuid.NewSHA1(idNamespace, []byte(newsItemID)).String()
}

func (x *Index) Insert(ctx context.Context, id string, vec []float32) error {
	if len(vec) != x.dim {
		return &repository.DimensionMismatchError{ID: id, Got: len(vec), Want: x.dim}
	}

	pid := x.pointID(id)

	resp, err := x.client.Client.Get(ctx, &qdrant.GetPoints{
		CollectionName: x.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(pid)},
	})
	if err != nil {
		return err
	}
	if len(resp) > 0 {
		return nil
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(pid),
		Vectors: qdrant.NewVectorsDense(vec),
		Payload: qdrant.NewValueMap(map[string]any{
			"news_item_id": id,
		}),
	}

	_, err = x.client.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	return err
}

func (x *Index) QueryNearest(ctx context.Context, vec []float32, k int) ([]repository.Neighbor, error) {
	if len(vec) != x.dim {
		return nil, &repository.DimensionMismatchError{Got: len(vec), Want: x.dim}
	}
	if k <= 0 {
		k = 1
	}

	points, err := x.client.Client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("err query news collection: %w", err)
	}

	neighbors := make([]repository.Neighbor, 0, len(points))
	for _, p := range points {
		id := ""
		if v, ok := p.Payload["news_item_id"]; ok {
			id = v.GetStringValue()
		}
		neighbors = append(neighbors, repository.Neighbor{
			ID:         id,
			Similarity: p.Score,
		})
	}
	return neighbors, nil
}

// Load is a no-op; the collection lives server-side.
func (x *Index) Load(ctx context.Context) error { return nil }

// Persist is a no-op; qdrant persists on upsert.
func (x *Index) Persist(ctx context.Context) error { return nil }
