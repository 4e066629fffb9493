package inquiry

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("inquiry not found")

// Repository persists inquiries.
type Repository interface {
	Create(ctx context.Context, in *Inquiry) error
	UpdateStatus(ctx context.Context, id string, status Status, deliveryErr string) error
	// List returns the newest inquiries first. An empty kind lists all kinds.
	List(ctx context.Context, kind Kind, limit int) ([]*Inquiry, error)
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, in *Inquiry) error {
	_, err := r.col.InsertOne(ctx, in)
	return err
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, status Status, deliveryErr string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status, "deliveryError": deliveryErr}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context, kind Kind, limit int) ([]*Inquiry, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Inquiry{}
	for cur.Next(ctx) {
		var in Inquiry
		if err := cur.Decode(&in); err != nil {
			return nil, err
		}
		out = append(out, &in)
	}
	return out, cur.Err()
}

// MemoryRepository is an in-memory Repository used when MongoDB is not configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Inquiry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]*Inquiry{}}
}

func (r *MemoryRepository) Create(ctx context.Context, in *Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *in
	r.items[in.ID] = &cp
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status, deliveryErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	in.Status = status
	in.DeliveryError = deliveryErr
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, kind Kind, limit int) ([]*Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Inquiry{}
	for _, in := range r.items {
		if kind == "" || in.Kind == kind {
			cp := *in
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
