package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
)

// MongoStore keeps products and orders in two MongoDB collections.
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	orders   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection
func NewMongoStore(ctx context.Context, uri, databaseName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(databaseName)
	return &MongoStore{
		client:   client,
		products: db.Collection(productsCollection),
		orders:   db.Collection(ordersCollection),
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

// idFilter matches both string ids and legacy ObjectId ids.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func (s *MongoStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.products.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Conflict(fmt.Sprintf("product with id %s already exists", p.ID))
	}
	return classifyMongo(err, "failed to insert product")
}

func (s *MongoStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.products.FindOne(ctx, idFilter(id)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, classifyMongo(err, "failed to get product")
	}
	p.MigrateImages()
	return &p, nil
}

func (s *MongoStore) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	err := s.products.FindOne(ctx, bson.M{"name": name}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyMongo(err, "failed to find product")
	}
	p.MigrateImages()
	return &p, nil
}

func (s *MongoStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.products.Find(ctx, productQuery(filter), opts)
	if err != nil {
		return nil, classifyMongo(err, "failed to list products")
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, classifyMongo(err, "failed to decode products")
	}
	for i := range products {
		products[i].MigrateImages()
	}
	return products, nil
}

func productQuery(filter ProductFilter) bson.M {
	q := bson.M{}
	for path, v := range filter.Equals {
		q[path] = v
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}
	return q
}

func (s *MongoStore) UpdateProduct(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	set := patch.SetFields()
	if len(set) == 0 {
		return s.GetProduct(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Product
	err := s.products.FindOneAndUpdate(ctx, idFilter(id), bson.M{"$set": bson.M(set)}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, classifyMongo(err, "failed to update product")
	}
	p.MigrateImages()
	return &p, nil
}

func (s *MongoStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.products.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return classifyMongo(err, "failed to delete product")
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func (s *MongoStore) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := s.orders.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Conflict(fmt.Sprintf("order with id %s already exists", o.ID))
	}
	return classifyMongo(err, "failed to insert order")
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.orders.FindOne(ctx, idFilter(id)).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("order", id)
	}
	if err != nil {
		return nil, classifyMongo(err, "failed to get order")
	}
	return &o, nil
}

func (s *MongoStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var o models.Order
	err := s.orders.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyMongo(err, "failed to get order")
	}
	return &o, nil
}

func (s *MongoStore) ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.orders.Find(ctx, bson.M{"user_email": email}, opts)
	if err != nil {
		return nil, classifyMongo(err, "failed to list orders")
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, classifyMongo(err, "failed to decode orders")
	}
	return orders, nil
}

func classifyMongo(err error, msg string) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.StoreUnavailable(err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
