// internal/repository/product_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopgraph/catalog-backend/internal/models"
)

// ErrInvalidProductID is returned when an id is not a valid ObjectID hex.
var ErrInvalidProductID = errors.New("invalid product ID")

// ProductRepository executes product document operations against MongoDB.
// It owns no business logic; multi-document atomicity is provided through
// session-scoped transactions started with Txn.
type ProductRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

func NewProductRepository(client *mongo.Client, collection *mongo.Collection, timeout time.Duration) *ProductRepository {
	return &ProductRepository{
		client:     client,
		collection: collection,
		timeout:    timeout,
	}
}

// FindByID returns the product document or nil when absent.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidProductID
	}

	var product models.Product
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return &product, nil
}

// ExistsByID reports whether the product document is present.
func (r *ProductRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrInvalidProductID
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}

	return count > 0, nil
}

// FindAll lists products with pagination, optionally filtered by category id.
func (r *ProductRepository) FindAll(ctx context.Context, page, pageSize int, categoryID uint) ([]*models.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*r.timeout)
	defer cancel()

	filter := bson.M{}
	if categoryID != 0 {
		filter["category_ids"] = categoryID
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	if page > 0 && pageSize > 0 {
		findOptions.SetSkip(int64((page - 1) * pageSize))
		findOptions.SetLimit(int64(pageSize))
	} else {
		findOptions.SetLimit(100)
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, total, nil
}

// NamesByIDs returns the names of the given products, keyed by hex id.
// Missing ids are simply absent from the map.
func (r *ProductRepository) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*r.timeout)
	defer cancel()

	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objIDs = append(objIDs, objID)
	}

	cursor, err := r.collection.Find(ctx,
		bson.M{"_id": bson.M{"$in": objIDs}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product names: %w", err)
	}

	var rows []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode product names: %w", err)
	}

	for _, row := range rows {
		names[row.ID.Hex()] = row.Name
	}
	return names, nil
}

// DeleteByID removes the product document. The bool reports whether a
// document was actually deleted.
func (r *ProductRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrInvalidProductID
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	return result.DeletedCount > 0, nil
}

// UpsertReview replaces any existing review by the same customer and appends
// the new one. At most one review per customer-product pair.
func (r *ProductRepository) UpsertReview(ctx context.Context, id string, review models.Review) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidProductID
	}

	filter := bson.M{"_id": objID}

	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$pull": bson.M{"reviews": bson.M{"customer_id": review.CustomerID}},
	}); err != nil {
		return fmt.Errorf("failed to clear previous review: %w", err)
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"reviews": review},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to append review: %w", err)
	}

	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

// ProductIDsByCategory lists the ids of every product referencing the
// category.
func (r *ProductRepository) ProductIDsByCategory(ctx context.Context, categoryID uint) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.idsMatching(ctx, bson.M{"category_ids": categoryID})
}

// UpdateCategoryRefs rewrites every document referencing fromID to reference
// toID instead, returning the ids of the affected products so their cache
// entries can be invalidated.
func (r *ProductRepository) UpdateCategoryRefs(ctx context.Context, fromID, toID uint) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*r.timeout)
	defer cancel()

	filter := bson.M{"category_ids": fromID}

	ids, err := r.idsMatching(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	session, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	now := time.Now()

	// Both passes commit together; a failure between them must not leave
	// documents referencing both categories. $addToSet keeps the list free
	// of duplicates when a product already references the target category,
	// $pull then drops the old id.
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.UpdateMany(sc, filter, bson.M{
			"$addToSet": bson.M{"category_ids": toID},
			"$set":      bson.M{"updated_at": now},
		}); err != nil {
			return nil, fmt.Errorf("failed to add category reference: %w", err)
		}

		if _, err := r.collection.UpdateMany(sc, bson.M{"category_ids": fromID}, bson.M{
			"$pull": bson.M{"category_ids": fromID},
			"$set":  bson.M{"updated_at": now},
		}); err != nil {
			return nil, fmt.Errorf("failed to drop category reference: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *ProductRepository) idsMatching(ctx context.Context, filter bson.M) ([]string, error) {
	cursor, err := r.collection.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode product ids: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.Hex())
	}
	return ids, nil
}

// Txn opens a session-scoped multi-document transaction. The caller must
// finish it with Commit or Abort.
func (r *ProductRepository) Txn(ctx context.Context) (*ProductTxn, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	return &ProductTxn{
		session:    session,
		collection: r.collection,
		timeout:    r.timeout,
	}, nil
}

// ProductTxn is a session-scoped document transaction.
type ProductTxn struct {
	session    mongo.Session
	collection *mongo.Collection
	timeout    time.Duration
}

// Insert writes a new product document inside the transaction and returns the
// generated id.
func (t *ProductTxn) Insert(ctx context.Context, product *models.Product) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	err := mongo.WithSession(ctx, t.session, func(sc mongo.SessionContext) error {
		_, err := t.collection.InsertOne(sc, product)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}

	return product.ID.Hex(), nil
}

// ReplaceByID overwrites the mutable fields of the document inside the
// transaction. The bool reports whether the document was found.
func (t *ProductTxn) ReplaceByID(ctx context.Context, id string, product *models.Product) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrInvalidProductID
	}

	product.UpdatedAt = time.Now()

	var matched int64
	err = mongo.WithSession(ctx, t.session, func(sc mongo.SessionContext) error {
		result, err := t.collection.UpdateOne(sc, bson.M{"_id": objID}, bson.M{
			"$set": bson.M{
				"name":         product.Name,
				"description":  product.Description,
				"price":        product.Price,
				"brand":        product.Brand,
				"category_ids": product.CategoryIDs,
				"stock":        product.Stock,
				"reserved":     product.Reserved,
				"available":    product.Available,
				"attributes":   product.Attributes,
				"updated_at":   product.UpdatedAt,
			},
		})
		if err != nil {
			return err
		}
		matched = result.MatchedCount
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update product: %w", err)
	}

	return matched > 0, nil
}

// Commit commits the transaction and releases the session.
func (t *ProductTxn) Commit(ctx context.Context) error {
	defer t.session.EndSession(ctx)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.session.CommitTransaction(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Abort rolls back the transaction and releases the session.
func (t *ProductTxn) Abort(ctx context.Context) error {
	defer t.session.EndSession(ctx)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.session.AbortTransaction(ctx); err != nil {
		return fmt.Errorf("failed to abort transaction: %w", err)
	}
	return nil
}
