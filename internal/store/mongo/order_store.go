// Package mongo reads the order catalog (orders, users, products, sellers)
// that the storefront services keep in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payrelay/internal/domain/order"
	"payrelay/internal/store/repositories"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collOrders   = "orders"
	collUsers    = "users"
	collProducts = "products"
	collSellers  = "sellers"
)

// MustConnect dials MongoDB and waits for a primary, backing off for up to maxWait.
func MustConnect(ctx context.Context, uri string, maxWait time.Duration) *mongo.Client {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect fail")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	err = backoff.RetryNotify(func() error {
		return client.Ping(ctx, readpref.Primary())
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("mongo ping failed, retrying")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo ping fail")
	}
	return client
}

// OrderStore implements repositories.OrderStore over a Mongo database.
type OrderStore struct {
	db *mongo.Database
}

func NewOrderStore(db *mongo.Database) *OrderStore { return &OrderStore{db: db} }

var _ repositories.OrderStore = (*OrderStore)(nil)

type orderDoc struct {
	ID         any            `bson:"_id"`
	UserID     any            `bson:"userId"`
	SellerIDs  []any          `bson:"sellerIds"`
	TotalPrice bson.RawValue  `bson:"totalPrice"`
	Products   []orderItemDoc `bson:"products"`
}

type orderItemDoc struct {
	ProductID any           `bson:"productId"`
	Quantity  int           `bson:"quantity"`
	Price     bson.RawValue `bson:"price"`
}

type userDoc struct {
	ID    any    `bson:"_id"`
	Email string `bson:"email"`
	Phone string `bson:"phone"`
}

type productDoc struct {
	ID       any    `bson:"_id"`
	Name     string `bson:"name"`
	SellerID any    `bson:"sellerId"`
}

type sellerDoc struct {
	ID    any    `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
	Phone string `bson:"phone"`
}

func (s *OrderStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	var doc orderDoc
	if err := s.findByID(ctx, collOrders, orderID, &doc); err != nil {
		return nil, err
	}

	total, err := decimalFrom(doc.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("order %s totalPrice: %w", orderID, err)
	}
	o := &order.Order{
		ID:         idString(doc.ID),
		UserID:     idString(doc.UserID),
		TotalPrice: total,
	}
	for _, sid := range doc.SellerIDs {
		o.SellerIDs = append(o.SellerIDs, idString(sid))
	}
	for _, it := range doc.Products {
		price, err := decimalFrom(it.Price)
		if err != nil {
			return nil, fmt.Errorf("order %s item price: %w", orderID, err)
		}
		o.Items = append(o.Items, order.Item{
			ProductID: idString(it.ProductID),
			Quantity:  it.Quantity,
			Price:     price,
		})
	}
	return o, nil
}

func (s *OrderStore) GetUser(ctx context.Context, userID string) (*order.User, error) {
	var doc userDoc
	if err := s.findByID(ctx, collUsers, userID, &doc); err != nil {
		return nil, err
	}
	return &order.User{ID: idString(doc.ID), Email: doc.Email, Phone: doc.Phone}, nil
}

func (s *OrderStore) GetProduct(ctx context.Context, productID string) (*order.Product, error) {
	var doc productDoc
	if err := s.findByID(ctx, collProducts, productID, &doc); err != nil {
		return nil, err
	}
	return &order.Product{ID: idString(doc.ID), Name: doc.Name, SellerID: idString(doc.SellerID)}, nil
}

func (s *OrderStore) GetSeller(ctx context.Context, sellerID string) (*order.Seller, error) {
	var doc sellerDoc
	if err := s.findByID(ctx, collSellers, sellerID, &doc); err != nil {
		return nil, err
	}
	return &order.Seller{ID: idString(doc.ID), Name: doc.Name, Email: doc.Email, Phone: doc.Phone}, nil
}

// findByID accepts both ObjectID hex strings and plain string keys.
func (s *OrderStore) findByID(ctx context.Context, coll, id string, out any) error {
	if id == "" {
		return repositories.ErrNotFound
	}
	var key any = id
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		key = oid
	}

	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": key}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repositories.ErrNotFound
	}
	return err
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// decimalFrom reads a numeric BSON value exactly where the type allows it.
func decimalFrom(rv bson.RawValue) (decimal.Decimal, error) {
	switch rv.Type {
	case bsontype.Double:
		return decimal.NewFromFloat(rv.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(rv.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(rv.Int64()), nil
	case bsontype.Decimal128:
		return decimal.NewFromString(rv.Decimal128().String())
	case bsontype.String:
		return decimal.NewFromString(rv.StringValue())
	case bsontype.Type(0), bsontype.Null, bsontype.Undefined:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric type %s", rv.Type)
	}
}
