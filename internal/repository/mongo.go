package repository

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore is the MongoDB backend.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	orders   *MongoOrderRepository
	accounts *MongoAccountRepository
	logger   *logging.Logger
}

// OpenMongo connects to MongoDB and verifies the primary is reachable.
func OpenMongo(ctx context.Context, cfg config.StoreConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger := logging.NewLogger("mongo-store")
	db := client.Database(cfg.Database)

	logger.Info("MongoDB connected", logging.Fields{"database": cfg.Database})

	return &MongoStore{
		client:   client,
		db:       db,
		orders:   NewMongoOrderRepository(db.Collection(ordersCollection)),
		accounts: NewMongoAccountRepository(db.Collection(accountsCollection)),
		logger:   logger,
	}, nil
}

func (s *MongoStore) Orders() OrderRepository     { return s.orders }
func (s *MongoStore) Accounts() AccountRepository { return s.accounts }
func (s *MongoStore) Driver() string              { return "mongodb" }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	s.logger.Info("Disconnecting from MongoDB")
	return s.client.Disconnect(ctx)
}

// Migrate creates the unique orderId index and the listing indexes.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(ordersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("orderId_unique"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("username"),
	})
	if err != nil {
		return err
	}

	s.logger.Info("MongoDB indexes ensured")
	return nil
}

type customerDocument struct {
	Name    string `bson:"name"`
	Phone   string `bson:"phone"`
	Address string `bson:"address"`
	Pincode string `bson:"pincode,omitempty"`
	Notes   string `bson:"notes,omitempty"`
}

type paymentDocument struct {
	Method string     `bson:"method"`
	Status string     `bson:"status"`
	PaidAt *time.Time `bson:"paidAt,omitempty"`
}

type orderDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	OrderID    string             `bson:"orderId"`
	Product    string             `bson:"product"`
	Quantity   int                `bson:"quantity"`
	TotalPrice float64            `bson:"totalPrice"`
	Customer   customerDocument   `bson:"customer"`
	Payment    paymentDocument    `bson:"payment"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

func toOrderDocument(o *models.Order) orderDocument {
	return orderDocument{
		OrderID:    o.OrderID,
		Product:    o.Product,
		Quantity:   o.Quantity,
		TotalPrice: o.TotalPrice,
		Customer:   customerDocument(o.Customer),
		Payment: paymentDocument{
			Method: o.Payment.Method,
			Status: string(o.Payment.Status),
			PaidAt: o.Payment.PaidAt,
		},
		CreatedAt: o.CreatedAt,
	}
}

func (d *orderDocument) toModel() *models.Order {
	return &models.Order{
		ID:         d.ID.Hex(),
		OrderID:    d.OrderID,
		Product:    d.Product,
		Quantity:   d.Quantity,
		TotalPrice: d.TotalPrice,
		Customer:   models.Customer(d.Customer),
		Payment: models.Payment{
			Method: d.Payment.Method,
			Status: models.PaymentStatus(d.Payment.Status),
			PaidAt: d.Payment.PaidAt,
		},
		CreatedAt: d.CreatedAt,
	}
}

// MongoOrderRepository implements OrderRepository on a MongoDB collection.
type MongoOrderRepository struct {
	coll   *mongo.Collection
	logger *logging.Logger
}

func NewMongoOrderRepository(coll *mongo.Collection) *MongoOrderRepository {
	return &MongoOrderRepository{
		coll:   coll,
		logger: logging.NewLogger("order-repository"),
	}
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	doc := toOrderDocument(order)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert order", logging.Fields{
			"order_id":  order.OrderID,
			"duplicate": mongo.IsDuplicateKeyError(err),
			"error":     err.Error(),
		})
		return nil, err
	}

	created := *order
	created.ID = doc.ID.Hex()

	r.logger.Debug("Order inserted", logging.Fields{
		"id":       created.ID,
		"order_id": created.OrderID,
	})
	return &created, nil
}

func (r *MongoOrderRepository) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, at time.Time) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed identity cannot match any document.
		return nil, errors.ErrNotFound
	}

	set := bson.M{"payment.status": string(status)}
	if status == models.PaymentStatusPaid {
		set["payment.paidAt"] = at
	}

	var doc orderDocument
	err = r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update payment", logging.Fields{
			"id":    id,
			"error": err.Error(),
		})
		return nil, err
	}

	return doc.toModel(), nil
}

func (r *MongoOrderRepository) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toModel())
	}
	return orders, nil
}

type accountDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

// MongoAccountRepository implements AccountRepository on a MongoDB collection.
type MongoAccountRepository struct {
	coll *mongo.Collection
}

func NewMongoAccountRepository(coll *mongo.Collection) *MongoAccountRepository {
	return &MongoAccountRepository{coll: coll}
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	doc := accountDocument{
		ID:           primitive.NewObjectID(),
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}

	created := *account
	created.ID = doc.ID.Hex()
	return &created, nil
}

func (r *MongoAccountRepository) FindByUsername(ctx context.Context, username string) ([]*models.Account, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	accounts := make([]*models.Account, 0, len(docs))
	for _, d := range docs {
		accounts = append(accounts, &models.Account{
			ID:           d.ID.Hex(),
			Username:     d.Username,
			PasswordHash: d.PasswordHash,
			CreatedAt:    d.CreatedAt,
		})
	}
	return accounts, nil
}
