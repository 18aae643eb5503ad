// Package audit writes request outcomes to the request_logs collection.
// Writes are best effort: a failing or missing store never reaches the caller.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/entity"
)

const CollectionName = "request_logs"

var ErrNotConfigured = errors.New("audit store is not configured")

// Inserter is the subset of *mongo.Collection the logger writes through.
type Inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type Logger struct {
	client  *mongo.Client
	coll    Inserter
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewMongoClient builds a client with a short server selection timeout.
// mongo.Connect does not dial, so this succeeds while the server is down.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, ErrNotConfigured
	}
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(3 * time.Second).
		SetConnectTimeout(3 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	return client, nil
}

// NewLogger returns a logger writing to dbName.request_logs. A nil client
// or an empty dbName yields a logger whose Record is a no-op.
func NewLogger(client *mongo.Client, dbName string, logger *zap.Logger) *Logger {
	l := &Logger{
		client:  client,
		logger:  logger,
		timeout: 3 * time.Second,
		now:     time.Now,
	}
	if client != nil && dbName != "" {
		l.coll = client.Database(dbName).Collection(CollectionName)
	}
	return l
}

// NewLoggerWithInserter writes through an arbitrary inserter; Ping reports
// ErrNotConfigured since there is no client to ping.
func NewLoggerWithInserter(coll Inserter, logger *zap.Logger) *Logger {
	return &Logger{
		coll:    coll,
		logger:  logger,
		timeout: 3 * time.Second,
		now:     time.Now,
	}
}

func (l *Logger) Record(ctx context.Context, phoneNumber string, metadata entity.Metadata, success bool, errMsg string) {
	if l.coll == nil {
		l.logger.Debug("audit store not configured; skipping log entry", zap.String("phone_number", phoneNumber))
		return
	}

	if metadata == nil {
		metadata = entity.Metadata{}
	}
	entry := entity.AuditEntry{
		PhoneNumber: phoneNumber,
		Success:     success,
		Timestamp:   l.now().UTC(),
		Metadata:    metadata,
	}
	if errMsg != "" {
		entry.Error = &errMsg
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if _, err := l.coll.InsertOne(ctx, entry); err != nil {
		l.logger.Warn("unable to write audit entry", zap.String("phone_number", phoneNumber), zap.Error(err))
	}
}

// Ping runs the admin ping command against the backing store.
func (l *Logger) Ping(ctx context.Context) error {
	if l.client == nil {
		return ErrNotConfigured
	}
	return l.client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

func (l *Logger) Close(ctx context.Context) error {
	if l.client == nil {
		return nil
	}
	return l.client.Disconnect(ctx)
}
