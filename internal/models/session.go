package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SessionsColName = "sessions"

// Session tracks a signed-in browser. ExpiresAt is the absolute deadline and
// carries the TTL index, LastSeenAt drives the idle timeout.
type Session struct {
	ID         string    `bson:"_id" json:"id"`
	UserID     string    `bson:"user_id" json:"user_id"`
	IPAddress  string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent  string    `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	LastSeenAt time.Time `bson:"last_seen_at" json:"last_seen_at"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
}

type SessionRepo interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
}

// EnsureIndexes creates the TTL and lookup indexes for every Mongo collection
// the service writes to.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	sessions, err := mdb.GetCollection(SessionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	sessionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(0).
				SetName("expires_at_ttl"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_idx"),
		},
	}
	if _, err := sessions.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("error creating session indexes: %v", err)
	}

	logs, err := mdb.GetCollection(EmailLogsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	logIndexes := []mongo.IndexModel{
		{
			// Delivery logs are kept for 90 days.
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32((90 * 24 * time.Hour).Seconds())).
				SetName("created_at_ttl"),
		},
		{
			Keys: bson.D{
				{Key: "type", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("type_created_at_idx"),
		},
	}
	if _, err := logs.Indexes().CreateMany(ctx, logIndexes); err != nil {
		return fmt.Errorf("error creating email log indexes: %v", err)
	}

	return nil
}

func (mdb *MongodbRepo) CreateSession(ctx context.Context, s *Session) error {
	col, err := mdb.GetCollection(SessionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	if _, err := col.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting session: %v", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetSession(ctx context.Context, id string) (*Session, error) {
	col, err := mdb.GetCollection(SessionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	var s Session
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding session: %v", err)
	}
	return &s, nil
}

func (mdb *MongodbRepo) TouchSession(ctx context.Context, id string, at time.Time) error {
	col, err := mdb.GetCollection(SessionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_seen_at": at}},
	)
	if err != nil {
		return fmt.Errorf("error updating session: %v", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mdb *MongodbRepo) DeleteSession(ctx context.Context, id string) error {
	col, err := mdb.GetCollection(SessionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	if _, err := col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("error deleting session: %v", err)
	}
	return nil
}
