package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/studybuddy/core"
)

const connectTimeout = 10 * time.Second

// Connect opens the document store and waits for its primary to answer.
func Connect(ctx context.Context, conf *core.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Mongo.URI).SetAppName(conf.AppName))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return client, nil
}

// Collection returns the profiles collection.
func Collection(client *mongo.Client, conf *core.Config) *mongo.Collection {
	return client.Database(conf.Mongo.Database).Collection(conf.Mongo.Collection)
}
