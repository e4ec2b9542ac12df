package commands

import (
	"context"

	"github.com/flowpulse/flowpulse/internal/data/store"
)

// openStore connects to the configured MongoDB deployment.
func openStore(ctx context.Context) (store.Store, error) {
	uri := mongoURI
	if uri == "" {
		uri = envOr("MONGO_URI", defaultMongoURI)
	}
	return store.NewMongoStore(ctx, uri, mongoDB)
}
