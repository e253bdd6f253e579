package stores

import (
	"context"
	"fmt"
	"recipe-server/config"
	"recipe-server/core"
	"recipe-server/stores/filesystem"
	"recipe-server/stores/memory"
	"recipe-server/stores/mongodb"
	"recipe-server/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore builds the collection store selected by cfg.Type.
func GetStore(ctx context.Context, cfg config.StorageConfig) (core.CollectionStore, error) {
	var (
		store core.CollectionStore
		err   error
	)

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["dataDir"] = cfg.DataDir
		store, err = filesystem.NewStore(cfg.DataDir)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(cfg.DataSourceName)
	case "mongodb":
		storageField["database"] = cfg.MongoDatabase
		store, err = mongodb.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "memory", "":
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
