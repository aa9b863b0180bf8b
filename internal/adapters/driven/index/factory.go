package index

import (
	"context"

	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index/local"
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index/milvus"
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/index/sqlite"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
)

// New creates an empty index builder for cfg.Backend. dim is the
// embedding dimension, used by backends that declare a schema up front.
func New(ctx context.Context, cfg domain.IndexConfig, dim int) (driven.IndexBuilder, error) {
	switch cfg.Backend {
	case domain.IndexLocal:
		return nonNil(local.New(cfg.Path))
	case domain.IndexSQLite:
		return nonNil(sqlite.New(cfg.Path))
	case domain.IndexMilvus:
		store, err := milvus.Dial(ctx, cfg.Milvus)
		if err != nil {
			return nil, err
		}
		x, err := milvus.New(milvusConfig(cfg, dim), store)
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
		return x, nil
	default:
		return nil, domain.ConfigError("unknown index backend %q", cfg.Backend)
	}
}

// Open returns a persisted index for querying.
func Open(ctx context.Context, cfg domain.IndexConfig, dim int) (driven.IndexBuilder, error) {
	switch cfg.Backend {
	case domain.IndexLocal:
		return nonNil(local.Load(cfg.Path))
	case domain.IndexSQLite:
		return nonNil(sqlite.Load(ctx, cfg.Path))
	case domain.IndexMilvus:
		store, err := milvus.Dial(ctx, cfg.Milvus)
		if err != nil {
			return nil, err
		}
		x, err := milvus.Open(milvusConfig(cfg, dim), store)
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
		return x, nil
	default:
		return nil, domain.ConfigError("unknown index backend %q", cfg.Backend)
	}
}

func milvusConfig(cfg domain.IndexConfig, dim int) milvus.Config {
	return milvus.Config{
		Collection: cfg.Collection,
		Dimension:  dim,
		BatchSize:  cfg.BatchSize,
		Append:     cfg.Milvus.Append,
	}
}

// nonNil keeps a typed nil pointer out of the returned interface.
func nonNil[T driven.IndexBuilder](x T, err error) (driven.IndexBuilder, error) {
	if err != nil {
		return nil, err
	}
	return x, nil
}
