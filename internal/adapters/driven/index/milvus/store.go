package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
)

// Collection field names.
const (
	FieldID       = "id"
	FieldText     = "text"
	FieldSource   = "source"
	FieldMetadata = "metadata"
	FieldVector   = "vector"
)

// Schema limits.
const (
	maxIDLength     = 64
	maxTextLength   = 65535
	maxSourceLength = 2048
)

// HNSW build parameters.
const (
	hnswM              = 16
	hnswEfConstruction = 200
)

// Row is one chunk to insert.
type Row struct {
	ID       string
	Text     string
	Source   string
	Metadata []byte
	Vector   []float32
}

// Store is the subset of Milvus operations the index needs.
type Store interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	DropCollection(ctx context.Context, name string) error
	CreateCollection(ctx context.Context, name string, dim int) error
	Insert(ctx context.Context, name string, dim int, rows []Row) error
	Flush(ctx context.Context, name string) error
	Search(ctx context.Context, name string, vector []float32, k int) ([]domain.Hit, error)
	Close(ctx context.Context) error
}

// Ensure clientStore implements the interface.
var _ Store = (*clientStore)(nil)

// clientStore implements Store over the Milvus v2 client.
type clientStore struct {
	client *milvusclient.Client
}

// Dial connects to Milvus or Zilliz Cloud. Credentials come from cfg,
// which is populated from the environment only.
func Dial(ctx context.Context, cfg domain.MilvusConfig) (Store, error) {
	if cfg.Address == "" {
		return nil, domain.ConfigError("milvus: address is required (set MILVUS_URI)")
	}

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:       cfg.Address,
		Username:      cfg.Username,
		Password:      cfg.Password,
		APIKey:        cfg.Token,
		EnableTLSAuth: cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus: connect to %s: %w: %w", cfg.Address, domain.ErrIndexBackend, err)
	}
	return &clientStore{client: c}, nil
}

func (s *clientStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
}

func (s *clientStore) DropCollection(ctx context.Context, name string) error {
	return s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name))
}

func (s *clientStore) CreateCollection(ctx context.Context, name string, dim int) error {
	schema := &entity.Schema{
		CollectionName: name,
		Description:    "Knowledge base chunks",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxIDLength)},
			},
			{
				Name:       FieldText,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxTextLength)},
			},
			{
				Name:       FieldSource,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxSourceLength)},
			},
			{
				Name:     FieldMetadata,
				DataType: entity.FieldTypeJSON,
			},
			{
				Name:       FieldVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
		},
	}

	if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	idx := index.NewHNSWIndex(entity.COSINE, hnswM, hnswEfConstruction)
	task, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, FieldVector, idx))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("await index: %w", err)
	}

	load, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if err := load.Await(ctx); err != nil {
		return fmt.Errorf("await load: %w", err)
	}
	return nil
}

func (s *clientStore) Insert(ctx context.Context, name string, dim int, rows []Row) error {
	ids := make([]string, len(rows))
	texts := make([]string, len(rows))
	sources := make([]string, len(rows))
	metas := make([][]byte, len(rows))
	vectors := make([][]float32, len(rows))
	for i, r := range rows {
		ids[i], texts[i], sources[i], metas[i], vectors[i] = r.ID, r.Text, r.Source, r.Metadata, r.Vector
	}

	opt := milvusclient.NewColumnBasedInsertOption(name).
		WithVarcharColumn(FieldID, ids).
		WithVarcharColumn(FieldText, texts).
		WithVarcharColumn(FieldSource, sources).
		WithColumns(column.NewColumnJSONBytes(FieldMetadata, metas)).
		WithFloatVectorColumn(FieldVector, dim, vectors)

	if _, err := s.client.Insert(ctx, opt); err != nil {
		return fmt.Errorf("insert %d rows: %w", len(rows), err)
	}
	return nil
}

func (s *clientStore) Flush(ctx context.Context, name string) error {
	task, err := s.client.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return task.Await(ctx)
}

func (s *clientStore) Search(ctx context.Context, name string, vector []float32, k int) ([]domain.Hit, error) {
	opt := milvusclient.NewSearchOption(name, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldVector).
		WithOutputFields(FieldText, FieldSource, FieldMetadata)

	results, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		return []domain.Hit{}, nil
	}

	rs := results[0]
	texts := rs.GetColumn(FieldText)
	sources := rs.GetColumn(FieldSource)
	metas := rs.GetColumn(FieldMetadata)

	hits := make([]domain.Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("read id %d: %w", i, err)
		}
		chunk := domain.Chunk{ID: id, Metadata: map[string]any{}}

		if texts != nil {
			chunk.Content, _ = texts.GetAsString(i)
		}
		if metas != nil {
			if raw, err := metas.Get(i); err == nil {
				decodeMetadata(raw, chunk.Metadata)
			}
		}
		if sources != nil {
			if src, err := sources.GetAsString(i); err == nil && src != "" {
				chunk.Metadata[domain.MetaSource] = src
			}
		}

		var score float64
		if i < len(rs.Scores) {
			score = float64(rs.Scores[i])
		}
		hits = append(hits, domain.Hit{Chunk: chunk, Score: score})
	}
	return hits, nil
}

func (s *clientStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func decodeMetadata(raw any, into map[string]any) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	case string:
		data = []byte(v)
	default:
		return
	}
	_ = json.Unmarshal(data, &into)
}
