package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/facetdex/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := def.Args()
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name. Hashes are kept.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexInfo reads the document count and background-scan state of an index
// from FT.INFO. An unknown index yields db.ErrIndexNotFound.
func (s *Store) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	m, err := s.do(ctx, cmd).AsMap()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	info := &db.IndexInfo{}
	if v, ok := m["num_docs"]; ok {
		n, err := infoNumber(v)
		if err != nil {
			return nil, &db.Error{Op: db.OpIndexInfo, Err: fmt.Errorf("num_docs: %w", err)}
		}
		info.NumDocs = int64(n)
	}
	if v, ok := m["indexing"]; ok {
		n, err := infoNumber(v)
		if err != nil {
			return nil, &db.Error{Op: db.OpIndexInfo, Err: fmt.Errorf("indexing: %w", err)}
		}
		info.Indexing = n != 0
	}
	return info, nil
}

// infoNumber reads an FT.INFO numeric, which servers send as an integer,
// a double or a numeric string depending on version and protocol.
func infoNumber(v rueidis.RedisMessage) (float64, error) {
	if n, err := v.AsInt64(); err == nil {
		return float64(n), nil
	}
	if f, err := v.AsFloat64(); err == nil {
		return f, nil
	}
	str, err := v.ToString()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(str, 64)
}
