package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var def *db.IndexDefinition
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		if key != "facetdex:index:products" {
			t.Errorf("unexpected key: %s", key)
		}
		if fields["fields_json"] == "" {
			t.Error("fields_json missing")
		}
		return nil
	}
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.Create(ctx, testIndex(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "FT.CREATE facetdex:idx:products ON HASH PREFIX 1 facetdex:products: STOPWORDS 0 SCHEMA " +
		"brand TAG SEPARATOR | CASESENSITIVE categories.lvl0 AS categories_lvl0 TAG SEPARATOR | CASESENSITIVE " +
		"price NUMERIC SORTABLE name TEXT _tags TAG SEPARATOR | CASESENSITIVE"
	if def.String() != want {
		t.Errorf("definition = %q\nwant %q", def.String(), want)
	}
	if def.Fields[0].TagSeparator != "|" || !def.Fields[0].TagCaseSensitive {
		t.Errorf("tag options = %+v", def.Fields[0])
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	err := repo.Create(context.Background(), testIndex(t))
	if !errors.Is(err, domain.ErrIndexAlreadyExists) {
		t.Fatalf("expected ErrIndexAlreadyExists, got %v", err)
	}
}

func TestCreate_HSetError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("connection lost")
	}

	if err := repo.Create(context.Background(), testIndex(t)); err == nil {
		t.Fatal("expected error on HSET failure")
	}
}

func TestCreate_FTCreateError_Rollback(t *testing.T) {
	repo, ms := newTestRepo(t)

	var delCalled bool
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return db.ErrIndexExists
	}
	ms.delFn = func(_ context.Context, keys ...string) (int64, error) {
		delCalled = true
		if len(keys) != 1 || keys[0] != "facetdex:index:products" {
			t.Errorf("unexpected DEL keys: %v", keys)
		}
		return 1, nil
	}

	err := repo.Create(context.Background(), testIndex(t))
	if !errors.Is(err, domain.ErrIndexAlreadyExists) {
		t.Fatalf("expected ErrIndexAlreadyExists, got %v", err)
	}
	if !delCalled {
		t.Error("expected DEL to be called for rollback")
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "facetdex:index:products" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"name":                "products",
			"fields_json":         `[{"name":"brand","type":"tag"}]`,
			"created_at":          "1700000000000",
			"revision":            "2",
			"facet_ordering_json": `{"facet":{"order":["brand"]}}`,
		}, nil
	}

	idx, err := repo.Get(context.Background(), "products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name() != "products" || idx.Revision() != 2 {
		t.Fatalf("unexpected index: %s rev %d", idx.Name(), idx.Revision())
	}
	if len(idx.Fields()) != 1 || idx.Fields()[0].Name() != "brand" {
		t.Fatalf("unexpected fields: %+v", idx.Fields())
	}
	if o := idx.FacetOrdering(); o == nil || o.Facet.Order[0] != "brand" {
		t.Fatalf("unexpected facet ordering: %+v", o)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestHashRoundTrip_FacetOrdering(t *testing.T) {
	idx := testIndex(t).WithFacetOrdering(&response.FacetOrdering{
		Values: map[string]response.ValuesOrder{
			"brand": {Order: []string{"Apple"}, SortRemainingBy: "alpha"},
		},
	})
	m, err := indexToHash(idx)
	if err != nil {
		t.Fatalf("indexToHash: %v", err)
	}
	back, err := indexFromHash(m)
	if err != nil {
		t.Fatalf("indexFromHash: %v", err)
	}
	vo, ok := back.FacetOrdering().ValuesOrder("brand")
	if !ok || vo.SortRemainingBy != "alpha" || vo.Order[0] != "Apple" {
		t.Errorf("ordering = %+v", back.FacetOrdering())
	}
	if len(back.Fields()) != 4 {
		t.Errorf("fields = %d, want 4", len(back.Fields()))
	}
}

// --- List ---

func TestList_SortedByCreation(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "facetdex:index:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{"facetdex:index:alpha", "facetdex:index:beta"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return []map[string]string{
			{"name": "alpha", "fields_json": "[]", "created_at": "1700000000002"},
			{"name": "beta", "fields_json": "[]", "created_at": "1700000000001"},
		}, nil
	}

	idxs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idxs) != 2 || idxs[0].Name() != "beta" || idxs[1].Name() != "alpha" {
		t.Fatalf("unexpected order: %v", idxs)
	}
}

func TestList_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	idxs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idxs) != 0 {
		t.Fatalf("expected empty list, got %d", len(idxs))
	}
}

// --- Delete ---

func TestDelete_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"name": "products", "fields_json": "[]", "created_at": "1"}, nil
	}
	var dropped string
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = name
		return nil
	}

	if err := repo.Delete(context.Background(), "products"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != "facetdex:idx:products" {
		t.Errorf("dropped %q", dropped)
	}
}

func TestDelete_DropError_Rollback(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"name": "products", "fields_json": "[]", "created_at": "1"}, nil
	}
	ms.dropIndexFn = func(_ context.Context, _ string) error { return errors.New("boom") }
	var restored bool
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		restored = true
		return nil
	}

	if err := repo.Delete(context.Background(), "products"); err == nil {
		t.Fatal("expected error")
	}
	if !restored {
		t.Error("expected metadata to be restored")
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexInfoFn = func(_ context.Context, name string) (*db.IndexInfo, error) {
		if name != "facetdex:idx:products" {
			t.Errorf("unexpected FT index %s", name)
		}
		return &db.IndexInfo{NumDocs: 12, Indexing: true}, nil
	}

	st, err := repo.Stats(context.Background(), testIndex(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Entries != 12 || !st.Indexing {
		t.Errorf("stats = %+v", st)
	}
}

func TestStats_BackendIndexMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Stats(context.Background(), testIndex(t))
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

// --- UpdateFacetOrdering ---

func TestUpdateFacetOrdering_RevisesIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	stored, err := indexToHash(testIndex(t))
	if err != nil {
		t.Fatalf("indexToHash: %v", err)
	}
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) { return stored, nil }
	var written map[string]string
	ms.hsetFn = func(_ context.Context, _ string, fields map[string]string) error {
		written = fields
		return nil
	}

	ordering := &response.FacetOrdering{Facet: &response.FacetsOrder{Order: []string{"brand"}}}
	idx, err := repo.UpdateFacetOrdering(context.Background(), "products", ordering)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Revision() != 2 {
		t.Errorf("revision = %d, want 2", idx.Revision())
	}
	if written["revision"] != "2" || written["facet_ordering_json"] == "" {
		t.Errorf("unexpected hash: %v", written)
	}

	if _, err := repo.UpdateFacetOrdering(context.Background(), "products", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := written["facet_ordering_json"]; !ok || v != "" {
		t.Errorf("clearing must write an empty ordering, got %q", v)
	}
}

func TestUpdateFacetOrdering_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.UpdateFacetOrdering(context.Background(), "missing", nil)
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}
