// Package facetdex is an embedded Go client for facetdex: faceted search
// over Redis with the query search module.
//
// # Low-level API
//
//	client, _ := facetdex.New(ctx, facetdex.WithRedis("localhost:6379", ""))
//	client.Indexes().Create(ctx, "products",
//	    facetdex.WithField("brand", facetdex.FieldTag),
//	    facetdex.WithField("price", facetdex.FieldNumeric),
//	)
//	client.Records("products").UpsertBatch(ctx, records)
//
//	st, _ := facetdex.NewState(facetdex.Params{
//	    Index:             "products",
//	    DisjunctiveFacets: []string{"brand"},
//	})
//	st, _ = st.Toggle(facetdex.Disjunctive, "brand", "Apple")
//	res, _ := client.Search().Search(ctx, st)
//	values, _ := res.FacetValues("brand", facetdex.FacetOptions{})
//
// # Typed API
//
//	type Product struct {
//	    ID    string  `facetdex:"objectID,id"`
//	    Brand string  `facetdex:"brand,tag"`
//	    Price float64 `facetdex:"price,numeric"`
//	    Name  string  `facetdex:"name,text"`
//	}
//
//	idx, _ := facetdex.NewIndex[Product](client, "products")
//	_ = idx.Ensure(ctx)
//	_, _ = idx.UpsertBatch(ctx, products)
//	page, _ := idx.Search(ctx, st)
//	for _, p := range page.Items { ... }
package facetdex
