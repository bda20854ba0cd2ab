package catalog

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/mkatze/catalog-client/internal/testutil"
	"github.com/mkatze/catalog-client/pkg/batch"
	"github.com/mkatze/catalog-client/pkg/client"
)

func newTestService(t *testing.T, mock *testutil.MockCatalog) *Service {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL())
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100
	cfg.Retry.InitialBackoff = 0
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return NewService(c)
}

func TestService_Search(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetHandler("/search/ajax", testutil.NewSearchHandler([]testutil.MockSearchItem{
		{ID: "RJ1", Title: "First", CircleID: "BG1", CircleName: "Maker", Price: 500},
		{ID: "RJ2", Title: "Second", CircleID: "BG1", CircleName: "Maker", Price: 700},
	}, 42))

	svc := newTestService(t, mock)
	result, err := svc.Search(context.Background(), SearchQuery{Keyword: "test"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("Search() returned %d items, want 2", len(result.Items))
	}
	if result.Count != 42 {
		t.Errorf("Count = %d, want 42", result.Count)
	}
	if result.QueryPath != "/search/ajax?keyword=test" {
		t.Errorf("QueryPath = %q", result.QueryPath)
	}
	if result.Items[0].ID != "RJ1" || result.Items[1].ID != "RJ2" {
		t.Errorf("item IDs = %q, %q", result.Items[0].ID, result.Items[1].ID)
	}
}

func TestService_SearchUsesParsedCache(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetHandler("/search/ajax", testutil.NewSearchHandler([]testutil.MockSearchItem{
		{ID: "RJ1", Title: "T", CircleID: "BG1", CircleName: "M", Price: 100},
	}, 1))

	svc := newTestService(t, mock)
	q := SearchQuery{Keyword: "cached"}

	if _, err := svc.Search(context.Background(), q); err != nil {
		t.Fatalf("first Search() error = %v", err)
	}
	if _, err := svc.Search(context.Background(), q); err != nil {
		t.Fatalf("second Search() error = %v", err)
	}

	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("origin received %d requests, want 1 (second search served from cache)", n)
	}
}

func TestService_SearchErrorNotCached(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/search/ajax", testutil.NewNotFoundResponse())

	svc := newTestService(t, mock)
	q := SearchQuery{Keyword: "missing"}

	if _, err := svc.Search(context.Background(), q); err == nil {
		t.Fatal("Search() error = nil, want failure")
	}

	// Swap in a healthy handler: the earlier failure must not be served.
	mock.SetHandler("/search/ajax", testutil.NewSearchHandler([]testutil.MockSearchItem{
		{ID: "RJ1", Title: "T", CircleID: "BG1", CircleName: "M", Price: 100},
	}, 1))

	result, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search() after recovery error = %v", err)
	}
	if len(result.Items) != 1 {
		t.Errorf("got %d items after recovery, want 1", len(result.Items))
	}
}

func TestService_SearchBatch(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetHandler("/search/ajax", func(w http.ResponseWriter, r *http.Request) {
		kw := r.URL.Query().Get("keyword")
		handler := testutil.NewSearchHandler([]testutil.MockSearchItem{
			{ID: "RJ-" + kw, Title: kw, CircleID: "BG1", CircleName: "M", Price: 100},
		}, 1)
		handler(w, r)
	})

	svc := newTestService(t, mock)
	queries := []SearchQuery{{Keyword: "aa"}, {Keyword: "bb"}, {Keyword: "cc"}}

	results, err := svc.SearchBatch(context.Background(), queries)
	if err != nil {
		t.Fatalf("SearchBatch() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("SearchBatch() returned %d results, want 3", len(results))
	}
	for i, kw := range []string{"aa", "bb", "cc"} {
		if results[i].Items[0].ID != "RJ-"+kw {
			t.Errorf("results[%d] = %q, want query %q's result", i, results[i].Items[0].ID, kw)
		}
	}
}

func TestService_SearchBatchFailFast(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetHandler("/search/ajax", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keyword") == "bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		testutil.NewSearchHandler(nil, 0)(w, r)
	})

	svc := newTestService(t, mock)
	queries := []SearchQuery{{Keyword: "ok"}, {Keyword: "bad"}, {Keyword: "also-ok"}}

	results, err := svc.SearchBatch(context.Background(), queries)
	if results != nil {
		t.Errorf("SearchBatch() results = %v, want nil on failure", results)
	}

	var be *batch.Error
	if !errors.As(err, &be) {
		t.Fatalf("SearchBatch() error = %v, want *batch.Error", err)
	}
	if be.Index != 1 {
		t.Errorf("Error.Index = %d, want 1", be.Index)
	}
}

func TestService_SearchBatchPartial(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetHandler("/search/ajax", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keyword") == "bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		testutil.NewSearchHandler([]testutil.MockSearchItem{
			{ID: "RJ1", Title: "T", CircleID: "BG1", CircleName: "M", Price: 100},
		}, 1)(w, r)
	})

	svc := newTestService(t, mock)
	queries := []SearchQuery{{Keyword: "ok"}, {Keyword: "bad"}, {Keyword: "fine"}}

	results := svc.SearchBatchPartial(context.Background(), queries)
	if len(results) != 3 {
		t.Fatalf("SearchBatchPartial() returned %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy queries failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Errorf("results[1].Err = nil, want failure for bad query")
	}
}

func TestService_SearchStream(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	all := make([]testutil.MockSearchItem, 25)
	for i := range all {
		all[i] = testutil.MockSearchItem{
			ID: "RJ" + string(rune('A'+i)), Title: "T", CircleID: "BG1", CircleName: "M", Price: 100,
		}
	}
	mock.SetHandler("/search/ajax", testutil.NewPagedSearchHandler(all, 10))

	svc := newTestService(t, mock)

	var got []string
	total, err := svc.SearchStream(context.Background(), SearchQuery{Keyword: "x", PerPage: 10}, func(item SearchItem) error {
		got = append(got, item.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("SearchStream() error = %v", err)
	}
	if total != 25 {
		t.Errorf("SearchStream() = %d items, want 25", total)
	}
	if len(got) != 25 {
		t.Errorf("consumer saw %d items, want 25", len(got))
	}
	// Pages of 10, 10, 5: exactly three origin requests, no trailing empty page.
	if n := mock.GetRequestCount(); n != 3 {
		t.Errorf("origin received %d requests, want 3", n)
	}
}

func TestService_SearchStreamConsumerAbort(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	all := make([]testutil.MockSearchItem, 30)
	for i := range all {
		all[i] = testutil.MockSearchItem{ID: "RJ1", Title: "T", CircleID: "BG1", CircleName: "M", Price: 100}
	}
	mock.SetHandler("/search/ajax", testutil.NewPagedSearchHandler(all, 10))

	svc := newTestService(t, mock)
	stop := errors.New("enough")

	delivered := 0
	total, err := svc.SearchStream(context.Background(), SearchQuery{PerPage: 10}, func(SearchItem) error {
		if delivered == 12 {
			return stop
		}
		delivered++
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("SearchStream() error = %v, want consumer error", err)
	}
	if total != 12 {
		t.Errorf("SearchStream() = %d, want 12 delivered before abort", total)
	}
}

func TestService_Product(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetResponse("/product/info/ajax", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: testutil.RenderProductInfo("RJ100001", map[string]interface{}{
			"title":       "Deep Space Ambience",
			"circle_id":   "BG20001",
			"circle_name": "Stellar Works",
			"price":       1320,
			"rating":      4.5,
		}),
	})

	svc := newTestService(t, mock)
	p, err := svc.Product(context.Background(), "RJ100001")
	if err != nil {
		t.Fatalf("Product() error = %v", err)
	}
	if p.ID != "RJ100001" {
		t.Errorf("ID = %q, want RJ100001", p.ID)
	}
	if p.Title != "Deep Space Ambience" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Price != 1320 {
		t.Errorf("Price = %d, want 1320", p.Price)
	}
	if p.Rating == nil || *p.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", p.Rating)
	}

	// Second lookup hits the parsed cache.
	if _, err := svc.Product(context.Background(), "RJ100001"); err != nil {
		t.Fatalf("cached Product() error = %v", err)
	}
	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("origin received %d requests, want 1", n)
	}
}

func TestService_ProductMissingFromPayload(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetResponse("/product/info/ajax", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{}`,
	})

	svc := newTestService(t, mock)
	_, err := svc.Product(context.Background(), "RJ404")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Product() error = %v, want *ParseError", err)
	}
}

func TestService_Circle(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetResponse("/circle/profile/BG20001.html", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.RenderCircleHTML("Stellar Works", 17),
	})

	svc := newTestService(t, mock)
	c, err := svc.Circle(context.Background(), "BG20001")
	if err != nil {
		t.Fatalf("Circle() error = %v", err)
	}
	if c.ID != "BG20001" || c.Name != "Stellar Works" || c.WorkCount != 17 {
		t.Errorf("Circle() = %+v", c)
	}
}

func TestService_ClearParsedCaches(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetHandler("/search/ajax", testutil.NewSearchHandler([]testutil.MockSearchItem{
		{ID: "RJ1", Title: "T", CircleID: "BG1", CircleName: "M", Price: 100},
	}, 1))

	svc := newTestService(t, mock)
	q := SearchQuery{Keyword: "x"}

	if _, err := svc.Search(context.Background(), q); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	svc.ClearParsedCaches()
	svc.client.ClearCache()

	if _, err := svc.Search(context.Background(), q); err != nil {
		t.Fatalf("Search() after clear error = %v", err)
	}
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("origin received %d requests, want 2 after cache clear", n)
	}
}
