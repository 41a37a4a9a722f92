package vehicle

import "testing"

func TestPredicateBuilder_ClausesAndArgsStayAligned(t *testing.T) {
	var b predicateBuilder
	b.add("price >= ?", int64(100))
	b.add("price <= ?", int64(200))
	b.add("year >= ?", 2015)

	if len(b.clauses) != 3 {
		t.Fatalf("clauses: got %d", len(b.clauses))
	}
	if len(b.args) != 3 {
		t.Fatalf("args: got %d", len(b.args))
	}
	if b.clauses[1] != "price <= ?" || b.args[1] != int64(200) {
		t.Errorf("clause/arg misaligned: %v %v", b.clauses[1], b.args[1])
	}
}


func TestFiltersNormalize(t *testing.T) {
	f := Filters{Page: 0, PageSize: 0}
	f.normalize()
	if f.Page != 1 || f.PageSize != defaultPageSize {
		t.Errorf("defaults: got page=%d size=%d", f.Page, f.PageSize)
	}

	f = Filters{Page: 3, PageSize: 500}
	f.normalize()
	if f.PageSize != maxPageSize {
		t.Errorf("cap: got %d", f.PageSize)
	}
}
