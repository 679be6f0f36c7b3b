package msgdex

import (
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
)

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("New() without address should fail")
	}
	if !strings.Contains(err.Error(), "database address required") {
		t.Errorf("New() error = %v, want address hint", err)
	}
}

func TestCreateStore_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "memcached", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("createStore() with unknown driver should fail")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Errorf("createStore() error = %v, want unknown driver", err)
	}
}

func TestOptions(t *testing.T) {
	cfg := &clientConfig{}
	WithValkey("localhost:6379", "secret")(cfg)
	if cfg.driver != "valkey" || len(cfg.addrs) != 1 || cfg.password != "secret" {
		t.Errorf("WithValkey applied %+v", cfg)
	}

	cfg2 := &clientConfig{}
	WithRedis("localhost:6380", "pass")(cfg2)
	if cfg2.driver != "redis" {
		t.Errorf("WithRedis driver = %q, want redis", cfg2.driver)
	}

	cfg3 := &clientConfig{}
	WithVectorDimensions(768)(cfg3)
	WithHNSW(16, 200)(cfg3)
	WithRanking(0.6, 0.4)(cfg3)
	WithoutDeduplication()(cfg3)
	WithReadinessTimeout(5 * time.Second)(cfg3)
	if cfg3.vectorDimensions != 768 {
		t.Errorf("vectorDimensions = %d, want 768", cfg3.vectorDimensions)
	}
	if cfg3.hnswM != 16 || cfg3.hnswEFConstruct != 200 {
		t.Errorf("hnsw = %d/%d, want 16/200", cfg3.hnswM, cfg3.hnswEFConstruct)
	}
	if cfg3.vectorWeight != 0.6 || cfg3.keywordWeight != 0.4 {
		t.Errorf("weights = %v/%v, want 0.6/0.4", cfg3.vectorWeight, cfg3.keywordWeight)
	}
	if !cfg3.noDedup {
		t.Error("WithoutDeduplication did not apply")
	}
	if cfg3.readinessTimeout != 5*time.Second {
		t.Errorf("readinessTimeout = %v, want 5s", cfg3.readinessTimeout)
	}
}

func TestSearchBuilder_BuildCriteria(t *testing.T) {
	c := &Client{}
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	b := c.Search("deployment rollout").
		Mode(ModeHybrid).
		In(7).
		By(42).
		Since(since).
		HasReply().
		Tagged("incidents").
		WithAttachments("png").
		Skip(20).
		Take(10)

	crit, err := b.buildCriteria()
	if err != nil {
		t.Fatalf("buildCriteria() error = %v", err)
	}
	if crit.Query().Value() != "deployment rollout" {
		t.Errorf("query = %q", crit.Query().Value())
	}
	if crit.Strategy() != strategy.Hybrid {
		t.Errorf("strategy = %q, want hybrid", crit.Strategy())
	}
	f := crit.Filter()
	if f.ConversationID() == nil || *f.ConversationID() != 7 {
		t.Errorf("conversation filter = %v, want 7", f.ConversationID())
	}
	if f.AuthorID() == nil || *f.AuthorID() != 42 {
		t.Errorf("author filter = %v, want 42", f.AuthorID())
	}
	if !f.HasReply() {
		t.Error("HasReply did not apply")
	}
	if len(f.RequiredTags()) != 1 || f.RequiredTags()[0] != "incidents" {
		t.Errorf("required tags = %v", f.RequiredTags())
	}
	if crit.Skip() != 20 || crit.Take() != 10 {
		t.Errorf("pagination = %d/%d, want 20/10", crit.Skip(), crit.Take())
	}
}

func TestSearchBuilder_DefaultTake(t *testing.T) {
	crit, err := (&Client{}).Search("q").buildCriteria()
	if err != nil {
		t.Fatalf("buildCriteria() error = %v", err)
	}
	if crit.Take() != 20 {
		t.Errorf("default take = %d, want 20", crit.Take())
	}
	if crit.Strategy() != strategy.InvertedIndex {
		t.Errorf("default strategy = %q, want inverted_index", crit.Strategy())
	}
}

func TestSearchBuilder_InvalidDateRange(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)

	_, err := (&Client{}).Search("q").Since(start).Until(end).buildCriteria()
	if err == nil {
		t.Fatal("buildCriteria() with inverted range should fail")
	}
}
