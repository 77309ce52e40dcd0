package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGet_Missing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "u1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestSetAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := map[string]any{"email": "a@example.com", "profile": map[string]any{"name": "Asha"}}
	if err := s.Set(ctx, "u1", doc, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["email"] != "a@example.com" {
		t.Errorf("email = %v", got["email"])
	}
}

func TestSet_MergePreservesSiblings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := map[string]any{
		"email":   "a@example.com",
		"profile": map[string]any{"name": "Asha", "education": "B.Tech"},
	}
	if err := s.Set(ctx, "u1", base, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	patch := map[string]any{"profile": map[string]any{"education": "M.Tech"}}
	if err := s.Set(ctx, "u1", patch, true); err != nil {
		t.Fatalf("Set merge: %v", err)
	}

	raw, _ := s.Get(ctx, "u1")
	var got map[string]any
	json.Unmarshal(raw, &got)
	prof := got["profile"].(map[string]any)
	if prof["name"] != "Asha" || prof["education"] != "M.Tech" {
		t.Errorf("profile = %v", prof)
	}
	if got["email"] != "a@example.com" {
		t.Errorf("email lost in merge: %v", got["email"])
	}
}

func TestUpdateFields_DottedPaths(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "u1", map[string]any{
		"compass": map[string]any{"saved_paths": []any{"keep"}},
	}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	err := s.UpdateFields(ctx, "u1", map[string]any{
		"compass.recommendations": []string{"a", "b"},
		"compass.lastUpdated":     "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	raw, _ := s.Get(ctx, "u1")
	var got map[string]any
	json.Unmarshal(raw, &got)
	compass := got["compass"].(map[string]any)
	if !reflect.DeepEqual(compass["recommendations"], []any{"a", "b"}) {
		t.Errorf("recommendations = %v", compass["recommendations"])
	}
	if !reflect.DeepEqual(compass["saved_paths"], []any{"keep"}) {
		t.Errorf("saved_paths clobbered: %v", compass["saved_paths"])
	}
	if compass["lastUpdated"] != "2026-01-01T00:00:00Z" {
		t.Errorf("lastUpdated = %v", compass["lastUpdated"])
	}
}

func TestUpdateFields_MissingDocument(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateFields(context.Background(), "ghost", map[string]any{"a": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateFields = %v, want ErrNotFound", err)
	}
}

func TestMutate_AbortsOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "u1", map[string]any{"n": 1}, false)

	sentinel := errors.New("nope")
	err := s.Mutate(ctx, "u1", func(raw []byte) (any, error) {
		return nil, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Mutate = %v, want sentinel", err)
	}

	raw, _ := s.Get(ctx, "u1")
	var got map[string]any
	json.Unmarshal(raw, &got)
	if got["n"] != float64(1) {
		t.Errorf("document modified after aborted mutate: %v", got)
	}
}

func TestMutate_CreatesDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Mutate(ctx, "u1", func(raw []byte) (any, error) {
		if raw != nil {
			t.Errorf("raw = %s, want nil for absent doc", raw)
		}
		return map[string]any{"email": "a@example.com"}, nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if _, err := s.Get(ctx, "u1"); err != nil {
		t.Errorf("Get after Mutate: %v", err)
	}
}

func TestMutate_SerializedPerUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "u1", map[string]any{"n": float64(0)}, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Mutate(ctx, "u1", func(raw []byte) (any, error) {
				var doc map[string]any
				if err := json.Unmarshal(raw, &doc); err != nil {
					return nil, err
				}
				doc["n"] = doc["n"].(float64) + 1
				return doc, nil
			})
		}()
	}
	wg.Wait()

	raw, _ := s.Get(ctx, "u1")
	var got map[string]any
	json.Unmarshal(raw, &got)
	if got["n"] != float64(20) {
		t.Errorf("n = %v, want 20 (lost updates)", got["n"])
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "u1", map[string]any{"a": 1}, false)

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStore(t)
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("querying schema_version: %v", err)
	}
	if count == 0 {
		t.Error("no migrations recorded")
	}
	// Re-running migrate must be a no-op.
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSetPath_ReplacesNonMap(t *testing.T) {
	doc := map[string]any{"a": "scalar"}
	setPath(doc, "a.b", 1)
	inner, ok := doc["a"].(map[string]any)
	if !ok || inner["b"] != 1 {
		t.Errorf("doc = %v", doc)
	}
}

func TestDeepMerge_ListsReplace(t *testing.T) {
	base := map[string]any{"tags": []any{"x", "y"}}
	got := deepMerge(base, map[string]any{"tags": []any{"z"}})
	if fmt.Sprint(got["tags"]) != "[z]" {
		t.Errorf("tags = %v, want [z]", got["tags"])
	}
}
