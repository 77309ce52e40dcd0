package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/forge"
	"github.com/dishaguide/disha/internal/profile"
)

const dataScientist = `{
	"career_name": "Data Scientist",
	"description": "Works with data.",
	"pathway": ["Python", "Statistics"],
	"education_pathway": []
}`

func TestCompassAdd(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/career/compass/add", dataScientist)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if body := decode(t, rr); body["status"] != "success" {
		t.Errorf("body = %v", body)
	}

	// Second add of the same career is informational, not an error.
	rr = f.do(t, http.MethodPost, "/career/compass/add", dataScientist)
	if rr.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, want 200", rr.Code)
	}
	if body := decode(t, rr); body["status"] != "info" {
		t.Errorf("duplicate body = %v, want informational status", body)
	}
}

func TestCompassAdd_IncompletePayload(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/career/compass/add", `{"career_name":"X"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestCompassList(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/career/compass/add", dataScientist)

	rr := f.do(t, http.MethodGet, "/career/compass", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	// The response carries the saved paths list itself, not the whole
	// compass object.
	paths, ok := decode(t, rr)["compass"].([]any)
	if !ok {
		t.Fatal("compass is not a list")
	}
	if len(paths) != 1 {
		t.Fatalf("compass = %v", paths)
	}
	first, _ := paths[0].(map[string]any)
	if first["career_name"] != "Data Scientist" {
		t.Errorf("path = %v", first)
	}
}

func TestCompassSkillUpdate(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/career/compass/add", dataScientist)

	rr := f.do(t, http.MethodPost, "/career/compass/skill/update",
		`{"career_name":"Data Scientist","skill":"Python","is_complete":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	raw, _ := f.store.Get(context.Background(), "u1")
	rec, _ := profile.DecodeRecord(raw, "")
	path := rec.Compass.SavedPaths[0]
	if path.SkillsStatus["Python"].Status != profile.SkillComplete {
		t.Errorf("skill status = %+v", path.SkillsStatus["Python"])
	}
	if path.Progress != 50 {
		t.Errorf("progress = %d, want 50", path.Progress)
	}

	rr = f.do(t, http.MethodPost, "/career/compass/skill/update",
		`{"career_name":"Astronaut","skill":"Python","is_complete":true}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown career", rr.Code)
	}
}

func TestCompassSkillUpdate_MissingSkill(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/career/compass/add", dataScientist)

	rr := f.do(t, http.MethodPost, "/career/compass/skill/update",
		`{"career_name":"Data Scientist","is_complete":true}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without skill", rr.Code)
	}
}

func TestCompassRemove(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/career/compass/add", dataScientist)

	rr := f.do(t, http.MethodDelete, "/career/compass/remove", `{"career_name":"Data Scientist"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodDelete, "/career/compass/remove", `{"career_name":"Data Scientist"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for already-removed path", rr.Code)
	}
}

func TestRecommendationsRead(t *testing.T) {
	f := newFixture(t)

	rec := profile.NewUserRecord("a@example.com")
	rec.Compass.Recommendations = []profile.CareerOption{
		{CareerName: "Data Scientist", Description: "d", Pathway: []string{}, EducationPathway: []string{}},
	}
	rec.Compass.LastUpdated = "2026-08-30T00:00:00Z"
	if err := f.store.Set(context.Background(), "u1", rec, false); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	rr := f.do(t, http.MethodGet, "/career/recommendations", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decode(t, rr)
	recs, _ := body["recommendations"].([]any)
	if len(recs) != 1 {
		t.Errorf("recommendations = %v", body["recommendations"])
	}
	if body["lastUpdated"] != "2026-08-30T00:00:00Z" {
		t.Errorf("lastUpdated = %v", body["lastUpdated"])
	}
}

func TestAssessmentRoute(t *testing.T) {
	f := newFixture(t)
	f.forge.quiz = forge.Quiz{
		QuizTitle: "Python Basics",
		Questions: []forge.Question{{QuestionText: "q", Options: []string{"a"}, CorrectAnswer: "a", Explanation: "e"}},
	}

	rr := f.do(t, http.MethodPost, "/forge/assessment", `{"career_name":"Data Scientist","skill":"Python"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if body := decode(t, rr); body["quiz_title"] != "Python Basics" {
		t.Errorf("body = %v", body)
	}

	rr = f.do(t, http.MethodPost, "/forge/assessment", `{"skill":"Python"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without career_name", rr.Code)
	}

	f.forge.quizErr = errors.New("no questions")
	rr = f.do(t, http.MethodPost, "/forge/assessment", `{"career_name":"Data Scientist","skill":"Python"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on generation failure", rr.Code)
	}
}

func TestAssessmentSaveRoute(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/career/compass/add", dataScientist)

	// total_questions comes along from clients and is ignored here.
	rr := f.do(t, http.MethodPost, "/forge/assessment/save",
		`{"career_name":"Data Scientist","skill":"Python","score":80,"total_questions":10}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	raw, _ := f.store.Get(context.Background(), "u1")
	rec, _ := profile.DecodeRecord(raw, "")
	entry := rec.Compass.SavedPaths[0].SkillsStatus["Python"]
	if entry.Status != profile.SkillComplete || entry.Score == nil || *entry.Score != 80 {
		t.Errorf("skill entry = %+v", entry)
	}
}

func TestResourcesRoute(t *testing.T) {
	f := newFixture(t)
	f.forge.resources = []forge.Resource{{Title: "Docs", URL: "https://example.com", Type: "Official Docs"}}

	rr := f.do(t, http.MethodPost, "/forge/resources", `{"career_name":"Data Scientist","skill":"Python"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	res, _ := decode(t, rr)["resources"].([]any)
	if len(res) != 1 {
		t.Errorf("resources = %v", res)
	}

	f.forge.resErr = forge.ErrNoResources
	rr = f.do(t, http.MethodPost, "/forge/resources", `{"career_name":"Data Scientist","skill":"Python"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 after retries exhausted", rr.Code)
	}
}

func TestFeedbackRoute(t *testing.T) {
	f := newFixture(t)
	f.forge.topics = []string{"Topic 1"}

	rr := f.do(t, http.MethodPost, "/forge/feedback",
		`{"incorrect_questions":[{"question_text":"q","correct_answer":"a","explanation":"e"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	topics, _ := decode(t, rr)["topics"].([]any)
	if len(topics) != 1 {
		t.Errorf("topics = %v", topics)
	}
}

func TestUserGet_UnknownUser(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/users/u1", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any document exists", rr.Code)
	}
}

func TestUserGet_PreservesUnmodeledFields(t *testing.T) {
	f := newFixture(t)
	seed := map[string]any{
		"email":       "a@example.com",
		"preferences": map[string]any{"theme": "dark"},
	}
	if err := f.store.Set(context.Background(), "u1", seed, false); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	rr := f.do(t, http.MethodGet, "/users/u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	prefs, _ := body["preferences"].(map[string]any)
	if prefs["theme"] != "dark" {
		t.Errorf("preferences = %v, want document returned as stored", body["preferences"])
	}

	// A read must leave the stored document untouched.
	raw, err := f.store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := stored["preferences"]; !ok {
		t.Error("read rewrote the document and dropped unmodeled fields")
	}
}

func TestUserGet_OtherIdentity(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/users/u2", "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestUserUpsert_StoresProfileWithTokenEmail(t *testing.T) {
	f := newFixture(t)

	// The body is the profile itself; it lands under the profile key with
	// the email stamped from the verified token.
	rr := f.do(t, http.MethodPost, "/users/u1", `{"name":"Asha","education":"B.Tech","skills":["Python"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if body := decode(t, rr); body["ok"] != true || body["userId"] != "u1" {
		t.Errorf("body = %v", body)
	}

	raw, _ := f.store.Get(context.Background(), "u1")
	rec, _ := profile.DecodeRecord(raw, "")
	if rec.Email != "a@example.com" {
		t.Errorf("email = %q, want token email", rec.Email)
	}
	if rec.Profile.Name != "Asha" || rec.Profile.Education != "B.Tech" {
		t.Errorf("profile = %+v", rec.Profile)
	}

	rr = f.do(t, http.MethodGet, "/users/u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get after upsert: %d", rr.Code)
	}
	prof, _ := decode(t, rr)["profile"].(map[string]any)
	if prof["education"] != "B.Tech" {
		t.Errorf("profile = %v, want posted fields visible on read", prof)
	}
}

func TestUserUpsert_MergePreservesSiblings(t *testing.T) {
	f := newFixture(t)
	seed := map[string]any{"chats": []any{map[string]any{"id": "t1"}}}
	if err := f.store.Set(context.Background(), "u1", seed, false); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	rr := f.do(t, http.MethodPost, "/users/u1", `{"name":"Asha"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	raw, _ := f.store.Get(context.Background(), "u1")
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if chats, _ := stored["chats"].([]any); len(chats) != 1 {
		t.Errorf("chats = %v, want merge to preserve siblings", stored["chats"])
	}
}

func TestUserDelete(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/users/u1", `{"name":"Asha"}`)

	rr := f.do(t, http.MethodDelete, "/users/me", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if _, err := f.store.Get(context.Background(), "u1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Error("document still present after delete")
	}

	// Deleting again is still a success: nothing left to remove.
	rr = f.do(t, http.MethodDelete, "/users/me", "")
	if rr.Code != http.StatusOK {
		t.Errorf("repeat delete status = %d, want 200", rr.Code)
	}
}
