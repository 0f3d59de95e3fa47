package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

type taskJSON struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Deadline       *string `json:"deadline"`
	CompletionDate *string `json:"completion_date"`
	Priority       string  `json:"priority"`
	Status         string  `json:"status"`
	Category       string  `json:"category"`
}

func fetchTask(t *testing.T, mux *http.ServeMux, authz, taskID string) taskJSON {
	t.Helper()
	rec := doJSON(t, mux, http.MethodGet, "/task/"+taskID, authz, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /task/%s status=%d body=%s", taskID, rec.Code, rec.Body.String())
	}
	var task taskJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return task
}

// the walkthrough from registration to completion and back
func TestTasks_FullLifecycleScenario(t *testing.T) {
	_, mux, _, _ := setupHTTP(t)
	_, authz := registerAndLogin(t, mux, "alice", "alice@x.com", "pw123")

	// create
	rec := doJSON(t, mux, http.MethodPost, "/tasks", authz, `{"title":"Buy milk"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /tasks status=%d body=%s", rec.Code, rec.Body.String())
	}
	var created taskJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created task: %v", err)
	}
	if created.Status != "PENDING" || created.CompletionDate != nil {
		t.Fatalf("new task must be PENDING with null completion_date: %+v", created)
	}
	if created.Priority != "LOW" || created.Category != "UNCATEGORIZED" {
		t.Fatalf("defaults not applied: %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/task/"+created.ID {
		t.Fatalf("Location = %q", loc)
	}

	// complete
	rec = doJSON(t, mux, http.MethodPut, "/task/"+created.ID+"/complete", authz, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("complete status=%d body=%s", rec.Code, rec.Body.String())
	}
	task := fetchTask(t, mux, authz, created.ID)
	if task.Status != "COMPLETED" || task.CompletionDate == nil {
		t.Fatalf("complete not applied: %+v", task)
	}

	// editing a completed task -> 400
	rec = doJSON(t, mux, http.MethodPut, "/task/"+created.ID, authz, `{"title":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("edit completed status=%d, want 400; body=%s", rec.Code, rec.Body.String())
	}
	if got := fetchTask(t, mux, authz, created.ID); got.Title != "Buy milk" {
		t.Fatalf("rejected edit changed the task: %+v", got)
	}

	// double complete -> 400
	rec = doJSON(t, mux, http.MethodPut, "/task/"+created.ID+"/complete", authz, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("double complete status=%d, want 400", rec.Code)
	}

	// revert to pending clears completion_date
	rec = doJSON(t, mux, http.MethodPut, "/task/"+created.ID+"/pending", authz, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("pending status=%d body=%s", rec.Code, rec.Body.String())
	}
	task = fetchTask(t, mux, authz, created.ID)
	if task.Status != "PENDING" || task.CompletionDate != nil {
		t.Fatalf("revert not applied: %+v", task)
	}

	// now edits work again
	rec = doJSON(t, mux, http.MethodPut, "/task/"+created.ID, authz, `{"title":"Buy oat milk","priority":"HIGH"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("edit pending status=%d body=%s", rec.Code, rec.Body.String())
	}
	task = fetchTask(t, mux, authz, created.ID)
	if task.Title != "Buy oat milk" || task.Priority != "HIGH" {
		t.Fatalf("edit not applied: %+v", task)
	}

	// delete
	rec = doJSON(t, mux, http.MethodDelete, "/task/"+created.ID, authz, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/task/"+created.ID, authz, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d, want 404", rec.Code)
	}
}

func TestTasks_CreateValidation(t *testing.T) {
	_, mux, _, _ := setupHTTP(t)
	_, authz := registerAndLogin(t, mux, "alice", "alice@x.com", "pw123")

	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	cases := []struct {
		name string
		body string
	}{
		{"missing title", `{"description":"no title"}`},
		{"blank title", `{"title":"   "}`},
		{"past deadline", `{"title":"x","deadline":"` + past + `"}`},
		{"bad priority", `{"title":"x","priority":"URGENT"}`},
		{"bad category", `{"title":"x","category":"HOBBY"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/tasks", authz, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d, want 400; body=%s", rec.Code, rec.Body.String())
			}
		})
	}

	// future deadline is accepted and echoed back
	future := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	rec := doJSON(t, mux, http.MethodPost, "/tasks", authz, `{"title":"x","deadline":"`+future+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("future deadline status=%d body=%s", rec.Code, rec.Body.String())
	}
	var created taskJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Deadline == nil {
		t.Fatalf("deadline missing from created task")
	}
}

func TestTasks_ListFilterSortAndScoping(t *testing.T) {
	_, mux, _, _ := setupHTTP(t)
	_, alice := registerAndLogin(t, mux, "alice", "alice@x.com", "pw123")
	_, bob := registerAndLogin(t, mux, "bob", "bob@x.com", "pw123")

	deadlineSoon := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	deadlineLate := time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339)

	mkTask := func(authz, body string) string {
		t.Helper()
		rec := doJSON(t, mux, http.MethodPost, "/tasks", authz, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create task status=%d body=%s", rec.Code, rec.Body.String())
		}
		var created taskJSON
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return created.ID
	}

	soonID := mkTask(alice, `{"title":"soon","deadline":"`+deadlineSoon+`"}`)
	lateID := mkTask(alice, `{"title":"late","deadline":"`+deadlineLate+`"}`)
	mkTask(alice, `{"title":"open","deadline":"`+deadlineSoon+`"}`)
	bobID := mkTask(bob, `{"title":"bobs","deadline":"`+deadlineLate+`"}`)

	for _, id := range []string{soonID, lateID, bobID} {
		authz := alice
		if id == bobID {
			authz = bob
		}
		rec := doJSON(t, mux, http.MethodPut, "/task/"+id+"/complete", authz, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("complete %s status=%d", id, rec.Code)
		}
	}

	rec := doJSON(t, mux, http.MethodGet, "/tasks?status=COMPLETED&sort=-deadline", alice, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rec.Code, rec.Body.String())
	}
	var list []taskJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2 (alice's completed only): %+v", len(list), list)
	}
	if list[0].Title != "late" || list[1].Title != "soon" {
		t.Fatalf("descending deadline order wrong: %q, %q", list[0].Title, list[1].Title)
	}
	for _, task := range list {
		if task.ID == bobID {
			t.Fatalf("bob's task leaked into alice's list")
		}
	}

	// filters cannot be abused to see someone else's tasks
	rec = doJSON(t, mux, http.MethodGet, "/tasks?status=COMPLETED", bob, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("bob list status=%d", rec.Code)
	}
	list = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != bobID {
		t.Fatalf("bob should see exactly his completed task: %+v", list)
	}
}

func TestTasks_ListInvalidQuery(t *testing.T) {
	_, mux, _, _ := setupHTTP(t)
	_, authz := registerAndLogin(t, mux, "alice", "alice@x.com", "pw123")

	for _, url := range []string{
		"/tasks?status=DONE",
		"/tasks?priority=URGENT",
		"/tasks?category=HOBBY",
		"/tasks?sort=owner_id",
	} {
		rec := doJSON(t, mux, http.MethodGet, url, authz, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d, want 400; body=%s", url, rec.Code, rec.Body.String())
		}
	}
}

// another user's task id behaves exactly like a missing id
func TestTasks_ForeignTaskLooksMissing(t *testing.T) {
	_, mux, _, _ := setupHTTP(t)
	_, alice := registerAndLogin(t, mux, "alice", "alice@x.com", "pw123")
	_, bob := registerAndLogin(t, mux, "bob", "bob@x.com", "pw123")

	rec := doJSON(t, mux, http.MethodPost, "/tasks", alice, `{"title":"secret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rec.Code)
	}
	var created taskJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	endpoints := []struct {
		method string
		url    string
		body   string
	}{
		{http.MethodGet, "/task/" + created.ID, ""},
		{http.MethodPut, "/task/" + created.ID, `{"title":"stolen"}`},
		{http.MethodDelete, "/task/" + created.ID, ""},
		{http.MethodPut, "/task/" + created.ID + "/complete", ""},
	}
	for _, ep := range endpoints {
		rec := doJSON(t, mux, ep.method, ep.url, bob, ep.body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s as bob: status=%d, want 404", ep.method, ep.url, rec.Code)
		}
	}

	// alice still owns an intact task
	if got := fetchTask(t, mux, alice, created.ID); got.Title != "secret" {
		t.Fatalf("task damaged by foreign requests: %+v", got)
	}
}

func TestTasks_Unauthorized(t *testing.T) {
	_, mux, _, _ := setupHTTP(t)

	endpoints := []struct {
		method string
		url    string
		body   string
	}{
		{http.MethodGet, "/tasks", ""},
		{http.MethodPost, "/tasks", `{"title":"x"}`},
		{http.MethodGet, "/task/some-id", ""},
		{http.MethodPut, "/task/some-id", `{"title":"x"}`},
		{http.MethodDelete, "/task/some-id", ""},
		{http.MethodPut, "/task/some-id/complete", ""},
	}
	for _, ep := range endpoints {
		rec := doJSON(t, mux, ep.method, ep.url, "", ep.body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: status=%d, want 401", ep.method, ep.url, rec.Code)
		}
	}
}

func TestTasks_BadTaskIDAndUnknownAction(t *testing.T) {
	_, mux, _, _ := setupHTTP(t)
	_, authz := registerAndLogin(t, mux, "alice", "alice@x.com", "pw123")

	rec := doJSON(t, mux, http.MethodGet, "/task/not-a-uuid", authz, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid status=%d, want 400", rec.Code)
	}

	recCreate := doJSON(t, mux, http.MethodPost, "/tasks", authz, `{"title":"x"}`)
	var created taskJSON
	if err := json.Unmarshal(recCreate.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec = doJSON(t, mux, http.MethodPut, "/task/"+created.ID+"/archive", authz, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action status=%d, want 404", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodPost, "/task/"+created.ID+"/complete", authz, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST complete status=%d, want 405", rec.Code)
	}
}
