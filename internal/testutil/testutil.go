// Package testutil provides common test helpers for SwiftShowings tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/store"
)

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t testing.TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONStatus decodes an API envelope and checks its status field.
func AssertJSONStatus(t testing.TB, rr *httptest.ResponseRecorder, expected models.APIStatus) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if resp.Status != string(expected) {
		t.Errorf("expected status %q, got %q (message %q)", expected, resp.Status, resp.Message)
	}
	return resp
}

// NewJSONRequest builds a request whose body is v encoded as JSON. A nil v
// sends an empty body.
func NewJSONRequest(t testing.TB, method, target string, v interface{}) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if v != nil {
		if err := json.NewEncoder(&body).Encode(v); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewFormRequest builds a urlencoded POST, the way Twilio calls webhooks.
func NewFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// SeedRecords appends one record per kind, one minute apart starting at base.
func SeedRecords(t testing.TB, repo store.RecordRepo, userID string, base time.Time, kinds ...models.EventKind) {
	t.Helper()
	for i, kind := range kinds {
		r := models.Record{
			ID:        fmt.Sprintf("seed-%d", i+1),
			Kind:      kind,
			UserID:    userID,
			Fields:    []string{base.Format(models.RecordTimeLayout), userID},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.AddRecord(context.Background(), r); err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}
	}
}

// AssertRecordCount checks how many records of kind the repo holds. An empty
// kind counts every record.
func AssertRecordCount(t testing.TB, repo store.RecordRepo, kind models.EventKind, expected int, what string) []models.Record {
	t.Helper()
	records, err := repo.ListRecords(context.Background(), kind, store.MaxListLimit)
	if err != nil {
		t.Fatalf("%s: failed to list records: %v", what, err)
	}
	if len(records) != expected {
		t.Errorf("%s: expected %d %q records, got %d", what, expected, kind, len(records))
	}
	return records
}

// Eventually polls cond every 10ms until it returns true or timeout passes.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, context string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s: condition not met within %v", context, timeout)
}
