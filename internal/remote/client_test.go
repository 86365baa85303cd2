package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ocastro/fieldsync/internal/schema"
)

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "ping" {
			t.Errorf("action = %q, want ping", r.URL.Query().Get("action"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestClient_GetActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "getActivity" || q.Get("activity") != "7" || q.Get("cycle") != "c1" {
			t.Errorf("unexpected query: %v", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"parcels": map[string]string{
					"7-c1-12": "pending",
					"7-c1-13": "worked",
				},
				"areas": []int{4, 9},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	data, err := c.GetActivity(context.Background(), "7", "c1")
	if err != nil {
		t.Fatalf("GetActivity() failed: %v", err)
	}
	if len(data.Parcels) != 2 {
		t.Errorf("got %d parcels, want 2", len(data.Parcels))
	}
	if data.Parcels["7-c1-13"] != schema.StatusWorked {
		t.Errorf("parcel 13 = %q, want worked", data.Parcels["7-c1-13"])
	}
	if len(data.Areas) != 2 || data.Areas[0] != 4 {
		t.Errorf("areas = %v", data.Areas)
	}
}

func TestClient_GetActivity_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "activity not found",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	_, err := c.GetActivity(context.Background(), "999", "c1")
	if !errors.Is(err, ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
}

func TestClient_ListPendingActivities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]string{
				{"id": "7", "cycle": "c1", "vehicle": "VTR-031"},
				{"id": "8", "cycle": "c2", "vehicle": "VTR-007"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	activities, err := c.ListPendingActivities(context.Background())
	if err != nil {
		t.Fatalf("ListPendingActivities() failed: %v", err)
	}
	if len(activities) != 2 || activities[0].ID != "7" || activities[1].Vehicle != "VTR-007" {
		t.Errorf("activities = %+v", activities)
	}
}

func TestClient_BatchUpdateStatus_ConfirmsAllOnPlainSuccess(t *testing.T) {
	var gotBody batchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	items := []*schema.Mutation{
		{ActivityID: "7", Cycle: "c1", ParcelID: 1, Status: schema.StatusWorked},
		{ActivityID: "7", Cycle: "c1", ParcelID: 2, Status: schema.StatusWorked},
	}

	c := NewClient(srv.URL, srv.Client(), nil)
	confirmed, err := c.BatchUpdateStatus(context.Background(), items)
	if err != nil {
		t.Fatalf("BatchUpdateStatus() failed: %v", err)
	}

	if gotBody.Action != "batchUpdateStatus" || len(gotBody.Items) != 2 {
		t.Errorf("request = %+v", gotBody)
	}
	if len(confirmed) != 2 || confirmed[0] != "7-c1-1" || confirmed[1] != "7-c1-2" {
		t.Errorf("confirmed = %v", confirmed)
	}
}

func TestClient_BatchUpdateStatus_PartialConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"confirmed": []string{"7-c1-1"}},
		})
	}))
	defer srv.Close()

	items := []*schema.Mutation{
		{ActivityID: "7", Cycle: "c1", ParcelID: 1, Status: schema.StatusWorked},
		{ActivityID: "7", Cycle: "c1", ParcelID: 2, Status: schema.StatusWorked},
	}

	c := NewClient(srv.URL, srv.Client(), nil)
	confirmed, err := c.BatchUpdateStatus(context.Background(), items)
	if err != nil {
		t.Fatalf("BatchUpdateStatus() failed: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0] != "7-c1-1" {
		t.Errorf("confirmed = %v, want only the key the remote named", confirmed)
	}
}

func TestClient_BatchUpdateStatus_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "sheet locked",
		})
	}))
	defer srv.Close()

	items := []*schema.Mutation{
		{ActivityID: "7", Cycle: "c1", ParcelID: 1, Status: schema.StatusWorked},
	}

	c := NewClient(srv.URL, srv.Client(), nil)
	confirmed, err := c.BatchUpdateStatus(context.Background(), items)
	if !errors.Is(err, ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
	if confirmed != nil {
		t.Errorf("rejected batch must confirm nothing, got %v", confirmed)
	}
}

func TestClient_BatchUpdateStatus_Empty(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", nil, nil)
	confirmed, err := c.BatchUpdateStatus(context.Background(), nil)
	if err != nil || confirmed != nil {
		t.Errorf("empty batch should be a local no-op, got %v, %v", confirmed, err)
	}
}

func TestClient_SubmitBulletin(t *testing.T) {
	var got bulletinRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	b := &schema.Bulletin{
		ActivityID: "7",
		Cycle:      "c1",
		Vehicle:    "VTR-031",
		StartTime:  "08:00",
		EndTime:    "11:00",
	}

	c := NewClient(srv.URL, srv.Client(), nil)
	if err := c.SubmitBulletin(context.Background(), b); err != nil {
		t.Fatalf("SubmitBulletin() failed: %v", err)
	}
	if got.Action != "submitBulletin" || got.Bulletin.Vehicle != "VTR-031" {
		t.Errorf("request = %+v", got)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail on HTTP 500")
	}
}
