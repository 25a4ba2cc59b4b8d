package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/models"
)

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}

const envelopeBody = `{
	"success": true,
	"data": {
		"complaints": [
			{
				"id": "c-1",
				"complaintId": "KSC0001",
				"type": "Water Supply",
				"status": "resolved",
				"priority": "high",
				"ward": "Ward 3",
				"submittedOn": "2024-01-10T08:00:00Z",
				"resolvedOn": "2024-01-12 10:30:00",
				"deadline": "2024-01-13",
				"rating": "4",
				"attachmentCount": 2
			}
		],
		"metadata": {"total": 1}
	}
}`

func TestFetchComplaints_Envelope(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"role":   q.Get("role"),
			"ward":   q.Get("ward"),
			"limit":  q.Get("limit"),
			"status": q.Get("status"),
		}
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(envelopeBody))
	}))
	defer srv.Close()

	client := NewClient(
		WithBaseURL(srv.URL),
		WithServiceToken("svc-token"),
		WithLogger(testLogger()),
	)

	records, err := client.FetchComplaints(context.Background(),
		models.ExportFilters{Ward: "Ward 3", Status: "resolved"},
		models.RoleWardOfficer, "Ward 3", 5000)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "KSC0001", rec.ComplaintID)
	assert.Equal(t, models.StatusResolved, rec.Status)
	assert.Equal(t, models.PriorityHigh, rec.Priority)
	assert.Equal(t, 4, rec.Rating)
	assert.Equal(t, 2, rec.AttachmentCount)
	assert.Equal(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), rec.SubmittedOn)
	assert.Equal(t, time.Date(2024, 1, 12, 10, 30, 0, 0, time.UTC), rec.ResolvedOn)
	assert.Equal(t, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), rec.Deadline)

	assert.Equal(t, "WARD_OFFICER", gotQuery["role"])
	assert.Equal(t, "Ward 3", gotQuery["ward"])
	assert.Equal(t, "5000", gotQuery["limit"])
	assert.Equal(t, "resolved", gotQuery["status"])
}

func TestFetchComplaints_LegacyTopLevelShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "complaints": [{"id": "c-2", "complaintId": "KSC0002", "status": "REGISTERED"}]}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(testLogger()))
	records, err := client.FetchComplaints(context.Background(), models.ExportFilters{}, models.RoleAdministrator, "", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "KSC0002", records[0].ComplaintID)
}

func TestFetchComplaints_AuthFailureIsPermissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(testLogger()))
	_, err := client.FetchComplaints(context.Background(), models.ExportFilters{}, models.RoleAdministrator, "", 0)
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrPermission, ee.Kind)
}

func TestFetchComplaints_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(testLogger()))
	_, err := client.FetchComplaints(context.Background(), models.ExportFilters{}, models.RoleAdministrator, "", 0)
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrTransient, ee.Kind)
}

func TestFetchComplaints_MalformedBodyIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(testLogger()))
	_, err := client.FetchComplaints(context.Background(), models.ExportFilters{}, models.RoleAdministrator, "", 0)
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrTransient, ee.Kind)
}

func TestFetchComplaints_FailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "maintenance window"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(testLogger()))
	_, err := client.FetchComplaints(context.Background(), models.ExportFilters{}, models.RoleAdministrator, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintenance window")
}

func TestFetchComplaints_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(envelopeBody))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond), WithLogger(testLogger()))
	_, err := client.FetchComplaints(context.Background(), models.ExportFilters{}, models.RoleAdministrator, "", 0)
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrTransient, ee.Kind)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(testLogger()))
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPing_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithLogger(testLogger()))
	assert.Error(t, client.Ping(context.Background()))
}

func TestFlexTime_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", `"2024-03-01T10:00:00Z"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"space_separated", `"2024-03-01 10:00:00"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"date_only", `"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"null", `null`, time.Time{}},
		{"empty", `""`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ft flexTime
			require.NoError(t, ft.UnmarshalJSON([]byte(tt.input)))
			assert.True(t, ft.Time.Equal(tt.want), "got %v want %v", ft.Time, tt.want)
		})
	}
}
