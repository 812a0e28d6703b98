package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smena/internal/model"
)

func TestClient_ScheduleRoundTrip(t *testing.T) {
	var stored []model.ScheduleRow
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/schedule", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodPut:
			var body struct {
				Schedule []model.ScheduleRow `json:"schedule"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			stored = body.Schedule
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"schedule": stored})
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	ctx := context.Background()

	var tmpl model.WeekTemplate
	require.NoError(t, tmpl.SetDay(time.Monday, true, "09:00", "17:00"))

	require.NoError(t, client.SaveRows(ctx, tmpl.ToRows()))

	rows, err := client.LoadRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, tmpl, model.TemplateFromRows(rows))

	err = client.SaveRows(ctx, rows[:3])
	assert.Error(t, err)
}

func TestClient_Assignments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/assignments", r.URL.Path)
		assert.Equal(t, "2025-08-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-08-31", r.URL.Query().Get("to"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"assignments": []map[string]string{
				{"date": "2025-08-04", "label": "Склад, смена 2"},
				{"date": "2025-08-15", "label": "Доставка"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	list, err := client.Assignments(context.Background(), model.MustDate("2025-08-01"), model.MustDate("2025-08-31"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.MustDate("2025-08-04"), list[0].Date)
	assert.Equal(t, "Склад, смена 2", list[0].Label)
}

func TestClient_AssignmentsCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"assignments": []map[string]string{{"date": "2025-08-04", "label": "Склад"}},
		})
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	client := NewClient(srv.URL, "")
	client.UseRedisCache(rdb, time.Minute)

	ctx := context.Background()
	from, to := model.MustDate("2025-08-01"), model.MustDate("2025-08-31")

	first, err := client.Assignments(ctx, from, to)
	require.NoError(t, err)
	second, err := client.Assignments(ctx, from, to)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load(), "second call should come from cache")
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.LoadRows(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
