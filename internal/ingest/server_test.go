package ingest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/data/store"
)

var testKey = []byte("test-signing-key")

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, userID string, key []byte) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func postEvents(t *testing.T, router *gin.Engine, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validRecord() model.ActivityInterval {
	return model.ActivityInterval{
		URL:             "https://github.com/flowpulse",
		Domain:          "github.com",
		Category:        model.CategoryProductive,
		StartTime:       "2026-03-04T09:00:00Z",
		EndTime:         "2026-03-04T09:10:00Z",
		DurationSeconds: 600,
	}
}

func marshalRecords(t *testing.T, records []model.ActivityInterval) []byte {
	t.Helper()
	body, err := sonic.Marshal(records)
	require.NoError(t, err)
	return body
}

func TestHealthz(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsRequireToken(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()

	rec := postEvents(t, router, "", marshalRecords(t, []model.ActivityInterval{validRecord()}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventsRejectForgedToken(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()

	forged := signToken(t, "alice", []byte("some-other-key"))
	rec := postEvents(t, router, forged, marshalRecords(t, []model.ActivityInterval{validRecord()}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventsRejectUnsignedToken(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()

	claims := Claims{
		UserID: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	rec := postEvents(t, router, unsigned, marshalRecords(t, []model.ActivityInterval{validRecord()}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventsRejectExpiredToken(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()

	claims := Claims{
		UserID: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)

	rec := postEvents(t, router, expired, marshalRecords(t, []model.ActivityInterval{validRecord()}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventsRejectMalformedJSON(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()

	rec := postEvents(t, router, signToken(t, "alice", testKey), []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsRejectBatchBounds(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()
	token := signToken(t, "alice", testKey)

	rec := postEvents(t, router, token, []byte(`[]`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	oversized := make([]model.ActivityInterval, 101)
	for i := range oversized {
		oversized[i] = validRecord()
	}
	rec = postEvents(t, router, token, marshalRecords(t, oversized))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEventsValidationDetails(t *testing.T) {
	router := NewServer(store.NewMemoryStore(), testKey).Router()
	token := signToken(t, "alice", testKey)

	bad := validRecord()
	bad.URL = ""
	bad.StartTime = "yesterday"
	rec := postEvents(t, router, token, marshalRecords(t, []model.ActivityInterval{validRecord(), bad}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error   string       `json:"error"`
		Details []fieldError `json:"details"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	require.NotEmpty(t, resp.Details)
	for _, detail := range resp.Details {
		assert.Equal(t, 1, detail.Index, "only the second record is invalid")
	}
}

func TestEventsValidateRecordFields(t *testing.T) {
	mutate := func(fn func(*model.ActivityInterval)) model.ActivityInterval {
		record := validRecord()
		fn(&record)
		return record
	}

	tests := []struct {
		name   string
		record model.ActivityInterval
		field  string
	}{
		{"end before start", mutate(func(r *model.ActivityInterval) {
			r.EndTime = "2026-03-04T08:00:00Z"
		}), "endTime"},
		{"negative duration", mutate(func(r *model.ActivityInterval) {
			r.DurationSeconds = -5
		}), "durationSeconds"},
		{"duration above one hour", mutate(func(r *model.ActivityInterval) {
			r.DurationSeconds = 3700
		}), "durationSeconds"},
		{"duration disagrees with bounds", mutate(func(r *model.ActivityInterval) {
			r.DurationSeconds = 300
		}), "durationSeconds"},
		{"unknown category", mutate(func(r *model.ActivityInterval) {
			r.Category = "sleepy"
		}), "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateRecords([]model.ActivityInterval{tt.record})
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}

	t.Run("empty category is allowed", func(t *testing.T) {
		record := validRecord()
		record.Category = ""
		assert.Empty(t, validateRecords([]model.ActivityInterval{record}))
	})

	t.Run("one second of clock skew is tolerated", func(t *testing.T) {
		record := validRecord()
		record.DurationSeconds = 601
		assert.Empty(t, validateRecords([]model.ActivityInterval{record}))
	})
}

func TestEventsAcceptedAndStored(t *testing.T) {
	st := store.NewMemoryStore()
	router := NewServer(st, testKey).Router()

	records := []model.ActivityInterval{validRecord()}
	records[0].ID = "" // server derives the id

	rec := postEvents(t, router, signToken(t, "alice", testKey), marshalRecords(t, records))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Accepted int `json:"accepted"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)

	from, _ := time.Parse(time.RFC3339, "2026-03-04T00:00:00Z")
	to, _ := time.Parse(time.RFC3339, "2026-03-05T00:00:00Z")
	stored, err := st.IntervalsBetween(context.Background(), "alice", from, to)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].ID)
	assert.Equal(t, "github.com", stored[0].Domain)
}

func TestEventsCanonicalizeOffsetTimestamps(t *testing.T) {
	st := store.NewMemoryStore()
	router := NewServer(st, testKey).Router()

	// 01:00+02:00 is 23:00Z the previous day; the stored record must carry
	// the UTC form so its id and day bucket follow the instant, not the
	// client's zone.
	record := validRecord()
	record.StartTime = "2026-03-05T01:00:00+02:00"
	record.EndTime = "2026-03-05T01:10:00+02:00"

	rec := postEvents(t, router, signToken(t, "alice", testKey), marshalRecords(t, []model.ActivityInterval{record}))
	require.Equal(t, http.StatusCreated, rec.Code)

	from, _ := time.Parse(time.RFC3339, "2026-03-04T00:00:00Z")
	to, _ := time.Parse(time.RFC3339, "2026-03-05T00:00:00Z")
	stored, err := st.IntervalsBetween(context.Background(), "alice", from, to)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "2026-03-04T23:00:00Z", stored[0].StartTime)
	assert.Equal(t, "2026-03-04T23:10:00Z", stored[0].EndTime)
	assert.True(t, strings.HasPrefix(stored[0].ID, "2026-03-04-"))
}

func TestEventsRedeliveryIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	router := NewServer(st, testKey).Router()
	token := signToken(t, "alice", testKey)

	body := marshalRecords(t, []model.ActivityInterval{validRecord()})
	require.Equal(t, http.StatusCreated, postEvents(t, router, token, body).Code)

	redelivered := postEvents(t, router, token, body)
	require.Equal(t, http.StatusCreated, redelivered.Code)

	// A replaced record still counts once; accepted never exceeds the
	// batch size.
	var resp struct {
		Accepted int `json:"accepted"`
	}
	require.NoError(t, sonic.Unmarshal(redelivered.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)

	from, _ := time.Parse(time.RFC3339, "2026-03-04T00:00:00Z")
	to, _ := time.Parse(time.RFC3339, "2026-03-05T00:00:00Z")
	stored, err := st.IntervalsBetween(context.Background(), "alice", from, to)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "the same interval delivered twice collapses on its id")
}
