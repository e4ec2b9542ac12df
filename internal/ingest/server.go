// Package ingest exposes the HTTP endpoint that accepts batched activity
// intervals from client agents and upserts them into the remote store.
package ingest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/data/store"
	"github.com/flowpulse/flowpulse/internal/util"
)

const (
	// Payload bounds per call.
	minBatchRecords = 1
	maxBatchRecords = 100

	// A single interval longer than an hour is malformed by contract.
	maxIntervalSeconds = 3600
)

// Server handles interval ingestion.
type Server struct {
	store  store.Store
	jwtKey []byte
}

// NewServer creates an ingest server writing to the given store.
func NewServer(st store.Store, jwtKey []byte) *Server {
	return &Server{store: st, jwtKey: jwtKey}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(Authenticate(s.jwtKey))
	{
		api.POST("/events", s.handleEvents)
	}

	return router
}

// fieldError describes one invalid field of one submitted record.
type fieldError struct {
	Index int    `json:"index"`
	Field string `json:"field"`
	Issue string `json:"issue"`
}

func (s *Server) handleEvents(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var records []model.ActivityInterval
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	if len(records) < minBatchRecords || len(records) > maxBatchRecords {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": fmt.Sprintf("batch must contain between %d and %d records", minBatchRecords, maxBatchRecords),
		})
		return
	}

	if errs := validateRecords(records); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"details": errs,
		})
		return
	}

	// Canonicalize timestamps to UTC so stored strings compare in time
	// order regardless of the client's zone offset, then fill in any ids
	// the client omitted; a deterministic id is what makes redelivery of
	// the same interval idempotent.
	for i := range records {
		records[i].StartTime = canonicalUTC(records[i].StartTime)
		records[i].EndTime = canonicalUTC(records[i].EndTime)
		if records[i].ID == "" {
			records[i].ID = util.IntervalFingerprint(records[i].URL, records[i].StartTime, records[i].EndTime)
		}
	}

	accepted, err := s.store.UpsertIntervals(c.Request.Context(), userID, records)
	if err != nil {
		util.LogErrorf("upsert %d intervals for %s: %v", len(records), userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store events"})
		return
	}

	util.LogDebugf("accepted %d intervals for user %s", accepted, userID)
	c.JSON(http.StatusCreated, gin.H{"accepted": accepted})
}

// canonicalUTC rewrites an RFC3339 timestamp in UTC. Timestamps reach this
// point already validated, so an unparseable value passes through untouched.
func canonicalUTC(ts string) string {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return parsed.UTC().Format(time.RFC3339)
}

func validateRecords(records []model.ActivityInterval) []fieldError {
	var errs []fieldError
	for i, record := range records {
		if record.URL == "" {
			errs = append(errs, fieldError{Index: i, Field: "url", Issue: "must not be empty"})
		}
		start, startErr := time.Parse(time.RFC3339, record.StartTime)
		if startErr != nil {
			errs = append(errs, fieldError{Index: i, Field: "startTime", Issue: "not a valid RFC3339 timestamp"})
		}
		end, endErr := time.Parse(time.RFC3339, record.EndTime)
		if endErr != nil {
			errs = append(errs, fieldError{Index: i, Field: "endTime", Issue: "not a valid RFC3339 timestamp"})
		}
		if startErr == nil && endErr == nil && end.Before(start) {
			errs = append(errs, fieldError{Index: i, Field: "endTime", Issue: "must not precede startTime"})
		}
		if record.DurationSeconds < 0 || record.DurationSeconds > maxIntervalSeconds {
			errs = append(errs, fieldError{Index: i, Field: "durationSeconds",
				Issue: fmt.Sprintf("must be between 0 and %d", maxIntervalSeconds)})
		} else if startErr == nil && endErr == nil {
			span := int(end.Sub(start).Seconds())
			if diff := record.DurationSeconds - span; diff < -1 || diff > 1 {
				errs = append(errs, fieldError{Index: i, Field: "durationSeconds",
					Issue: "does not match the interval bounds"})
			}
		}
		if record.Category != "" && !record.Category.Valid() {
			errs = append(errs, fieldError{Index: i, Field: "category", Issue: "unknown category"})
		}
	}
	return errs
}
