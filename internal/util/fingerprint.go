package util

import (
	"fmt"
	"hash/crc32"
)

// IntervalFingerprint derives a deterministic id for an activity interval
// from its URL and bounds. Re-delivery of the same interval produces the
// same id, which is what makes the remote store's upsert idempotent under
// at-least-once delivery.
func IntervalFingerprint(url, startTime, endTime string) string {
	payload := url + "|" + startTime + "|" + endTime
	crc := crc32.ChecksumIEEE([]byte(payload))
	prefix := startTime
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("%s-%08x", prefix, crc)
}
