package storage

import "time"

// Entry describes one stored record without its payload.
type Entry struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
}

// Usage summarises how much of the byte quota is taken.
type Usage struct {
	Entries    []Entry
	UsedBytes  int64
	QuotaBytes int64
}

// Remaining returns the free bytes under the quota, or -1 when unlimited.
func (u Usage) Remaining() int64 {
	if u.QuotaBytes <= 0 {
		return -1
	}
	if u.UsedBytes >= u.QuotaBytes {
		return 0
	}
	return u.QuotaBytes - u.UsedBytes
}
