package jobstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusProxyCreated Status = "proxy_created"
	StatusUploaded     Status = "uploaded"
	StatusAnalyzed     Status = "analyzed"
	StatusComplete     Status = "complete"
)

var allStatuses = []Status{
	StatusPending,
	StatusProxyCreated,
	StatusUploaded,
	StatusAnalyzed,
	StatusComplete,
}

var statusRank = func() map[Status]int {
	ranks := make(map[Status]int, len(allStatuses))
	for i, status := range allStatuses {
		ranks[status] = i
	}
	return ranks
}()

// AllStatuses returns the statuses in pipeline order.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusRank[normalized]
	return normalized, ok
}

// Rank returns the position of a status in pipeline order, or -1 for
// unknown values.
func (s Status) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}

// Before reports whether s precedes other in pipeline order.
func (s Status) Before(other Status) bool {
	return s.Rank() < other.Rank()
}

// Job represents one source file's persisted pipeline progress.
type Job struct {
	Key          string
	Context      string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ProxyPath    string
	RemoteName   string
	RemoteURI    string
	AnalysisJSON string
	ErrorMessage string
}

// Filename returns the base name of the job's source file.
func (j Job) Filename() string {
	idx := strings.LastIndexByte(j.Key, '/')
	if idx < 0 {
		return j.Key
	}
	return j.Key[idx+1:]
}

// HasRemoteHandle reports whether the upload stage recorded a usable handle.
func (j Job) HasRemoteHandle() bool {
	return strings.TrimSpace(j.RemoteName) != ""
}

// Fields carries the optional columns merged by Update. Empty strings leave
// the stored value unchanged; ClearError resets the per-job error message.
type Fields struct {
	ProxyPath    string
	RemoteName   string
	RemoteURI    string
	AnalysisJSON string
	ErrorMessage string
	ClearError   bool
}
