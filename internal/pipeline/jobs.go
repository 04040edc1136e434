package pipeline

import (
	"sync"
	"time"

	"github.com/rthomann/docmill/internal/docmodel"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusFetching  JobStatus = "fetching"
	StatusParsing   JobStatus = "parsing"
	StatusEnriching JobStatus = "enriching"
	StatusCompleted JobStatus = "completed"
	// StatusPartial means the document converted but some enrichment
	// stages failed; the errors list says which.
	StatusPartial JobStatus = "partial"
	StatusFailed  JobStatus = "failed"
)

// Job tracks the state of a single document conversion.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	Source string `json:"source"` // filename or URL

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Options Options `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	doc      *docmodel.Document
	errors   []string
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error message.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetFileData sets uploaded file bytes; empty for URL sources.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the uploaded file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetDocument stores the finished document and releases the input bytes.
func (j *Job) SetDocument(doc *docmodel.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc = doc
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Document returns the converted document, nil until completion.
func (j *Job) Document() *docmodel.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doc
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Source    string    `json:"source"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Errors    []string  `json:"errors"`
	Title     string    `json:"title,omitempty"`
	PageCount int       `json:"page_count,omitempty"`
	WordCount int       `json:"word_count,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.errors
	if errs == nil {
		errs = []string{}
	}
	snap := JobSnapshot{
		ID:     j.ID,
		Source: j.Source,
		Status: j.Status,
		Phase:  j.Phase,
		Errors: errs,
	}
	if j.doc != nil {
		snap.Title = j.doc.Meta.Title
		snap.PageCount = j.doc.Meta.PageCount
		snap.WordCount = j.doc.Meta.WordCount
	}
	return snap
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
