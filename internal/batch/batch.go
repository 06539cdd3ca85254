// Package batch orchestrates asynchronous batch credential checks: it
// accepts a newline-delimited list of username:password lines, processes
// them in adaptively-sized chunks against the checker, and exposes
// poll-based progress with client-abandonment detection.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lkeld/leakcheck-core/internal/checker"
)

const (
	// maxLines bounds how large an uploaded batch may be.
	maxLines = 10000

	// initialChunkSize, secondChunkSize, thirdChunkSize are the adaptive
	// chunk sizes: the first chunk is conservative while the oracle
	// connection warms up, then chunks grow as processing proves stable.
	initialChunkSize = 10
	secondChunkSize  = 25
	thirdChunkSize   = 50

	// concurrencyLimit bounds how many credentials within a single chunk
	// are checked against the oracle at once.
	concurrencyLimit = 5

	// abandonTimeout is how long a job may go unpolled before it's
	// considered abandoned by its client and processing stops.
	abandonTimeout = 15 * time.Second

	// evictAfter is how long a completed (or abandoned) job's results stay
	// addressable before the registry reclaims them.
	evictAfter = time.Hour
)

// Result is one line's outcome: either a skipped/invalid line, or a
// completed (or errored) credential check.
type Result struct {
	Credential string `json:"credential"`
	IsLeaked   *bool  `json:"isLeaked"`
	Status     string `json:"status"` // "checked", "error", "skipped"
	Message    string `json:"message,omitempty"`
}

// Job is the state of one batch run, guarded by the registry's lock.
type Job struct {
	ID          string
	Total       int
	Processed   int
	Results     []Result
	Completed   bool
	Error       string
	IsAbandoned bool

	lastHeartbeat time.Time
}

// Summary is the aggregate view returned alongside a job's results.
type Summary struct {
	TotalProcessed     int  `json:"totalProcessed"`
	TotalLeaked        int  `json:"totalLeaked"`
	TotalNotLeaked     int  `json:"totalNotLeaked"`
	TotalErrors        int  `json:"totalErrors"`
	Completed          bool `json:"completed"`
	ProgressPercentage uint `json:"progressPercentage"`
}

// Registry tracks in-flight and recently-completed jobs behind a single
// RWMutex, mirroring a conversation store's shape but keyed by job ID.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	checker *checker.Service
}

// NewRegistry constructs an empty job registry bound to svc for running
// checks.
func NewRegistry(svc *checker.Service) *Registry {
	return &Registry{
		jobs:    make(map[string]*Job),
		checker: svc,
	}
}

// ErrEmptyFile and ErrTooManyLines are returned by Submit for malformed
// uploads.
var (
	ErrEmptyFile    = errString("batch: file is empty")
	ErrTooManyLines = errString("batch: file contains more than 10,000 lines")
)

type errString string

func (e errString) Error() string { return string(e) }

// Submit parses fileBytes into non-blank lines, creates a job, and starts
// background processing. It returns the new job's ID.
func (r *Registry) Submit(fileBytes []byte, emailOnly bool) (string, error) {
	lines, err := splitLines(fileBytes)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrEmptyFile
	}
	if len(lines) > maxLines {
		return "", ErrTooManyLines
	}

	jobID := uuid.New().String()
	job := &Job{
		ID:            jobID,
		Total:         len(lines),
		lastHeartbeat: time.Now(),
	}

	r.mu.Lock()
	r.jobs[jobID] = job
	r.mu.Unlock()

	go r.process(jobID, lines, emailOnly)

	return jobID, nil
}

func splitLines(fileBytes []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(fileBytes))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Status returns the current summary and results for jobID, refreshing its
// heartbeat and clearing any abandoned flag as a side effect — polling for
// status is itself what tells the orchestrator a client is still there.
func (r *Registry) Status(jobID string) (Summary, []Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return Summary{}, nil, false
	}

	job.lastHeartbeat = time.Now()
	job.IsAbandoned = false

	return summarize(job), append([]Result(nil), job.Results...), true
}

// Delete removes jobID from the registry, reporting whether it existed.
func (r *Registry) Delete(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[jobID]; !ok {
		return false
	}
	delete(r.jobs, jobID)
	return true
}

func summarize(job *Job) Summary {
	var leaked, notLeaked, errored int
	for _, res := range job.Results {
		switch {
		case res.Status == "error" || res.IsLeaked == nil:
			errored++
		case *res.IsLeaked:
			leaked++
		default:
			notLeaked++
		}
	}

	progress := uint(100)
	if job.Total > 0 {
		progress = uint(float64(job.Processed) / float64(job.Total) * 100)
	}

	return Summary{
		TotalProcessed:     job.Processed,
		TotalLeaked:        leaked,
		TotalNotLeaked:     notLeaked,
		TotalErrors:        errored,
		Completed:          job.Completed,
		ProgressPercentage: progress,
	}
}

type credential struct {
	username string
	password string
}

// process is the background worker driving one job to completion. It
// parses lines into valid credentials (or skip/error results for the
// rest), then walks the valid credentials in adaptively-sized chunks,
// checking each chunk's credentials concurrently (bounded by
// concurrencyLimit) and pacing between chunks. It stops early if the job
// is deleted, explicitly completed, or abandoned by its client.
func (r *Registry) process(jobID string, lines []string, emailOnly bool) {
	credentials, invalid := parseLines(lines, emailOnly)

	if len(invalid) > 0 {
		r.mu.Lock()
		if job, ok := r.jobs[jobID]; ok {
			job.Results = append(job.Results, invalid...)
			job.Processed += len(invalid)
		}
		r.mu.Unlock()
	}

	chunkSize := initialChunkSize
	processedCount := 0

	for chunkIndex := 0; ; chunkIndex++ {
		chunk, rest, done := nextChunk(credentials, chunkIndexState(&chunkSize, chunkIndex))
		credentials = rest
		if done {
			break
		}

		if abandoned := r.checkAbandonment(jobID, processedCount); abandoned {
			go r.evict(jobID)
			return
		}

		results := r.checkChunk(chunk)

		r.mu.Lock()
		job, ok := r.jobs[jobID]
		if ok {
			job.Results = append(job.Results, results...)
			job.Processed += len(chunk)
		}
		r.mu.Unlock()
		if !ok {
			return
		}
		processedCount += len(chunk)

		delay := 25 * time.Millisecond
		if chunkSize > initialChunkSize {
			delay = 50 * time.Millisecond
		}
		time.Sleep(delay)
	}

	r.mu.Lock()
	if job, ok := r.jobs[jobID]; ok {
		job.Completed = true
		job.IsAbandoned = false
		log.Printf("batch: completed job %s with %d credentials processed", jobID, processedCount)
	}
	r.mu.Unlock()

	go r.evict(jobID)
}

const (
	secondChunkGrowsAt = 1
	thirdChunkGrowsAt  = 5
)

// chunkIndexState advances *chunkSize per the growth schedule and returns
// the size to use for this call.
func chunkIndexState(chunkSize *int, chunkIndex int) int {
	if chunkIndex == secondChunkGrowsAt && *chunkSize < secondChunkSize {
		*chunkSize = secondChunkSize
	} else if chunkIndex == thirdChunkGrowsAt && *chunkSize < thirdChunkSize {
		*chunkSize = thirdChunkSize
	}
	return *chunkSize
}

func nextChunk(credentials []credential, size int) (chunk, rest []credential, done bool) {
	if len(credentials) == 0 {
		return nil, nil, true
	}
	if size > len(credentials) {
		size = len(credentials)
	}
	return credentials[:size], credentials[size:], false
}

func (r *Registry) checkAbandonment(jobID string, processedCount int) bool {
	r.mu.RLock()
	job, ok := r.jobs[jobID]
	if !ok {
		r.mu.RUnlock()
		return true
	}
	if job.Completed {
		r.mu.RUnlock()
		return true
	}
	elapsed := time.Since(job.lastHeartbeat)
	abandoned := elapsed > abandonTimeout
	r.mu.RUnlock()

	if !abandoned {
		return false
	}

	log.Printf("batch: job %s has no heartbeat for %s, marking as abandoned", jobID, elapsed)

	r.mu.Lock()
	if job, ok := r.jobs[jobID]; ok {
		job.IsAbandoned = true
		job.Error = "Job abandoned - client stopped requesting updates"
		job.Completed = true
		log.Printf("batch: job %s abandoned after processing %d credentials", jobID, processedCount)
	}
	r.mu.Unlock()

	return true
}

// checkChunk runs up to concurrencyLimit credential checks concurrently and
// formats each outcome, masking the password per the protocol's display
// convention. A per-credential error never aborts the chunk: it's recorded
// as that credential's result.
func (r *Registry) checkChunk(chunk []credential) []Result {
	results := make([]Result, len(chunk))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(concurrencyLimit)

	for i, cred := range chunk {
		i, cred := i, cred
		g.Go(func() error {
			leaked, err := r.checker.CheckSingleCredential(ctx, cred.username, cred.password)
			if err != nil {
				results[i] = Result{
					Credential: formatCredential(cred.username),
					Status:     "error",
					Message:    "Error: " + err.Error(),
				}
				return nil
			}
			results[i] = Result{
				Credential: formatCredential(cred.username),
				IsLeaked:   &leaked,
				Status:     "checked",
			}
			return nil
		})
	}
	_ = g.Wait() // per-credential errors are captured in results, never propagated

	return results
}

func formatCredential(username string) string {
	return username + ":••••••••"
}

func (r *Registry) evict(jobID string) {
	time.Sleep(evictAfter)
	r.mu.Lock()
	if _, ok := r.jobs[jobID]; ok {
		delete(r.jobs, jobID)
		log.Printf("batch: evicted job %s after %s", jobID, evictAfter)
	}
	r.mu.Unlock()
}

func parseLines(lines []string, emailOnly bool) (credentials []credential, invalid []Result) {
	for _, line := range lines {
		if emailOnly {
			invalid = append(invalid, Result{
				Credential: line,
				Status:     "skipped",
				Message:    "Email-only format not supported yet",
			})
			continue
		}

		username, password, ok := splitCredentialLine(line)
		if !ok {
			invalid = append(invalid, Result{
				Credential: line,
				Status:     "error",
				Message:    "Invalid format. Expected username:password",
			})
			continue
		}

		credentials = append(credentials, credential{username: username, password: password})
	}
	return credentials, invalid
}

func splitCredentialLine(line string) (username, password string, ok bool) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	username = strings.TrimSpace(parts[0])
	password = strings.TrimSpace(parts[1])
	if username == "" || password == "" {
		return "", "", false
	}
	return username, password, true
}
