package domain

import (
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of the tracked job.
type JobStatus string

const (
	JobIdle      JobStatus = "idle"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
)

// JobKind identifies what a job does.
type JobKind string

const (
	KindCrawl        JobKind = "crawl"
	KindReport       JobKind = "report"
	KindPoster       JobKind = "poster"
	KindDaily        JobKind = "daily"
	KindConnectivity JobKind = "connectivity"
)

// Job is the observable record of the current or last run.
type Job struct {
	ID         string     `json:"id,omitempty"`
	Kind       JobKind    `json:"kind,omitempty"`
	Status     JobStatus  `json:"status"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message"`
	Details    []string   `json:"details"`
	Result     JobResult  `json:"-"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// MarshalJSON emits the result as {"kind": ..., "data": ...}.
func (j Job) MarshalJSON() ([]byte, error) {
	type plain Job
	type envelope struct {
		Kind JobKind   `json:"kind"`
		Data JobResult `json:"data"`
	}
	out := struct {
		plain
		Result *envelope `json:"result,omitempty"`
	}{plain: plain(j)}
	if out.Details == nil {
		out.Details = []string{}
	}
	if j.Result != nil {
		out.Result = &envelope{Kind: j.Result.ResultKind(), Data: j.Result}
	}
	return json.Marshal(out)
}

// JobResult is the output of a finished job. Implementations are immutable once stored.
type JobResult interface {
	ResultKind() JobKind
}

// CrawlResult is produced by the scrape and cache stages.
type CrawlResult struct {
	Date     string    `json:"date"`
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
}

func (CrawlResult) ResultKind() JobKind { return KindCrawl }

// ReportResult is produced by the summarize stage.
type ReportResult struct {
	Report Report      `json:"report"`
	Files  ReportFiles `json:"files"`
}

func (ReportResult) ResultKind() JobKind { return KindReport }

// PosterResult is produced by the render stage.
type PosterResult struct {
	Poster Poster `json:"poster"`
}

func (PosterResult) ResultKind() JobKind { return KindPoster }

// CheckResult is the outcome of one connectivity check.
type CheckResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ConnectivityResult maps collaborator names to their check outcome.
type ConnectivityResult struct {
	Results map[string]CheckResult `json:"results"`
}

func (ConnectivityResult) ResultKind() JobKind { return KindConnectivity }

// DailyResult summarizes a full scrape-to-publish run.
type DailyResult struct {
	Date      string         `json:"date"`
	Articles  int            `json:"articles"`
	Report    ReportFiles    `json:"report"`
	Poster    *Poster        `json:"poster,omitempty"`
	Published bool           `json:"published"`
	Publish   *PublishResult `json:"publish,omitempty"`
}

func (DailyResult) ResultKind() JobKind { return KindDaily }
