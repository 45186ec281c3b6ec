package history

import "time"

// Status is the lifecycle state of a recorded job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one download job as stored in the history database.
type Record struct {
	JobID           string    `json:"job_id"`
	SourceURL       string    `json:"source_url"`
	Title           string    `json:"title,omitempty"`
	OutputDir       string    `json:"output_dir"`
	Status          Status    `json:"status"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	OutputFile      string    `json:"output_file,omitempty"`
	VideoResolution string    `json:"video_resolution,omitempty"`
	AudioBitrate    int       `json:"audio_bitrate,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Duration reports how long the job ran (or has been running).
func (r Record) Duration() time.Duration {
	if r.CreatedAt.IsZero() {
		return 0
	}
	end := r.UpdatedAt
	if r.Status == StatusRunning || end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.CreatedAt)
}

// Outcome carries the fields written when a job finishes.
type Outcome struct {
	OutputFile      string
	VideoResolution string
	AudioBitrate    int
	ErrorKind       string
	ErrorMessage    string
}

// ListOptions filters List results.
type ListOptions struct {
	Status Status
	Limit  int
}

// Summary aggregates job counts for status output.
type Summary struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
