package dto

// DownloadLinks point at the files the external scheduler writes.
type DownloadLinks struct {
	Faculty string `json:"faculty"`
	Class   string `json:"class"`
	Summary string `json:"summary"`
}

// GenerationResponse is returned after a successful scheduler run. Stats is null when
// the output carried no parseable stats line.
type GenerationResponse struct {
	Message       string                 `json:"message"`
	Output        string                 `json:"output"`
	Stats         map[string]interface{} `json:"stats"`
	DownloadLinks DownloadLinks          `json:"downloadLinks"`
}

// UploadTimetableResponse is returned by the subject timetable upload, which requires
// stats.
type UploadTimetableResponse struct {
	Status string                 `json:"status"`
	Stats  map[string]interface{} `json:"stats"`
}

// SchedulerFailure is attached as error details when the scheduler exits non-zero.
type SchedulerFailure struct {
	ExitCode int    `json:"exitCode"`
	TimedOut bool   `json:"timedOut,omitempty"`
	Stderr   string `json:"stderr"`
	Output   string `json:"output"`
}
