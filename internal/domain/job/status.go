package job

// Status is the lifecycle state of a processing job.
type Status string

// Job lifecycle states.
const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
	Cancelled  Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case Pending, Processing, Completed, Failed, Cancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
// Failed is not terminal: a retry may return the job to Pending.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

func (s Status) String() string { return string(s) }

// Kind names the unit of work a job performs.
type Kind string

// Known job kinds.
const (
	KindOCR          Kind = "ocr"
	KindASR          Kind = "asr"
	KindLLM          Kind = "llm"
	KindEmbedding    Kind = "embedding"
	KindMediaConvert Kind = "media_convert"
	KindSegmentation Kind = "segmentation"
)
