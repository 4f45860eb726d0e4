package batch

// Status is the lifecycle state of one upload item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusUploading, StatusSuccess, StatusError:
		return true
	}
	return false
}

// Settled reports whether the item reached a final state.
func (s Status) Settled() bool {
	return s == StatusSuccess || s == StatusError
}

// Item is one source URL and the progress of its transfer.
type Item struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// Snapshot is a consistent copy of the orchestrator state.
type Snapshot struct {
	Items    []Item  `json:"items"`
	Progress float64 `json:"progress"`
	Running  bool    `json:"running"`
}

// Counts returns how many items ended in success and in error.
func (s Snapshot) Counts() (succeeded, failed int) {
	for _, it := range s.Items {
		switch it.Status {
		case StatusSuccess:
			succeeded++
		case StatusError:
			failed++
		}
	}
	return succeeded, failed
}

// meanProgress is the average item progress, 0 for no items.
func meanProgress(items []Item) float64 {
	if len(items) == 0 {
		return 0
	}
	total := 0
	for _, it := range items {
		total += it.Progress
	}
	return float64(total) / float64(len(items))
}
