package models

import "time"

// Operation names a gateway operation.
type Operation string

const (
	OpConnect  Operation = "connect"
	OpInit     Operation = "init"
	OpUpload   Operation = "upload"
	OpDownload Operation = "download"
	OpDelete   Operation = "delete"
	OpMove     Operation = "move"
	OpList     Operation = "list"
)

// TransferRecord is one journal entry describing a finished operation.
type TransferRecord struct {
	ID       int64     `json:"id,omitempty"`
	Time     time.Time `json:"time"`
	Op       Operation `json:"op"`
	Category Category  `json:"category,omitempty"`
	Name     string    `json:"name,omitempty"`
	Target   string    `json:"target,omitempty"`
	Bytes    int64     `json:"bytes,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Succeeded reports whether the operation completed without error.
func (r *TransferRecord) Succeeded() bool {
	return r.Error == ""
}

// ProbeReport collects the readiness probe results for a target.
type ProbeReport struct {
	TargetExists    bool `json:"target_exists"`
	TargetCanWrite  bool `json:"target_can_write"`
	TargetCanCreate bool `json:"target_can_create"`
	RepoFileExists  bool `json:"repo_file_exists"`
}
