package registry

// FileType distinguishes uploaded images from PDFs.
type FileType string

const (
	FileImage FileType = "image"
	FilePDF   FileType = "pdf"
)

// Status is a document's conversion lifecycle state. Exactly one holds
// at any time; completed and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Project groups uploaded documents sharing a language.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// Document is one uploaded file and its conversion state.
//
// Invariants maintained by the Mark* methods: ProcessedAt is set iff
// Status is completed; ProcessingError is set iff Status is failed.
type Document struct {
	ID                int64    `json:"id"`
	ProjectID         int64    `json:"project_id"`
	OriginalFilename  string   `json:"original_filename"`
	FileType          FileType `json:"file_type"`
	FilePath          string   `json:"file_path"` // relative to the upload root
	Status            Status   `json:"status"`
	ProcessedMarkdown string   `json:"processed_markdown_path,omitempty"`
	ProcessedHTML     string   `json:"processed_html_path,omitempty"`
	OCRModel          string   `json:"ocr_model,omitempty"`
	TextModel         string   `json:"text_model,omitempty"`
	ProcessingError   string   `json:"processing_error,omitempty"`
	CreatedAt         int64    `json:"created_at"`
	ProcessedAt       int64    `json:"processed_at,omitempty"`
}
