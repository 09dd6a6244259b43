package models

import "time"

// DocumentMeta is the normalized metadata handed over by the mail
// retrieval collaborator for one research document.
type DocumentMeta struct {
	UID        string    `json:"uid"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Date       time.Time `json:"date"`
	Body       string    `json:"body"`
	SourceFile string    `json:"source_file"`

	// InReplyTo carries the parent message id when the document is part
	// of a reply chain.
	InReplyTo string `json:"in_reply_to,omitempty"`

	// Sentiment is an optional upstream sentiment label ("positive",
	// "negative", "neutral"). Propagated onto selected edge types only.
	Sentiment string `json:"sentiment,omitempty"`
}

// Table is one extracted table from an attachment: row-oriented data
// keyed by column header.
type Table struct {
	// Columns preserves header order when the upstream parser records
	// it; extraction falls back to sorted keys otherwise.
	Columns []string            `json:"columns,omitempty"`
	Data    []map[string]string `json:"data"`
	NumRows int                 `json:"num_rows"`
	NumCols int                 `json:"num_cols"`
	Error   string              `json:"error,omitempty"`
}

// ExtractedData groups the tables pulled out of a single attachment.
type ExtractedData struct {
	Tables []Table `json:"tables"`
}

// AttachmentResult is the output contract of the attachment processing
// collaborator (OCR / spreadsheet parsing happens upstream).
type AttachmentResult struct {
	Filename         string        `json:"filename"`
	ExtractedData    ExtractedData `json:"extracted_data"`
	ProcessingStatus string        `json:"processing_status"`
}

// IngestDocument is the drop-directory JSON payload: document metadata
// plus pre-processed attachments.
type IngestDocument struct {
	Meta        DocumentMeta       `json:"meta"`
	Attachments []AttachmentResult `json:"attachments,omitempty"`
}
