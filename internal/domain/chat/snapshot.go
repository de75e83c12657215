package chat

import "time"

// Snapshot is the serialized CRM data the chatbot answers from
type Snapshot struct {
	Blob          string    `json:"blob"`
	Collections   []string  `json:"collections"`
	DocumentCount int       `json:"document_count"`
	AssembledAt   time.Time `json:"assembled_at"`
}

// IsEmpty reports whether there is nothing to answer from
func (s Snapshot) IsEmpty() bool {
	return s.Blob == ""
}
