package models

import (
	"encoding/json"
	"fmt"
)

// Envelope is the backend response wrapper. Code 0 is success; any other
// value is an application error described by Message.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the envelope signals success.
func (e Envelope) OK() bool {
	return e.Code == 0
}

// DecodeData unmarshals the envelope payload into v.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("empty envelope data")
	}
	return json.Unmarshal(e.Data, v)
}

// MediaFile is the payload returned by the media upload endpoint.
type MediaFile struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// Location returns the object URL, accepting the legacy file_url field.
func (m MediaFile) Location() string {
	if m.URL != "" {
		return m.URL
	}
	return m.FileURL
}
