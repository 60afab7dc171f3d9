package ingest

import (
	"github.com/go-playground/validator/v10"

	"github.com/DanielHaim/PanicDeck/internal/pkg/fingerprint"
)

// Client payload structures. To preserve backwards compatibility with any
// client version, only new, optional fields should be added here.

// LocationPayload is the source position of the occurrence
type LocationPayload struct {
	File   string  `json:"f" validate:"required"`
	Line   uint32  `json:"l"`
	Column *uint32 `json:"c,omitempty"`
}

// LogMessagePayload is one client-side log line submitted with the occurrence
type LogMessagePayload struct {
	Timestamp uint64  `json:"ts"`
	Level     uint8   `json:"lvl"`
	Message   string  `json:"msg"`
	Module    *string `json:"mod,omitempty"`
	File      *string `json:"f,omitempty"`
	Line      *uint32 `json:"l,omitempty"`
}

// EventPayload is the occurrence body nested under "data"
type EventPayload struct {
	Title       string              `json:"title" validate:"required"`
	Location    *LocationPayload    `json:"loc,omitempty"`
	Version     *string             `json:"ver,omitempty"`
	OS          string              `json:"os" validate:"required"`
	Arch        string              `json:"arch" validate:"required"`
	ThreadID    *string             `json:"tid,omitempty"`
	ThreadName  *string             `json:"tname,omitempty"`
	Backtrace   string              `json:"trace"`
	LogMessages []LogMessagePayload `json:"log"`
}

// Submission is the full ingestion request body
type Submission struct {
	Key  string       `json:"key" validate:"required"`
	Env  *string      `json:"env,omitempty"`
	Data EventPayload `json:"data"`
}

var validate = validator.New()

// Validate checks the submission against the payload contract
func (s *Submission) Validate() error {
	return validate.Struct(s)
}

// EnvironmentName returns the submitted environment label or empty string
func (s *Submission) EnvironmentName() string {
	if s.Env == nil {
		return ""
	}
	return *s.Env
}

// FingerprintLocation converts the payload location for the fingerprint engine
func (s *Submission) FingerprintLocation() *fingerprint.Location {
	if s.Data.Location == nil {
		return nil
	}
	return &fingerprint.Location{
		File:   s.Data.Location.File,
		Line:   s.Data.Location.Line,
		Column: s.Data.Location.Column,
	}
}

// Version returns the submitted runtime version or empty string
func (s *Submission) Version() string {
	if s.Data.Version == nil {
		return ""
	}
	return *s.Data.Version
}
