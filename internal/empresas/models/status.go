package models

// StatusKind drives both the text and the styling of the status region.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusWarning StatusKind = "warning"
	StatusError   StatusKind = "error"
)

// Status is a displayable message returned for every user action.
type Status struct {
	Text string     `json:"text"`
	Kind StatusKind `json:"kind"`
}

func Info(text string) Status    { return Status{Text: text, Kind: StatusInfo} }
func Success(text string) Status { return Status{Text: text, Kind: StatusSuccess} }
func Warning(text string) Status { return Status{Text: text, Kind: StatusWarning} }
func Error(text string) Status   { return Status{Text: text, Kind: StatusError} }

// Empty reports whether there is nothing to show.
func (s Status) Empty() bool {
	return s.Text == ""
}
