package report

import (
	"go.uber.org/atomic"
)

type NotifierState struct {
	ChangesStreamed atomic.Uint64 `json:"changes_streamed"`
	ChangesMapped   atomic.Uint64 `json:"changes_mapped"`
}

type NotifierErrors struct {
	ParseError atomic.Uint64 `json:"parse_error"`
}

type NotifierReport struct {
	State  NotifierState  `json:"state"`
	Errors NotifierErrors `json:"errors"`
}
