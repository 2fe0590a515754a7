package usecase

import (
	"fmt"
	"time"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// reporter emits progress events to a sink. It is only used from the
// goroutine that owns the verification, so events arrive in order.
type reporter struct {
	sink domain.EventSink
}

func newReporter(sink domain.EventSink) reporter {
	if sink == nil {
		sink = domain.DiscardEvents
	}
	return reporter{sink: sink}
}

func (r reporter) logf(format string, args ...any) {
	r.sink.Emit(domain.ProgressEvent{
		Type:    domain.EventLog,
		Time:    time.Now().UTC(),
		Message: fmt.Sprintf(format, args...),
	})
}

func (r reporter) progress(found, required int) {
	r.sink.Emit(domain.ProgressEvent{
		Type:     domain.EventProgress,
		Time:     time.Now().UTC(),
		Found:    found,
		Required: required,
	})
}

func (r reporter) result(result *domain.VerificationResult) {
	r.sink.Emit(domain.ProgressEvent{
		Type:   domain.EventResult,
		Time:   time.Now().UTC(),
		Result: result,
	})
}

func (r reporter) failure(err error) {
	r.sink.Emit(domain.ProgressEvent{
		Type:  domain.EventError,
		Time:  time.Now().UTC(),
		Error: err.Error(),
	})
}
