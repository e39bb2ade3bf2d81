package catalog

import (
	"time"

	"github.com/viant/gmetric"
	"github.com/viant/gmetric/counter"
	"github.com/viant/gmetric/provider"
)

const metricLocation = "isissync/catalog"

// Event is a counted operation outcome.
type Event string

const (
	Success Event = "Success"
	Error   Event = "Error"
	Retry   Event = "Retry"
)

// operationCounter is the part of a gmetric operation counter used here.
type operationCounter interface {
	Begin(started time.Time) counter.OnDone
	IncrementValue(value interface{}) int64
}

// meter records per-operation counters. A nil meter records nothing.
type meter struct {
	service *gmetric.Service
}

func (m *meter) operation(op string) operationCounter {
	if m == nil || m.service == nil {
		return nil
	}
	name := "catalog." + op
	if cnt := m.service.LookupOperation(name); cnt != nil {
		return cnt
	}
	return m.service.MultiOperationCounter(metricLocation, name, name+" performance", time.Millisecond, time.Minute, 2, provider.NewBasic())
}

// begin starts timing op and returns the function closing the measurement
// with its outcome.
func (m *meter) begin(op string) func(err error) {
	cnt := m.operation(op)
	if cnt == nil {
		return func(error) {}
	}
	onDone := cnt.Begin(time.Now())
	return func(err error) {
		if err != nil {
			cnt.IncrementValue(Error)
		} else {
			cnt.IncrementValue(Success)
		}
		onDone(time.Now())
	}
}

func (m *meter) retry(op string) {
	if cnt := m.operation(op); cnt != nil {
		cnt.IncrementValue(Retry)
	}
}
