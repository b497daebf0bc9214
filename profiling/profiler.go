// Package profiling lets callers measure the round trips of requests sent to the gateway.
package profiling

const (
	RequestTypeList  = 0
	RequestTypeFetch = 1
	RequestTypeTotal = 2
)

func RequestTypeToString(reqType int) string {
	switch reqType {
	case RequestTypeList:
		return "LIST "

	case RequestTypeFetch:
		return "FETCH"

	default:
		return "Unknown"
	}
}

// Profiler is the interface that can be used to perform measurements related to requests sent to the gateway.
type Profiler interface {
	// Start will be called once the request has been sent.
	Start(reqType int)
	// Stop will be called once the response has been applied. Requests that never get a response are not stopped.
	Stop(reqType int)
}

// ProfilerBuilder is the interface through which an instance of the Profiler gets created. One of these will be
// created for each connection.
type ProfilerBuilder interface {
	// New creates a new Profiler instance.
	New() Profiler

	// Collect will be called when the connection is gone.
	Collect(profiler Profiler)
}

// NullProfiler represents a null implementation of Profiler.
type NullProfiler struct{}

func (*NullProfiler) Start(int) {}

func (*NullProfiler) Stop(int) {}

type NullProfilerBuilder struct{}

func (*NullProfilerBuilder) New() Profiler {
	return &NullProfiler{}
}

func (*NullProfilerBuilder) Collect(Profiler) {}
