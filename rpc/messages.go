// Package rpc defines the semantic projection of the archive's wire
// messages and the small capability interfaces the recoverer
// and ingest processor consume. It intentionally does not define a wire
// schema: callers are expected to plug in a concrete transport (gRPC,
// an in-memory fake, etc.) behind the StreamClient/BidiStreamClient
// interfaces in stub.go.
package rpc

import (
	"google.golang.org/grpc/codes"

	"github.com/jfoltran/tsarchive"
)

// MessageKind identifies the shape of an inbound or outbound RPC message.
type MessageKind int

const (
	KindQueryDataResponse MessageKind = iota
	KindIngestDataResponse
	KindRegisterProviderResponse
)

// String implements fmt.Stringer.
func (k MessageKind) String() string {
	switch k {
	case KindQueryDataResponse:
		return "QueryDataResponse"
	case KindIngestDataResponse:
		return "IngestDataResponse"
	case KindRegisterProviderResponse:
		return "RegisterProviderResponse"
	default:
		return "Unknown"
	}
}

// DataMessage is the architectural spine shared by every inbound message:
// both successful payloads and exceptional results implement it.
type DataMessage interface {
	Kind() MessageKind
	StreamID() string
	PayloadBytes() int64
	// Exceptional returns the message's ExceptionalResult and true if the
	// message represents a rejected/failed request rather than data.
	Exceptional() (ExceptionalResult, bool)
}

// ExceptionalResult models the `exceptionalResult{status, message}` shape
// of a rejected request, using grpc's codes.Code as the status enum rather
// than inventing a bespoke one (see DESIGN.md).
type ExceptionalResult struct {
	Code    codes.Code
	Message string
}

func (e ExceptionalResult) Error() string { return e.Message }

// QueryDataResponse carries either a decoded IngestionFrame-shaped data
// frame or an ExceptionalResult, one inbound message of a query stream.
type QueryDataResponse struct {
	Stream      string
	Frame       *tsarchive.IngestionFrame
	Exception   *ExceptionalResult
	SizeBytes   int64
}

func (m *QueryDataResponse) Kind() MessageKind   { return KindQueryDataResponse }
func (m *QueryDataResponse) StreamID() string     { return m.Stream }
func (m *QueryDataResponse) PayloadBytes() int64  { return m.SizeBytes }
func (m *QueryDataResponse) Exceptional() (ExceptionalResult, bool) {
	if m.Exception == nil {
		return ExceptionalResult{}, false
	}
	return *m.Exception, true
}

// IngestDataResponse carries an acknowledgement or an ExceptionalResult
// for one ingested composite frame.
type IngestDataResponse struct {
	Stream             string
	ClientRequestUID   string
	Acknowledged       bool
	Exception          *ExceptionalResult
	SizeBytes          int64
}

func (m *IngestDataResponse) Kind() MessageKind  { return KindIngestDataResponse }
func (m *IngestDataResponse) StreamID() string    { return m.Stream }
func (m *IngestDataResponse) PayloadBytes() int64 { return m.SizeBytes }
func (m *IngestDataResponse) Exceptional() (ExceptionalResult, bool) {
	if m.Exception == nil {
		return ExceptionalResult{}, false
	}
	return *m.Exception, true
}

// RegisterProviderResponse carries a newly assigned provider id, or an
// ExceptionalResult if registration was rejected.
type RegisterProviderResponse struct {
	Stream      string
	ProviderID  string
	Exception   *ExceptionalResult
	SizeBytes   int64
}

func (m *RegisterProviderResponse) Kind() MessageKind  { return KindRegisterProviderResponse }
func (m *RegisterProviderResponse) StreamID() string    { return m.Stream }
func (m *RegisterProviderResponse) PayloadBytes() int64 { return m.SizeBytes }
func (m *RegisterProviderResponse) Exceptional() (ExceptionalResult, bool) {
	if m.Exception == nil {
		return ExceptionalResult{}, false
	}
	return *m.Exception, true
}

// IngestDataRequest is the outbound semantic projection of one composite
// frame being pushed up a forward/bidirectional stream.
type IngestDataRequest struct {
	ProviderID       string
	ClientRequestUID string
	Attributes       map[string]string
	Frame            *tsarchive.IngestionFrame
}

// RegisterProviderRequest is the outbound projection of a provider
// registration call.
type RegisterProviderRequest struct {
	Name       string
	Attributes map[string]string
}
