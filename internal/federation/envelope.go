// Package federation implements the server-to-server layer: peer
// discovery, the response envelope shared by every federation
// endpoint, and the HTTP client with gateway redirect handling.
package federation

import (
	"encoding/json"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
)

// Envelope is the wire format of every federation response. Exactly
// one of Data and Error is expected; Redirect may accompany either to
// announce replacement gateways.
type Envelope struct {
	Request  string               `json:"request"`
	Time     int64                `json:"time"`
	Data     json.RawMessage      `json:"data,omitempty"`
	Error    *domain.ErrorMessage `json:"error,omitempty"`
	Redirect *Redirect            `json:"redirect,omitempty"`
}

// Redirect carries replacement gateway endpoints a peer wants callers
// to use from now on.
type Redirect struct {
	HTTP string `json:"http"`
	WS   string `json:"ws"`
}

// NewEnvelope builds a success envelope for the given request path.
func NewEnvelope(request string, data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Request: request,
		Time:    time.Now().UnixMilli(),
		Data:    raw,
	}, nil
}

// NewErrorEnvelope builds an error envelope for the given request
// path.
func NewErrorEnvelope(request string, errMsg *domain.ErrorMessage) *Envelope {
	return &Envelope{
		Request: request,
		Time:    time.Now().UnixMilli(),
		Error:   errMsg,
	}
}

// DecodeData unmarshals the envelope payload into T. An envelope
// without data yields ErrNoDataFromServer; undecodable data yields
// ErrBadDataFromServer.
func DecodeData[T any](env *Envelope) (*T, error) {
	if env == nil || len(env.Data) == 0 {
		return nil, domain.ErrNoDataFromServer
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, domain.ErrBadDataFromServer.WithCause(err)
	}
	return &out, nil
}
