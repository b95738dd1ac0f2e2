package http

import "kvreplay/pkg/types"

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates an operation completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates an operation failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status Status     `json:"status,omitempty"`
	Pairs  []types.KV `json:"pairs,omitempty"`
	Error  string     `json:"error,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewSuccessResponse() Response {
	return Response{Status: StatusSuccess}
}

func NewPairsResponse(pairs []types.KV) Response {
	if pairs == nil {
		pairs = []types.KV{}
	}
	return Response{Status: StatusSuccess, Pairs: pairs}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
