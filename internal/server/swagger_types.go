package server

import "github.com/pullpaylabs/pullpay/pkg/db/pagination"

// Generic Swagger response envelopes to match API shape.
type DataResponse struct {
	Data any `json:"data"`
}

type ListResponse struct {
	Data     any             `json:"data"`
	PageInfo pagination.Meta `json:"page_info"`
}
