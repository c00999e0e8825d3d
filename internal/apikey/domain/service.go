package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type IssueRequest struct {
	Name     string     `json:"name"`
	Role     Role       `json:"role"`
	Identity string     `json:"identity"`
	Expires  *time.Time `json:"expires_at"`
}

// IssueResult carries the raw key exactly once.
type IssueResult struct {
	Key    *APIKey `json:"key"`
	RawKey string  `json:"raw_key"`
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	List(ctx context.Context, page pagination.Params) ([]APIKey, int64, error)
	Disable(ctx context.Context, id snowflake.ID) (*APIKey, error)
}
