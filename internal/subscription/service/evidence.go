package service

import (
	"context"

	"github.com/bwmarrin/snowflake"

	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/internal/subscription/domain"
)

type evidenceSource struct {
	repo domain.Repository
}

// NewEvidenceSource exposes subscription rows as review evidence for the
// merchant trust gate. It reads through the repository only, so the merchant
// service can depend on it without a cycle back into the billing service.
func NewEvidenceSource(repo domain.Repository) merchantdomain.EvidenceSource {
	return &evidenceSource{repo: repo}
}

func (s *evidenceSource) Evidence(ctx context.Context, subscriptionID snowflake.ID, reviewer string, merchantID snowflake.ID) (*merchantdomain.Evidence, error) {
	sub, err := s.repo.Find(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.PayerAccount != reviewer || sub.MerchantID != merchantID {
		return nil, nil
	}
	return &merchantdomain.Evidence{
		SubscriptionID: sub.ID,
		Active:         sub.IsActive,
		PaymentCount:   sub.PaymentCount,
		TotalPaid:      sub.TotalPaid,
		CreatedAt:      sub.CreatedAt,
	}, nil
}
