package app

import (
	"context"
	"math/rand"
	"sync"
)

// PaymentRequest carries everything the gateway needs to charge a buyer.
type PaymentRequest struct {
	OrderID       string
	UserID        string
	Amount        float64
	PaymentMethod string
}

// PaymentResult is the gateway's verdict. A declined payment is a normal
// outcome, not an error; errors are reserved for the gateway being
// unreachable.
type PaymentResult struct {
	PaymentID string
	Approved  bool
	Message   string
}

// PaymentProcessor is the opaque payment collaborator. Substitutable with
// a deterministic double in tests.
type PaymentProcessor interface {
	Process(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// SimulatedProcessor approves a configurable fraction of payments. It
// stands in for a real gateway in local and demo deployments.
type SimulatedProcessor struct {
	mu           sync.Mutex
	rng          *rand.Rand
	approvalRate float64
}

func NewSimulatedProcessor(seed int64, approvalRate float64) *SimulatedProcessor {
	return &SimulatedProcessor{
		rng:          rand.New(rand.NewSource(seed)),
		approvalRate: approvalRate,
	}
}

func (p *SimulatedProcessor) Process(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	p.mu.Lock()
	roll := p.rng.Float64()
	p.mu.Unlock()

	if roll >= p.approvalRate {
		return PaymentResult{Approved: false, Message: "card declined"}, nil
	}
	return PaymentResult{
		PaymentID: newID(),
		Approved:  true,
		Message:   "payment approved",
	}, nil
}
