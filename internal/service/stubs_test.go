package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelierhq/workshopd/internal/gateway"
)

type chargeCall struct {
	amount decimal.Decimal
	key    string
	method string
}

type refundCall struct {
	paymentID string
	amount    decimal.Decimal
}

type stubPayments struct {
	mu           sync.Mutex
	chargeErr    error
	chargeStatus string
	chargeReason string
	refundErr    error
	charges      []chargeCall
	refunds      []refundCall
}

func newStubPayments() *stubPayments {
	return &stubPayments{chargeStatus: gateway.ChargeStatusSucceeded}
}

func (s *stubPayments) Charge(ctx context.Context, amount decimal.Decimal, idempotencyKey, method string) (*gateway.ChargeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charges = append(s.charges, chargeCall{amount: amount, key: idempotencyKey, method: method})
	if s.chargeErr != nil {
		return nil, s.chargeErr
	}
	return &gateway.ChargeResult{ID: "pay_test_1", Status: s.chargeStatus, Reason: s.chargeReason}, nil
}

func (s *stubPayments) Refund(ctx context.Context, paymentID string, amount decimal.Decimal) (*gateway.RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	s.refunds = append(s.refunds, refundCall{paymentID: paymentID, amount: amount})
	return &gateway.RefundResult{ID: "ref_test_1", Status: "succeeded"}, nil
}

type sendCall struct {
	to      string
	subject string
	key     string
}

type stubEmails struct {
	mu        sync.Mutex
	failFirst int
	sends     []sendCall
}

func (s *stubEmails) Send(ctx context.Context, to, subject, htmlBody, textBody, idempotencyKey string) (*gateway.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFirst > 0 {
		s.failFirst--
		return nil, errors.New("smtp relay unavailable")
	}
	s.sends = append(s.sends, sendCall{to: to, subject: subject, key: idempotencyKey})
	return &gateway.SendResult{Success: true, MessageID: "msg_test_1"}, nil
}

type stubCatalog struct {
	price    decimal.Decimal
	name     string
	duration int
	err      error
}

func (s *stubCatalog) ProductPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.price, nil
}

func (s *stubCatalog) ProductName(ctx context.Context, productID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.name, nil
}

func (s *stubCatalog) ProductDuration(ctx context.Context, productID string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.duration, nil
}

type stubMirror struct {
	mu        sync.Mutex
	createErr error
	deleteErr error
	created   int
	deleted   []string
}

func (s *stubMirror) CreateBlockEvent(ctx context.Context, start, end time.Time, reason string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created++
	return fmt.Sprintf("evt_test_%d", s.created), nil
}

func (s *stubMirror) DeleteEvent(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, eventID)
	return nil
}

var (
	_ gateway.PaymentGateway = (*stubPayments)(nil)
	_ gateway.EmailGateway   = (*stubEmails)(nil)
	_ gateway.ProductCatalog = (*stubCatalog)(nil)
	_ gateway.CalendarMirror = (*stubMirror)(nil)
)
