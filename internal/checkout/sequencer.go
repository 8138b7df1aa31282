// Package checkout implements the address -> payment -> review flow that
// gates order placement.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flicky/storefront-api/internal/model"
)

type Step string

const (
	StepAddress Step = "address"
	StepPayment Step = "payment"
	StepReview  Step = "review"
)

var (
	ErrStepOutOfOrder = errors.New("checkout step out of order")
	ErrInvalidAddress = errors.New("invalid shipping address")
	ErrInvalidPayment = errors.New("invalid payment details")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Payment is only used to advance the flow. Nothing here is charged or stored
// apart from the last four digits shown on the review step.
type Payment struct {
	CardNumber string `json:"card_number" validate:"required"`
	Expiry     string `json:"expiry" validate:"required"`
	CVC        string `json:"cvc" validate:"required"`
}

// Sequencer is the per-session checkout state. The zero value is a fresh
// flow at the address step.
type Sequencer struct {
	Step     Step           `json:"step"`
	Address  *model.Address `json:"address,omitempty"`
	CardLast string         `json:"card_last4,omitempty"`
}

func New() *Sequencer {
	return &Sequencer{Step: StepAddress}
}

func (s *Sequencer) current() Step {
	if s.Step == "" {
		return StepAddress
	}
	return s.Step
}

func (s *Sequencer) Current() Step { return s.current() }

func (s *Sequencer) SubmitAddress(addr model.Address) error {
	if s.current() != StepAddress {
		return fmt.Errorf("%w: address submitted during %s", ErrStepOutOfOrder, s.current())
	}
	if err := validate.Struct(addr); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, missingFields(err))
	}
	s.Address = &addr
	s.Step = StepPayment
	return nil
}

func (s *Sequencer) SubmitPayment(p Payment) error {
	if s.current() != StepPayment {
		return fmt.Errorf("%w: payment submitted during %s", ErrStepOutOfOrder, s.current())
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayment, missingFields(err))
	}
	s.CardLast = last4(p.CardNumber)
	s.Step = StepReview
	return nil
}

// Back moves one step towards the address step. Entered data is kept.
func (s *Sequencer) Back() {
	switch s.current() {
	case StepReview:
		s.Step = StepPayment
	case StepPayment:
		s.Step = StepAddress
	}
}

// Cancel discards everything entered and restarts at the address step.
func (s *Sequencer) Cancel() {
	*s = Sequencer{Step: StepAddress}
}

// ReadyToConfirm returns the shipping address once the review step is reached.
func (s *Sequencer) ReadyToConfirm() (model.Address, error) {
	if s.current() != StepReview || s.Address == nil {
		return model.Address{}, fmt.Errorf("%w: confirm requested during %s", ErrStepOutOfOrder, s.current())
	}
	return *s.Address, nil
}

func missingFields(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "missing " + strings.Join(fields, ", ")
}

func last4(card string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, card)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
