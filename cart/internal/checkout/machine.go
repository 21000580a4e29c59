package checkout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/shopcart/internal/clock"
	inErrors "github.com/Alturino/shopcart/internal/errors"
)

const SuccessMessage = "Your order has been placed successfully"

type Stage string

const (
	StageClosed    Stage = "CLOSED"
	StageOpen      Stage = "OPEN"
	StageConfirmed Stage = "CONFIRMED"
)

// Snapshot is the cart summary captured when checkout opens. It does not follow later cart
// mutations.
type Snapshot struct {
	TotalPrice decimal.Decimal
	ItemCount  int
}

type session struct {
	id       uuid.UUID
	method   PaymentMethod
	snapshot Snapshot
	openedAt time.Time
}

type State struct {
	Stage     Stage
	Method    PaymentMethod
	Snapshot  Snapshot
	SessionID uuid.UUID
	OpenedAt  time.Time
}

type Confirmation struct {
	SessionID   uuid.UUID
	Snapshot    Snapshot
	Method      PaymentMethod
	Message     string
	ConfirmedAt time.Time
}

// Machine is the checkout flow of one shopper. It is not safe for concurrent use.
type Machine struct {
	clock        clock.Clock
	stage        Stage
	session      *session
	confirmation *Confirmation
}

func NewMachine(clk clock.Clock) *Machine {
	return &Machine{clock: clk, stage: StageClosed}
}

func (m *Machine) State() State {
	switch m.stage {
	case StageOpen:
		return State{
			Stage:     StageOpen,
			Method:    m.session.method,
			Snapshot:  m.session.snapshot,
			SessionID: m.session.id,
			OpenedAt:  m.session.openedAt,
		}
	case StageConfirmed:
		return State{
			Stage:     StageConfirmed,
			Method:    m.confirmation.Method,
			Snapshot:  m.confirmation.Snapshot,
			SessionID: m.confirmation.SessionID,
		}
	default:
		return State{Stage: StageClosed}
	}
}

// CanConfirm reports whether Confirm would succeed.
func (m *Machine) CanConfirm() bool {
	return m.stage == StageOpen && m.session.method.Operable()
}

func (m *Machine) Open(snapshot Snapshot) (State, error) {
	if m.stage == StageOpen {
		return m.State(), m.illegal("open")
	}
	m.stage = StageOpen
	m.confirmation = nil
	m.session = &session{
		id:       uuid.New(),
		method:   PaymentNone,
		snapshot: snapshot,
		openedAt: m.clock.Now(),
	}
	return m.State(), nil
}

func (m *Machine) SelectPayment(method PaymentMethod) (State, error) {
	if m.stage != StageOpen {
		return m.State(), m.illegal("select payment")
	}
	parsed, err := ParsePaymentMethod(string(method))
	if err != nil {
		return m.State(), err
	}
	m.session.method = parsed
	return m.State(), nil
}

func (m *Machine) Confirm() (Confirmation, error) {
	if m.stage != StageOpen {
		return Confirmation{}, m.illegal("confirm")
	}
	switch {
	case m.session.method == PaymentNone:
		return Confirmation{}, inErrors.ErrPaymentNotSelected
	case !m.session.method.Operable():
		return Confirmation{}, fmt.Errorf("%w: method=%s", inErrors.ErrPaymentUnavailable, m.session.method)
	}

	confirmation := Confirmation{
		SessionID:   m.session.id,
		Snapshot:    m.session.snapshot,
		Method:      m.session.method,
		Message:     SuccessMessage,
		ConfirmedAt: m.clock.Now(),
	}
	m.stage = StageConfirmed
	m.session = nil
	m.confirmation = &confirmation
	return confirmation, nil
}

// Close discards the session or the confirmation. The cart is never touched.
func (m *Machine) Close() (State, error) {
	if m.stage == StageClosed {
		return m.State(), m.illegal("close")
	}
	m.stage = StageClosed
	m.session = nil
	m.confirmation = nil
	return m.State(), nil
}

func (m *Machine) illegal(transition string) error {
	return fmt.Errorf("%w: cannot %s from stage=%s", inErrors.ErrIllegalTransition, transition, m.stage)
}
