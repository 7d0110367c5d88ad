package lending

import (
	"strconv"

	"nftlend/crypto"
)

// Event types emitted by the engine. Events are pull based: the engine queues
// them and callers drain the queue or subscribe to the channel; no transition
// depends on delivery succeeding.
const (
	EventTypeProfileCreated      = "lending.profile.created"
	EventTypeProfileClosed       = "lending.profile.closed"
	EventTypeProfileStatusChange = "lending.profile.status_change"
	EventTypeProfileParamsChange = "lending.profile.params_change"
	EventTypeProfileLtvEnabled   = "lending.profile.ltv_enabled"
	EventTypeProfileLtvDisabled  = "lending.profile.ltv_disabled"
	EventTypeFeesSwept           = "lending.profile.fees_swept"
	EventTypeLoanOffered         = "lending.loan.offered"
	EventTypeLoanRescinded       = "lending.loan.rescinded"
	EventTypeLoanOriginated      = "lending.loan.originated"
	EventTypeLoanRepayment       = "lending.loan.repayment"
	EventTypeLoanRepaid          = "lending.loan.repaid"
	EventTypeLoanForeclosed      = "lending.loan.foreclosed"
)

// Event is the canonical transition notification payload.
type Event struct {
	Type       string
	Attributes map[string]string
}

func newProfileEvent(eventType string, addr crypto.PublicKey, p *CollectionLendingProfile) *Event {
	attrs := map[string]string{
		"profile": addr.String(),
	}
	if p != nil {
		attrs["collection"] = p.Collection.String()
		attrs["tokenMint"] = p.TokenMint.String()
		attrs["status"] = p.Status.String()
		attrs["id"] = strconv.FormatUint(p.ID, 10)
	}
	return &Event{Type: eventType, Attributes: attrs}
}

func newLoanEvent(eventType string, addr crypto.PublicKey, l *Loan) *Event {
	attrs := map[string]string{
		"loan": addr.String(),
	}
	if l != nil {
		attrs["profile"] = l.Profile.String()
		attrs["lender"] = l.Lender.String()
		attrs["loanType"] = l.Type.String()
		attrs["stage"] = l.Stage.String()
		attrs["id"] = strconv.FormatUint(l.ID, 10)
		attrs["principal"] = strconv.FormatUint(l.PrincipalAmount, 10)
		if l.Borrower != nil {
			attrs["borrower"] = l.Borrower.String()
			attrs["repaymentAmount"] = strconv.FormatUint(l.RepaymentAmount, 10)
			attrs["paidAmount"] = strconv.FormatUint(l.PaidAmount, 10)
			attrs["dueTimestamp"] = strconv.FormatUint(l.DueTimestamp, 10)
		}
		if l.CollateralMint != nil {
			attrs["collateralMint"] = l.CollateralMint.String()
		}
	}
	return &Event{Type: eventType, Attributes: attrs}
}

// emit queues an event and, when a subscriber channel is attached, offers it
// without blocking the transition.
func (e *Engine) emit(ev *Event) {
	if e == nil || ev == nil {
		return
	}
	e.events = append(e.events, ev)
	if e.eventCh != nil {
		select {
		case e.eventCh <- ev:
		default:
		}
	}
}

// Events returns the queued events without draining them.
func (e *Engine) Events() []*Event {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Event(nil), e.events...)
}

// DrainEvents returns and clears the queued events.
func (e *Engine) DrainEvents() []*Event {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	drained := e.events
	e.events = nil
	return drained
}

// Subscribe attaches a buffered channel that receives events best effort. The
// queue drained via DrainEvents remains authoritative.
func (e *Engine) Subscribe(buffer int) <-chan *Event {
	if buffer <= 0 {
		buffer = 16
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventCh = make(chan *Event, buffer)
	return e.eventCh
}
