package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

// SystemNotesMaxLength is the character budget of Payment.SystemNotes.
const SystemNotesMaxLength = 3900

const noteTimestampLayout = "2006-01-02 15:04"

func clampPaidAmount(paid, amount decimal.Decimal) decimal.Decimal {
	if paid.IsNegative() || !amount.IsPositive() {
		return decimal.Zero
	}
	if paid.GreaterThan(amount) {
		paid = amount
	}
	return utils.RoundMoney(paid)
}

// NormalizePayment derives the stored status of p from its amounts and dates.
//
// Cancelled and Processing are kept as given. A payment marked paid, or whose paid
// amount covers the amount, becomes Completed with its due date moved to the paid date.
// Anything else is Overdue when due before today (UTC) and Pending otherwise.
func NormalizePayment(p *Payment, now time.Time) {
	now = now.UTC()
	p.Amount = utils.RoundMoney(p.Amount)
	p.PaidAmount = clampPaidAmount(p.PaidAmount, p.Amount)
	p.Date = p.Date.UTC()

	if p.Status.IsManual() {
		p.IsPaid = false
		p.PaidDate = nil
		return
	}

	if p.Status == PaymentStatusCompleted {
		p.IsPaid = true
	}

	if p.IsPaid || (p.Amount.IsPositive() && p.PaidAmount.GreaterThanOrEqual(p.Amount)) {
		paidDate := now
		if p.PaidDate != nil && !p.PaidDate.IsZero() {
			paidDate = p.PaidDate.UTC()
		}
		p.Status = PaymentStatusCompleted
		p.PaidAmount = p.Amount
		p.IsPaid = true
		p.PaidDate = &paidDate
		p.Date = paidDate
		return
	}

	p.IsPaid = false
	p.PaidDate = nil
	if utils.DateOnly(p.Date).Before(utils.DateOnly(now)) {
		p.Status = PaymentStatusOverdue
	} else {
		p.Status = PaymentStatusPending
	}
}

// ApplyPaymentCreate normalizes a new payment and starts its audit trail.
func ApplyPaymentCreate(p *Payment, now time.Time) {
	p.PlannedDate = p.Date.UTC()
	NormalizePayment(p, now)
	p.RescheduleCount = 0
	p.LastRescheduledAt = nil

	var entry string
	if p.Status == PaymentStatusCompleted {
		entry = fmt.Sprintf("Payment created as completed: %s paid on %s",
			p.Amount.StringFixed(2), p.PaidDate.Format(utils.DateLayout))
	} else {
		entry = fmt.Sprintf("Payment created: %s due %s, status %s",
			p.Amount.StringFixed(2), p.Date.Format(utils.DateLayout), p.Status)
	}
	p.SystemNotes = prependSystemNotes(p.SystemNotes, now, entry)
}

// ApplyPaymentUpdate turns next into the stored successor of prev.
//
// next carries the user-supplied values. The reschedule counter moves only when the
// user changed the due date of a payment that was unpaid and stays unpaid; a due date
// moved by completion never counts. Audit entries describing the change are prepended
// to the system notes.
func ApplyPaymentUpdate(prev, next *Payment, now time.Time) {
	now = now.UTC()
	requestedDate := next.Date.UTC()

	NormalizePayment(next, now)

	next.ID = prev.ID
	next.PlannedDate = prev.PlannedDate
	next.CreatedAt = prev.CreatedAt
	next.CreatedById = prev.CreatedById
	next.RescheduleCount = prev.RescheduleCount
	next.LastRescheduledAt = prev.LastRescheduledAt

	wasCompleted := prev.Status == PaymentStatusCompleted
	isCompleted := next.Status == PaymentStatusCompleted
	justCompleted := !wasCompleted && isCompleted

	var entries []string
	switch {
	case justCompleted:
		entry := fmt.Sprintf("Payment completed: %s paid on %s",
			next.PaidAmount.StringFixed(2), next.PaidDate.Format(utils.DateLayout))
		if days := utils.DaysBetween(prev.Date, *next.PaidDate); days > 0 {
			entry += fmt.Sprintf(", %d day(s) overdue", days)
		}
		entries = append(entries, entry)
	case !isCompleted && next.PaidAmount.GreaterThan(prev.PaidAmount):
		entries = append(entries, fmt.Sprintf("Partial payment received: +%s (paid %s of %s)",
			next.PaidAmount.Sub(prev.PaidAmount).StringFixed(2),
			next.PaidAmount.StringFixed(2),
			next.Amount.StringFixed(2)))
	}

	if !prev.IsPaid && !isCompleted && !utils.SameDay(requestedDate, prev.Date) {
		next.RescheduleCount = prev.RescheduleCount + 1
		rescheduledAt := now
		next.LastRescheduledAt = &rescheduledAt
		entries = append(entries, fmt.Sprintf("Due date rescheduled from %s to %s (reschedule #%d)",
			prev.Date.Format(utils.DateLayout),
			requestedDate.Format(utils.DateLayout),
			next.RescheduleCount))
	}

	if prev.Status != next.Status && !justCompleted {
		entries = append(entries, fmt.Sprintf("Status changed: %s -> %s", prev.Status, next.Status))
	}

	next.SystemNotes = prependSystemNotes(prev.SystemNotes, now, entries...)
}

// MarkOverdue is the sweep transition. It reports false when p is not a Pending unpaid
// payment due before today.
func MarkOverdue(p *Payment, now time.Time) bool {
	if p.Status != PaymentStatusPending || p.IsPaid {
		return false
	}
	if !utils.DateOnly(p.Date).Before(utils.DateOnly(now)) {
		return false
	}
	prevStatus := p.Status
	p.Status = PaymentStatusOverdue
	p.SystemNotes = prependSystemNotes(p.SystemNotes, now,
		fmt.Sprintf("Status changed: %s -> %s (automatic)", prevStatus, p.Status))
	return true
}

// prependSystemNotes puts the timestamped entries, in order, in front of existing
// and drops the oldest text past SystemNotesMaxLength.
func prependSystemNotes(existing string, now time.Time, entries ...string) string {
	if len(entries) == 0 {
		return existing
	}
	stamp := "[" + now.UTC().Format(noteTimestampLayout) + "] "
	lines := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		lines = append(lines, stamp+e)
	}
	if existing != "" {
		lines = append(lines, existing)
	}
	return truncateSystemNotes(strings.Join(lines, "\n"), SystemNotesMaxLength)
}

// truncateSystemNotes keeps the newest max characters, cutting at a line break when one exists.
func truncateSystemNotes(notes string, max int) string {
	cut := utils.TruncateRunes(notes, max)
	if len(cut) == len(notes) {
		return notes
	}
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		return cut[:i]
	}
	return cut
}
