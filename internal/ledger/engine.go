package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/xid"
)

// Epsilon is the threshold under which an owed amount counts as settled.
var Epsilon = decimal.New(1, -2)

const unknownUser = "Sconosciuto"

// Engine applies ledger operations. Every operation takes a State and returns
// a new one; the input is never modified.
type Engine struct {
	startingCash decimal.Decimal
	members      map[string]string
	now          func() time.Time
	newID        func(prefix string) string
	printer      *message.Printer
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithIDGenerator(newID func(prefix string) string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

func WithMembers(members []domain.Member) Option {
	return func(e *Engine) {
		e.members = make(map[string]string, len(members))
		for _, m := range members {
			e.members[m.ID] = m.Name
		}
	}
}

func WithLocale(tag language.Tag) Option {
	return func(e *Engine) {
		e.printer = message.NewPrinter(tag)
	}
}

func NewEngine(startingCash decimal.Decimal, opts ...Option) *Engine {
	e := &Engine{
		startingCash: startingCash,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        xid.New,
		printer:      message.NewPrinter(language.Italian),
	}
	WithMembers(domain.SeedMembers())(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) StartingCash() decimal.Decimal {
	return e.startingCash
}

func (e *Engine) MemberName(id string) (string, bool) {
	name, ok := e.members[id]
	return name, ok
}

// FormatMoney renders an amount for log descriptions, e.g. "€ 1.234,50".
func (e *Engine) FormatMoney(amount decimal.Decimal) string {
	return e.printer.Sprintf("€ %v", number.Decimal(amount.Round(2).InexactFloat64(), number.Scale(2)))
}

type LogOptions struct {
	Meta   domain.LogMeta
	Locked bool
}

// AppendLog prepends a new entry attributed to actor.
func (e *Engine) AppendLog(state domain.State, actor domain.Actor, logType domain.LogType, description string, value decimal.Decimal, opts LogOptions) domain.State {
	entry := domain.LogEntry{
		ID:          e.newID("log"),
		Timestamp:   e.now(),
		User:        e.actorName(actor),
		Type:        logType,
		Description: description,
		Value:       value,
		Meta:        opts.Meta,
		Locked:      opts.Locked,
	}
	logs := make([]domain.LogEntry, 0, len(state.Logs)+1)
	logs = append(logs, entry)
	state.Logs = append(logs, state.Logs...)
	return state
}

func (e *Engine) actorName(actor domain.Actor) string {
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	if name, ok := e.members[actor.MemberID]; ok {
		return name
	}
	return unknownUser
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, d)
}

func units(qty int) decimal.Decimal {
	return decimal.NewFromInt(int64(qty))
}
