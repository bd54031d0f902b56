// Package submit turns a user's draft into a classified, stored record.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/classifier"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

type State int32

const (
	StateIdle State = iota
	StateValidating
	StateClassifying
	StatePersisting
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateClassifying:
		return "classifying"
	case StatePersisting:
		return "persisting"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	ErrEmptyInput   = errors.New("please enter a research paper abstract to classify")
	ErrAuthNotReady = errors.New("not signed in yet, please wait a moment")
	ErrBusy         = errors.New("a submission is already in progress")
)

// ClassificationError reports a classifier failure. Status is zero when the
// request never produced a reply.
type ClassificationError struct {
	Status int
	Body   string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("classification failed: API error %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to save paper to the library: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

type Classifier interface {
	Classify(ctx context.Context, abstract string) (classifier.Response, error)
}

// Persister stores a record and returns its document id. The store assigns
// the creation time.
type Persister interface {
	AddRecord(ctx context.Context, collectionPath string, r record.Record) (string, error)
}

// Form is the user's draft. It is cleared only after the record is stored.
type Form struct {
	Title    string
	Abstract string
	Link     string
}

func (f *Form) Reset() {
	*f = Form{}
}

type Result struct {
	ID     string
	Record record.Record
}

// Pipeline runs one submission at a time through
// Idle → Validating → Classifying → Persisting → Idle. Any failure passes
// through Error and lands back in Idle.
type Pipeline struct {
	classifier Classifier
	persister  Persister
	collection string
	log        *zap.Logger

	state atomic.Int32

	mu      sync.Mutex
	observe func(from, to State)
}

func New(c Classifier, p Persister, collectionPath string, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		classifier: c,
		persister:  p,
		collection: collectionPath,
		log:        log.Named("submit"),
	}
}

// OnTransition registers fn to be called on every state change.
func (p *Pipeline) OnTransition(fn func(from, to State)) {
	p.mu.Lock()
	p.observe = fn
	p.mu.Unlock()
}

func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Busy reports whether a submission is in flight.
func (p *Pipeline) Busy() bool {
	return p.State() != StateIdle
}

func (p *Pipeline) to(next State) {
	prev := State(p.state.Swap(int32(next)))
	p.notify(prev, next)
}

func (p *Pipeline) fail(err error) (Result, error) {
	p.to(StateError)
	p.to(StateIdle)
	return Result{}, err
}

// Submit classifies and stores form on behalf of userID. An empty userID means
// the session is not established yet; the classifier is not called. form is
// reset only when the record has been stored.
func (p *Pipeline) Submit(ctx context.Context, userID string, form *Form) (Result, error) {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateValidating)) {
		return Result{}, ErrBusy
	}
	p.notify(StateIdle, StateValidating)

	abstract := strings.TrimSpace(form.Abstract)
	if abstract == "" {
		return p.fail(ErrEmptyInput)
	}
	title := strings.TrimSpace(form.Title)
	if title == "" {
		title = record.DefaultTitle
	}

	p.to(StateClassifying)
	if userID == "" {
		return p.fail(ErrAuthNotReady)
	}

	resp, err := p.classifier.Classify(ctx, abstract)
	if err != nil {
		p.log.Warn("classification failed", zap.Error(err))
		return p.fail(classificationError(err))
	}

	rec := record.Record{
		Title:       title,
		Discipline:  strings.TrimSpace(resp.PrimaryCategory),
		Methodology: strings.TrimSpace(resp.ResearchMethodology),
		Categories:  record.Normalize(resp.Categories),
		Abstract:    abstract,
		SubmittedBy: userID,
		Link:        strings.TrimSpace(form.Link),
	}

	p.to(StatePersisting)
	id, err := p.persister.AddRecord(ctx, p.collection, rec)
	if err != nil {
		p.log.Warn("persist failed", zap.String("collection", p.collection), zap.Error(err))
		return p.fail(&PersistError{Err: err})
	}
	rec.ID = id

	form.Reset()
	p.to(StateIdle)
	p.log.Info("paper stored",
		zap.String("id", id),
		zap.String("discipline", rec.Discipline),
		zap.String("methodology", rec.Methodology))
	return Result{ID: id, Record: rec}, nil
}

func (p *Pipeline) notify(from, to State) {
	p.mu.Lock()
	fn := p.observe
	p.mu.Unlock()
	if fn != nil {
		fn(from, to)
	}
}

func classificationError(err error) error {
	var se *classifier.StatusError
	if errors.As(err, &se) {
		return &ClassificationError{Status: se.Status, Body: se.Body, Err: err}
	}
	return &ClassificationError{Err: err}
}
