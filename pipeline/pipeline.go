// Package pipeline sequences a single ContaHub to Google Sheets run: authenticate, fetch,
// normalise and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ordinario/contahub-app-sheets/contahub"
	"github.com/ordinario/contahub-app-sheets/log"
	"github.com/ordinario/contahub-app-sheets/report"
	"github.com/ordinario/contahub-app-sheets/spreadsheet"
)

type Authenticator interface {
	Authenticate(ctx context.Context, credentials contahub.Credentials) (*contahub.Session, error)
}

type Publisher interface {
	Publish(ctx context.Context, worksheet string, rows []report.Row) (*spreadsheet.Range, error)
}

type State int

const (
	Idle State = iota
	Authenticating
	Fetching
	Normalising
	Publishing
	Done
	Failed
)

func (s State) String() string {
	return [...]string{"idle", "authenticating", "fetching", "normalising", "publishing", "done", "failed"}[s]
}

// Pipeline is the static configuration for a run. It holds no per-run state and is safe
// to Run concurrently.
type Pipeline struct {
	Authenticator Authenticator
	Publisher     Publisher
	Credentials   contahub.Credentials
	Dates         report.DateRange
	Modules       []string
	Worksheets    map[string]string
}

// Outcome is the result of a single run.
type Outcome struct {
	Success bool     `json:"success"`
	Data    *Summary `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type Summary struct {
	RunID            string                       `json:"run_id"`
	ProcessedItems   int                          `json:"processed_items"`
	SheetsUpdated    bool                         `json:"sheets_updated"`
	ExecutionDate    time.Time                    `json:"execution_date"`
	Period           string                       `json:"period"`
	ModulesProcessed []string                     `json:"modules_processed"`
	Ranges           map[string]spreadsheet.Range `json:"ranges,omitempty"`
}

// ErrAuthenticationExhausted is the failure reason reported when no login strategy succeeded.
var ErrAuthenticationExhausted = errors.New("authentication exhausted")

type run struct {
	id    string
	state State
}

func (r *run) enter(state State) {
	log.Debugf("%-10v %v -> %v", r.id[:8], r.state, state)
	r.state = state
}

// Run executes one complete traversal of the pipeline with a new session.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	r := run{
		id:    uuid.NewString(),
		state: Idle,
	}

	summary, err := p.exec(ctx, &r)
	if err != nil {
		state := r.state
		r.enter(Failed)
		log.Errorf("%-10v run failed in state %v (%v)", r.id[:8], state, err)

		return Outcome{
			Success: false,
			Error:   err.Error(),
		}
	}

	r.enter(Done)
	log.Infof("%-10v run complete - %d items, sheets updated: %v", r.id[:8], summary.ProcessedItems, summary.SheetsUpdated)

	return Outcome{
		Success: true,
		Data:    summary,
	}
}

func (p *Pipeline) exec(ctx context.Context, r *run) (*Summary, error) {
	modules := p.Modules
	if len(modules) == 0 {
		modules = []string{"analitico"}
	}

	for _, m := range modules {
		if _, err := report.Lookup(m); err != nil {
			return nil, err
		}
	}

	if p.Dates.IsZero() {
		return nil, fmt.Errorf("missing reporting period")
	}

	summary := Summary{
		RunID:            r.id,
		ExecutionDate:    time.Now(),
		Period:           p.Dates.String(),
		ModulesProcessed: append([]string(nil), modules...),
		Ranges:           map[string]spreadsheet.Range{},
	}

	log.Infof("%-10v period %v, modules %v", r.id[:8], p.Dates, strings.Join(modules, ","))

	// ... authenticate
	r.enter(Authenticating)

	session, err := p.Authenticator.Authenticate(ctx, p.Credentials)
	if err != nil {
		var failure *contahub.AuthFailure
		if errors.As(err, &failure) {
			log.Errorf("%-10v %v", r.id[:8], failure.Detail())
		}

		return nil, ErrAuthenticationExhausted
	} else if !session.Authenticated() {
		return nil, ErrAuthenticationExhausted
	}

	defer session.Close()

	for _, module := range modules {
		// ... fetch
		r.enter(Fetching)

		records, err := session.Fetch(ctx, module, p.Dates)
		if err != nil {
			return nil, err
		}

		if len(records) == 0 {
			log.Warnf("%-10v no %v records for %v", r.id[:8], module, p.Dates)
			continue
		}

		// ... normalise
		r.enter(Normalising)

		rows, err := report.Normalise(module, records)
		if err != nil {
			return nil, err
		}

		if len(rows) == 0 {
			log.Warnf("%-10v none of the %d %v records could be normalised", r.id[:8], len(records), module)
			continue
		}

		// ... publish
		r.enter(Publishing)

		written, err := p.Publisher.Publish(ctx, p.worksheet(module), rows)
		if err != nil {
			return nil, err
		}

		summary.ProcessedItems += len(rows)
		if written != nil {
			summary.SheetsUpdated = true
			summary.Ranges[module] = *written
		}
	}

	return &summary, nil
}

func (p *Pipeline) worksheet(module string) string {
	if w, ok := p.Worksheets[module]; ok && strings.TrimSpace(w) != "" {
		return w
	}

	return module
}
