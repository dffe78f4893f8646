package contahub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ordinario/contahub-app-sheets/log"
	"github.com/ordinario/contahub-app-sheets/report"
)

const QueryTimeout = 60 * time.Second

// Fetch runs the module query for the date range and returns the records. An unknown module
// fails without a network call. A reply without data, or flagged as unsuccessful, is an
// empty result rather than an error.
func (s *Session) Fetch(ctx context.Context, module string, dates report.DateRange) ([]report.Record, error) {
	m, err := report.Lookup(module)
	if err != nil {
		return nil, err
	}

	query, err := m.Query(dates)
	if err != nil {
		return nil, err
	}

	if !s.Authenticated() {
		return nil, &FetchError{Module: m.Name, Err: ErrNotAuthenticated}
	}

	log.Debugf("%-10v POST %v  %v", m.Name, s.endpoints.Query, dates)

	rs, err := s.post(ctx, s.endpoints.Query, map[string]string{"query": query}, nil, QueryTimeout)
	if err != nil {
		return nil, &FetchError{Module: m.Name, Err: err}
	}

	if rs.status != http.StatusOK {
		return nil, &FetchError{
			Module:     m.Name,
			StatusCode: rs.status,
			Body:       truncate(string(rs.body), MaxErrorBodySize),
			Err:        fmt.Errorf("%w %d", ErrUnexpectedStatus, rs.status),
		}
	}

	reply := struct {
		Success bool            `json:"success"`
		Data    []report.Record `json:"data"`
	}{}

	decoder := json.NewDecoder(bytes.NewReader(rs.body))
	decoder.UseNumber()

	if err := decoder.Decode(&reply); err != nil {
		return nil, &FetchError{Module: m.Name, Err: fmt.Errorf("%w (%v)", ErrMalformedResponse, err)}
	}

	if !reply.Success || len(reply.Data) == 0 {
		log.Warnf("%-10v no records for %v", m.Name, dates)
		return []report.Record{}, nil
	}

	log.Infof("%-10v retrieved %d records", m.Name, len(reply.Data))

	return reply.Data, nil
}
