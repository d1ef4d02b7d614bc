package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/dto"
	"github.com/iliyamo/crm-backend/internal/metrics"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/repository"
	"github.com/iliyamo/crm-backend/internal/spreadsheet"
)

// DefaultExportFields is the column set used when an export names none.
var DefaultExportFields = []string{"name", "email", "phone", "source", "status", "tags", "assignedTo.name", "createdAt"}

// ImportResult reports a spreadsheet import. Row failures are data, not
// request errors.
type ImportResult struct {
	Imported int
	Failed   int
	Errors   []string
}

// ExportQuery selects the leads and columns of an export.
type ExportQuery struct {
	Tags   []string
	Fields []string
}

// TransferService converts between spreadsheets and leads.
type TransferService struct {
	leads   LeadStore
	metrics *metrics.Metrics
	now     Clock
}

func NewTransferService(leads LeadStore, m *metrics.Metrics) *TransferService {
	if m == nil {
		m = metrics.Noop()
	}
	return &TransferService{leads: leads, metrics: m, now: utcNow}
}

// Import creates one lead per data row of the first sheet. Rows are
// processed in order; a failing row is reported as "Row N: message" where
// N is its 1-based sheet row and processing continues.
func (s *TransferService) Import(ctx context.Context, caller *model.User, r io.Reader) (*ImportResult, error) {
	if err := access.Authorize(caller, access.AdminRoles); err != nil {
		return nil, err
	}
	rows, err := spreadsheet.Read(r)
	if err != nil {
		return nil, apperr.Invalid("Invalid Excel file")
	}

	res := &ImportResult{Errors: []string{}}
	for i, row := range rows {
		if err := s.importRow(ctx, caller, row); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", i+2, rowMessage(err)))
			s.metrics.ImportRows.WithLabelValues("failed").Inc()
			continue
		}
		res.Imported++
		s.metrics.ImportRows.WithLabelValues("imported").Inc()
	}
	return res, nil
}

func (s *TransferService) importRow(ctx context.Context, caller *model.User, row spreadsheet.Row) error {
	req := dto.CreateLeadRequest{
		Name:   row.Get("name"),
		Email:  row.Get("email"),
		Phone:  row.Get("phone"),
		Source: row.Get("source"),
		Status: row.Get("status"),
	}
	if tags := row.Get("tags"); tags != "" {
		req.Tags = strings.Split(tags, ",")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := s.leads.Create(ctx, newLead(req, caller, s.now()))
	return err
}

func rowMessage(err error) string {
	fields := apperr.FieldsOf(err)
	if len(fields) == 0 {
		return apperr.Message(err)
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

// Export writes the visible leads, optionally restricted to any of
// q.Tags, as an xlsx workbook with one column per field.
func (s *TransferService) Export(ctx context.Context, caller *model.User, q ExportQuery, w io.Writer) error {
	fields := q.Fields
	if len(fields) == 0 {
		fields = DefaultExportFields
	}
	leads, err := s.leads.ListAll(ctx, repository.LeadFilter{Scope: access.ScopeFor(caller), Tags: q.Tags})
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(leads))
	for i := range leads {
		rec, err := leadRecord(&leads[i])
		if err != nil {
			return apperr.Unexpected("export lead", err)
		}
		row := make([]any, len(fields))
		for j, f := range fields {
			row[j] = cellValue(lookup(rec, f))
		}
		rows = append(rows, row)
	}
	if err := spreadsheet.Write(w, fields, rows); err != nil {
		return apperr.Unexpected("write workbook", err)
	}
	return nil
}

// leadRecord is the lead as its API representation, so export columns use
// the same names clients see.
func leadRecord(l *model.Lead) (map[string]any, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	var rec map[string]any
	err = json.Unmarshal(b, &rec)
	return rec, err
}

// lookup resolves "field" or one level of "parent.child". Missing values
// resolve to nil.
func lookup(rec map[string]any, field string) any {
	parent, child, nested := strings.Cut(strings.TrimSpace(field), ".")
	if !nested {
		return rec[parent]
	}
	m, ok := rec[parent].(map[string]any)
	if !ok {
		return nil
	}
	return m[child]
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
				continue
			}
			b, _ := json.Marshal(e)
			parts = append(parts, string(b))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return t
	}
}
