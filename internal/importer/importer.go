// Package importer turns payment CSVs dropped into <root>/import/ into
// payment requests.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/config"
	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
)

// Payment is one imported payment against a debt account.
type Payment struct {
	Row       int
	AccountID uuid.UUID
	Date      time.Time
	Amount    decimal.Decimal
	Intent    model.PaymentIntent
	Split     *payments.Split
	Memo      string
}

// Request converts the payment into a payment-applier request.
func (p Payment) Request() payments.PaymentRequest {
	return payments.PaymentRequest{
		AccountID: p.AccountID,
		Amount:    p.Amount,
		Date:      p.Date,
		Intent:    p.Intent,
		Split:     p.Split,
		Kind:      model.KindManualPayment,
		Memo:      p.Memo,
	}
}

// Parser converts a CSV file into payments.
type Parser interface {
	Parse(r io.Reader) ([]Payment, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers. Bank
// exports are matched to accounts with rules.
func DefaultRegistry(rules []Rule) *Registry {
	r := NewRegistry()
	r.Register(&PaymentsParser{})
	r.Register(&ChaseParser{Rules: rules})
	return r
}

// Rule assigns bank transactions whose description contains Match
// (case-insensitive) to a debt account.
type Rule struct {
	Match     string
	AccountID uuid.UUID
}

// RulesFromConfig converts the import.rules config section.
func RulesFromConfig(cfg []config.ImportRule) ([]Rule, error) {
	rules := make([]Rule, 0, len(cfg))
	for i, c := range cfg {
		id, err := uuid.Parse(c.AccountID)
		if err != nil {
			return nil, fmt.Errorf("import rule %d: parsing account_id %q: %w", i, c.AccountID, err)
		}
		rules = append(rules, Rule{Match: c.Match, AccountID: id})
	}
	return rules, nil
}

func matchRule(rules []Rule, desc string) (Rule, bool) {
	desc = strings.ToLower(desc)
	for _, r := range rules {
		if strings.Contains(desc, strings.ToLower(r.Match)) {
			return r, true
		}
	}
	return Rule{}, false
}

// importDir is the subdirectory for import CSVs.
const importDir = "import"

// processedDir is the subdirectory for processed CSVs.
const processedDir = "import/processed"

// Scan returns CSV files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Applier applies one payment.
type Applier interface {
	ApplyPayment(ctx context.Context, req payments.PaymentRequest) (payments.PaymentResult, error)
}

// RowError is a payment that could not be applied.
type RowError struct {
	Row int
	Err error
}

// FileResult reports what importing one file did.
type FileResult struct {
	File    string
	Applied int
	Failed  []RowError
}

// ImportFile parses a file and applies each payment in order. Rows that
// fail are reported and skipped. The file is moved to import/processed/
// only when every row applied.
func ImportFile(ctx context.Context, repoRoot string, file FileInfo, parser Parser, applier Applier, log logrus.FieldLogger) (FileResult, error) {
	res := FileResult{File: file.Name}

	f, err := os.Open(file.Path)
	if err != nil {
		return res, fmt.Errorf("opening %s: %w", file.Name, err)
	}
	pays, err := parser.Parse(f)
	f.Close()
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", file.Name, err)
	}

	for _, p := range pays {
		if _, err := applier.ApplyPayment(ctx, p.Request()); err != nil {
			log.WithFields(logrus.Fields{"file": file.Name, "row": p.Row}).WithError(err).Warn("import row failed")
			res.Failed = append(res.Failed, RowError{Row: p.Row, Err: err})
			continue
		}
		res.Applied++
	}

	if len(res.Failed) == 0 {
		if err := MarkProcessed(repoRoot, file.Name); err != nil {
			return res, err
		}
	}
	return res, nil
}
