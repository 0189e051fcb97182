package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"fiado-ledger/internal/config"
	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/infrastructure/monitoring"
	"fiado-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// ImportRecord is the wire shape of one backup entry. Numeric fields are
// pointers so a missing value and a wrong JSON type can both be told apart
// from zero during validation.
type ImportRecord struct {
	Name      string           `json:"name"`
	Notes     string           `json:"notes,omitempty"`
	Purchases []ImportPurchase `json:"purchases,omitempty"`
	PaidTotal *float64         `json:"paidTotal,omitempty"`
	Payments  []ImportPayment  `json:"payments,omitempty"`
}

type ImportPurchase struct {
	Name        string     `json:"name"`
	Price       *float64   `json:"price"`
	Paid        *float64   `json:"pago,omitempty"`
	PurchasedAt *time.Time `json:"purchasedAt,omitempty"`
}

type ImportPayment struct {
	Amount *float64   `json:"amount"`
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

type ExportRecord struct {
	Name         string                    `json:"name"`
	Notes        string                    `json:"notes,omitempty"`
	Purchases    []customer.Purchase       `json:"purchases"`
	PaidTotal    decimal.Decimal           `json:"paidTotal"`
	Payments     []customer.PartialPayment `json:"payments"`
	RegisteredAt time.Time                 `json:"registeredAt"`
}

type ImportSummary struct {
	Added   int
	Updated int
	Errors  int
	Wiped   bool
}

type BackupService interface {
	// Import validates the whole payload before any write, then merges it
	// record by record.
	Import(ctx context.Context, data []byte) (ImportSummary, error)

	// Export serializes every customer record to pretty-printed JSON.
	Export(ctx context.Context) ([]byte, error)
}

var _ BackupService = (*backupService)(nil)

type backupService struct {
	repo        customer.CustomerRepository
	emptyPolicy string
	logger      *slog.Logger
}

func NewBackupService(repo customer.CustomerRepository, emptyPolicy string, logger *slog.Logger) BackupService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBackupService, using default stderr handler")
	}
	if emptyPolicy != config.EmptyImportWipe && emptyPolicy != config.EmptyImportReject {
		emptyPolicy = config.EmptyImportReject
	}
	return &backupService{
		repo:        repo,
		emptyPolicy: emptyPolicy,
		logger:      logger.With(slog.String("component", "backupService")),
	}
}

// ExportFilename is the dated attachment name used by the HTTP handler and
// the scheduled snapshot job.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("backup-fiados-%s.json", now.Format("2006-01-02"))
}

// ValidateImportPayload checks the whole payload against the backup schema
// and stops at the first violation, reporting the 1-based record index.
// Nothing is written until the entire payload validates.
func ValidateImportPayload(data []byte) ([]ImportRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: payload must be a JSON array", apperrors.ErrImportFormat)
	}

	records := make([]ImportRecord, 0, len(raw))
	for i, element := range raw {
		var rec ImportRecord
		if err := json.Unmarshal(element, &rec); err != nil {
			return nil, apperrors.NewImportFormatError(i+1, "record is not a valid backup object")
		}
		if err := validateRecord(rec); err != nil {
			return nil, apperrors.NewImportFormatError(i+1, err.Error())
		}
		records = append(records, rec)
	}
	return records, nil
}

func validateRecord(rec ImportRecord) error {
	if strings.TrimSpace(rec.Name) == "" {
		return errors.New("name must be a non-empty string")
	}
	for _, p := range rec.Purchases {
		if strings.TrimSpace(p.Name) == "" {
			return errors.New("purchase name must be a non-empty string")
		}
		if p.Price == nil || *p.Price <= 0 {
			return errors.New("purchase price must be a positive number")
		}
		if p.Paid != nil && (*p.Paid < 0 || *p.Paid > *p.Price) {
			return errors.New("purchase paid portion must be between zero and the price")
		}
	}
	if rec.PaidTotal != nil && *rec.PaidTotal < 0 {
		return errors.New("paidTotal must be a non-negative number")
	}
	for _, pay := range rec.Payments {
		if pay.Amount == nil || *pay.Amount < 0 {
			return errors.New("payment amount must be a non-negative number")
		}
	}
	return nil
}

func (s *backupService) Import(ctx context.Context, data []byte) (ImportSummary, error) {
	s.logger.InfoContext(ctx, "Starting backup import")

	records, err := ValidateImportPayload(data)
	if err != nil {
		s.logger.WarnContext(ctx, "Import payload failed validation", slog.Any("error", err))
		monitoring.RecordImportRecord("rejected")
		return ImportSummary{}, err
	}

	if len(records) == 0 {
		return s.importEmpty(ctx)
	}

	summary := ImportSummary{}
	now := time.Now()
	for i, rec := range records {
		updated, err := s.mergeRecord(ctx, rec, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to import record, continuing batch",
				slog.Int("record", i+1), slog.Any("error", err))
			monitoring.RecordImportRecord("failure")
			summary.Errors++
			continue
		}
		monitoring.RecordImportRecord("success")
		if updated {
			summary.Updated++
		} else {
			summary.Added++
		}
	}

	s.logger.InfoContext(ctx, "Backup import finished",
		slog.Int("added", summary.Added), slog.Int("updated", summary.Updated), slog.Int("errors", summary.Errors))
	return summary, nil
}

// importEmpty handles the explicit "erase everything" signal. The configured
// policy decides between wiping all records in one transaction and rejecting
// the request; it is never a silent no-op.
func (s *backupService) importEmpty(ctx context.Context) (ImportSummary, error) {
	if s.emptyPolicy == config.EmptyImportReject {
		s.logger.WarnContext(ctx, "Empty import payload rejected by policy")
		return ImportSummary{}, apperrors.NewValidationError("payload", "empty import is disabled, delete customers individually instead")
	}

	s.logger.WarnContext(ctx, "Empty import payload received, wiping all customer records")

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: could not begin wipe transaction: %v", apperrors.ErrInternalServer, err)
	}
	if err := s.repo.DeleteAllInTx(ctx, tx); err != nil {
		_ = s.repo.RollbackTx(ctx, tx)
		return ImportSummary{}, fmt.Errorf("failed to wipe customer records: %w", err)
	}
	if err := s.repo.CommitTx(ctx, tx); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: could not commit wipe transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "All customer records wiped by empty import")
	return ImportSummary{Wiped: true}, nil
}

// mergeRecord applies one validated backup record inside its own transaction.
// Records match existing customers by case-insensitive name; debts accumulate,
// they do not replace. Matched rows are locked for the duration of the merge.
func (s *backupService) mergeRecord(ctx context.Context, rec ImportRecord, now time.Time) (updated bool, err error) {
	name := strings.TrimSpace(rec.Name)

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil && !errors.Is(err, customer.ErrNotFound) {
		return false, fmt.Errorf("failed to look up customer %q: %w", name, err)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: could not begin import transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	var cust *customer.Customer
	if existing == nil {
		cust = customer.NewCustomer(name)
		cust.Notes = strings.TrimSpace(rec.Notes)
	} else {
		updated = true
		cust, err = s.repo.FindByIDForUpdate(ctx, tx, existing.CustomerID)
		if err != nil {
			return false, fmt.Errorf("failed to lock customer %q: %w", name, err)
		}
	}

	applyRecord(cust, rec, now)

	// Imported history can already be settled; keep the collapsed-state
	// invariant instead of storing a zero-balance tab.
	if cust.ShouldCollapse() {
		cust.Collapse()
	}

	if existing == nil {
		err = s.repo.CreateInTx(ctx, tx, cust)
	} else {
		err = s.repo.SaveInTx(ctx, tx, cust)
	}
	if err != nil {
		return updated, fmt.Errorf("failed to save customer %q: %w", name, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return updated, fmt.Errorf("%w: could not commit import transaction: %v", apperrors.ErrInternalServer, err)
	}
	return updated, nil
}

func applyRecord(cust *customer.Customer, rec ImportRecord, now time.Time) {
	for _, p := range rec.Purchases {
		// Incoming ids are discarded; storage history is the only id source.
		merged := customer.NewPurchase(p.Name, decimal.NewFromFloat(*p.Price))
		if p.Paid != nil {
			merged.Paid = decimal.NewFromFloat(*p.Paid)
		}
		if p.PurchasedAt != nil {
			merged.PurchasedAt = *p.PurchasedAt
		} else {
			merged.PurchasedAt = now
		}
		cust.AddPurchase(merged)
	}

	if rec.PaidTotal != nil {
		cust.PaidTotal = cust.PaidTotal.Add(decimal.NewFromFloat(*rec.PaidTotal))
	}

	for _, pay := range rec.Payments {
		paidAt := now
		if pay.PaidAt != nil {
			paidAt = *pay.PaidAt
		}
		cust.Payments = append(cust.Payments, customer.PartialPayment{
			Amount: decimal.NewFromFloat(*pay.Amount),
			PaidAt: paidAt,
		})
	}
	cust.UpdatedAt = now
}

func (s *backupService) Export(ctx context.Context) ([]byte, error) {
	s.logger.InfoContext(ctx, "Exporting all customer records")

	customers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load customers for export", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load customers for export: %w", err)
	}

	records := make([]ExportRecord, 0, len(customers))
	for _, cust := range customers {
		records = append(records, ExportRecord{
			Name:         cust.Name,
			Notes:        cust.Notes,
			Purchases:    cust.Purchases,
			PaidTotal:    cust.PaidTotal,
			Payments:     cust.Payments,
			RegisteredAt: cust.RegisteredAt,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}

	s.logger.InfoContext(ctx, "Export serialized", slog.Int("customers", len(records)), slog.Int("bytes", len(data)))
	return data, nil
}
