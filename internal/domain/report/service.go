package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"fiado-ledger/internal/domain/customer"

	"github.com/shopspring/decimal"
)

const topDebtorLimit = 5

type Debtor struct {
	CustomerID int64           `json:"customerId"`
	Name       string          `json:"name"`
	Pending    decimal.Decimal `json:"pending"`
	ItemCount  int             `json:"itemCount"`
}

type Statistics struct {
	CustomerCount int             `json:"customerCount"`
	DebtorCount   int             `json:"debtorCount"`
	TotalDebt     decimal.Decimal `json:"totalDebt"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TopDebtors    []Debtor        `json:"topDebtors"`
}

type ReportService interface {
	Statistics(ctx context.Context) (Statistics, error)
}

var _ ReportService = (*reportService)(nil)

type reportService struct {
	repo   customer.CustomerRepository
	logger *slog.Logger
}

func NewReportService(repo customer.CustomerRepository, logger *slog.Logger) ReportService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewReportService, using default stderr handler")
	}
	return &reportService{
		repo:   repo,
		logger: logger.With(slog.String("component", "reportService")),
	}
}

// Statistics aggregates the whole ledger in memory. The record set is one
// shopkeeper's customer base, small enough that no storage-side aggregation
// is needed.
func (s *reportService) Statistics(ctx context.Context) (Statistics, error) {
	s.logger.InfoContext(ctx, "Computing ledger statistics")

	customers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error loading customers for statistics", slog.Any("error", err))
		return Statistics{}, fmt.Errorf("failed to load customers for statistics: %w", err)
	}

	stats := Statistics{
		CustomerCount: len(customers),
		TotalDebt:     decimal.Zero,
		TotalPaid:     decimal.Zero,
		TopDebtors:    []Debtor{},
	}

	for _, cust := range customers {
		for _, pay := range cust.Payments {
			if pay.Amount.IsPositive() {
				stats.TotalPaid = stats.TotalPaid.Add(pay.Amount)
			}
		}

		if !cust.HasDebt() {
			continue
		}
		pending := cust.PendingBalance()
		if !pending.IsPositive() {
			continue
		}

		stats.DebtorCount++
		stats.TotalDebt = stats.TotalDebt.Add(pending)
		stats.TopDebtors = append(stats.TopDebtors, Debtor{
			CustomerID: cust.CustomerID,
			Name:       cust.Name,
			Pending:    pending,
			ItemCount:  len(cust.Purchases),
		})
	}

	sort.Slice(stats.TopDebtors, func(i, j int) bool {
		return stats.TopDebtors[i].Pending.GreaterThan(stats.TopDebtors[j].Pending)
	})
	if len(stats.TopDebtors) > topDebtorLimit {
		stats.TopDebtors = stats.TopDebtors[:topDebtorLimit]
	}

	s.logger.InfoContext(ctx, "Statistics computed",
		slog.Int("customers", stats.CustomerCount), slog.Int("debtors", stats.DebtorCount))
	return stats, nil
}
