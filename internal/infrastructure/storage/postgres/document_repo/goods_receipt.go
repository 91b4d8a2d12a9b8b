package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"caravan/internal/core/id"
	"caravan/internal/domain/receiving"
	"caravan/internal/infrastructure/storage/postgres"
)

const (
	goodsReceiptsTable = "doc_goods_receipts"
	receiptCostsTable  = "doc_goods_receipt_costs"
)

var goodsReceiptColumns = []string{
	"id", "number", "purchase_id",
	"actual_quantity", "exchange_rate",
	"loss_type", "loss_quantity",
	"inspection_fee", "allocation_method", "total_cost",
	"created_by", "created_at",
}

// GoodsReceiptRepo implements receiving.Repository.
type GoodsReceiptRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewGoodsReceiptRepo creates a new goods receipt repository.
func NewGoodsReceiptRepo(txm *postgres.TxManager) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the receipt header and its additional cost rows. Inside
// a transaction both statements go out as one pgx batch; outside they run
// sequentially.
func (r *GoodsReceiptRepo) Create(ctx context.Context, receipt *receiving.GoodsReceipt) error {
	q := r.builder.Insert(goodsReceiptsTable).
		Columns(goodsReceiptColumns...).
		Values(
			receipt.ID, receipt.Number, receipt.PurchaseID,
			receipt.ActualQuantity, receipt.ExchangeRate,
			receipt.LossType, receipt.LossQuantity,
			receipt.InspectionFee, receipt.AllocationMethod, receipt.TotalCost,
			receipt.CreatedBy, receipt.CreatedAt,
		)

	headerSQL, headerArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	queries := []postgres.BatchQuery{{SQL: headerSQL, Args: headerArgs}}

	if len(receipt.Costs) > 0 {
		cq := r.builder.Insert(receiptCostsTable).
			Columns("id", "receipt_id", "cost_type", "amount", "description")
		for _, c := range receipt.Costs {
			cq = cq.Values(c.ID, receipt.ID, c.CostType, c.Amount, c.Description)
		}

		costsSQL, costsArgs, err := cq.ToSql()
		if err != nil {
			return fmt.Errorf("build insert costs: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: costsSQL, Args: costsArgs})
	}

	if r.txm.GetTx(ctx) != nil {
		executor := postgres.NewBatchExecutor(r.txm)
		if err := executor.ExecuteBatch(ctx, queries); err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
		return nil
	}

	querier := r.txm.GetQuerier(ctx)
	for _, bq := range queries {
		if _, err := querier.Exec(ctx, bq.SQL, bq.Args...); err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
	}
	return nil
}

// ListByPurchase returns receipts for a purchase, oldest first.
func (r *GoodsReceiptRepo) ListByPurchase(ctx context.Context, purchaseID id.ID) ([]*receiving.GoodsReceipt, error) {
	q := r.builder.Select(goodsReceiptColumns...).
		From(goodsReceiptsTable).
		Where(squirrel.Eq{"purchase_id": purchaseID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var receipts []*receiving.GoodsReceipt
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &receipts, sql, args...); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}

	for _, receipt := range receipts {
		costs, err := r.getCosts(ctx, receipt.ID)
		if err != nil {
			return nil, err
		}
		receipt.Costs = costs
	}

	return receipts, nil
}

func (r *GoodsReceiptRepo) getCosts(ctx context.Context, receiptID id.ID) ([]receiving.AdditionalCost, error) {
	q := r.builder.Select("id", "receipt_id", "cost_type", "amount", "description").
		From(receiptCostsTable).
		Where(squirrel.Eq{"receipt_id": receiptID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var costs []receiving.AdditionalCost
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &costs, sql, args...); err != nil {
		return nil, fmt.Errorf("get receipt costs: %w", err)
	}

	return costs, nil
}

// Ensure interface compliance.
var _ receiving.Repository = (*GoodsReceiptRepo)(nil)
