package receiving

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"caravan/internal/core/apperror"
	"caravan/internal/core/codegen"
	appctx "caravan/internal/core/context"
	"caravan/internal/core/id"
	"caravan/internal/core/tx"
	"caravan/internal/core/types"
	"caravan/internal/domain/catalogs/product"
	"caravan/internal/domain/catalogs/variant"
	"caravan/internal/domain/fulfillment"
	"caravan/internal/domain/inventory"
	"caravan/internal/domain/purchases"
	"caravan/pkg/logger"
)

var tracer = otel.Tracer("caravan/receiving")

// Receiving phases, in execution order. Validation and state checks run
// before any write; once booking starts the whole sequence is one
// transaction. Damage transfer, backorder resolution and preorder
// conversion only downgrade the result, never roll it back.
type phase string

const (
	phaseValidating     phase = "VALIDATING"
	phaseBooking        phase = "BOOKING_RECEIPT"
	phaseAllocating     phase = "ALLOCATING_STOCK"
	phaseDamageTransfer phase = "DAMAGE_TRANSFER"
	phaseBackorders     phase = "RESOLVING_BACKORDERS"
	phasePreorders      phase = "CONVERTING_PREORDERS"
	phaseCommitted      phase = "COMMITTED"
)

// Service orchestrates one receiving event end to end.
type Service struct {
	txm        tx.Manager
	purchases  purchases.Repository
	products   product.Repository
	variants   *variant.Resolver
	stock      *inventory.Service
	backorders *fulfillment.BackorderResolver
	preorders  *fulfillment.PreorderConverter
	receipts   Repository
	codes      codegen.Generator
	audit      AuditSink // optional
}

// NewService creates the receipt orchestrator.
func NewService(
	txm tx.Manager,
	purchaseRepo purchases.Repository,
	productRepo product.Repository,
	variants *variant.Resolver,
	stock *inventory.Service,
	backorders *fulfillment.BackorderResolver,
	preorders *fulfillment.PreorderConverter,
	receipts Repository,
	codes codegen.Generator,
	audit AuditSink,
) *Service {
	return &Service{
		txm:        txm,
		purchases:  purchaseRepo,
		products:   productRepo,
		variants:   variants,
		stock:      stock,
		backorders: backorders,
		preorders:  preorders,
		receipts:   receipts,
		codes:      codes,
		audit:      audit,
	}
}

// Receive books one receiving event for a purchase: landed costs, stock
// increases, damage transfers, backorder resolution and preorder
// conversion, all inside one transaction. Validation and state errors
// reject before any write; ledger corruption rolls everything back;
// best-effort step failures surface as warnings on a committed result.
func (s *Service) Receive(ctx context.Context, purchaseID id.ID, req *ReceiveRequest) (*ReceiveResult, error) {
	ctx, span := tracer.Start(ctx, "receiving.Receive",
		trace.WithAttributes(attribute.String("purchase.id", purchaseID.String())))
	defer span.End()

	// VALIDATING: no writes yet.
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}

	var result *ReceiveResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.receiveInTx(ctx, purchaseID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "goods receipt committed",
		"purchase_id", purchaseID,
		"receipt_id", result.GoodsReceiptID,
		"receipt_number", result.ReceiptNumber,
		"lines", len(result.InventoryUpdates),
		"warnings", len(result.Warnings),
	)

	// Audit is best-effort and runs after commit.
	if s.audit != nil {
		if auditErr := s.audit.RecordReceipt(ctx, result.GoodsReceiptID, purchaseID, result); auditErr != nil {
			logger.Warn(ctx, "receipt audit failed", "error", auditErr)
		}
	}

	return result, nil
}

func (s *Service) receiveInTx(ctx context.Context, purchaseID id.ID, req *ReceiveRequest) (*ReceiveResult, error) {
	// The purchase header lock serializes concurrent receipts of the
	// same purchase before any inventory row is touched.
	p, err := s.purchases.GetForUpdate(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanReceive() {
		if p.Status == purchases.StatusReceived || p.Status == purchases.StatusCompleted {
			return nil, apperror.NewBusinessRule(apperror.CodeAlreadyReceived,
				"purchase has already been received").
				WithDetail("purchase_id", purchaseID.String()).
				WithDetail("status", string(p.Status))
		}
		return nil, apperror.NewInvalidState("only a confirmed purchase may be received").
			WithDetail("purchase_id", purchaseID.String()).
			WithDetail("status", string(p.Status))
	}
	if len(p.Items) == 0 {
		return nil, apperror.NewInvalidState("purchase has no items").
			WithDetail("purchase_id", purchaseID.String())
	}

	lines := costLines(p.Items)

	// BOOKING_RECEIPT: compute costs and persist the receipt document.
	additional := make([]types.Money, 0, len(req.AdditionalCosts))
	for _, c := range req.AdditionalCosts {
		additional = append(additional, c.Amount)
	}
	lineCosts := AllocateCosts(lines, req.ExchangeRate, req.InspectionFee, additional, req.AllocationMethod)
	lineLosses := SplitLoss(lines, req.ActualQuantity, req.LossQuantity, req.DamageMap())

	receipt, err := s.bookReceipt(ctx, p, req, lineCosts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", phaseBooking, err)
	}

	result := &ReceiveResult{
		GoodsReceiptID:  receipt.ID,
		ReceiptNumber:   receipt.Number,
		TotalCost:       receipt.TotalCost,
		UnallocatedLoss: UnallocatedLoss(req.LossQuantity, lineLosses),
	}

	// ALLOCATING_STOCK (+ best-effort DAMAGE_TRANSFER per line). Lines
	// are processed in purchase order so concurrent receipts touching
	// overlapping variant sets lock rows in a consistent order.
	touched, err := s.allocateStock(ctx, p, req, receipt, lineCosts, lineLosses, result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", phaseAllocating, err)
	}

	// RESOLVING_BACKORDERS: best-effort.
	backorderResult := s.backorders.Resolve(ctx, touched)
	result.BackorderResult = backorderResult
	result.Warnings = append(result.Warnings, prefixAll(string(phaseBackorders), backorderResult.Warnings)...)

	// CONVERTING_PREORDERS: best-effort.
	preorderResult := s.preorders.Convert(ctx, req.PreorderMode, touched)
	result.PreorderResult = preorderResult
	result.Warnings = append(result.Warnings, prefixAll(string(phasePreorders), preorderResult.Warnings)...)

	// COMMITTED: flip purchase status and stamp the received time.
	receivedAt := time.Now().UTC()
	if err := s.purchases.SetReceived(ctx, p.ID, receivedAt); err != nil {
		return nil, fmt.Errorf("%s: set purchase received: %w", phaseCommitted, err)
	}
	result.PurchaseStatus = purchases.StatusReceived

	return result, nil
}

// bookReceipt persists the GoodsReceipt document with its cost rows.
func (s *Service) bookReceipt(ctx context.Context, p *purchases.Purchase, req *ReceiveRequest, lineCosts []LineCost) (*GoodsReceipt, error) {
	totalCost := types.Zero()
	for _, lc := range lineCosts {
		totalCost = totalCost.Add(lc.TotalCost)
	}

	number, err := s.receiptNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate receipt number: %w", err)
	}

	lossType := req.LossType
	if lossType == "" {
		lossType = LossNone
	}

	receipt := &GoodsReceipt{
		ID:               id.New(),
		Number:           number,
		PurchaseID:       p.ID,
		ActualQuantity:   req.ActualQuantity,
		ExchangeRate:     req.ExchangeRate,
		LossType:         lossType,
		LossQuantity:     req.LossQuantity,
		InspectionFee:    req.InspectionFee,
		AllocationMethod: req.AllocationMethod,
		TotalCost:        totalCost,
		CreatedBy:        appctx.GetActorID(ctx),
		CreatedAt:        time.Now().UTC(),
	}
	for _, c := range req.AdditionalCosts {
		receipt.Costs = append(receipt.Costs, AdditionalCost{
			ID:          id.New(),
			ReceiptID:   receipt.ID,
			CostType:    c.CostType,
			Amount:      c.Amount,
			Description: c.Description,
		})
	}

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}
	return receipt, nil
}

// allocateStock books stock increases per line, updating variant and
// product cost prices, and runs the best-effort damage transfer for
// lines with loss. Returns the variants touched, in line order.
func (s *Service) allocateStock(
	ctx context.Context,
	p *purchases.Purchase,
	req *ReceiveRequest,
	receipt *GoodsReceipt,
	lineCosts []LineCost,
	lineLosses []LineLoss,
	result *ReceiveResult,
) ([]id.ID, error) {
	productIDs := make([]id.ID, 0, len(p.Items))
	for _, item := range p.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	productsByID, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	warehouse := req.TargetWarehouse()
	touched := make([]id.ID, 0, len(p.Items))

	for i, item := range p.Items {
		cost := lineCosts[i]
		loss := lineLosses[i]

		// Lines fully lost (or over-declared) touch nothing.
		if loss.StockIncrease <= 0 {
			continue
		}

		prod, ok := productsByID[item.ProductID]
		if !ok {
			return nil, apperror.NewNotFound("product", item.ProductID.String())
		}

		normal, _, err := s.variants.EnsureNormal(ctx, prod, cost.FinalUnitCost)
		if err != nil {
			return nil, fmt.Errorf("resolve variant for product %s: %w", prod.Code, err)
		}
		if err := s.products.UpdateCostPrice(ctx, prod.ID, cost.FinalUnitCost); err != nil {
			return nil, fmt.Errorf("update product cost price: %w", err)
		}
		prod.CostPrice = cost.FinalUnitCost

		if _, err := s.stock.Apply(ctx, inventory.ApplyInput{
			VariantID:     normal.ID,
			Warehouse:     warehouse,
			Delta:         loss.StockIncrease,
			UnitCost:      cost.FinalUnitCost,
			Type:          inventory.MovementReceipt,
			Reason:        fmt.Sprintf("goods receipt %s", receipt.Number),
			ReferenceType: "goods_receipt",
			ReferenceID:   receipt.ID,
		}); err != nil {
			return nil, fmt.Errorf("book stock for product %s: %w", prod.Code, err)
		}

		update := InventoryUpdate{
			ProductID:        prod.ID,
			VariantID:        normal.ID,
			OrderedQuantity:  item.Quantity,
			ReceivedQuantity: loss.StockIncrease,
			LossQuantity:     loss.Loss,
			UnitCost:         cost.FinalUnitCost,
			TotalCost:        cost.FinalUnitCost.Mul(types.NewMoneyFromInt(loss.StockIncrease)),
		}

		// DAMAGE_TRANSFER: best-effort, never receipt-fatal.
		if loss.Loss > 0 {
			transfer, err := s.transferDamage(ctx, prod, normal.ID, warehouse, loss.Loss, cost.FinalUnitCost, receipt.ID)
			if err != nil {
				warning := fmt.Sprintf("%s: product %s: %v", phaseDamageTransfer, prod.Code, err)
				update.Warnings = append(update.Warnings, warning)
				result.Warnings = append(result.Warnings, warning)
				logger.Warn(ctx, "damage transfer failed",
					"product_id", prod.ID,
					"quantity", loss.Loss,
					"error", err,
				)
			} else {
				update.DamageTransfer = transfer
			}
		}

		result.InventoryUpdates = append(result.InventoryUpdates, update)
		touched = append(touched, normal.ID)
	}

	return touched, nil
}

func (s *Service) transferDamage(ctx context.Context, prod *product.Product, normalID id.ID, warehouse inventory.Warehouse, quantity int64, unitCost types.Money, receiptID id.ID) (*inventory.DamageTransfer, error) {
	damaged, _, err := s.variants.EnsureDamaged(ctx, prod)
	if err != nil {
		return nil, fmt.Errorf("resolve damaged variant: %w", err)
	}
	return s.stock.TransferDamage(ctx, normalID, damaged.ID, warehouse, quantity, unitCost, "goods_receipt", receiptID)
}

// GetReceiveStatus returns whether receiving is currently possible for a
// purchase and its receipt history.
func (s *Service) GetReceiveStatus(ctx context.Context, purchaseID id.ID) (*ReceiveStatus, error) {
	p, err := s.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	receipts, err := s.receipts.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}

	return &ReceiveStatus{
		PurchaseID:     p.ID,
		PurchaseStatus: p.Status,
		CanReceive:     p.Status.CanReceive(),
		Receipts:       receipts,
	}, nil
}

func (s *Service) receiptNumber(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	seq, err := s.codes.Next(ctx, fmt.Sprintf("goods_receipt:%d", year))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GR-%d-%05d", year, seq), nil
}

func costLines(items []purchases.PurchaseItem) []CostLine {
	lines := make([]CostLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, CostLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Weight:    item.Weight,
		})
	}
	return lines
}

func prefixAll(prefix string, warnings []string) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, prefix+": "+w)
	}
	return out
}
