// Package report builds the staff dashboard overview and the inventory
// spreadsheet export.
package report

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/strains"
)

type Catalog interface {
	ListStrains(ctx context.Context, visibleOnly bool) ([]strains.Strain, error)
}

type OrderCounter interface {
	CountOrdersByStatus(ctx context.Context) (map[orders.Status]int, error)
}

type Service struct {
	Strains Catalog
	Orders  OrderCounter
	// LowStock is the threshold at or below which a strain is flagged.
	LowStock decimal.Decimal
}

type LowStockItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	StockGrams decimal.Decimal `json:"stock_grams"`
	IsVisible  bool            `json:"is_visible"`
}

type Overview struct {
	OrdersByStatus map[orders.Status]int `json:"orders_by_status"`
	Strains        int                   `json:"strains"`
	VisibleStrains int                   `json:"visible_strains"`
	TotalStock     decimal.Decimal       `json:"total_stock_grams"`
	LowStock       []LowStockItem        `json:"low_stock"`
}

func (s *Service) low(st strains.Strain) bool {
	return st.StockGrams.LessThanOrEqual(s.LowStock)
}

func (s *Service) Overview(ctx context.Context, actor domain.Actor) (Overview, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return Overview{}, err
	}
	counts, err := s.Orders.CountOrdersByStatus(ctx)
	if err != nil {
		return Overview{}, err
	}
	all, err := s.Strains.ListStrains(ctx, false)
	if err != nil {
		return Overview{}, err
	}

	ov := Overview{OrdersByStatus: counts, Strains: len(all), TotalStock: decimal.Zero, LowStock: []LowStockItem{}}
	for _, st := range all {
		ov.TotalStock = ov.TotalStock.Add(st.StockGrams)
		if st.IsVisible {
			ov.VisibleStrains++
		}
		if s.low(st) {
			ov.LowStock = append(ov.LowStock, LowStockItem{ID: st.ID, Name: st.Name, StockGrams: st.StockGrams, IsVisible: st.IsVisible})
		}
	}
	return ov, nil
}

var inventoryHeader = []any{"id", "name", "type", "thc_percent", "cbd_percent", "stock_grams", "price_per_gram", "visible", "low_stock"}

// InventoryXLSX writes one sheet listing every strain.
func (s *Service) InventoryXLSX(ctx context.Context, actor domain.Actor, w io.Writer) error {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return err
	}
	all, err := s.Strains.ListStrains(ctx, false)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Inventory"
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &inventoryHeader); err != nil {
		return err
	}

	for i, st := range all {
		row := []any{
			st.ID,
			st.Name,
			string(st.Type),
			st.THCPercent.InexactFloat64(),
			st.CBDPercent.InexactFloat64(),
			st.StockGrams.InexactFloat64(),
			st.PricePerGram.InexactFloat64(),
			st.IsVisible,
			s.low(st),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}
