package register_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcost/internal/core/entity"
	"stockcost/internal/core/id"
	"stockcost/internal/domain/registers/stock"
)

const movementCols = "id, direction, warehouse_id, product_id, quantity, " +
	"reference_type, reference_id, reference_line_id, created_at"

func TestStockRepo_BalanceForUpdateQuery(t *testing.T) {
	repo := NewStockRepo(nil)

	sql, _, err := repo.balanceQuery(id.New(), id.New()).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT warehouse_id, product_id, quantity, updated_at FROM reg_stock_balances "+
			"WHERE product_id = $1 AND warehouse_id = $2 LIMIT 1 FOR UPDATE",
		sql)
}

func TestStockRepo_HistoryQuery(t *testing.T) {
	repo := NewStockRepo(nil)
	wh := id.New()
	out := entity.DirectionOut
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  stock.MovementFilter
		wantSQL string
		args    int
	}{
		{
			name:    "product only",
			filter:  stock.MovementFilter{},
			wantSQL: "SELECT " + movementCols + " FROM reg_stock_movements WHERE product_id = $1 ORDER BY created_at DESC, id DESC",
			args:    1,
		},
		{
			name: "all filters",
			filter: stock.MovementFilter{
				WarehouseID: &wh,
				Direction:   &out,
				FromDate:    &from,
				ToDate:      &from,
				Limit:       10,
				Offset:      20,
			},
			wantSQL: "SELECT " + movementCols + " FROM reg_stock_movements WHERE product_id = $1 AND warehouse_id = $2 " +
				"AND direction = $3 AND created_at >= $4 AND created_at < $5 ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 20",
			args: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.historyQuery(id.New(), tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Len(t, args, tt.args)
		})
	}
}
