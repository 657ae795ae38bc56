package common

import (
	"context"
	"fmt"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

type QueryArg struct {
	Table  string                  // table
	Fields []interface{}           // query fields
	Ex     []exp.Expression        // where conditions
	Order  []exp.OrderedExpression // order conditions
	Offset uint                    // offset
	Limit  uint                    // limit
}

// DialectFor 将存储驱动名映射为 goqu 方言
func DialectFor(driver string) g.DialectWrapper {
	if driver == DriverSQLite {
		return g.Dialect("sqlite3")
	}
	return g.Dialect("mysql")
}

// SelectAllCtx 按 goqu 构造的查询读取多条记录
func SelectAllCtx(ctx context.Context, exec sqlx.QueryerContext, dialect g.DialectWrapper, data interface{}, args QueryArg) error {
	if exec == nil {
		return fmt.Errorf("invalid db")
	}
	if args.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(args.Fields) == 0 {
		return fmt.Errorf("invalid fields")
	}

	ds := dialect.Select(args.Fields...).From(args.Table)
	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Offset > 0 {
		ds = ds.Offset(args.Offset)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}

	query, qargs, err := ds.ToSQL()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, exec, data, query, qargs...)
}
