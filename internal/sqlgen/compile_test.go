package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benarmston/sequel/internal/dialect"
	"github.com/benarmston/sequel/internal/exprir"
)

func sqliteCompiler() *Compiler   { return New(dialect.SQLite()) }
func postgresCompiler() *Compiler { return New(dialect.Postgres()) }

func TestCompileExpression_Identifiers(t *testing.T) {
	testCases := []struct {
		name string
		expr exprir.Expr
		want string
	}{
		{name: "plain", expr: exprir.Col("price"), want: `"price"`},
		{name: "qualified", expr: exprir.Col("price").Qualify("items"), want: `"items"."price"`},
		{name: "aliased", expr: exprir.Col("price").As("cost"), want: `"price" AS "cost"`},
		{
			name: "qualified and aliased compose",
			expr: exprir.Col("price").Qualify("items").As("cost"),
			want: `"items"."price" AS "cost"`,
		},
		{name: "bare skips quoting", expr: exprir.BareCol("count(*)"), want: "count(*)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := sqliteCompiler().CompileExpression(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sql)
			assert.Empty(t, params)
		})
	}
}

func TestCompileExpression_CaseFolding(t *testing.T) {
	sql, _, err := postgresCompiler().CompileExpression(exprir.Col("Price").Qualify("Items"))
	require.NoError(t, err)
	assert.Equal(t, `"items"."price"`, sql)
}

func TestCompileExpression_ComparisonParenthesized(t *testing.T) {
	sql, params, err := sqliteCompiler().CompileExpression(exprir.Eq(exprir.Col("name"), "widget"))
	require.NoError(t, err)
	assert.Equal(t, `("name" = ?)`, sql)
	assert.Equal(t, []any{"widget"}, params)
}

func TestCompileExpression_ValueNeverInterpolated(t *testing.T) {
	sql, params, err := sqliteCompiler().CompileExpression(
		exprir.Eq(exprir.Col("name"), "'; DROP TABLE items;--"))
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP TABLE")
	assert.Equal(t, []any{"'; DROP TABLE items;--"}, params)
}

func TestCompileExpression_BoolCombination(t *testing.T) {
	e := exprir.And(
		exprir.Eq(exprir.Col("a"), 1),
		exprir.Or(exprir.Eq(exprir.Col("b"), 2), exprir.Eq(exprir.Col("c"), 3)),
	)
	sql, params, err := sqliteCompiler().CompileExpression(e)
	require.NoError(t, err)
	assert.Equal(t, `(("a" = ?) AND (("b" = ?) OR ("c" = ?)))`, sql)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, params)
}

func TestCompileExpression_EmptyCombinationIsVacuouslyTrue(t *testing.T) {
	sql, params, err := sqliteCompiler().CompileExpression(exprir.And())
	require.NoError(t, err)
	assert.Equal(t, "(1 = 1)", sql)
	assert.Empty(t, params)
}

func TestCompileExpression_SingleOperandCombinationUnwraps(t *testing.T) {
	sql, _, err := sqliteCompiler().CompileExpression(exprir.And(exprir.Eq(exprir.Col("a"), 1)))
	require.NoError(t, err)
	assert.Equal(t, `("a" = ?)`, sql)
}

func TestCompileExpression_Arithmetic(t *testing.T) {
	e := exprir.Mul(exprir.Add(exprir.Col("a"), 1), 2)
	sql, params, err := sqliteCompiler().CompileExpression(e)
	require.NoError(t, err)
	assert.Equal(t, `(("a" + ?) * ?)`, sql)
	assert.Equal(t, []any{int64(1), int64(2)}, params)
}

// The compiler renders exactly what the tree says. Mixing boolean negation
// into arithmetic produces the literal (and likely unintended) SQL; this is
// a caller-education issue, pinned here so nobody "fixes" it.
func TestCompileExpression_NegationInsideArithmeticIsRenderedVerbatim(t *testing.T) {
	e := exprir.Add(exprir.Col("a"), exprir.Not(exprir.Eq(exprir.Col("b"), 1)))
	sql, params, err := sqliteCompiler().CompileExpression(e)
	require.NoError(t, err)
	assert.Equal(t, `("a" + (NOT ("b" = ?)))`, sql)
	assert.Equal(t, []any{int64(1)}, params)
}

func TestCompileExpression_IsComparisons(t *testing.T) {
	testCases := []struct {
		name string
		expr exprir.Expr
		want string
	}{
		{name: "is null", expr: exprir.Is(exprir.Col("a"), nil), want: `("a" IS NULL)`},
		{name: "is not null", expr: exprir.IsNot(exprir.Col("a"), nil), want: `("a" IS NOT NULL)`},
		{name: "is true", expr: exprir.Is(exprir.Col("a"), true), want: `("a" IS TRUE)`},
		{name: "is not false", expr: exprir.IsNot(exprir.Col("a"), false), want: `("a" IS NOT FALSE)`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := sqliteCompiler().CompileExpression(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sql)
			assert.Empty(t, params)
		})
	}
}

func TestCompileExpression_IsRejectsNonBooleanRight(t *testing.T) {
	_, _, err := sqliteCompiler().CompileExpression(exprir.Is(exprir.Col("a"), 5))
	require.Error(t, err)
	assert.True(t, IsInvalidExpression(err))
}

func TestCompileExpression_In(t *testing.T) {
	sql, params, err := sqliteCompiler().CompileExpression(exprir.In(exprir.Col("id"), 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, `("id" IN (?, ?, ?))`, sql)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, params)
}

func TestCompileExpression_EmptyIn(t *testing.T) {
	sql, params, err := sqliteCompiler().CompileExpression(exprir.In(exprir.Col("id")))
	require.NoError(t, err)
	assert.Equal(t, "(1 = 0)", sql)
	assert.Empty(t, params)

	sql, params, err = sqliteCompiler().CompileExpression(exprir.NotIn(exprir.Col("id")))
	require.NoError(t, err)
	assert.Equal(t, "(1 = 1)", sql)
	assert.Empty(t, params)
}

func TestCompileExpression_InSubquery(t *testing.T) {
	sub := &exprir.Select{
		Table:   "orders",
		Columns: []exprir.Identifier{exprir.Col("user_id")},
		Filter:  exprir.Eq(exprir.Col("status"), "open"),
	}
	sql, params, err := sqliteCompiler().CompileExpression(exprir.InQuery(exprir.Col("id"), sub))
	require.NoError(t, err)
	assert.Equal(t, `("id" IN (SELECT "user_id" FROM "orders" WHERE ("status" = ?)))`, sql)
	assert.Equal(t, []any{"open"}, params)
}

func TestCompileExpression_Like(t *testing.T) {
	sql, params, err := postgresCompiler().CompileExpression(exprir.Like(exprir.Col("name"), "wid%"))
	require.NoError(t, err)
	assert.Equal(t, `("name" LIKE ?)`, sql)
	assert.Equal(t, []any{"wid%"}, params)
}

func TestCompileExpression_ILike(t *testing.T) {
	// Native ILIKE on PostgreSQL.
	sql, _, err := postgresCompiler().CompileExpression(exprir.ILike(exprir.Col("name"), "wid%"))
	require.NoError(t, err)
	assert.Equal(t, `("name" ILIKE ?)`, sql)

	// Emulated by lowering both sides on SQLite.
	sql, params, err := sqliteCompiler().CompileExpression(exprir.ILike(exprir.Col("name"), "wid%"))
	require.NoError(t, err)
	assert.Equal(t, `(LOWER("name") LIKE LOWER(?))`, sql)
	assert.Equal(t, []any{"wid%"}, params)
}

func TestCompileExpression_RegexpPatterns(t *testing.T) {
	re := exprir.Regexp{Pattern: "^wid"}
	reInsensitive := exprir.Regexp{Pattern: "^wid", CaseInsensitive: true}

	testCases := []struct {
		name       string
		compiler   *Compiler
		expr       exprir.Expr
		wantSQL    string
		wantParams []any
	}{
		{
			name:       "like with regex uses regex op",
			compiler:   postgresCompiler(),
			expr:       exprir.Like(exprir.Col("name"), re),
			wantSQL:    `("name" ~ ?)`,
			wantParams: []any{"^wid"},
		},
		{
			name:       "like honors regex case flag",
			compiler:   postgresCompiler(),
			expr:       exprir.Like(exprir.Col("name"), reInsensitive),
			wantSQL:    `("name" ~* ?)`,
			wantParams: []any{"^wid"},
		},
		{
			name:       "ilike forces case-insensitive",
			compiler:   postgresCompiler(),
			expr:       exprir.ILike(exprir.Col("name"), re),
			wantSQL:    `("name" ~* ?)`,
			wantParams: []any{"^wid"},
		},
		{
			name:       "no insensitive op inlines flag",
			compiler:   sqliteCompiler(),
			expr:       exprir.ILike(exprir.Col("name"), re),
			wantSQL:    `("name" REGEXP ?)`,
			wantParams: []any{"(?i)^wid"},
		},
		{
			name:       "negated regex wraps with NOT",
			compiler:   postgresCompiler(),
			expr:       exprir.Compare(exprir.OpNotLike, exprir.Col("name"), re),
			wantSQL:    `(NOT ("name" ~ ?))`,
			wantParams: []any{"^wid"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := tc.compiler.CompileExpression(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantParams, params)
		})
	}
}

func TestCompileExpression_FunctionAndWindow(t *testing.T) {
	plain := exprir.Fn("COALESCE", exprir.Col("stock"), exprir.Lit(0))
	sql, params, err := sqliteCompiler().CompileExpression(plain)
	require.NoError(t, err)
	assert.Equal(t, `COALESCE("stock", ?)`, sql)
	assert.Equal(t, []any{int64(0)}, params)

	windowed := exprir.Fn("SUM", exprir.Col("amount")).Over(exprir.WindowSpec{
		Partition: []exprir.Expr{exprir.Col("region"), exprir.Col("city")},
		Order:     []exprir.OrderTerm{{Expr: exprir.Col("day"), Desc: true}},
	})
	sql, _, err = sqliteCompiler().CompileExpression(windowed)
	require.NoError(t, err)
	assert.Equal(t, `SUM("amount") OVER (PARTITION BY "region", "city" ORDER BY "day" DESC)`, sql)
}

func TestCompileExpression_WindowOmitsEmptyClauses(t *testing.T) {
	onlyOrder := exprir.Fn("RANK").Over(exprir.WindowSpec{
		Order: []exprir.OrderTerm{{Expr: exprir.Col("score")}},
	})
	sql, _, err := sqliteCompiler().CompileExpression(onlyOrder)
	require.NoError(t, err)
	assert.Equal(t, `RANK() OVER (ORDER BY "score")`, sql)

	empty := exprir.Fn("COUNT", exprir.Col("id")).Over(exprir.WindowSpec{})
	sql, _, err = sqliteCompiler().CompileExpression(empty)
	require.NoError(t, err)
	assert.Equal(t, `COUNT("id") OVER ()`, sql)
}

func TestCompileExpression_Case(t *testing.T) {
	searched := exprir.Case{
		Branches: []exprir.CaseBranch{
			{When: exprir.Gte(exprir.Col("score"), 90), Then: exprir.Lit("A")},
			{When: exprir.Gte(exprir.Col("score"), 80), Then: exprir.Lit("B")},
		},
		Else: exprir.Lit("C"),
	}
	sql, params, err := sqliteCompiler().CompileExpression(searched)
	require.NoError(t, err)
	assert.Equal(t, `(CASE WHEN ("score" >= ?) THEN ? WHEN ("score" >= ?) THEN ? ELSE ? END)`, sql)
	assert.Equal(t, []any{int64(90), "A", int64(80), "B", "C"}, params)

	withSubject := exprir.Case{
		Subject: exprir.Col("status"),
		Branches: []exprir.CaseBranch{
			{When: exprir.Lit("open"), Then: exprir.Lit(1)},
		},
	}
	sql, params, err = sqliteCompiler().CompileExpression(withSubject)
	require.NoError(t, err)
	assert.Equal(t, `(CASE "status" WHEN ? THEN ? END)`, sql)
	assert.Equal(t, []any{"open", int64(1)}, params)
}

func TestCompileExpression_CaseWithoutBranchesFails(t *testing.T) {
	_, _, err := sqliteCompiler().CompileExpression(exprir.Case{})
	require.Error(t, err)
	assert.True(t, IsInvalidExpression(err))
}

func TestCompileExpression_RawIsEmittedVerbatim(t *testing.T) {
	raw := exprir.Raw{SQL: "price > ? AND tags @> ARRAY[?]", Args: []exprir.Value{exprir.Int(10), exprir.String("new")}}
	sql, params, err := postgresCompiler().CompileExpression(raw)
	require.NoError(t, err)
	assert.Equal(t, "price > ? AND tags @> ARRAY[?]", sql)
	assert.Equal(t, []any{int64(10), "new"}, params)
}

func TestCompileExpression_Errors(t *testing.T) {
	testCases := []struct {
		name string
		expr exprir.Expr
	}{
		{name: "nil expression", expr: nil},
		{name: "empty identifier", expr: exprir.Col("")},
		{name: "invalid literal type", expr: exprir.Lit(struct{}{})},
		{name: "empty function name", expr: exprir.Fn("")},
		{name: "in against scalar", expr: exprir.Comparison{Op: exprir.OpIn, Left: exprir.Col("a"), Right: exprir.Lit(1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := sqliteCompiler().CompileExpression(tc.expr)
			require.Error(t, err)
			assert.True(t, IsInvalidExpression(err), "expected invalid expression, got %v", err)
		})
	}
}

func TestCompileExpression_Deterministic(t *testing.T) {
	e := exprir.And(
		exprir.Eq(exprir.Col("a"), 1),
		exprir.In(exprir.Col("b"), "x", "y"),
		exprir.Is(exprir.Col("c"), nil),
	)
	c := sqliteCompiler()

	sql1, params1, err := c.CompileExpression(e)
	require.NoError(t, err)
	sql2, params2, err := c.CompileExpression(e)
	require.NoError(t, err)

	assert.Equal(t, sql1, sql2)
	assert.Equal(t, params1, params2)
}
