package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/codex-grpc-payroll/internal/core/payroll"
	pgdb "github.com/ogurasousui/codex-grpc-payroll/internal/platform/db/postgres"
)

const (
	payrollForeignKeyViolationCode = "23503"
	payrollCheckViolationCode      = "23514"
)

const employeeColumns = `identity, name, sex, category, years`

// searchColumns は検索項目と列名の対応です。列名はここに列挙したものだけを SQL に埋め込みます。
var searchColumns = map[payroll.SearchField]string{
	payroll.SearchFieldName:     "name",
	payroll.SearchFieldIdentity: "identity",
	payroll.SearchFieldSex:      "sex",
	payroll.SearchFieldCategory: "category",
	payroll.SearchFieldYears:    "years",
}

// PayrollRepository は PostgreSQL を利用した社員・給与永続化の実装です。
type PayrollRepository struct {
	pool pgdb.Queryer
	tx   *pgdb.TransactionManager
}

// NewPayrollRepository は PayrollRepository を生成します。
// 社員と給与の更新を原子的に行うため tx は必須です。
func NewPayrollRepository(pool pgdb.Queryer, tx *pgdb.TransactionManager) (*PayrollRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres: payroll repository requires a queryer")
	}
	if tx == nil {
		return nil, fmt.Errorf("postgres: payroll repository requires a transaction manager")
	}
	return &PayrollRepository{pool: pool, tx: tx}, nil
}

// ListEmployees は全社員を識別子順で返します。
func (r *PayrollRepository) ListEmployees(ctx context.Context) ([]*payroll.Employee, error) {
	ctx, cancel := r.tx.BoundContext(ctx)
	defer cancel()
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         ORDER BY identity
    `)
	if err != nil {
		return nil, translatePayrollPgError("list employees", err)
	}
	defer rows.Close()

	return collectEmployees("list employees", rows)
}

// GetEmployee は識別子で社員を取得します。
func (r *PayrollRepository) GetEmployee(ctx context.Context, identity string) (*payroll.Employee, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, payroll.ErrInvalidIdentity
	}

	ctx, cancel := r.tx.BoundContext(ctx)
	defer cancel()
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE identity = $1
         LIMIT 1
    `, identity)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translatePayrollPgError("get employee", err)
	}
	return found, nil
}

// GetSalary は給与レコードを取得します。行が存在しない場合は found=false を返します。
func (r *PayrollRepository) GetSalary(ctx context.Context, identity string) (*payroll.SalaryRecord, bool, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, false, payroll.ErrInvalidIdentity
	}

	ctx, cancel := r.tx.BoundContext(ctx)
	defer cancel()
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT identity, amount
          FROM salaries
         WHERE identity = $1
         LIMIT 1
    `, identity)

	record, err := scanSalary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, translatePayrollPgError("get salary", err)
	}
	return record, true, nil
}

// SetSalary は給与額を挿入または上書きし、行が書き込まれたかを返します。
func (r *PayrollRepository) SetSalary(ctx context.Context, identity string, amount decimal.Decimal) (bool, error) {
	if strings.TrimSpace(identity) == "" {
		return false, payroll.ErrInvalidIdentity
	}
	if amount.IsNegative() {
		return false, payroll.ErrNegativeSalary
	}

	ctx, cancel := r.tx.BoundContext(ctx)
	defer cancel()
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	affected, err := upsertSalary(ctx, exec, identity, amount)
	if err != nil {
		return false, translatePayrollPgError("set salary", err)
	}
	return affected, nil
}

// SearchEmployees は指定列の文字列表現に pattern を含む社員を返します。大文字小文字は区別します。
func (r *PayrollRepository) SearchEmployees(ctx context.Context, field payroll.SearchField, pattern string) ([]*payroll.Employee, error) {
	if !field.Valid() {
		return nil, payroll.ErrInvalidSearchField
	}
	column, ok := searchColumns[field]
	if !ok {
		return nil, payroll.StorageError("search employees", fmt.Errorf("no column for search field %q", field))
	}
	if pattern == "" {
		return nil, payroll.ErrInvalidSearchValue
	}

	// strpos は % や _ を解釈しません。
	query := `
        SELECT ` + employeeColumns + `
          FROM employees
         WHERE strpos(` + column + `::text, $1) > 0
         ORDER BY identity
    `

	ctx, cancel := r.tx.BoundContext(ctx)
	defer cancel()
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, pattern)
	if err != nil {
		return nil, translatePayrollPgError("search employees", err)
	}
	defer rows.Close()

	return collectEmployees("search employees", rows)
}

// UpdateEmployeeAndSalary は社員属性を更新し、policy で再計算した給与を同一トランザクションで保存します。
// 途中で失敗した場合はどちらの変更も残りません。
func (r *PayrollRepository) UpdateEmployeeAndSalary(ctx context.Context, e *payroll.Employee, policy payroll.SalaryPolicy) (decimal.Decimal, error) {
	if e == nil || strings.TrimSpace(e.Identity()) == "" {
		return decimal.Zero, payroll.ErrInvalidIdentity
	}
	if policy == nil {
		policy = payroll.DefaultPolicy()
	}

	var amount decimal.Decimal
	err := r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exec := pgdb.QueryerFromContext(txCtx, r.pool)

		tag, err := exec.Exec(txCtx, `
            UPDATE employees
               SET name = $1,
                   sex = $2,
                   category = $3,
                   years = $4
             WHERE identity = $5
        `,
			e.Name(),
			e.Sex(),
			e.Category(),
			e.Years(),
			e.Identity(),
		)
		if err != nil {
			return translatePayrollPgError("update employee", err)
		}
		if tag.RowsAffected() == 0 {
			return payroll.ErrEmployeeNotFound
		}

		computed, err := policy.Salary(e)
		if err != nil {
			return err
		}

		if _, err := upsertSalary(txCtx, exec, e.Identity(), computed); err != nil {
			return translatePayrollPgError("store salary", err)
		}

		amount = computed
		return nil
	})
	if err != nil {
		return decimal.Zero, payroll.TransactionError("update employee and salary", err)
	}

	return amount, nil
}

func upsertSalary(ctx context.Context, exec pgdb.Queryer, identity string, amount decimal.Decimal) (bool, error) {
	tag, err := exec.Exec(ctx, `
        INSERT INTO salaries (identity, amount)
        VALUES ($1, $2)
        ON CONFLICT (identity) DO UPDATE SET amount = EXCLUDED.amount
    `, identity, amount.InexactFloat64())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func collectEmployees(op string, rows pgx.Rows) ([]*payroll.Employee, error) {
	employees := make([]*payroll.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translatePayrollPgError(op, err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, translatePayrollPgError(op, err)
	}

	return employees, nil
}

func scanEmployee(row pgx.Row) (*payroll.Employee, error) {
	var (
		identity string
		name     string
		sex      sql.NullString
		category int
		years    int
	)

	if err := row.Scan(&identity, &name, &sex, &category, &years); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payroll.ErrEmployeeNotFound
		}
		return nil, err
	}

	var sexPtr *string
	if sex.Valid {
		s := sex.String
		sexPtr = &s
	}

	return payroll.NewEmployeeFromRow(payroll.EmployeeRow{
		Identity: identity,
		Name:     name,
		Sex:      sexPtr,
		Category: category,
		Years:    years,
	}), nil
}

func scanSalary(row pgx.Row) (*payroll.SalaryRecord, error) {
	var (
		identity string
		amount   float64
	)

	if err := row.Scan(&identity, &amount); err != nil {
		return nil, err
	}

	return &payroll.SalaryRecord{Identity: identity, Amount: decimal.NewFromFloat(amount)}, nil
}

func translatePayrollPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case payrollForeignKeyViolationCode:
			if pgErr.ConstraintName == "salaries_identity_fkey" {
				return payroll.ErrEmployeeNotFound
			}
		case payrollCheckViolationCode:
			if pgErr.ConstraintName == "salaries_amount_check" {
				return payroll.ErrNegativeSalary
			}
		}
	}

	return payroll.StorageError(op, err)
}
