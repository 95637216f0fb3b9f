package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SalaryPolicy は社員の属性から給与額を算出する純粋関数です。
type SalaryPolicy interface {
	Salary(e *Employee) (decimal.Decimal, error)
}

// PolicyFunc は関数を SalaryPolicy として扱うアダプタです。
type PolicyFunc func(e *Employee) (decimal.Decimal, error)

func (f PolicyFunc) Salary(e *Employee) (decimal.Decimal, error) {
	return f(e)
}

// DefaultBaseByCategory はカテゴリ 1〜10 の基本給です。
var DefaultBaseByCategory = []decimal.Decimal{
	decimal.NewFromInt(50000),
	decimal.NewFromInt(70000),
	decimal.NewFromInt(90000),
	decimal.NewFromInt(110000),
	decimal.NewFromInt(130000),
	decimal.NewFromInt(150000),
	decimal.NewFromInt(170000),
	decimal.NewFromInt(190000),
	decimal.NewFromInt(210000),
	decimal.NewFromInt(230000),
}

// DefaultPerYear は勤続 1 年あたりの加算額です。
var DefaultPerYear = decimal.NewFromInt(5000)

// CategoryTablePolicy は カテゴリ別基本給 + 勤続年数 × 加算額 で給与を算出します。
type CategoryTablePolicy struct {
	base    []decimal.Decimal
	perYear decimal.Decimal
}

// NewCategoryTablePolicy は CategoryTablePolicy を生成します。base[i] はカテゴリ i+1 の基本給です。
func NewCategoryTablePolicy(base []decimal.Decimal, perYear decimal.Decimal) (*CategoryTablePolicy, error) {
	if len(base) == 0 {
		return nil, errors.New("payroll: salary table must not be empty")
	}
	for i, amount := range base {
		if amount.IsNegative() {
			return nil, fmt.Errorf("payroll: base salary for category %d is negative", i+1)
		}
	}
	if perYear.IsNegative() {
		return nil, errors.New("payroll: per-year increment is negative")
	}

	table := make([]decimal.Decimal, len(base))
	copy(table, base)
	return &CategoryTablePolicy{base: table, perYear: perYear}, nil
}

// DefaultPolicy は既定の給与表を使う CategoryTablePolicy を返します。
func DefaultPolicy() *CategoryTablePolicy {
	policy, _ := NewCategoryTablePolicy(DefaultBaseByCategory, DefaultPerYear)
	return policy
}

func (p *CategoryTablePolicy) Salary(e *Employee) (decimal.Decimal, error) {
	if e == nil {
		return decimal.Zero, ErrMissingRequiredField
	}
	if e.category < 1 || e.category > len(p.base) {
		return decimal.Zero, fmt.Errorf("category %d: %w", e.category, ErrInvalidCategory)
	}
	if e.years < 0 {
		return decimal.Zero, fmt.Errorf("years %d: %w", e.years, ErrInvalidYears)
	}

	return p.base[e.category-1].Add(p.perYear.Mul(decimal.NewFromInt(int64(e.years)))), nil
}
