package payroll

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Repository は社員・給与の永続化の抽象です。
type Repository interface {
	ListEmployees(ctx context.Context) ([]*Employee, error)
	GetEmployee(ctx context.Context, identity string) (*Employee, error)
	// GetSalary は給与レコードを返します。存在しない場合は found=false でエラーにはなりません。
	GetSalary(ctx context.Context, identity string) (record *SalaryRecord, found bool, err error)
	SetSalary(ctx context.Context, identity string, amount decimal.Decimal) (bool, error)
	SearchEmployees(ctx context.Context, field SearchField, pattern string) ([]*Employee, error)
	// UpdateEmployeeAndSalary は社員属性の更新と給与の再計算・保存を 1 トランザクションで行い、保存した額を返します。
	UpdateEmployeeAndSalary(ctx context.Context, e *Employee, policy SalaryPolicy) (decimal.Decimal, error)
}

// SearchField は検索可能な社員項目です。
type SearchField string

const (
	SearchFieldName     SearchField = "name"
	SearchFieldIdentity SearchField = "identity"
	SearchFieldSex      SearchField = "sex"
	SearchFieldCategory SearchField = "category"
	SearchFieldYears    SearchField = "years"
)

var searchFieldAliases = map[string]SearchField{
	"name":      SearchFieldName,
	"nombre":    SearchFieldName,
	"identity":  SearchFieldIdentity,
	"dni":       SearchFieldIdentity,
	"sex":       SearchFieldSex,
	"sexo":      SearchFieldSex,
	"category":  SearchFieldCategory,
	"categoria": SearchFieldCategory,
	"years":     SearchFieldYears,
	"anyos":     SearchFieldYears,
}

// ParseSearchField は項目名を SearchField に変換します。
func ParseSearchField(raw string) (SearchField, error) {
	field, ok := searchFieldAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrInvalidSearchField
	}
	return field, nil
}

// Valid は許可された項目かどうかを返します。
func (f SearchField) Valid() bool {
	switch f {
	case SearchFieldName, SearchFieldIdentity, SearchFieldSex, SearchFieldCategory, SearchFieldYears:
		return true
	default:
		return false
	}
}
