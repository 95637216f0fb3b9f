package payroll

import (
	"fmt"
	"strconv"
	"strings"
)

// EmployeeRow は employees テーブルの 1 行です。Sex は NULL の場合 nil です。
type EmployeeRow struct {
	Identity string
	Name     string
	Sex      *string
	Category int
	Years    int
}

// EmployeeInput はフォーム等から受け取る未検証の入力です。
type EmployeeInput struct {
	Identity string
	Name     string
	Sex      string
	Category string
	Years    string
}

// NewEmployeeFromRow は保存済みの行から社員を生成します。数値は検証しません。
func NewEmployeeFromRow(row EmployeeRow) *Employee {
	sex := ""
	if row.Sex != nil {
		sex = *row.Sex
	}

	return &Employee{
		identity: row.Identity,
		name:     row.Name,
		sex:      strings.TrimSpace(sex),
		category: row.Category,
		years:    row.Years,
	}
}

// NewEmployeeFromInput は入力値から社員を生成します。
func NewEmployeeFromInput(in EmployeeInput) (*Employee, error) {
	identity := strings.TrimSpace(in.Identity)
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	sex := strings.TrimSpace(in.Sex)
	if sex == "" {
		return nil, ErrInvalidSex
	}

	category, err := strconv.Atoi(strings.TrimSpace(in.Category))
	if err != nil {
		return nil, fmt.Errorf("category %q: %w: %w", in.Category, ErrInvalidCategory, err)
	}

	years, err := strconv.Atoi(strings.TrimSpace(in.Years))
	if err != nil {
		return nil, fmt.Errorf("years %q: %w: %w", in.Years, ErrInvalidYears, err)
	}
	if years < 0 {
		return nil, fmt.Errorf("years %d: %w", years, ErrInvalidYears)
	}

	return &Employee{
		identity: identity,
		name:     name,
		sex:      sex,
		category: category,
		years:    years,
	}, nil
}

// NewBasicEmployee は識別子・氏名・性別のみから社員を生成します。
// カテゴリは DefaultCategory、勤続年数は DefaultYears になります。
func NewBasicEmployee(identity, name, sex string) (*Employee, error) {
	if strings.TrimSpace(identity) == "" || strings.TrimSpace(name) == "" || strings.TrimSpace(sex) == "" {
		return nil, ErrMissingRequiredField
	}

	return &Employee{
		identity: identity,
		name:     name,
		sex:      sex,
		category: DefaultCategory,
		years:    DefaultYears,
	}, nil
}
