package payroll

import "github.com/shopspring/decimal"

const (
	// DefaultCategory は基本生成時のカテゴリです。
	DefaultCategory = 1
	// DefaultYears は基本生成時の勤続年数です。
	DefaultYears = 0
)

// Employee は社員エンティティです。生成後は変更できません。
type Employee struct {
	identity string
	name     string
	sex      string
	category int
	years    int
}

// Identity は社員を一意に識別する国民識別番号を返します。
func (e *Employee) Identity() string { return e.identity }

// Name は表示名を返します。
func (e *Employee) Name() string { return e.name }

// Sex は性別コードを返します。
func (e *Employee) Sex() string { return e.sex }

// Category はカテゴリを返します。
func (e *Employee) Category() int { return e.category }

// Years は勤続年数を返します。
func (e *Employee) Years() int { return e.years }

// SalaryRecord は永続化された給与レコードです。
type SalaryRecord struct {
	Identity string
	Amount   decimal.Decimal
}

// SalarySource は給与額の出所を表します。
type SalarySource string

const (
	SalarySourceStored   SalarySource = "stored"
	SalarySourceComputed SalarySource = "computed"
)

// EmployeeSalary は社員と照合済みの給与額の組です。
type EmployeeSalary struct {
	Employee *Employee
	Salary   decimal.Decimal
	Source   SalarySource
}
