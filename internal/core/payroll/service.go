package payroll

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// UseCase は給与照合ユースケースの公開インターフェースです。
type UseCase interface {
	GetEmployeeSalary(ctx context.Context, identity string) (*EmployeeSalary, error)
	ListAllWithSalaries(ctx context.Context) ([]*EmployeeSalary, error)
	UpdateEmployee(ctx context.Context, in EmployeeInput) (*EmployeeSalary, error)
	SearchEmployees(ctx context.Context, field, value string) ([]*Employee, error)
	GetEmployee(ctx context.Context, identity string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]*Employee, error)
	SetSalary(ctx context.Context, identity string, amount decimal.Decimal) (bool, error)
}

// Service は保存済み給与と算出給与の照合をまとめます。
type Service struct {
	repo   Repository
	policy SalaryPolicy
	tx     TransactionManager
	logger *zap.Logger
}

// NewService は Service を生成します。policy が nil の場合は既定の給与表を使います。
func NewService(repo Repository, policy SalaryPolicy, tx TransactionManager, logger *zap.Logger) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, policy: policy, tx: tx, logger: logger}
}

// GetEmployeeSalary は社員の給与を返します。保存済みの額があればそれを、なければ算出した額を返し、算出額は保存しません。
func (s *Service) GetEmployeeSalary(ctx context.Context, identity string) (*EmployeeSalary, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, ErrInvalidIdentity
	}

	var result *EmployeeSalary
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		emp, err := s.repo.GetEmployee(txCtx, identity)
		if err != nil {
			return err
		}

		reconciled, err := s.reconcile(txCtx, emp)
		if err != nil {
			return err
		}
		result = reconciled
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListAllWithSalaries は全社員を照合済みの給与とともに返します。
// 1 人でも照合に失敗した場合は一覧全体を失敗とし、エラーには対象の識別子を含めます。
func (s *Service) ListAllWithSalaries(ctx context.Context) ([]*EmployeeSalary, error) {
	var result []*EmployeeSalary
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		employees, err := s.repo.ListEmployees(txCtx)
		if err != nil {
			return err
		}

		entries := make([]*EmployeeSalary, 0, len(employees))
		for _, emp := range employees {
			reconciled, err := s.reconcile(txCtx, emp)
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.Identity(), err)
			}
			entries = append(entries, reconciled)
		}
		result = entries
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateEmployee は社員属性を更新し、給与を再計算して同一トランザクションで保存します。
func (s *Service) UpdateEmployee(ctx context.Context, in EmployeeInput) (*EmployeeSalary, error) {
	emp, err := NewEmployeeFromInput(in)
	if err != nil {
		return nil, err
	}

	amount, err := s.repo.UpdateEmployeeAndSalary(ctx, emp, s.policy)
	if err != nil {
		return nil, err
	}

	s.logger.Info("employee updated",
		zap.String("identity", emp.Identity()),
		zap.Int("category", emp.Category()),
		zap.Int("years", emp.Years()),
		zap.String("salary", amount.String()),
	)

	return &EmployeeSalary{Employee: emp, Salary: amount, Source: SalarySourceStored}, nil
}

// SearchEmployees は指定項目に部分一致する社員を返します。
func (s *Service) SearchEmployees(ctx context.Context, field, value string) ([]*Employee, error) {
	if strings.TrimSpace(field) == "" {
		return nil, ErrInvalidSearchField
	}
	if strings.TrimSpace(value) == "" {
		return nil, ErrInvalidSearchValue
	}

	searchField, err := ParseSearchField(field)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}

	var result []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.SearchEmployees(txCtx, searchField, value)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, identity string) (*Employee, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, ErrInvalidIdentity
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.GetEmployee(txCtx, identity)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は全社員を返します。
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	var result []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListEmployees(txCtx)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// SetSalary は給与額を直接保存します。次回の UpdateEmployee で給与表の額に戻ります。
func (s *Service) SetSalary(ctx context.Context, identity string, amount decimal.Decimal) (bool, error) {
	if strings.TrimSpace(identity) == "" {
		return false, ErrInvalidIdentity
	}
	if amount.IsNegative() {
		return false, ErrNegativeSalary
	}

	var affected bool
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetEmployee(txCtx, identity); err != nil {
			return err
		}

		ok, err := s.repo.SetSalary(txCtx, identity, amount)
		if err != nil {
			return err
		}
		affected = ok
		return nil
	}); err != nil {
		return false, err
	}

	s.logger.Info("salary overridden", zap.String("identity", identity), zap.String("salary", amount.String()))
	return affected, nil
}

func (s *Service) reconcile(ctx context.Context, emp *Employee) (*EmployeeSalary, error) {
	record, found, err := s.repo.GetSalary(ctx, emp.Identity())
	if err != nil {
		return nil, err
	}

	if found {
		s.logger.Debug("salary from storage", zap.String("identity", emp.Identity()))
		return &EmployeeSalary{Employee: emp, Salary: record.Amount, Source: SalarySourceStored}, nil
	}

	amount, err := s.policy.Salary(emp)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("salary computed", zap.String("identity", emp.Identity()))
	return &EmployeeSalary{Employee: emp, Salary: amount, Source: SalarySourceComputed}, nil
}
