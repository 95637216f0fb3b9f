package payroll

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type fakePayrollRepo struct {
	employees map[string]*Employee
	salaries  map[string]decimal.Decimal
	setCalls  int
	getErr    map[string]error
}

func newFakePayrollRepo(employees ...*Employee) *fakePayrollRepo {
	repo := &fakePayrollRepo{
		employees: make(map[string]*Employee),
		salaries:  make(map[string]decimal.Decimal),
		getErr:    make(map[string]error),
	}
	for _, emp := range employees {
		repo.employees[emp.Identity()] = emp
	}
	return repo
}

func (r *fakePayrollRepo) ListEmployees(context.Context) ([]*Employee, error) {
	ids := make([]string, 0, len(r.employees))
	for id := range r.employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]*Employee, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.employees[id])
	}
	return result, nil
}

func (r *fakePayrollRepo) GetEmployee(_ context.Context, identity string) (*Employee, error) {
	if identity == "" {
		return nil, ErrInvalidIdentity
	}
	emp, ok := r.employees[identity]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return emp, nil
}

func (r *fakePayrollRepo) GetSalary(_ context.Context, identity string) (*SalaryRecord, bool, error) {
	if identity == "" {
		return nil, false, ErrInvalidIdentity
	}
	if err := r.getErr[identity]; err != nil {
		return nil, false, StorageError("get salary", err)
	}
	amount, ok := r.salaries[identity]
	if !ok {
		return nil, false, nil
	}
	return &SalaryRecord{Identity: identity, Amount: amount}, true, nil
}

func (r *fakePayrollRepo) SetSalary(_ context.Context, identity string, amount decimal.Decimal) (bool, error) {
	if identity == "" {
		return false, ErrInvalidIdentity
	}
	if amount.IsNegative() {
		return false, ErrNegativeSalary
	}
	r.setCalls++
	r.salaries[identity] = amount
	return true, nil
}

func (r *fakePayrollRepo) SearchEmployees(ctx context.Context, field SearchField, pattern string) ([]*Employee, error) {
	if !field.Valid() {
		return nil, ErrInvalidSearchField
	}
	all, _ := r.ListEmployees(ctx)

	var result []*Employee
	for _, emp := range all {
		var value string
		switch field {
		case SearchFieldName:
			value = emp.Name()
		case SearchFieldIdentity:
			value = emp.Identity()
		case SearchFieldSex:
			value = emp.Sex()
		case SearchFieldCategory:
			value = strconv.Itoa(emp.Category())
		case SearchFieldYears:
			value = strconv.Itoa(emp.Years())
		}
		if strings.Contains(value, pattern) {
			result = append(result, emp)
		}
	}
	return result, nil
}

func (r *fakePayrollRepo) UpdateEmployeeAndSalary(_ context.Context, e *Employee, policy SalaryPolicy) (decimal.Decimal, error) {
	if _, ok := r.employees[e.Identity()]; !ok {
		return decimal.Zero, ErrEmployeeNotFound
	}

	amount, err := policy.Salary(e)
	if err != nil {
		return decimal.Zero, TransactionError("update employee and salary", err)
	}

	r.employees[e.Identity()] = e
	r.setCalls++
	r.salaries[e.Identity()] = amount
	return amount, nil
}

func mustEmployee(identity, name, sex string, category, years int) *Employee {
	return NewEmployeeFromRow(EmployeeRow{Identity: identity, Name: name, Sex: &sex, Category: category, Years: years})
}

func expectedSalary(t *testing.T, category, years int) decimal.Decimal {
	t.Helper()
	amount, err := DefaultPolicy().Salary(mustEmployee("x", "x", "x", category, years))
	if err != nil {
		t.Fatalf("policy returned error: %v", err)
	}
	return amount
}

func TestService_GetEmployeeSalary_ComputedWhenAbsent(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(mustEmployee("12345678A", "Juan", "M", 5, 10))
	svc := NewService(repo, nil, nil, nil)

	got, err := svc.GetEmployeeSalary(context.Background(), "12345678A")
	if err != nil {
		t.Fatalf("GetEmployeeSalary returned error: %v", err)
	}

	want := expectedSalary(t, 5, 10)
	if !got.Salary.Equal(want) {
		t.Fatalf("expected computed salary %s, got %s", want, got.Salary)
	}
	if got.Source != SalarySourceComputed {
		t.Fatalf("expected computed source, got %s", got.Source)
	}
	if repo.setCalls != 0 || len(repo.salaries) != 0 {
		t.Fatalf("computed salary must not be persisted")
	}
}

func TestService_GetEmployeeSalary_StoredWins(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(mustEmployee("12345678A", "Juan", "M", 5, 10))
	repo.salaries["12345678A"] = decimal.NewFromInt(1234)
	svc := NewService(repo, nil, nil, nil)

	got, err := svc.GetEmployeeSalary(context.Background(), "12345678A")
	if err != nil {
		t.Fatalf("GetEmployeeSalary returned error: %v", err)
	}
	if !got.Salary.Equal(decimal.NewFromInt(1234)) {
		t.Fatalf("expected stored salary 1234, got %s", got.Salary)
	}
	if got.Source != SalarySourceStored {
		t.Fatalf("expected stored source, got %s", got.Source)
	}
}

func TestService_GetEmployeeSalary_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakePayrollRepo(), nil, nil, nil)

	_, err := svc.GetEmployeeSalary(context.Background(), "  ")
	if !errors.Is(err, ErrInvalidIdentity) || KindOf(err) != InvalidInputKind {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}

	_, err = svc.GetEmployeeSalary(context.Background(), "missing")
	if KindOf(err) != NotFoundKind {
		t.Fatalf("expected NotFoundKind, got %v", err)
	}
}

func TestService_UpdateEmployee_RecomputesAndPersists(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(mustEmployee("12345678A", "Juan", "M", 5, 10))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	before, err := svc.GetEmployeeSalary(ctx, "12345678A")
	if err != nil {
		t.Fatalf("GetEmployeeSalary returned error: %v", err)
	}
	if !before.Salary.Equal(expectedSalary(t, 5, 10)) {
		t.Fatalf("unexpected salary before update: %s", before.Salary)
	}

	in := EmployeeInput{Identity: "12345678A", Name: "Juan", Sex: "M", Category: "6", Years: "10"}
	updated, err := svc.UpdateEmployee(ctx, in)
	if err != nil {
		t.Fatalf("UpdateEmployee returned error: %v", err)
	}

	want := expectedSalary(t, 6, 10)
	if !updated.Salary.Equal(want) {
		t.Fatalf("expected updated salary %s, got %s", want, updated.Salary)
	}
	if stored := repo.salaries["12345678A"]; !stored.Equal(want) {
		t.Fatalf("expected stored salary %s, got %s", want, stored)
	}

	after, err := svc.GetEmployeeSalary(ctx, "12345678A")
	if err != nil {
		t.Fatalf("GetEmployeeSalary returned error: %v", err)
	}
	if !after.Salary.Equal(want) || after.Source != SalarySourceStored {
		t.Fatalf("expected stored salary %s after update, got %s (%s)", want, after.Salary, after.Source)
	}
	if after.Employee.Category() != 6 {
		t.Fatalf("expected category 6, got %d", after.Employee.Category())
	}

	again, err := svc.UpdateEmployee(ctx, in)
	if err != nil {
		t.Fatalf("second UpdateEmployee returned error: %v", err)
	}
	if !again.Salary.Equal(want) || !repo.salaries["12345678A"].Equal(want) {
		t.Fatalf("repeated update drifted: %s", again.Salary)
	}
}

func TestService_UpdateEmployee_NotFoundLeavesSalaryUntouched(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(mustEmployee("12345678A", "Juan", "M", 5, 10))
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.UpdateEmployee(context.Background(), EmployeeInput{
		Identity: "00000000Z", Name: "Nadie", Sex: "F", Category: "3", Years: "1",
	})
	if !errors.Is(err, ErrEmployeeNotFound) || KindOf(err) != NotFoundKind {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	if _, ok := repo.salaries["00000000Z"]; ok {
		t.Fatalf("salary must not be written for unknown employee")
	}
	if repo.setCalls != 0 {
		t.Fatalf("expected no salary writes, got %d", repo.setCalls)
	}
}

func TestService_UpdateEmployee_PolicyFailureRollsBack(t *testing.T) {
	t.Parallel()

	before := mustEmployee("12345678A", "Juan", "M", 5, 10)
	repo := newFakePayrollRepo(before)
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.UpdateEmployee(context.Background(), EmployeeInput{
		Identity: "12345678A", Name: "Juan", Sex: "M", Category: "42", Years: "10",
	})
	if !errors.Is(err, ErrInvalidCategory) || KindOf(err) != StorageKind {
		t.Fatalf("expected storage error wrapping ErrInvalidCategory, got %v", err)
	}
	if repo.employees["12345678A"] != before {
		t.Fatalf("employee row must stay unchanged on failure")
	}
	if len(repo.salaries) != 0 {
		t.Fatalf("salary must not be written on failure")
	}
}

func TestService_UpdateEmployee_InvalidInput(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakePayrollRepo(), nil, nil, nil)

	cases := []EmployeeInput{
		{Name: "Juan", Sex: "M", Category: "1", Years: "0"},
		{Identity: "1", Sex: "M", Category: "1", Years: "0"},
		{Identity: "1", Name: "Juan", Category: "1", Years: "0"},
		{Identity: "1", Name: "Juan", Sex: "M", Category: "uno", Years: "0"},
		{Identity: "1", Name: "Juan", Sex: "M", Category: "1", Years: ""},
	}
	for _, in := range cases {
		if _, err := svc.UpdateEmployee(context.Background(), in); KindOf(err) != InvalidInputKind {
			t.Errorf("expected InvalidInputKind for %+v, got %v", in, err)
		}
	}
}

func TestService_ListAllWithSalaries_MixesStoredAndComputed(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(
		mustEmployee("12345678A", "Juan", "M", 5, 10),
		mustEmployee("87654321B", "María", "F", 3, 5),
	)
	repo.salaries["87654321B"] = decimal.NewFromInt(99999)
	svc := NewService(repo, nil, nil, nil)

	list, err := svc.ListAllWithSalaries(context.Background())
	if err != nil {
		t.Fatalf("ListAllWithSalaries returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if !list[0].Salary.Equal(expectedSalary(t, 5, 10)) || list[0].Source != SalarySourceComputed {
		t.Fatalf("unexpected first entry: %s %s", list[0].Salary, list[0].Source)
	}
	if !list[1].Salary.Equal(decimal.NewFromInt(99999)) || list[1].Source != SalarySourceStored {
		t.Fatalf("unexpected second entry: %s %s", list[1].Salary, list[1].Source)
	}
	if repo.setCalls != 0 {
		t.Fatalf("listing must not persist salaries")
	}
}

func TestService_ListAllWithSalaries_FailsFast(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(
		mustEmployee("12345678A", "Juan", "M", 5, 10),
		mustEmployee("87654321B", "María", "F", 11, 5),
	)
	svc := NewService(repo, nil, nil, nil)

	list, err := svc.ListAllWithSalaries(context.Background())
	if !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if list != nil {
		t.Fatalf("expected no partial listing, got %d entries", len(list))
	}
	if !strings.Contains(err.Error(), "87654321B") {
		t.Fatalf("expected error to name the employee, got %v", err)
	}

	repo.employees["87654321B"] = mustEmployee("87654321B", "María", "F", 3, 5)
	repo.getErr["87654321B"] = errors.New("connection reset")
	_, err = svc.ListAllWithSalaries(context.Background())
	if KindOf(err) != StorageKind {
		t.Fatalf("expected StorageKind, got %v", err)
	}
}

func TestService_SearchEmployees(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(
		mustEmployee("12345678A", "Juan", "M", 5, 10),
		mustEmployee("87654321B", "María", "F", 3, 5),
		mustEmployee("12399999C", "Pedro", "M", 1, 0),
	)
	svc := NewService(repo, nil, nil, nil)

	found, err := svc.SearchEmployees(context.Background(), "dni", "123")
	if err != nil {
		t.Fatalf("SearchEmployees returned error: %v", err)
	}
	if len(found) != 2 || found[0].Identity() != "12345678A" || found[1].Identity() != "12399999C" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	found, err = svc.SearchEmployees(context.Background(), "identity", "a")
	if err != nil {
		t.Fatalf("SearchEmployees returned error: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected case-sensitive match to find nothing, got %d", len(found))
	}

	if _, err := svc.SearchEmployees(context.Background(), "salary", "1"); !errors.Is(err, ErrInvalidSearchField) {
		t.Fatalf("expected ErrInvalidSearchField, got %v", err)
	}
	if _, err := svc.SearchEmployees(context.Background(), "name", " "); !errors.Is(err, ErrInvalidSearchValue) {
		t.Fatalf("expected ErrInvalidSearchValue, got %v", err)
	}
}

func TestService_SetSalary(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(mustEmployee("12345678A", "Juan", "M", 5, 10))
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.SetSalary(ctx, "12345678A", decimal.NewFromInt(-1)); !errors.Is(err, ErrNegativeSalary) {
		t.Fatalf("expected ErrNegativeSalary, got %v", err)
	}
	if _, err := svc.SetSalary(ctx, "missing", decimal.NewFromInt(10)); KindOf(err) != NotFoundKind {
		t.Fatalf("expected NotFoundKind, got %v", err)
	}

	ok, err := svc.SetSalary(ctx, "12345678A", decimal.NewFromInt(2000))
	if err != nil || !ok {
		t.Fatalf("SetSalary returned %t, %v", ok, err)
	}

	got, err := svc.GetEmployeeSalary(ctx, "12345678A")
	if err != nil {
		t.Fatalf("GetEmployeeSalary returned error: %v", err)
	}
	if !got.Salary.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected overridden salary, got %s", got.Salary)
	}
}

type recordingTx struct {
	readOnly  int
	readWrite int
}

func (r *recordingTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	r.readOnly++
	return fn(ctx)
}

func (r *recordingTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	r.readWrite++
	return fn(ctx)
}

func TestService_ReadsShareOneTransaction(t *testing.T) {
	t.Parallel()

	repo := newFakePayrollRepo(mustEmployee("12345678A", "Juan", "M", 5, 10))
	tx := &recordingTx{}
	svc := NewService(repo, nil, tx, nil)

	if _, err := svc.GetEmployeeSalary(context.Background(), "12345678A"); err != nil {
		t.Fatalf("GetEmployeeSalary returned error: %v", err)
	}
	if _, err := svc.ListAllWithSalaries(context.Background()); err != nil {
		t.Fatalf("ListAllWithSalaries returned error: %v", err)
	}

	if tx.readOnly != 2 || tx.readWrite != 0 {
		t.Fatalf("expected 2 read-only transactions, got ro=%d rw=%d", tx.readOnly, tx.readWrite)
	}
}

func TestService_CustomPolicy(t *testing.T) {
	t.Parallel()

	flat := PolicyFunc(func(e *Employee) (decimal.Decimal, error) {
		return decimal.NewFromInt(int64(e.Category() * 100)), nil
	})
	repo := newFakePayrollRepo(mustEmployee("12345678A", "Juan", "M", 5, 10))
	svc := NewService(repo, flat, nil, nil)

	got, err := svc.GetEmployeeSalary(context.Background(), "12345678A")
	if err != nil {
		t.Fatalf("GetEmployeeSalary returned error: %v", err)
	}
	if !got.Salary.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected 500 from custom policy, got %s", got.Salary)
	}
}
