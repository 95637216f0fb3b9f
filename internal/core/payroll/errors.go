package payroll

import (
	"errors"
	"fmt"
)

// Kind はエラーの分類です。
type Kind uint8

const (
	// KindUnknown は分類されていないエラーです。
	KindUnknown Kind = iota
	// InvalidInputKind は呼び出し元の入力が不正な場合の分類です。
	InvalidInputKind
	// NotFoundKind は参照先の社員が存在しない場合の分類です。
	NotFoundKind
	// StorageKind は永続化層の I/O またはトランザクション失敗の分類です。
	StorageKind
	// InvalidStateKind は生成時に必須項目が欠けている場合の分類です。
	InvalidStateKind
)

func (k Kind) String() string {
	switch k {
	case InvalidInputKind:
		return "invalid_input"
	case NotFoundKind:
		return "not_found"
	case StorageKind:
		return "storage"
	case InvalidStateKind:
		return "invalid_state"
	default:
		return "unknown"
	}
}

// Error は分類付きのエラーです。
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidIdentity は識別子が空の場合に返却されます。
	ErrInvalidIdentity = newKindError(InvalidInputKind, "payroll: invalid identity")
	// ErrInvalidName は氏名が空の場合に返却されます。
	ErrInvalidName = newKindError(InvalidInputKind, "payroll: invalid name")
	// ErrInvalidSex は性別コードが空の場合に返却されます。
	ErrInvalidSex = newKindError(InvalidInputKind, "payroll: invalid sex")
	// ErrInvalidCategory はカテゴリが整数でない、または給与表の範囲外の場合に返却されます。
	ErrInvalidCategory = newKindError(InvalidInputKind, "payroll: invalid category")
	// ErrInvalidYears は勤続年数が整数でない、または負の場合に返却されます。
	ErrInvalidYears = newKindError(InvalidInputKind, "payroll: invalid years of service")
	// ErrInvalidSearchField は検索項目が許可リストにない場合に返却されます。
	ErrInvalidSearchField = newKindError(InvalidInputKind, "payroll: invalid search field")
	// ErrInvalidSearchValue は検索値が空の場合に返却されます。
	ErrInvalidSearchValue = newKindError(InvalidInputKind, "payroll: invalid search value")
	// ErrNegativeSalary は給与額が負の場合に返却されます。
	ErrNegativeSalary = newKindError(InvalidInputKind, "payroll: salary must not be negative")
	// ErrEmployeeNotFound は社員が存在しない場合に返却されます。
	ErrEmployeeNotFound = newKindError(NotFoundKind, "payroll: employee not found")
	// ErrMissingRequiredField は基本生成で必須項目が欠けている場合に返却されます。
	ErrMissingRequiredField = newKindError(InvalidStateKind, "payroll: identity, name and sex are required")
)

func newKindError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// KindOf はエラーチェーンから最も外側の分類を返します。
func KindOf(err error) Kind {
	var kindErr *Error
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	return KindUnknown
}

// StorageError は分類されていない原因を StorageKind で包みます。既に分類を持つエラーはそのまま返します。
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &Error{Kind: StorageKind, Err: fmt.Errorf("payroll: %s: %w", op, err)}
}

// TransactionError はトランザクション内の失敗を StorageKind で包みます。NotFoundKind のみそのまま返します。
func TransactionError(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == NotFoundKind {
		return err
	}
	return &Error{Kind: StorageKind, Err: fmt.Errorf("payroll: %s: %w", op, err)}
}
