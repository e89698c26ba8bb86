package payment

// Status is the custom type to define the aggregate state of a Payment
type Status string

// Defining the payment statuses. Cancelled is set only by an explicit
// operator action and is terminal.
const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// InstallmentStatus is the custom type to define the state of one installment
type InstallmentStatus string

// Defining the installment statuses
const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Method is the custom type to define how the student pays
type Method string

// Defining the accepted payment methods
const (
	MethodCash       Method = "cash"
	MethodTransfer   Method = "transfer"
	MethodMulticaixa Method = "multicaixa"
)

// MaxInstallments bounds how many shares a Payment may be split into
const MaxInstallments = 2
