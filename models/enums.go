package models

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "Pending"
	PaymentStatusProcessing PaymentStatus = "Processing"
	PaymentStatusOverdue    PaymentStatus = "Overdue"
	PaymentStatusCompleted  PaymentStatus = "Completed"
	PaymentStatusCancelled  PaymentStatus = "Cancelled"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusOverdue, PaymentStatusCompleted, PaymentStatusCancelled:
		return true
	}
	return false
}

// IsManual reports statuses that are stored as given and never derived.
func (s PaymentStatus) IsManual() bool {
	return s == PaymentStatusCancelled || s == PaymentStatusProcessing
}

type PaymentType string

const (
	PaymentTypeIncome  PaymentType = "Income"
	PaymentTypeExpense PaymentType = "Expense"
)

func (t PaymentType) IsValid() bool {
	return t == PaymentTypeIncome || t == PaymentTypeExpense
}

type CaseStatus string

const (
	CaseStatusOpen   CaseStatus = "Open"
	CaseStatusOnHold CaseStatus = "OnHold"
	CaseStatusClosed CaseStatus = "Closed"
)

func (s CaseStatus) IsValid() bool {
	return s == CaseStatusOpen || s == CaseStatusOnHold || s == CaseStatusClosed
}

type ContractStatus string

const (
	ContractStatusDraft      ContractStatus = "Draft"
	ContractStatusActive     ContractStatus = "Active"
	ContractStatusCompleted  ContractStatus = "Completed"
	ContractStatusTerminated ContractStatus = "Terminated"
)

func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractStatusDraft, ContractStatusActive, ContractStatusCompleted, ContractStatusTerminated:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "Draft"
	InvoiceStatusIssued    InvoiceStatus = "Issued"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

type ActStatus string

const (
	ActStatusCreated     ActStatus = "Created"
	ActStatusTransferred ActStatus = "Transferred"
	ActStatusSigned      ActStatus = "Signed"
	ActStatusTerminated  ActStatus = "Terminated"
)

func (s ActStatus) IsValid() bool {
	switch s {
	case ActStatusCreated, ActStatusTransferred, ActStatusSigned, ActStatusTerminated:
		return true
	}
	return false
}

type ActivityStatus string

const (
	ActivityStatusSuccess ActivityStatus = "Success"
	ActivityStatusFailed  ActivityStatus = "Failed"
)

type PermissionAction string

const (
	PermissionView   PermissionAction = "view"
	PermissionCreate PermissionAction = "create"
	PermissionEdit   PermissionAction = "edit"
	PermissionDelete PermissionAction = "delete"
	PermissionExport PermissionAction = "export"
)

// Sections are the admin panel areas a RolePermission row covers.
const (
	SectionCalendar     = "calendar"
	SectionPayments     = "payments"
	SectionClients      = "clients"
	SectionCases        = "cases"
	SectionContracts    = "contracts"
	SectionInvoices     = "invoices"
	SectionActs         = "acts"
	SectionReports      = "reports"
	SectionDictionaries = "dictionaries"
	SectionUsers        = "users"
	SectionRoles        = "roles"
	SectionActivity     = "activity"
	SectionCalculator   = "calculator"
)

var AllSections = []string{
	SectionCalendar, SectionPayments, SectionClients, SectionCases, SectionContracts,
	SectionInvoices, SectionActs, SectionReports, SectionDictionaries, SectionUsers,
	SectionRoles, SectionActivity, SectionCalculator,
}

func IsValidSection(section string) bool {
	for _, s := range AllSections {
		if s == section {
			return true
		}
	}
	return false
}

type PaymentEventType string

const (
	PaymentEventCompleted PaymentEventType = "payment.completed"
	PaymentEventOverdue   PaymentEventType = "payment.overdue"
	PaymentEventCancelled PaymentEventType = "payment.cancelled"
	PaymentEventStatus    PaymentEventType = "payment.status_changed"
)

type OutboxPublishStatus string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusPublished  OutboxPublishStatus = "PUBLISHED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)

// Reference types a Document can be attached to.
const (
	DocumentReferencePayment  = "payments"
	DocumentReferenceContract = "contracts"
	DocumentReferenceInvoice  = "invoices"
	DocumentReferenceAct      = "acts"
	DocumentReferenceClient   = "clients"
)
