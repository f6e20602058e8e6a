package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "order:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivUserView            = "user:view"
	PrivUserCreate          = "user:create"
	PrivUserUpdate          = "user:update"
	PrivUserDelete          = "user:delete"
	PrivUserUpdatePrivilege = "user:update_privilege"

	PrivProductView   = "product:view"
	PrivProductCreate = "product:create"
	PrivProductUpdate = "product:update"
	PrivProductDelete = "product:delete"
	PrivProductAdjust = "product:adjust"

	PrivCategoryManage = "category:manage"

	PrivCustomerView   = "customer:view"
	PrivCustomerCreate = "customer:create"
	PrivCustomerUpdate = "customer:update"
	PrivCustomerDelete = "customer:delete"

	PrivOrderView   = "order:view"
	PrivOrderCreate = "order:create"
	PrivOrderUpdate = "order:update"
	PrivOrderDelete = "order:delete"

	PrivDashboardView = "dashboard:view"
	PrivReportView    = "report:view"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	{Code: PrivUserView, Name: "View User"},
	{Code: PrivUserCreate, Name: "Create User"},
	{Code: PrivUserUpdate, Name: "Update User"},
	{Code: PrivUserDelete, Name: "Delete User"},
	{Code: PrivUserUpdatePrivilege, Name: "Update User Privileges"},
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductUpdate, Name: "Update Product"},
	{Code: PrivProductDelete, Name: "Delete Product"},
	{Code: PrivProductAdjust, Name: "Adjust Stock"},
	{Code: PrivCategoryManage, Name: "Manage Categories"},
	{Code: PrivCustomerView, Name: "View Customer"},
	{Code: PrivCustomerCreate, Name: "Create Customer"},
	{Code: PrivCustomerUpdate, Name: "Update Customer"},
	{Code: PrivCustomerDelete, Name: "Delete Customer"},
	{Code: PrivOrderView, Name: "View Order"},
	{Code: PrivOrderCreate, Name: "Create Order"},
	{Code: PrivOrderUpdate, Name: "Update Order"},
	{Code: PrivOrderDelete, Name: "Delete Order"},
	{Code: PrivDashboardView, Name: "View Dashboard"},
	{Code: PrivReportView, Name: "View Reports"},
}

// EmployeeExcluded lists the privileges an EMPLOYEE never gets.
var EmployeeExcluded = map[string]bool{
	PrivUserCreate:          true,
	PrivUserUpdate:          true,
	PrivUserDelete:          true,
	PrivUserUpdatePrivilege: true,
	PrivProductDelete:       true,
	PrivCustomerDelete:      true,
	PrivOrderDelete:         true,
}
