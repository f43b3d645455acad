package types

type Role string

func (r Role) String() string {
	return string(r)
}

// RoleDriver - pushes locations and moves a delivery along
// RoleCustomer - follows a delivery
// RoleDispatcher - may change any delivery status
const (
	RoleDriver     Role = "DRIVER"
	RoleCustomer   Role = "CUSTOMER"
	RoleDispatcher Role = "DISPATCHER"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleDriver, RoleCustomer, RoleDispatcher:
		return true
	}
	return false
}
