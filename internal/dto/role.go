package dto

// AssignRoleRequest is the payload for assigning a role to an account.
type AssignRoleRequest struct {
	Account string `json:"account" validate:"required"`
	Role    string `json:"role" validate:"required"`
}

// RoleResponse reports the current role of an account.
type RoleResponse struct {
	Account string `json:"account"`
	Role    string `json:"role"`
}
