package domain

// OperatorRole enumerates roles carried in tokens issued by the auth layer.
type OperatorRole string

const (
	OperatorRoleAdvisor    OperatorRole = "ADVISOR"
	OperatorRoleSupervisor OperatorRole = "SUPERVISOR"
	OperatorRoleAdmin      OperatorRole = "ADMIN"
)
