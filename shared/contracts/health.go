package contracts

// ServiceHealthStatus is the normalized status reported per dependency.
type ServiceHealthStatus string

const (
	HealthOk        ServiceHealthStatus = "OK"
	HealthError     ServiceHealthStatus = "ERROR"
	HealthUndefined ServiceHealthStatus = "UNDEFINED"
)

// HealthCheckReply is the raw shape every service answers health-check
// with: an overall "ok"/"error" status plus one "up"/"down" entry per
// subcheck.
type HealthCheckReply struct {
	Status  string                 `json:"status"`
	Details map[string]CheckDetail `json:"details"`
}

// CheckDetail carries a single subcheck state, "up" or "down".
// Status is free-form on the wire; the aggregator treats anything it
// does not recognize as undefined.
type CheckDetail struct {
	Status string `json:"status"`
}

// Subcheck names used in HealthCheckReply.Details.
const (
	DatabaseCheck = "database"
	RabbitMQCheck = "rabbitmq"
	RedisCheck    = "redis"
)

// ServiceHealth is one normalized entry of the aggregated health report.
// Raw subcheck statuses map "up" -> OK, "down" -> ERROR and anything else
// (including a missing subcheck) -> UNDEFINED.
type ServiceHealth struct {
	Name           string              `json:"name"`
	Status         ServiceHealthStatus `json:"status"`
	Database       ServiceHealthStatus `json:"database"`
	RabbitMQClient ServiceHealthStatus `json:"rabbitMqClient"`
}
