package contracts

// Message patterns are the broker routing identifiers for every
// request/reply operation. Each service registers handlers for its own
// patterns and clients address calls by pattern + destination queue.

// Auth patterns
const (
	RegisterUserPattern = "register-user"
	LoginUserPattern    = "login-user"
	RefreshTokenPattern = "refresh-token"
	UpdateUserPattern   = "update-user"
	FindAllUsersPattern = "find-all-users"
)

// Task patterns
const (
	CreateTaskPattern   = "create-task"
	UpdateTaskPattern   = "update-task"
	FindAllTasksPattern = "find-all-tasks"
	FindOneTaskPattern  = "find-one-task"
	AddTaskLogPattern   = "add-task-log"
)

// Comment patterns
const (
	CreateCommentPattern   = "create-comment"
	FindAllCommentsPattern = "find-all-comments"
)

// Notification patterns
const (
	HandleNotificationPattern = "handle-notification"
)

// Health patterns
const (
	HealthCheckPattern = "health-check"
)

// Queue names - configurable constants
const (
	AuthQueue         = "auth_queue"
	TaskQueue         = "task_queue"
	NotificationQueue = "notification_queue"
)
