package transport

// LoginRequest opens a session for a user identity, creating it on first login.
type LoginRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

// TaskCreateRequest is a task draft; deadline is RFC3339 or empty for none.
type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline"`
}

type ProgressRequest struct {
	Progress int `json:"progress"`
}

type FilterRequest struct {
	Filter string `json:"filter"`
}

type SortRequest struct {
	Field string `json:"field"`
}

// LoginResponse pairs the session record with its signed bearer token.
type LoginResponse struct {
	Session interface{} `json:"session"`
	Token   string      `json:"token"`
}

// ProjectionResponse reports the active view settings alongside the tasks.
type ProjectionResponse struct {
	Filter    string      `json:"filter"`
	SortField string      `json:"sort_field"`
	Direction string      `json:"direction"`
	Tasks     interface{} `json:"tasks"`
}
