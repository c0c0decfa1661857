package model

// WebSocket message types
const (
	WSMessageTypeProgress = "photo:progress"
	WSMessageTypeComplete = "photo:complete"
	WSMessageTypeError    = "photo:error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage is a stage checkpoint pushed while a photo is analyzed
type WSProgressMessage struct {
	Type     string `json:"type"`
	PhotoID  int64  `json:"photoId"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// WSCompleteMessage carries the fully reloaded photo after a successful run
type WSCompleteMessage struct {
	Type    string       `json:"type"`
	PhotoID int64        `json:"photoId"`
	Photo   *PhotoDetail `json:"photo"`
	Message string       `json:"message"`
}

// WSErrorMessage is the single terminal event of a failed run
type WSErrorMessage struct {
	Type    string `json:"type"`
	PhotoID int64  `json:"photoId"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
