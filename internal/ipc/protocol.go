// Package ipc carries newline-delimited JSON commands between the parley CLI
// and the process that owns the relay.
package ipc

// Commands understood by the owning process.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
	CommandLast   = "last"
	CommandSpeak  = "speak"
	CommandHush   = "hush"
)

type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
	Voice   string `json:"voice,omitempty"`
}

type Response struct {
	OK          bool   `json:"ok"`
	State       string `json:"state,omitempty"`
	URL         string `json:"url,omitempty"`
	Submissions int    `json:"submissions,omitempty"`
	Speaking    bool   `json:"speaking,omitempty"`
	Message     string `json:"message,omitempty"`
	Text        string `json:"text,omitempty"`
	Error       string `json:"error,omitempty"`
}
