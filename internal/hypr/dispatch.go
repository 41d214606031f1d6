package hypr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Notification icons understood by `hyprctl notify`.
const (
	IconWarning = 0
	IconInfo    = 1
	IconHint    = 2
	IconError   = 3
	IconOK      = 5
)

const defaultNotifyColor = "rgb(89b4fa)"

// SendShortcut dispatches a literal sendshortcut payload such as
// "CTRL,V,address:0xabc".
func SendShortcut(ctx context.Context, payload string) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	return dispatch(ctx, "sendshortcut", payload)
}

// Notify shows a compositor toast. An empty color uses the default accent.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = defaultNotifyColor
	}
	return dispatch(ctx, "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
}

// DismissNotify clears every visible compositor toast.
func DismissNotify(ctx context.Context) error {
	return dispatch(ctx, "dismissnotify")
}
